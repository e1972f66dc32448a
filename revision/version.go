package revision

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// VERSION - Dotted major.minor revision versions
// =============================================================================

// Version is a dotted major.minor revision version. Critical changes bump
// major and reset minor; non-critical changes bump minor.
type Version struct {
	Major int
	Minor int
}

func NewVersion(major, minor int) Version { return Version{Major: major, Minor: minor} }

// ParseVersion parses "1.3" into {1, 3}. A bare "2" is read as "2.0".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 1 || len(parts) > 2 || parts[0] == "" {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("malformed version %q", s)
	}
	minor := 0
	if len(parts) == 2 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil || minor < 0 {
			return Version{}, fmt.Errorf("malformed version %q", s)
		}
	}
	return Version{Major: major, Minor: minor}, nil
}

// MustParseVersion panics on malformed input. For literals in tests and
// scenario seeds only.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

func (v Version) IsZero() bool { return v.Major == 0 && v.Minor == 0 }

// Compare orders versions lexicographically by (major, minor).
// Returns -1, 0, or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor != o.Minor:
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (v Version) Before(o Version) bool { return v.Compare(o) < 0 }

func (v Version) BumpMajor() Version { return Version{Major: v.Major + 1, Minor: 0} }

func (v Version) BumpMinor() Version { return Version{Major: v.Major, Minor: v.Minor + 1} }

// NextVersion computes the draft version from its base. A critical change
// anywhere in the draft forces the major bump; callers pass hasCritical
// over the union of all changes recorded so far, so the version never
// decreases while a draft is edited.
func NextVersion(base Version, hasCritical bool) Version {
	if hasCritical {
		return base.BumpMajor()
	}
	return base.BumpMinor()
}
