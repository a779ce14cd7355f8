package bundle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/gridlink/internal/failure"
)

// Version is a major.minor bundle or platform version.
type Version struct {
	Major int
	Minor int
}

// ParseVersion parses "major.minor". A bare "major" means minor 0.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	majorStr, minorStr, hasMinor := strings.Cut(s, ".")
	if !hasMinor {
		minorStr = "0"
	}

	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return Version{}, failure.New(failure.IllegalVersion, "", "illegal version %q", s)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil || minor < 0 {
		return Version{}, failure.New(failure.IllegalVersion, "", "illegal version %q", s)
	}
	return Version{Major: major, Minor: minor}, nil
}

// MustParseVersion is ParseVersion for constants; it panics on bad input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
