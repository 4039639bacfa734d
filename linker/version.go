package linker

import (
	"strconv"
	"strings"
)

// Version represents a semantic version for namespace matching
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// ParseVersion parses a version string like "0.2.0" or "0.2"
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, false
	}

	var v Version
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return Version{}, false
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, false
		}
		switch i {
		case 0:
			v.Major = uint32(n)
		case 1:
			v.Minor = uint32(n)
		case 2:
			v.Patch = uint32(n)
		}
	}
	return v, true
}

// Compatible returns true if v can serve an import that wants version want:
// same major, and not older than want.
func (v Version) Compatible(want Version) bool {
	if v.Major != want.Major {
		return false
	}
	if v.Minor != want.Minor {
		return v.Minor > want.Minor
	}
	return v.Patch >= want.Patch
}

// Newer reports whether v sorts after o.
func (v Version) Newer(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Patch > o.Patch
}

// String returns the version as "major.minor.patch"
func (v Version) String() string {
	return strconv.FormatUint(uint64(v.Major), 10) + "." +
		strconv.FormatUint(uint64(v.Minor), 10) + "." +
		strconv.FormatUint(uint64(v.Patch), 10)
}

// splitVersion splits "wasi:surface/surface@0.2.0" into its base name and
// version. ok is false when there is no parseable version suffix.
func splitVersion(ns string) (base string, v Version, ok bool) {
	idx := strings.LastIndex(ns, "@")
	if idx < 0 {
		return ns, Version{}, false
	}
	v, ok = ParseVersion(ns[idx+1:])
	if !ok {
		return ns, Version{}, false
	}
	return ns[:idx], v, true
}
