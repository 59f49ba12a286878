package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var ErrInvalidVersion = errors.New("invalid version")

var (
	assetVersionRe = regexp.MustCompile(`-v([0-9]+(?:\.[0-9]+)*)\.zip$`)
	versionRe      = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)*$`)
)

// ParseVersion extracts a version from an asset file name
// (Jellyfin.Plugin.Subdivx-v1.0.0.zip), a tag (v1.0.0) or a bare version (1.0.0).
func ParseVersion(arg string) (string, error) {
	fn := filepath.Base(strings.TrimSpace(arg))

	if m := assetVersionRe.FindStringSubmatch(fn); m != nil {
		return m[1], nil
	}

	v := fn
	if strings.HasPrefix(strings.ToLower(v), "v") {
		v = v[1:]
	}
	if versionRe.MatchString(v) {
		return v, nil
	}
	return "", fmt.Errorf("%w: could not extract version from %q", ErrInvalidVersion, arg)
}

// IsDowngrade reports whether version is lower than current. Versions semver
// cannot interpret are never considered a downgrade.
func IsDowngrade(version, current string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	c, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return v.LessThan(c)
}
