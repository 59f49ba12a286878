package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultRepo      = "lvitti/jellyfin-plugin-subdivx"
	DefaultTargetABI = "10.10.x.x"
	DefaultChangelog = "Auto Released by Actions"
	DefaultOutput    = "manifest.json"

	assetNameTemplate = "Jellyfin.Plugin.Subdivx-v%s.zip"
	userAgentTemplate = "manifest-bot/1.1 (+https://github.com/%s)"
)

type Config struct {
	Repo                 string        `envconfig:"MANIFEST_REPO" default:"lvitti/jellyfin-plugin-subdivx"`
	TargetABI            string        `envconfig:"MANIFEST_TARGET_ABI" default:"10.10.x.x"`
	OutputFile           string        `envconfig:"MANIFEST_OUTPUT" default:"manifest.json"`
	Changelog            string        `envconfig:"MANIFEST_CHANGELOG" default:"Auto Released by Actions"`
	ChangelogFromRelease bool          `envconfig:"MANIFEST_CHANGELOG_FROM_RELEASE"`
	RawBaseURL           string        `envconfig:"MANIFEST_RAW_BASE_URL" default:"https://raw.githubusercontent.com"`
	DownloadBaseURL      string        `envconfig:"MANIFEST_DOWNLOAD_BASE_URL" default:"https://github.com"`
	GitHubAPIURL         string        `envconfig:"MANIFEST_GITHUB_API_URL"`
	HTTPTimeout          time.Duration `envconfig:"MANIFEST_HTTP_TIMEOUT" default:"1m"`
	LogLevel             string        `envconfig:"MANIFEST_LOG_LEVEL" default:"info"`
	DryRun               bool          `ignored:"true"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that are not covered by envconfig.
func (c *Config) Validate() error {
	owner, name, found := strings.Cut(c.Repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid repository %q: expected owner/name", c.Repo)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	for _, u := range []string{c.RawBaseURL, c.DownloadBaseURL} {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
	}
	return nil
}

func (c *Config) UserAgent() string {
	return fmt.Sprintf(userAgentTemplate, c.Repo)
}

// AssetName returns the release asset file name for a version.
func AssetName(version string) string {
	return fmt.Sprintf(assetNameTemplate, version)
}

// ManifestURL is the location of the published manifest, the source of truth for the merge.
func (c *Config) ManifestURL() string {
	return mustJoin(c.RawBaseURL, c.Repo, "repo", "manifest.json")
}

// ReleaseAssetURL is used both to download the asset and as the entry's sourceUrl.
func (c *Config) ReleaseAssetURL(version, asset string) string {
	return mustJoin(c.DownloadBaseURL, c.Repo, "releases", "download", "v"+version, asset)
}

func mustJoin(base string, elem ...string) string {
	p, err := url.JoinPath(base, elem...)
	if err != nil {
		panic(err)
	}
	return p
}
