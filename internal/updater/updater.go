package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/lvitti/manifest-bot/internal/config"
	"github.com/lvitti/manifest-bot/internal/manifest"
	"github.com/lvitti/manifest-bot/internal/plugin"
	"github.com/lvitti/manifest-bot/pkg/client"
	"github.com/lvitti/manifest-bot/pkg/registry"
	"github.com/sirupsen/logrus"
)

// Result summarizes a manifest update.
type Result struct {
	Version    string
	TargetABI  string
	SourceURL  string
	Checksum   string
	OutputFile string
	// Manifest is the encoded document; only set in dry-run mode.
	Manifest []byte
}

type Updater struct {
	log      logrus.FieldLogger
	cfg      *config.Config
	client   *client.Client
	ghClient *github.Client
	assets   *plugin.AssetProvider
	now      func() time.Time
}

type Option func(u *Updater)

// WithGitHubClient replaces the client used to look up release notes.
func WithGitHubClient(ghClient *github.Client) Option {
	return func(u *Updater) {
		u.ghClient = ghClient
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

func New(log logrus.FieldLogger, cfg *config.Config, opts ...Option) (*Updater, error) {
	c := client.New(cfg.UserAgent(), cfg.HTTPTimeout)
	u := &Updater{
		log:    log,
		cfg:    cfg,
		client: c,
		assets: plugin.NewAssetProvider(log, cfg, c),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.ghClient == nil && cfg.ChangelogFromRelease {
		ghClient, err := newGitHubClient(cfg, c)
		if err != nil {
			return nil, err
		}
		u.ghClient = ghClient
	}
	return u, nil
}

func newGitHubClient(cfg *config.Config, c *client.Client) (*github.Client, error) {
	ghClient := github.NewClient(c.StandardClient())
	ghClient.UserAgent = c.UserAgent()
	if cfg.GitHubAPIURL == "" {
		return ghClient, nil
	}
	return ghClient.WithEnterpriseURLs(cfg.GitHubAPIURL, cfg.GitHubAPIURL)
}

// Run resolves the version in arg, checksums the release asset and merges a
// new entry into the remote manifest.
func (u *Updater) Run(ctx context.Context, arg string) (*Result, error) {
	version, err := plugin.ParseVersion(arg)
	if err != nil {
		return nil, err
	}
	log := u.log.WithField("version", version)
	log.Info("resolved release version")

	assetName := config.AssetName(version)
	sourceURL := u.cfg.ReleaseAssetURL(version, assetName)

	var checksum string
	var updated *registry.Manifest
	err = u.assets.WithAsset(ctx, arg, version, func(path string) error {
		var mErr error
		checksum, updated, mErr = u.merge(ctx, log, path, version, sourceURL)
		return mErr
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Version:    version,
		TargetABI:  u.cfg.TargetABI,
		SourceURL:  sourceURL,
		Checksum:   checksum,
		OutputFile: u.cfg.OutputFile,
	}
	if u.cfg.DryRun {
		data, err := updated.Encode()
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest: %w", err)
		}
		res.Manifest = data
		log.Info("dry run, manifest not written")
		return res, nil
	}
	if err := manifest.Write(u.cfg.OutputFile, updated); err != nil {
		return nil, err
	}
	log.WithField("path", u.cfg.OutputFile).Info("manifest written")
	return res, nil
}

func (u *Updater) merge(ctx context.Context, log logrus.FieldLogger, path, version, sourceURL string) (string, *registry.Manifest, error) {
	checksum, err := plugin.FileChecksum(path)
	if err != nil {
		return "", nil, err
	}
	log.WithField("checksum", checksum).Info("computed asset checksum")

	changelog, err := u.changelog(ctx, version)
	if err != nil {
		return "", nil, err
	}

	manifestURL := u.cfg.ManifestURL()
	log.WithField("url", manifestURL).Info("fetching remote manifest")
	m, err := manifest.Fetch(ctx, u.client, manifestURL)
	if err != nil {
		return "", nil, err
	}

	entry := &registry.VersionEntry{
		Checksum:  checksum,
		Changelog: changelog,
		TargetABI: u.cfg.TargetABI,
		SourceURL: sourceURL,
		Timestamp: u.now().UTC().Format(registry.TimestampFormat),
		Version:   version,
	}
	kept, err := manifest.Merge(m, entry)
	if err != nil {
		return "", nil, err
	}
	warnOnDowngrade(log, version, kept)
	return checksum, m, nil
}

func (u *Updater) changelog(ctx context.Context, version string) (string, error) {
	if !u.cfg.ChangelogFromRelease {
		return u.cfg.Changelog, nil
	}
	notes, err := plugin.ReleaseNotes(ctx, u.ghClient, u.cfg.Repo, version)
	if err != nil {
		return "", err
	}
	if notes == "" {
		u.log.Warnf("release v%s has no notes, using %q", version, u.cfg.Changelog)
		return u.cfg.Changelog, nil
	}
	return notes, nil
}

func warnOnDowngrade(log logrus.FieldLogger, version string, kept []json.RawMessage) {
	if len(kept) == 0 {
		return
	}
	latest, ok, err := registry.EntryVersion(kept[0])
	if err != nil || !ok {
		return
	}
	if plugin.IsDowngrade(version, latest) {
		log.Warnf("v%s is older than the newest published version v%s", version, latest)
	}
}
