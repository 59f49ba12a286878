package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lvitti/manifest-bot/internal/config"
	"github.com/lvitti/manifest-bot/pkg/client"
	"github.com/sirupsen/logrus"
)

// DownloadError reports a failed release asset download.
type DownloadError struct {
	Asset   string
	Version string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download release asset %q for v%s: %v", e.Asset, e.Version, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

type AssetProvider struct {
	log    logrus.FieldLogger
	cfg    *config.Config
	client *client.Client
}

func NewAssetProvider(log logrus.FieldLogger, cfg *config.Config, c *client.Client) *AssetProvider {
	return &AssetProvider{
		log:    log.WithField("component", "asset"),
		cfg:    cfg,
		client: c,
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// WithAsset calls fn with a local path holding the release artifact. If arg
// names an existing file it is used directly, otherwise the asset of version
// is downloaded into a temporary directory that is removed once fn returns.
func (a *AssetProvider) WithAsset(ctx context.Context, arg, version string, fn func(path string) error) error {
	tmpDir, err := os.MkdirTemp("", "manifest-update-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			a.log.Warnf("failed to remove %s: %v", tmpDir, err)
		}
	}()

	if isFile(arg) {
		a.log.WithField("path", arg).Info("using local asset")
		return fn(arg)
	}

	assetName := config.AssetName(version)
	localPath := filepath.Join(tmpDir, assetName)
	if err := a.download(ctx, version, assetName, localPath); err != nil {
		return err
	}
	return fn(localPath)
}

func (a *AssetProvider) download(ctx context.Context, version, assetName, dest string) error {
	url := a.cfg.ReleaseAssetURL(version, assetName)
	log := a.log.WithFields(logrus.Fields{
		"asset":   assetName,
		"version": version,
		"url":     url,
	})
	log.Info("downloading release asset")

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := a.client.Download(ctx, url, f)
	closeErr := f.Close()
	if err != nil {
		return &DownloadError{Asset: assetName, Version: version, Err: err}
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", dest, closeErr)
	}
	log.Debugf("downloaded %d bytes", n)
	return nil
}
