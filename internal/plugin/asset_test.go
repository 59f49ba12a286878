package plugin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lvitti/manifest-bot/internal/config"
	"github.com/lvitti/manifest-bot/pkg/client"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testAsset = []byte("test-file")

func newReleaseServer(t *testing.T, hits *int) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/{owner}/{repo}/releases/download/{tag}/{asset}", func(w http.ResponseWriter, r *http.Request) {
		*hits++
		require.Equal(t, "owner", chi.URLParam(r, "owner"))
		require.Equal(t, "repo", chi.URLParam(r, "repo"))
		if chi.URLParam(r, "tag") != "v2.3.1" || chi.URLParam(r, "asset") != "Jellyfin.Plugin.Subdivx-v2.3.1.zip" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, err := w.Write(testAsset)
		require.NoError(t, err)
	})
	return httptest.NewServer(r)
}

func newTestProvider(baseURL string) *AssetProvider {
	log := logrus.New()
	log.Out = io.Discard
	cfg := &config.Config{
		Repo:            "owner/repo",
		DownloadBaseURL: baseURL,
		HTTPTimeout:     time.Minute,
	}
	return NewAssetProvider(log, cfg, client.New(cfg.UserAgent(), cfg.HTTPTimeout))
}

func TestWithAssetDownloads(t *testing.T) {
	hits := 0
	ts := newReleaseServer(t, &hits)
	defer ts.Close()

	var seenPath string
	err := newTestProvider(ts.URL).WithAsset(context.Background(), "v2.3.1", "2.3.1", func(path string) error {
		seenPath = path
		require.Equal(t, "Jellyfin.Plugin.Subdivx-v2.3.1.zip", filepath.Base(path))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, testAsset, content)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	_, err = os.Stat(filepath.Dir(seenPath))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithAssetUsesLocalFile(t *testing.T) {
	hits := 0
	ts := newReleaseServer(t, &hits)
	defer ts.Close()

	local := filepath.Join(t.TempDir(), "Jellyfin.Plugin.Subdivx-v2.3.1.zip")
	require.NoError(t, os.WriteFile(local, []byte("local"), 0o600))

	err := newTestProvider(ts.URL).WithAsset(context.Background(), local, "2.3.1", func(path string) error {
		require.Equal(t, local, path)
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, hits)
	_, err = os.Stat(local)
	require.NoError(t, err)
}

func TestWithAssetDownloadError(t *testing.T) {
	hits := 0
	ts := newReleaseServer(t, &hits)
	defer ts.Close()

	called := false
	err := newTestProvider(ts.URL).WithAsset(context.Background(), "9.9.9", "9.9.9", func(string) error {
		called = true
		return nil
	})
	require.False(t, called)

	var dlErr *DownloadError
	require.True(t, errors.As(err, &dlErr))
	require.Equal(t, "Jellyfin.Plugin.Subdivx-v9.9.9.zip", dlErr.Asset)
	require.Equal(t, "9.9.9", dlErr.Version)
	require.ErrorContains(t, err, `failed to download release asset "Jellyfin.Plugin.Subdivx-v9.9.9.zip" for v9.9.9`)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestWithAssetCleansUpOnCallbackError(t *testing.T) {
	hits := 0
	ts := newReleaseServer(t, &hits)
	defer ts.Close()

	var seenPath string
	cbErr := errors.New("boom")
	err := newTestProvider(ts.URL).WithAsset(context.Background(), "2.3.1", "2.3.1", func(path string) error {
		seenPath = path
		return cbErr
	})
	require.ErrorIs(t, err, cbErr)
	_, err = os.Stat(filepath.Dir(seenPath))
	require.ErrorIs(t, err, os.ErrNotExist)
}
