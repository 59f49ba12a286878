package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lvitti/manifest-bot/pkg/client"
	"github.com/lvitti/manifest-bot/pkg/registry"
)

const filePerms = 0o644

// Fetch downloads and parses the manifest published at url.
func Fetch(ctx context.Context, c *client.Client, url string) (*registry.Manifest, error) {
	var m registry.Manifest
	if err := c.GetJSON(ctx, url, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (*registry.Manifest, error) {
	var m registry.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Merge removes every entry of the first plugin descriptor whose version
// equals entry.Version and puts entry in front of the remaining ones.
// It returns the entries that were kept, in their original order.
func Merge(m *registry.Manifest, entry *registry.VersionEntry) ([]json.RawMessage, error) {
	if m == nil || m.Plugin == nil {
		return nil, registry.ErrUnexpectedStructure
	}
	versions, err := m.Plugin.Versions()
	if err != nil {
		return nil, err
	}
	filtered := make([]json.RawMessage, 0, len(versions))
	for _, v := range versions {
		version, ok, err := registry.EntryVersion(v)
		if err != nil {
			return nil, err
		}
		if ok && version == entry.Version {
			continue
		}
		filtered = append(filtered, v)
	}

	rawEntry, err := entry.RawMessage()
	if err != nil {
		return nil, err
	}
	merged := make([]json.RawMessage, 0, len(filtered)+1)
	merged = append(merged, rawEntry)
	merged = append(merged, filtered...)
	if err := m.Plugin.SetVersions(merged); err != nil {
		return nil, err
	}
	return filtered, nil
}

// Write serializes m and replaces the file at path. Nothing is written if
// serialization fails.
func Write(path string, m *registry.Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, filePerms); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
