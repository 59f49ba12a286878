package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionEntryKeyOrder(t *testing.T) {
	entry := &VersionEntry{
		Checksum:  "d41d8cd98f00b204e9800998ecf8427e",
		Changelog: "Auto Released by Actions",
		TargetABI: "10.10.x.x",
		SourceURL: "https://example.com/a.zip",
		Timestamp: "2026-10-17T10:00:00Z",
		Version:   "1.0.0",
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.Equal(t,
		`{"checksum":"d41d8cd98f00b204e9800998ecf8427e","changelog":"Auto Released by Actions","targetAbi":"10.10.x.x","sourceUrl":"https://example.com/a.zip","timestamp":"2026-10-17T10:00:00Z","version":"1.0.0"}`,
		string(data),
	)
}

func TestPluginDescriptorPreservesKeyOrder(t *testing.T) {
	input := `{"guid":"abc","name":"Subdivx","versions":[{"version":"1.0.0"}],"category":"Subtitles"}`
	var p PluginDescriptor
	require.NoError(t, json.Unmarshal([]byte(input), &p))
	require.Equal(t, []string{"guid", "name", "versions", "category"}, p.Keys())

	out, err := json.Marshal(&p)
	require.NoError(t, err)
	require.JSONEq(t, input, string(out))
	require.Equal(t, input, string(out))
}

func TestPluginDescriptorDuplicateKey(t *testing.T) {
	var p PluginDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":2,"a":3}`), &p))
	require.Equal(t, []string{"a", "b"}, p.Keys())
	v, ok := p.Field("a")
	require.True(t, ok)
	require.Equal(t, "3", string(v))
}

func TestPluginDescriptorVersions(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{input: `{"name":"x"}`, expected: 0},
		{input: `{"versions":null}`, expected: 0},
		{input: `{"versions":[]}`, expected: 0},
		{input: `{"versions":[{"version":"1.0.0"},{"version":"0.9.0"}]}`, expected: 2},
	}
	for _, testCase := range testCases {
		var p PluginDescriptor
		require.NoError(t, json.Unmarshal([]byte(testCase.input), &p))
		versions, err := p.Versions()
		require.NoError(t, err)
		require.Len(t, versions, testCase.expected, testCase.input)
	}

	var p PluginDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"versions":"nope"}`), &p))
	_, err := p.Versions()
	require.ErrorContains(t, err, "failed to decode versions")
}

func TestSetVersionsAppendsMissingKey(t *testing.T) {
	var p PluginDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &p))
	require.NoError(t, p.SetVersions([]json.RawMessage{json.RawMessage(`{"version":"1.0.0"}`)}))
	out, err := json.Marshal(&p)
	require.NoError(t, err)
	require.Equal(t, `{"name":"x","versions":[{"version":"1.0.0"}]}`, string(out))
}

func TestEntryVersion(t *testing.T) {
	v, ok, err := EntryVersion(json.RawMessage(`{"version":"2.3.0","checksum":"x"}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2.3.0", v)

	_, ok, err = EntryVersion(json.RawMessage(`{"checksum":"x"}`))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = EntryVersion(json.RawMessage(`{"version":230}`))
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = EntryVersion(json.RawMessage(`"2.3.0"`))
	require.Error(t, err)
}

func TestManifestStructure(t *testing.T) {
	for _, input := range []string{`{"versions":[]}`, `[]`, `[1]`, `["x"]`, `"x"`, `null`} {
		var m Manifest
		err := json.Unmarshal([]byte(input), &m)
		require.True(t, errors.Is(err, ErrUnexpectedStructure), input)
	}

	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"a"},{"name":"b"},42]`), &m))
	require.Len(t, m.Rest, 2)
	out, err := json.Marshal(&m)
	require.NoError(t, err)
	require.Equal(t, `[{"name":"a"},{"name":"b"},42]`, string(out))
}

func TestManifestEncode(t *testing.T) {
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"Subdivx – subtítulos <es>","versions":[]}]`), &m))
	out, err := m.Encode()
	require.NoError(t, err)
	require.Equal(t, "[\n  {\n    \"name\": \"Subdivx – subtítulos <es>\",\n    \"versions\": []\n  }\n]\n", string(out))
}
