package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// TimestampFormat is the UTC, second precision layout used for VersionEntry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05Z"

const versionsKey = "versions"

// ErrUnexpectedStructure is returned when a manifest is not a non-empty list
// whose first element is a plugin descriptor object.
var ErrUnexpectedStructure = errors.New("remote manifest has an unexpected structure (expected a non-empty list)")

// VersionEntry describes a single release inside a plugin descriptor. Field
// order is the serialized key order.
type VersionEntry struct {
	Checksum  string `json:"checksum"`
	Changelog string `json:"changelog"`
	TargetABI string `json:"targetAbi"`
	SourceURL string `json:"sourceUrl"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RawMessage encodes e without escaping HTML characters.
func (e *VersionEntry) RawMessage() (json.RawMessage, error) {
	return marshalNoEscape(e)
}

// PluginDescriptor is a JSON object whose keys keep their document order.
// Values other than versions are carried through untouched.
type PluginDescriptor struct {
	keys   []string
	fields map[string]json.RawMessage
}

func (p *PluginDescriptor) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: plugin descriptor is not an object", ErrUnexpectedStructure)
	}
	p.keys = nil
	p.fields = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		// a repeated key keeps its first position and its last value
		if _, exists := p.fields[key]; !exists {
			p.keys = append(p.keys, key)
		}
		p.fields[key] = value
	}
	_, err = dec.Token()
	return err
}

func (p *PluginDescriptor) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(p.fields[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *PluginDescriptor) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Field returns the raw value stored under key.
func (p *PluginDescriptor) Field(key string) (json.RawMessage, bool) {
	v, ok := p.fields[key]
	return v, ok
}

func (p *PluginDescriptor) setField(key string, value json.RawMessage) {
	if p.fields == nil {
		p.fields = make(map[string]json.RawMessage)
	}
	if _, exists := p.fields[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.fields[key] = value
}

// Versions returns the raw entries of the versions list. A missing or null
// list yields an empty slice.
func (p *PluginDescriptor) Versions() ([]json.RawMessage, error) {
	raw, ok := p.fields[versionsKey]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []json.RawMessage{}, nil
	}
	var versions []json.RawMessage
	if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, fmt.Errorf("failed to decode versions: %w", err)
	}
	return versions, nil
}

func (p *PluginDescriptor) SetVersions(versions []json.RawMessage) error {
	raw, err := marshalNoEscape(versions)
	if err != nil {
		return err
	}
	p.setField(versionsKey, raw)
	return nil
}

// EntryVersion extracts the version field of a raw entry. ok is false when
// the entry has no string version.
func EntryVersion(entry json.RawMessage) (string, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return "", false, fmt.Errorf("version entry is not an object: %w", err)
	}
	raw, found := fields["version"]
	if !found {
		return "", false, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, nil
	}
	return v, true, nil
}

// Manifest is the top level plugin repository document. Only the first
// descriptor is interpreted; the remaining elements are kept verbatim.
type Manifest struct {
	Plugin *PluginDescriptor
	Rest   []json.RawMessage
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrUnexpectedStructure
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return err
	}
	if len(elems) == 0 {
		return ErrUnexpectedStructure
	}
	var plugin PluginDescriptor
	if err := json.Unmarshal(elems[0], &plugin); err != nil {
		return err
	}
	m.Plugin = &plugin
	m.Rest = elems[1:]
	return nil
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	if m.Plugin == nil {
		return nil, ErrUnexpectedStructure
	}
	first, err := m.Plugin.MarshalJSON()
	if err != nil {
		return nil, err
	}
	elems := make([]json.RawMessage, 0, len(m.Rest)+1)
	elems = append(elems, first)
	elems = append(elems, m.Rest...)
	return marshalNoEscape(elems)
}

// Encode writes m indented by two spaces with HTML characters and non-ASCII text left as is.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
