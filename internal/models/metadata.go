package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MetadataSchemaVersion is written on every new entry.
	MetadataSchemaVersion = 1
	MaxMetadataBytes      = 4096
	MaxMetadataAttributes = 32
	maxAttributeKeyLength = 64
)

var (
	ErrMetadataTooLarge       = errors.New("metadata exceeds size limit")
	ErrMetadataSchemaVersion  = errors.New("unsupported metadata schema version")
	ErrMetadataAttributeCount = errors.New("too many metadata attributes")
)

// EntryMetadata is the bounded, versioned payload attached to a ledger entry.
// Attributes are flat string pairs so the entry type never becomes untyped.
type EntryMetadata struct {
	SchemaVersion int               `json:"v"`
	Source        string            `json:"source,omitempty"`
	Attributes    map[string]string `json:"attrs,omitempty"`
}

// Encode validates the payload and returns its stored JSON form.
func (m EntryMetadata) Encode() ([]byte, error) {
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MetadataSchemaVersion
	}
	if m.SchemaVersion != MetadataSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrMetadataSchemaVersion, m.SchemaVersion)
	}
	if len(m.Attributes) > MaxMetadataAttributes {
		return nil, fmt.Errorf("%w: %d > %d", ErrMetadataAttributeCount, len(m.Attributes), MaxMetadataAttributes)
	}
	for k := range m.Attributes {
		if k == "" || len(k) > maxAttributeKeyLength {
			return nil, fmt.Errorf("invalid metadata attribute key %q", k)
		}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if len(data) > MaxMetadataBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrMetadataTooLarge, len(data), MaxMetadataBytes)
	}
	return data, nil
}

// DecodeEntryMetadata parses a stored payload. Empty input yields an empty v1 payload.
func DecodeEntryMetadata(data []byte) (EntryMetadata, error) {
	var m EntryMetadata
	if len(data) == 0 {
		m.SchemaVersion = MetadataSchemaVersion
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MetadataSchemaVersion
	}
	return m, nil
}
