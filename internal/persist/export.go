package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrImportFormatInvalid = errors.New("invalid import format")

// EncodeExport renders an export as indented JSON.
func EncodeExport(e Export) ([]byte, error) {
	e.Version = ExportVersion
	e.fill()
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// DecodeExport parses an export. The document must be a JSON object with a
// numeric version; anything else is ErrImportFormatInvalid.
func DecodeExport(data []byte) (Export, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Export{}, fmt.Errorf("%w: %v", ErrImportFormatInvalid, err)
	}
	rawVersion, ok := envelope["version"]
	if !ok {
		return Export{}, fmt.Errorf("%w: missing version", ErrImportFormatInvalid)
	}
	var version float64
	if bytes.Equal(bytes.TrimSpace(rawVersion), []byte("null")) || json.Unmarshal(rawVersion, &version) != nil {
		return Export{}, fmt.Errorf("%w: version is not a number", ErrImportFormatInvalid)
	}

	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return Export{}, fmt.Errorf("%w: %v", ErrImportFormatInvalid, err)
	}
	e.fill()
	return e, nil
}
