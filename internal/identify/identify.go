// Package identify assembles the protocol dictionary: the
// self-describing schema document a host fetches from the firmware to
// learn the exact wire format of this build. The document is serialized
// as canonical JSON, deflated, and embedded in the image as a byte
// table.
package identify

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaUpdater is implemented by every accumulator that contributes
// fields to the protocol dictionary.
type SchemaUpdater interface {
	UpdateSchema(doc map[string]any) error
}

// Blob is the finished dictionary: the uncompressed canonical document
// and its deflated form.
type Blob struct {
	Version       string
	BuildVersions string
	Raw           []byte
	Compressed    []byte
}

// Build merges every contributor's fields into one document, attaches
// the build version metadata and compresses the result. The JSON
// encoding sorts object keys, so identical inputs produce identical
// bytes.
func Build(contributors []SchemaUpdater, version, toolVersions string) (*Blob, error) {
	doc := make(map[string]any)
	for _, c := range contributors {
		if err := c.UpdateSchema(doc); err != nil {
			return nil, err
		}
	}
	doc["version"] = version
	doc["build_versions"] = toolVersions

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode dictionary: %w", err)
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress dictionary: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress dictionary: %w", err)
	}
	return &Blob{
		Version:       version,
		BuildVersions: toolVersions,
		Raw:           raw,
		Compressed:    buf.Bytes(),
	}, nil
}

// GenerateCode emits the compressed dictionary as a C byte table plus
// its size constant.
func (b *Blob) GenerateCode() (string, error) {
	var data strings.Builder
	for i, c := range b.Compressed {
		if i%8 == 0 {
			data.WriteString("\n   ")
		}
		data.WriteString(fmt.Sprintf(" 0x%02x,", c))
	}
	code := fmt.Sprintf(`
// version: %s
// build_versions: %s

const uint8_t command_identify_data[] PROGMEM = {%s
};

// Identify size = %d (%d uncompressed)
const uint32_t command_identify_size PROGMEM
    = ARRAY_SIZE(command_identify_data);
`, b.Version, b.BuildVersions, data.String(), len(b.Compressed), len(b.Raw))
	return code, nil
}
