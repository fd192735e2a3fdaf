package domain

import (
	"encoding/json"
	"fmt"
)

// imageMetadataJSON is the wire form of ImageMetadata. Dimensions travel as
// a [width, height] pair.
type imageMetadataJSON struct {
	Filename string `json:"filename"`
	Size     [2]int `json:"size"`
	Format   string `json:"format"`
	Mode     string `json:"mode"`
}

// MarshalJSON encodes the metadata with dimensions as "size": [w, h].
func (m ImageMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(imageMetadataJSON{
		Filename: m.Filename,
		Size:     [2]int{m.Width, m.Height},
		Format:   m.Format,
		Mode:     m.Mode,
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (m *ImageMetadata) UnmarshalJSON(data []byte) error {
	var wire imageMetadataJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode image metadata: %w", err)
	}
	m.Filename = wire.Filename
	m.Width = wire.Size[0]
	m.Height = wire.Size[1]
	m.Format = wire.Format
	m.Mode = wire.Mode
	return nil
}

// LogFields returns structured logging fields for the image.
func (m ImageMetadata) LogFields() map[string]any {
	return map[string]any{
		"image_filename": m.Filename,
		"image_width":    m.Width,
		"image_height":   m.Height,
		"image_format":   m.Format,
		"image_mode":     m.Mode,
	}
}
