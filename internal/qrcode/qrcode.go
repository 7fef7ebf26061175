// Package qrcode turns ticket payloads into scannable PNG images.
package qrcode

import (
	"encoding/json"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length of generated images in pixels.
const DefaultSize = 256

// PNGEncoder serializes a payload to JSON and renders it as a PNG QR code.
// The zero value is usable.
type PNGEncoder struct {
	Size  int
	Level goqrcode.RecoveryLevel
}

// NewPNGEncoder returns an encoder producing size x size images with
// medium error correction. Non-positive sizes fall back to DefaultSize.
func NewPNGEncoder(size int) *PNGEncoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &PNGEncoder{Size: size, Level: goqrcode.Medium}
}

// Encode renders payload. Strings are embedded as-is; anything else is
// JSON encoded first.
func (e *PNGEncoder) Encode(payload any) ([]byte, error) {
	content, err := Content(payload)
	if err != nil {
		return nil, err
	}
	size := e.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := goqrcode.Encode(content, e.Level, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}

// Content returns the text that will be embedded for payload.
func Content(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qrcode: marshal payload: %w", err)
	}
	return string(b), nil
}
