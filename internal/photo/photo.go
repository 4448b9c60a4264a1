// Package photo turns captured images into data URIs suitable for the
// photoUrl field of a client record.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps an encoded image at 5 MiB of raw input.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrEmpty    = errors.New("photo: image is empty")
	ErrTooLarge = errors.New("photo: image exceeds size limit")
	ErrNotImage = errors.New("photo: not an image")
)

// Encoder validates and encodes images.
type Encoder struct {
	MaxBytes int64
}

// NewEncoder returns an encoder with the given limit; a non-positive limit
// falls back to DefaultMaxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

// Encode reads at most MaxBytes from r, checks that the content is an image
// and returns it as a base64 data URI.
func (e *Encoder) Encode(r io.Reader) (string, error) {
	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("photo: read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w (%d bytes max)", ErrTooLarge, limit)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	var buf bytes.Buffer
	buf.Grow(len(data)*4/3 + 32)
	buf.WriteString("data:")
	buf.WriteString(mtype.String())
	buf.WriteString(";base64,")
	buf.WriteString(base64.StdEncoding.EncodeToString(data))
	return buf.String(), nil
}

// Encode uses a default encoder.
func Encode(r io.Reader) (string, error) {
	return NewEncoder(DefaultMaxBytes).Encode(r)
}

// IsDataURI reports whether s looks like an encoded image.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}

// CheckDataURI applies the Encode rules to an already encoded image: the
// payload must decode, fit within MaxBytes and be detected as an image.
func (e *Encoder) CheckDataURI(s string) error {
	if !IsDataURI(s) {
		return fmt.Errorf("%w: not an image data URI", ErrNotImage)
	}
	payload := s[strings.Index(s, ";base64,")+len(";base64,"):]

	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > limit+2 {
		return fmt.Errorf("%w (%d bytes max)", ErrTooLarge, limit)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: invalid base64: %v", ErrNotImage, err)
	}
	if len(data) == 0 {
		return ErrEmpty
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w (%d bytes max)", ErrTooLarge, limit)
	}
	if mtype := mimetype.Detect(data); !strings.HasPrefix(mtype.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}
	return nil
}
