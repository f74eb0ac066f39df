// Package audio encodes recording blobs as base64 data URIs and probes their playable duration.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dataURIScheme = "data:"
	base64Marker  = ";base64"
)

var (
	// ErrInvalidDataURI indicates that a value is not a base64 data URI.
	ErrInvalidDataURI = errors.New("audio: invalid data uri")
	// ErrEmptyMedia indicates that an import source produced no bytes.
	ErrEmptyMedia = errors.New("audio: empty media")
	// ErrUnsupportedMedia indicates that no prober understands the blob format.
	ErrUnsupportedMedia = errors.New("audio: unsupported media")
)

// Blob is decoded audio content with its media type.
type Blob struct {
	Data     []byte
	MIMEType string
}

// NewBlob sniffs the media type of data.
func NewBlob(data []byte) Blob {
	detected := mimetype.Detect(data).String()
	mediaType, _, _ := strings.Cut(detected, ";")
	return Blob{Data: data, MIMEType: strings.TrimSpace(mediaType)}
}

// DataURI renders the blob as a base64 data URI.
func (b Blob) DataURI() string {
	mediaType := b.MIMEType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return dataURIScheme + mediaType + base64Marker + "," + base64.StdEncoding.EncodeToString(b.Data)
}

// Extension returns the file extension for the blob's media type, including the leading dot.
func (b Blob) Extension() string {
	if b.MIMEType != "" {
		if detected := mimetype.Lookup(b.MIMEType); detected != nil && detected.Extension() != "" {
			return detected.Extension()
		}
	}
	return ".webm"
}

// ParseDataURI decodes a base64 data URI.
func ParseDataURI(value string) (Blob, error) {
	if !strings.HasPrefix(value, dataURIScheme) {
		return Blob{}, fmt.Errorf("%w: missing scheme", ErrInvalidDataURI)
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(value, dataURIScheme), ",")
	if !found {
		return Blob{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}
	if !strings.HasSuffix(header, base64Marker) {
		return Blob{}, fmt.Errorf("%w: not base64 encoded", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	mediaType, _, _ := strings.Cut(strings.TrimSuffix(header, base64Marker), ";")
	return Blob{Data: data, MIMEType: mediaType}, nil
}
