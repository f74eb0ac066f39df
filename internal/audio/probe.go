package audio

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 decodes to interleaved 16-bit stereo.
const mp3BytesPerSample = 4

// Prober reports the playable duration of a blob in seconds.
type Prober interface {
	Duration(blob Blob) (float64, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(blob Blob) (float64, error)

// Duration calls f(blob).
func (f ProberFunc) Duration(blob Blob) (float64, error) {
	return f(blob)
}

// WAVProber reads the duration from RIFF/WAVE headers.
type WAVProber struct{}

func (WAVProber) Duration(blob Blob) (float64, error) {
	decoder := wav.NewDecoder(bytes.NewReader(blob.Data))
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("%w: not a wav file", ErrUnsupportedMedia)
	}
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	return duration.Seconds(), nil
}

// MP3Prober counts the decoded samples of an MPEG audio stream.
type MP3Prober struct{}

func (MP3Prober) Duration(blob Blob) (float64, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(blob.Data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	length := decoder.Length()
	if length <= 0 || decoder.SampleRate() <= 0 {
		return 0, fmt.Errorf("%w: mp3 length unavailable", ErrUnsupportedMedia)
	}
	return float64(length/mp3BytesPerSample) / float64(decoder.SampleRate()), nil
}

// UnknownDuration accepts playable audio whose container this build cannot decode.
// The duration is reported as 0.
type UnknownDuration struct{}

func (UnknownDuration) Duration(Blob) (float64, error) {
	return 0, nil
}

// MediaTypeProber dispatches to a Prober registered for the blob's media type.
// Unregistered audio/* types fall through to the fallback prober.
type MediaTypeProber struct {
	probers  map[string]Prober
	fallback Prober
}

// NewDefaultProber decodes WAV and MP3 durations and accepts the other containers browsers
// record to with an unknown duration.
func NewDefaultProber() *MediaTypeProber {
	wavProber := WAVProber{}
	mp3Prober := MP3Prober{}
	unknown := UnknownDuration{}
	return &MediaTypeProber{
		probers: map[string]Prober{
			"audio/wav":       wavProber,
			"audio/x-wav":     wavProber,
			"audio/wave":      wavProber,
			"audio/mpeg":      mp3Prober,
			"audio/mp3":       mp3Prober,
			"audio/x-mpeg":    mp3Prober,
			"audio/ogg":       unknown,
			"application/ogg": unknown,
			"audio/webm":      unknown,
			"video/webm":      unknown,
			"audio/x-m4a":     unknown,
			"audio/mp4":       unknown,
		},
		fallback: unknown,
	}
}

// Register binds prober to mediaType, replacing any previous binding.
func (p *MediaTypeProber) Register(mediaType string, prober Prober) {
	p.probers[mediaType] = prober
}

func (p *MediaTypeProber) Duration(blob Blob) (float64, error) {
	if len(blob.Data) == 0 {
		return 0, ErrEmptyMedia
	}
	if prober, ok := p.probers[blob.MIMEType]; ok {
		return prober.Duration(blob)
	}
	if p.fallback != nil && strings.HasPrefix(blob.MIMEType, "audio/") {
		return p.fallback.Duration(blob)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedMedia, blob.MIMEType)
}
