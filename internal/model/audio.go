package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AudioInput is a recorded or uploaded audio payload.
// It is forwarded to the inference service as-is, never transcoded.
type AudioInput struct {
	Data     []byte
	MIMEType string
	Name     string // source filename, for logs only
}

// supportedMIMETypes maps accepted container types to their canonical form
var supportedMIMETypes = map[string]string{
	"audio/mpeg":  "audio/mpeg",
	"audio/mp3":   "audio/mpeg",
	"audio/wav":   "audio/wav",
	"audio/x-wav": "audio/wav",
	"audio/wave":  "audio/wav",
	"audio/opus":  "audio/opus",
	"audio/ogg":   "audio/ogg",
	"audio/webm":  "audio/webm",
	"audio/flac":  "audio/flac",
	"audio/aac":   "audio/aac",
	"audio/mp4":   "audio/mp4",
	"audio/x-m4a": "audio/mp4",
}

var extensionMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".mpeg": "audio/mpeg",
	".wav":  "audio/wav",
	".opus": "audio/opus",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
}

// NormalizeMIMEType strips parameters and maps aliases.
// Returns false if the type is not a recognized audio container.
func NormalizeMIMEType(mimeType string) (string, bool) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	canonical, ok := supportedMIMETypes[mt]
	return canonical, ok
}

// MIMETypeForPath infers the audio container type from a file extension
func MIMETypeForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := extensionMIMETypes[ext]; ok {
		return mt, nil
	}
	return "", NewConfigurationError("audio", fmt.Sprintf("unrecognized audio file extension %q", ext))
}

// ReadAudioFile loads an audio file and infers its MIME type
func ReadAudioFile(path string) (AudioInput, error) {
	mt, err := MIMETypeForPath(path)
	if err != nil {
		return AudioInput{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return AudioInput{}, fmt.Errorf("read audio file: %w", err)
	}

	audio := AudioInput{Data: data, MIMEType: mt, Name: filepath.Base(path)}
	if err := audio.Validate(); err != nil {
		return AudioInput{}, err
	}
	return audio, nil
}

// Validate enforces a non-empty payload with a recognized container type
func (a AudioInput) Validate() error {
	if len(a.Data) == 0 {
		return NewConfigurationError("audio", "audio payload is empty")
	}
	if _, ok := NormalizeMIMEType(a.MIMEType); !ok {
		return NewConfigurationError("audio", fmt.Sprintf("unsupported audio type %q", a.MIMEType))
	}
	return nil
}
