package model

import "time"

// CapturedOnLayout is the Markdown footer timestamp format
const CapturedOnLayout = "2006-01-02 15:04:05"

// ContextRecord is the JSON rendering of an artifact.
// Key names are consumed downstream and must not change.
type ContextRecord struct {
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	MarkdownBody string    `json:"markdownBody"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// ContextArtifact holds both renderings of one successful extraction
type ContextArtifact struct {
	CapturedAt       time.Time
	Record           ContextRecord
	Markdown         string
	JSON             []byte
	MarkdownFilename string
	JSONFilename     string
}

// WrittenFiles are the paths of one persisted artifact pair
type WrittenFiles struct {
	MarkdownPath string `json:"markdown_path"`
	JSONPath     string `json:"json_path"`
}
