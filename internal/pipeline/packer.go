package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// Pack renders a validated result into its Markdown and JSON artifacts.
// It has no side effects; now is the capture time stamped on both renderings.
func Pack(result *model.ExtractionResult, now time.Time) (*model.ContextArtifact, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}

	record := model.ContextRecord{
		Title:        result.Title,
		Slug:         result.Slug,
		MarkdownBody: result.MarkdownBody,
		CapturedAt:   now,
	}

	data, err := renderJSON(record)
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}

	return &model.ContextArtifact{
		CapturedAt:       now,
		Record:           record,
		Markdown:         renderMarkdown(record),
		JSON:             data,
		MarkdownFilename: result.Slug + ".md",
		JSONFilename:     result.Slug + ".json",
	}, nil
}

func renderMarkdown(r model.ContextRecord) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(r.Title)
	b.WriteString("\n\n")
	b.WriteString(r.MarkdownBody)
	b.WriteString("\n\n---\n\n")
	b.WriteString("Captured on: ")
	b.WriteString(r.CapturedAt.Format(model.CapturedOnLayout))
	b.WriteString("\n")
	return b.String()
}

// renderJSON keeps the body byte-for-byte: no HTML escaping of <, > or &
func renderJSON(r model.ContextRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
