package model

import (
	"fmt"
	"regexp"
	"strings"
)

// slugPattern is lowercase snake_case: no whitespace, separators or uppercase
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// ExtractionResult is the structured payload returned by the inference service
type ExtractionResult struct {
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	MarkdownBody string `json:"markdownBody"`
}

// Validate enforces the three-field contract. Nothing is trimmed or repaired.
func (r *ExtractionResult) Validate() error {
	if r == nil {
		return &SchemaViolation{Reason: "empty result"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &SchemaViolation{Field: "title", Reason: "missing or empty"}
	}
	if strings.TrimSpace(r.MarkdownBody) == "" {
		return &SchemaViolation{Field: "markdownBody", Reason: "missing or empty"}
	}
	return ValidateSlug(r.Slug)
}

// ValidateSlug checks the filename slug invariant
func ValidateSlug(slug string) error {
	if slug == "" {
		return &SchemaViolation{Field: "slug", Reason: "missing or empty"}
	}
	if !slugPattern.MatchString(slug) {
		return &SchemaViolation{Field: "slug", Reason: fmt.Sprintf("not lowercase snake_case: %q", slug)}
	}
	return nil
}
