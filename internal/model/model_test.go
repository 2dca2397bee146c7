package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIdentificationPolicy_Address(t *testing.T) {
	tests := []struct {
		name    string
		policy  IdentificationPolicy
		want    string
		wantErr bool
	}{
		{"generic", GenericPolicy(), "the user", false},
		{"empty mode defaults to generic", IdentificationPolicy{}, "the user", false},
		{"named", NamedPolicy("Daniel"), "Daniel", false},
		{"named trims", NamedPolicy("  Daniel \n"), "Daniel", false},
		{"named empty", NamedPolicy(""), "", true},
		{"named whitespace", NamedPolicy("   "), "", true},
		{"unknown mode", IdentificationPolicy{Mode: "nickname"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Address()
			if tt.wantErr {
				var ce *ConfigurationError
				if !errors.As(err, &ce) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseIdentificationMode(t *testing.T) {
	for _, s := range []string{"", "user", "Generic"} {
		if m, err := ParseIdentificationMode(s); err != nil || m != ModeGeneric {
			t.Errorf("%q: expected generic, got %q (%v)", s, m, err)
		}
	}
	for _, s := range []string{"name", "BY_NAME", "by-name"} {
		if m, err := ParseIdentificationMode(s); err != nil || m != ModeByName {
			t.Errorf("%q: expected name, got %q (%v)", s, m, err)
		}
	}
	if _, err := ParseIdentificationMode("alias"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestAudioInput_Validate(t *testing.T) {
	if err := (AudioInput{Data: []byte{1}, MIMEType: "audio/opus"}).Validate(); err != nil {
		t.Errorf("expected valid audio, got %v", err)
	}
	if err := (AudioInput{Data: []byte{1}, MIMEType: "audio/webm;codecs=opus"}).Validate(); err != nil {
		t.Errorf("expected parameters to be ignored, got %v", err)
	}
	if err := (AudioInput{MIMEType: "audio/wav"}).Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for empty payload, got %v", err)
	}
	if err := (AudioInput{Data: []byte{1}, MIMEType: "video/mp4"}).Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for video, got %v", err)
	}
}

func TestReadAudioFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memo.MP3")
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}

	audio, err := ReadAudioFile(path)
	if err != nil {
		t.Fatalf("ReadAudioFile failed: %v", err)
	}
	if audio.MIMEType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", audio.MIMEType)
	}
	if audio.Name != "memo.MP3" {
		t.Errorf("unexpected name %s", audio.Name)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadAudioFile(txt); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for .txt, got %v", err)
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"movie_preferences", "medical_history_2024", "a"}
	for _, s := range valid {
		if err := ValidateSlug(s); err != nil {
			t.Errorf("%q: unexpected error %v", s, err)
		}
	}

	invalid := []string{"", "Movie_Preferences", "movie preferences", "movies/prefs", `movies\prefs`, "../etc", "_leading", "trailing_", "double__underscore", "kebab-case"}
	for _, s := range invalid {
		err := ValidateSlug(s)
		var sv *SchemaViolation
		if !errors.As(err, &sv) {
			t.Errorf("%q: expected SchemaViolation, got %v", s, err)
		}
	}
}

func TestExtractionResult_Validate(t *testing.T) {
	ok := &ExtractionResult{Title: "Movie Preferences", Slug: "movie_preferences", MarkdownBody: "## Genres\n\n- the user likes noir"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]*ExtractionResult{
		"title":        {Slug: "a", MarkdownBody: "b"},
		"markdownBody": {Title: "a", Slug: "a", MarkdownBody: "  "},
		"slug":         {Title: "a", MarkdownBody: "b"},
	}
	for field, r := range cases {
		var sv *SchemaViolation
		if err := r.Validate(); !errors.As(err, &sv) || sv.Field != field {
			t.Errorf("expected violation on %s, got %v", field, err)
		}
	}

	var nilResult *ExtractionResult
	if err := nilResult.Validate(); !errors.Is(err, ErrSchemaViolation) {
		t.Errorf("expected violation for nil result, got %v", err)
	}
}

func TestTransportError_Retryable(t *testing.T) {
	retryable := []TransportKind{TransportTimeout, TransportRateLimited, TransportUnavailable, TransportNetwork}
	for _, k := range retryable {
		if !(&TransportError{Kind: k}).Retryable() {
			t.Errorf("%s should be retryable", k)
		}
	}

	permanent := []TransportKind{TransportUnauthorized, TransportBadRequest, TransportMalformed, TransportCanceled}
	for _, k := range permanent {
		if (&TransportError{Kind: k}).Retryable() {
			t.Errorf("%s should not be retryable", k)
		}
	}
}

func TestErrorKind(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	te := &TransportError{Kind: TransportNetwork, Err: cause}

	if ErrorKind(NewConfigurationError("x", "y")) != "configuration" {
		t.Error("expected configuration kind")
	}
	if ErrorKind(te) != "transport" {
		t.Error("expected transport kind")
	}
	if !errors.Is(te, cause) {
		t.Error("expected transport error to unwrap to its cause")
	}
	if ErrorKind(&SchemaViolation{Reason: "x"}) != "schema" {
		t.Error("expected schema kind")
	}
	if ErrorKind(errors.New("boom")) != "internal" {
		t.Error("expected internal kind")
	}
	if !IsRetryable(te) || IsRetryable(cause) {
		t.Error("unexpected IsRetryable result")
	}
}

func TestErrorMessagesQuoteInput(t *testing.T) {
	_, err := ParseIdentificationMode("a\"b")
	if err == nil || !strings.Contains(err.Error(), `unknown mode "a\"b"`) {
		t.Errorf("expected escaped mode in message, got %v", err)
	}

	err = ValidateSlug("bad\nslug")
	if err == nil || !strings.Contains(err.Error(), `"bad\nslug"`) {
		t.Errorf("expected escaped slug in message, got %v", err)
	}
}
