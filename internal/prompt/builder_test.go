package prompt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/contextcruncher/internal/model"
)

func TestBuild_Deterministic(t *testing.T) {
	policies := []model.IdentificationPolicy{
		model.GenericPolicy(),
		model.NamedPolicy("Daniel"),
	}

	for _, p := range policies {
		first, err := Build(p)
		if err != nil {
			t.Fatalf("Build(%+v) failed: %v", p, err)
		}
		for i := 0; i < 5; i++ {
			again, err := Build(p)
			if err != nil {
				t.Fatalf("Build(%+v) failed: %v", p, err)
			}
			if again != first {
				t.Fatalf("Build(%+v) not deterministic on call %d", p, i)
			}
		}
	}
}

func TestBuild_NamedSubstitution(t *testing.T) {
	out, err := Build(model.NamedPolicy("Daniel"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(out, `referring to the speaker as "Daniel"`) {
		t.Error("expected addressing rule to name Daniel")
	}
	if !strings.Contains(out, "- Daniel has had asthma since childhood") {
		t.Error("expected worked example to use Daniel")
	}
	if strings.Contains(out, "the user") {
		t.Error("named prompt must not use the generic addressing form")
	}
	if strings.Contains(out, subjectPlaceholder) {
		t.Error("placeholder left unrendered")
	}
}

func TestBuild_GenericSubstitution(t *testing.T) {
	out, err := Build(model.GenericPolicy())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(out, `referring to the speaker as "the user"`) {
		t.Error("expected addressing rule to use the user")
	}
	if !strings.Contains(out, "- the user takes Relvar, daily, for asthma") {
		t.Error("expected worked example to use the user")
	}
	if strings.Contains(out, "Daniel") {
		t.Error("generic prompt must not contain a name")
	}
}

func TestBuild_ContainsRulesExampleAndContract(t *testing.T) {
	out, err := Build(model.GenericPolicy())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, want := range []string{
		"Omit irrelevant speech",
		"Remove duplicates",
		"third person",
		"hierarchically by topic",
		"hey Jay!",
		"## Medical Conditions",
		"## Medication List",
		`"title"`,
		`"slug"`,
		`"markdownBody"`,
		"snake_case",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuild_MissingName(t *testing.T) {
	_, err := Build(model.NamedPolicy("  "))
	var ce *model.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestSchemas_AreConsistent(t *testing.T) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(ResponseJSONSchema), &doc); err != nil {
		t.Fatalf("ResponseJSONSchema is not valid JSON: %v", err)
	}

	required, _ := doc["required"].([]any)
	service := ServiceResponseSchema()
	serviceRequired := service["required"].([]string)
	if len(required) != len(serviceRequired) {
		t.Fatalf("required fields differ: %v vs %v", required, serviceRequired)
	}
	for i := range required {
		if required[i] != serviceRequired[i] {
			t.Errorf("required[%d]: %v vs %v", i, required[i], serviceRequired[i])
		}
	}
}
