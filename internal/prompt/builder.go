// Package prompt renders the instruction sent alongside the audio.
// Rendering is a pure function of the identification policy.
package prompt

import (
	"strings"

	"github.com/ppiankov/contextcruncher/internal/model"
)

// Build renders the instruction for the given identification policy.
// The same policy always yields the same string.
func Build(policy model.IdentificationPolicy) (string, error) {
	subject, err := policy.Address()
	if err != nil {
		return "", err
	}
	return render(subject), nil
}

func render(subject string) string {
	return strings.ReplaceAll(instructionTemplate, subjectPlaceholder, subject)
}
