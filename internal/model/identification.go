package model

import (
	"fmt"
	"strings"
)

// IdentificationMode selects how the speaker is referred to in extracted context
type IdentificationMode string

const (
	ModeByName  IdentificationMode = "name"
	ModeGeneric IdentificationMode = "user"
)

// GenericAddress is the addressing form used when no name is given
const GenericAddress = "the user"

// IdentificationPolicy resolves the addressing phrase used throughout the prompt
type IdentificationPolicy struct {
	Mode IdentificationMode `json:"mode" yaml:"mode" mapstructure:"mode"`
	Name string             `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
}

// GenericPolicy refers to the speaker as "the user"
func GenericPolicy() IdentificationPolicy {
	return IdentificationPolicy{Mode: ModeGeneric}
}

// NamedPolicy refers to the speaker by name
func NamedPolicy(name string) IdentificationPolicy {
	return IdentificationPolicy{Mode: ModeByName, Name: name}
}

// ParseIdentificationMode accepts the textual mode forms used by flags and forms.
// An empty string means generic.
func ParseIdentificationMode(s string) (IdentificationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user", "generic":
		return ModeGeneric, nil
	case "name", "by_name", "by-name":
		return ModeByName, nil
	default:
		return "", NewConfigurationError("identification.mode", fmt.Sprintf("unknown mode %q (supported: user, name)", s))
	}
}

// Address returns the phrase substituted into the prompt
func (p IdentificationPolicy) Address() (string, error) {
	switch p.Mode {
	case ModeGeneric, "":
		return GenericAddress, nil
	case ModeByName:
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return "", NewConfigurationError("identification.name", "a name is required when identifying by name")
		}
		return name, nil
	default:
		return "", NewConfigurationError("identification.mode", fmt.Sprintf("unknown mode %q", p.Mode))
	}
}

// Validate checks the policy without rendering anything
func (p IdentificationPolicy) Validate() error {
	_, err := p.Address()
	return err
}
