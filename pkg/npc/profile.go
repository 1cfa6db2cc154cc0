package npc

import "fmt"

// Profile is the immutable identity of a character. Profiles are loaded
// from content files at startup and never mutated at runtime.
type Profile struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Personality string `yaml:"personality" json:"personality"`
	Background  string `yaml:"background" json:"background"`
	SpeechStyle string `yaml:"speech_style" json:"speech_style"`
}

func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("profile %q: name cannot be empty", p.ID)
	}
	return nil
}
