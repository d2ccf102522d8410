package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Trigger is the invocation context delivered by a trigger source. Condition
// expressions read it as the `trigger` object; runners receive it verbatim.
type Trigger struct {
	// Repository identifies the origin in "owner/name" form.
	Repository string `yaml:"repository"`
	// Event names the kind of event that started the run (e.g. "release").
	Event string `yaml:"event"`
	// Ref is the git ref the run was triggered for.
	Ref string `yaml:"ref"`
	// Tag is the release tag, when the event carries one.
	Tag string `yaml:"tag"`
	// Actor is the identity that caused the event.
	Actor string `yaml:"actor"`
	// Extra carries any additional string payload fields.
	Extra map[string]string `yaml:"extra"`
}

// LoadTrigger reads a trigger event description from a YAML file.
func LoadTrigger(path string) (*Trigger, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trigger event file: %w", err)
	}
	var t Trigger
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing trigger event file %s: %w", path, err)
	}
	return &t, nil
}
