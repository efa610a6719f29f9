package registry

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/warrenhq/warren/pkg/domain"
)

// flowFile is the YAML shape of a flow definition.
type flowFile struct {
	Version int         `yaml:"version"`
	Start   string      `yaml:"start"`
	States  []stateSpec `yaml:"states"`
}

type stateSpec struct {
	Name     string   `yaml:"name"`
	Required []string `yaml:"required,omitempty"`
	Prompt   string   `yaml:"prompt"`
	Next     []string `yaml:"next,omitempty"`
}

// LoadFile reads a flow definition from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flow %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML flow definition and builds a validated registry.
func Load(r io.Reader) (*Registry, error) {
	var file flowFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse flow: %w", err)
	}
	if file.Start == "" {
		return nil, fmt.Errorf("parse flow: missing start state")
	}

	defs := make([]domain.StateDef, 0, len(file.States))
	for _, spec := range file.States {
		if spec.Prompt == "" {
			return nil, fmt.Errorf("parse flow: state %s has no prompt", spec.Name)
		}
		tmpl, err := template.New(spec.Name).Option("missingkey=zero").Parse(spec.Prompt)
		if err != nil {
			return nil, fmt.Errorf("parse flow: state %s prompt: %w", spec.Name, err)
		}
		defs = append(defs, domain.StateDef{
			Name:           spec.Name,
			RequiredFields: spec.Required,
			Prompt:         tmpl,
			AllowedNext:    spec.Next,
		})
	}
	return New(file.Start, defs)
}
