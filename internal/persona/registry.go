// Package persona loads the persona catalog and turns profiles into agents
// that contribute statements to a discussion.
package persona

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// LLMOverride lets a profile pin a provider or model different from the
// session-wide persona client configuration.
type LLMOverride struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Profile describes one discussion participant as declared in the catalog.
type Profile struct {
	ID                 string       `yaml:"id"`
	Name               string       `yaml:"name"`
	Role               string       `yaml:"role"`
	OrganizationType   string       `yaml:"organization_type"`
	ExperienceYears    int          `yaml:"experience_years"`
	Specialties        []string     `yaml:"specialties"`
	Perspective        string       `yaml:"perspective"`
	CommunicationStyle string       `yaml:"communication_style"`
	Background         string       `yaml:"background"`
	LLM                *LLMOverride `yaml:"llm"`
	Basic              bool         `yaml:"basic"`
}

type catalogFile struct {
	Personas []Profile `yaml:"personas"`
}

// Registry is an immutable view of the loaded catalog. Catalog order is
// preserved; it defines the participant order of every round.
type Registry struct {
	ordered []Profile
	byID    map[string]Profile
}

// Load reads the catalog at path, or the embedded default catalog when path
// is empty.
func Load(path string) (*Registry, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona catalog: %w", err)
		}
		raw = b
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("persona catalog is empty")
	}

	byID := make(map[string]Profile, len(file.Personas))
	for _, p := range file.Personas {
		if p.ID == "" || p.Name == "" || p.Role == "" {
			return nil, fmt.Errorf("persona entry missing id, name or role: %+v", p)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		byID[p.ID] = p
	}

	return &Registry{ordered: file.Personas, byID: byID}, nil
}

// Basic returns the default participant set in catalog order.
func (r *Registry) Basic() []Profile {
	var out []Profile
	for _, p := range r.ordered {
		if p.Basic {
			out = append(out, p)
		}
	}
	return out
}

// All returns every profile in catalog order.
func (r *Registry) All() []Profile {
	return append([]Profile(nil), r.ordered...)
}

func (r *Registry) Get(personaID string) (Profile, bool) {
	p, ok := r.byID[personaID]
	return p, ok
}
