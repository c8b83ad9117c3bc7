// Package personaload reads the optional YAML persona roster describing the
// people filler conversations are attributed to, so convloader can flag
// conversation files whose person id isn't a known persona.
package personaload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is one entry in the roster file.
type Persona struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Traits      []string `yaml:"traits"`
}

type rosterFile struct {
	Personas []Persona `yaml:"personas"`
}

// Roster is a read-only lookup of personas by id.
type Roster struct {
	byID map[string]Persona
	ids  []string
}

// LoadRoster parses a persona roster YAML file. A missing path is not an
// error; it yields an empty Roster, since the persona roster is purely
// descriptive metadata, not required for evaluation to proceed.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return &Roster{byID: map[string]Persona{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Roster{byID: map[string]Persona{}}, nil
		}
		return nil, fmt.Errorf("reading persona roster %s: %w", path, err)
	}

	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing persona roster %s: %w", path, err)
	}

	byID := make(map[string]Persona, len(rf.Personas))
	ids := make([]string, 0, len(rf.Personas))
	for _, p := range rf.Personas {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	return &Roster{byID: byID, ids: ids}, nil
}

// Get returns the persona for id, if the roster has one.
func (r *Roster) Get(id string) (Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Known reports whether id appears in the roster. An empty roster (no file
// configured) treats every id as known, since there's nothing to validate
// against.
func (r *Roster) Known(id string) bool {
	if len(r.byID) == 0 {
		return true
	}
	_, ok := r.byID[id]
	return ok
}

// IDs returns every persona id in the roster, in file order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
