// Package convloader loads irrelevant filler conversations, grouped by the
// person they belong to, and caches them in process-wide state once loaded.
package convloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"memorybench/pkg/logx"
	"memorybench/pkg/model"
	"memorybench/pkg/personaload"
)

// personFile is the on-disk shape of one filler file: a person id plus the
// conversations attributed to them.
type personFile struct {
	PersonID      string               `json:"person_id"`
	Conversations []model.Conversation `json:"conversations"`
}

// Loader loads filler conversations from a directory of *.json files, one per
// person, and groups them by person id. It is read-only after the first
// Load call, matching the teacher's "load once, read many" caching pattern.
type Loader struct {
	dir    string
	roster *personaload.Roster

	mu       sync.RWMutex
	loaded   bool
	byPerson map[string][]model.Conversation
	people   []string // stable iteration order
}

// New creates a Loader rooted at dir; conversations are not read until Load
// is called.
func New(dir string) *Loader {
	return &Loader{dir: dir, roster: &personaload.Roster{}}
}

// WithRoster attaches a persona roster used to flag unknown person ids
// encountered during Load. An empty or nil roster disables the check.
func (l *Loader) WithRoster(roster *personaload.Roster) *Loader {
	if roster != nil {
		l.roster = roster
	}
	return l
}

// Load reads every person file under dir exactly once; subsequent calls are
// no-ops that return the cached result.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("conversation directory unreadable (you need to generate filler conversations first; run the evidence generator for this dataset): %w", err)
	}

	byPerson := make(map[string][]model.Conversation)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var pf personFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		for i := range pf.Conversations {
			pf.Conversations[i].EnsureID()
		}

		byPerson[pf.PersonID] = append(byPerson[pf.PersonID], pf.Conversations...)
	}

	if len(byPerson) == 0 {
		return fmt.Errorf("no conversations loaded from %s (you need to generate filler conversations first)", l.dir)
	}

	people := make([]string, 0, len(byPerson))
	logger := logx.NewLogger("convloader")
	for p := range byPerson {
		people = append(people, p)
		if !l.roster.Known(p) {
			logger.Warn("person %q has filler conversations but no persona roster entry", p)
		}
	}
	sort.Strings(people)

	l.byPerson = byPerson
	l.people = people
	l.loaded = true
	return nil
}

// ForPerson returns the filler conversations attributed to personID, or nil
// if that person has none.
func (l *Loader) ForPerson(personID string) []model.Conversation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byPerson[personID]
}

// People returns every known person id, in stable sorted order.
func (l *Loader) People() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.people))
	copy(out, l.people)
	return out
}

// RandomPerson returns a uniformly sampled person id using the supplied
// index function (e.g. rng.Intn(len(people))), for the standard generator's
// fallback-to-any-person behavior.
func (l *Loader) RandomPerson(pick func(n int) int) (string, bool) {
	people := l.People()
	if len(people) == 0 {
		return "", false
	}
	return people[pick(len(people))], true
}
