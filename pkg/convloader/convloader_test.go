package convloader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorybench/pkg/model"
	"memorybench/pkg/personaload"
)

func writePersonFile(t *testing.T, dir, filename, personID string, convs int) {
	t.Helper()
	pf := personFile{PersonID: personID}
	for i := 0; i < convs; i++ {
		pf.Conversations = append(pf.Conversations, model.Conversation{
			Messages: []model.Message{{Speaker: "user", Text: "hi"}},
		})
	}
	data, err := json.Marshal(pf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), data, 0o644))
}

func TestLoadGroupsConversationsByPerson(t *testing.T) {
	dir := t.TempDir()
	writePersonFile(t, dir, "alice.json", "alice", 2)
	writePersonFile(t, dir, "bob.json", "bob", 1)

	l := New(dir)
	require.NoError(t, l.Load())

	assert.Len(t, l.ForPerson("alice"), 2)
	assert.Len(t, l.ForPerson("bob"), 1)
	assert.Equal(t, []string{"alice", "bob"}, l.People())
}

func TestLoadFailsOnEmptyDirectory(t *testing.T) {
	l := New(t.TempDir())
	assert.Error(t, l.Load())
}

func TestWithRosterDoesNotFailLoadOnUnknownPerson(t *testing.T) {
	dir := t.TempDir()
	writePersonFile(t, dir, "carol.json", "carol", 1)

	rosterPath := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte("personas:\n  - id: alice\n"), 0o644))
	roster, err := personaload.LoadRoster(rosterPath)
	require.NoError(t, err)
	require.False(t, roster.Known("carol"))

	l := New(dir).WithRoster(roster)
	require.NoError(t, l.Load())
	assert.Equal(t, []string{"carol"}, l.People())
}
