package personaload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRosterMissingPathYieldsEmptyRoster(t *testing.T) {
	roster, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, roster.Known("anyone"))
	assert.Empty(t, roster.IDs())
}

func TestLoadRosterParsesPersonas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := "personas:\n  - id: alice\n    display_name: Alice\n    traits: [curious, terse]\n  - id: bob\n    display_name: Bob\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	roster, err := LoadRoster(path)
	require.NoError(t, err)

	assert.True(t, roster.Known("alice"))
	assert.False(t, roster.Known("carol"))

	alice, ok := roster.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", alice.DisplayName)
	assert.Equal(t, []string{"curious", "terse"}, alice.Traits)

	assert.ElementsMatch(t, []string{"alice", "bob"}, roster.IDs())
}

func TestLoadRosterRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas: [this is not a mapping list"), 0o644))

	_, err := LoadRoster(path)
	assert.Error(t, err)
}
