package adminkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPermissionsYAML = `
scopes:
  "_user:admin":
    skill: [view, edit, add, delete]
    employee: [view, detail, upload]
  "_user:viewer":
    skill: [view]
    jobLevel: []
`

// TestParseAction tests parsing the closed set of actions
func TestParseAction(t *testing.T) {
	for _, a := range AllActions() {
		got, err := ParseAction(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAction("publish")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = ParseAction("")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

// TestAllActionsIsACopy tests that callers cannot mutate the canonical list
func TestAllActionsIsACopy(t *testing.T) {
	actions := AllActions()
	require.Len(t, actions, 6)
	actions[0] = "tampered"
	assert.Equal(t, ActionView, AllActions()[0])
}

// TestActionSet tests insertion order and duplicate handling
func TestActionSet(t *testing.T) {
	s := NewActionSet(ActionEdit, ActionView, ActionEdit, ActionAdd)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []Action{ActionEdit, ActionView, ActionAdd}, s.Actions())
	assert.True(t, s.Contains(ActionView))
	assert.False(t, s.Contains(ActionDelete))

	empty := NewActionSet()
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Contains(ActionView))
}

// TestLoadPermissionTable tests decoding the YAML permission table
func TestLoadPermissionTable(t *testing.T) {
	table, err := LoadPermissionTable(strings.NewReader(testPermissionsYAML))
	require.NoError(t, err)

	assert.Equal(t, []Scope{"_user:admin", "_user:viewer"}, table.Scopes())
	assert.Equal(t, []string{"employee", "skill"}, table.Resources("_user:admin"))

	set, ok := table.Lookup("_user:admin", "skill")
	require.True(t, ok)
	assert.Equal(t, []Action{ActionView, ActionEdit, ActionAdd, ActionDelete}, set.Actions())

	set, ok = table.Lookup("_user:viewer", "jobLevel")
	require.True(t, ok, "a resource listed with no actions is present")
	assert.Equal(t, 0, set.Len())

	_, ok = table.Lookup("_user:viewer", "employee")
	assert.False(t, ok)
	_, ok = table.Lookup("_user:ghost", "skill")
	assert.False(t, ok)
}

// TestLoadPermissionTableUnknownAction tests that typos are rejected
func TestLoadPermissionTableUnknownAction(t *testing.T) {
	_, err := LoadPermissionTable(strings.NewReader(`
scopes:
  admin:
    skill: [view, eidt]
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Contains(t, err.Error(), "eidt")
}

// TestLoadPermissionTableEmpty tests that an empty document yields an empty table
func TestLoadPermissionTableEmpty(t *testing.T) {
	table, err := LoadPermissionTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Scopes())
}

// TestLoadPermissionTableMalformed tests invalid YAML
func TestLoadPermissionTableMalformed(t *testing.T) {
	_, err := LoadPermissionTable(strings.NewReader("scopes: [not, a, map"))
	assert.Error(t, err)
}

// TestLoadPermissionTableFile tests reading the table from disk
func TestLoadPermissionTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPermissionsYAML), 0o600))

	table, err := LoadPermissionTableFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Scopes(), 2)

	_, err = LoadPermissionTableFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestNilPermissionTable tests that a nil table behaves as empty
func TestNilPermissionTable(t *testing.T) {
	var table *PermissionTable
	_, ok := table.Lookup("any", "skill")
	assert.False(t, ok)
	assert.Nil(t, table.Scopes())
	assert.Nil(t, table.Resources("any"))
}
