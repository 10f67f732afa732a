package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraph = `{
	"screens": [
		{
			"id": "login",
			"label": "Login",
			"role": "entry",
			"actions": ["submit", "forgot-password"],
			"product": "shop",
			"section": "account",
			"feature": "auth"
		},
		{
			"id": "cart",
			"label": "Cart",
			"role": "list",
			"prerequisites": ["login"],
			"product": "shop",
			"section": "checkout",
			"feature": "cart"
		},
		{
			"id": "done",
			"label": "Order placed",
			"role": "terminal"
		}
	],
	"transitions": [
		{"from": "login", "to": "cart", "label": "continue"},
		{"from": "cart", "to": "done"}
	]
}`

func writeGraphFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowgraph.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	graph, err := Load(writeGraphFile(t, sampleGraph))
	require.NoError(t, err)

	assert.Len(t, graph.Screens, 3)
	assert.Len(t, graph.Transitions, 2)

	login, ok := graph.ScreenByID("login")
	require.True(t, ok)
	assert.Equal(t, "Login", login.Label)
	assert.Equal(t, RoleEntry, login.Role)
	assert.Equal(t, []string{"submit", "forgot-password"}, login.Actions)

	// The terminal screen has no classification triple and no quality data.
	done, ok := graph.ScreenByID("done")
	require.True(t, ok)
	assert.Empty(t, done.Product)
	assert.Nil(t, done.Quality)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidateDuplicateID(t *testing.T) {
	graph := &Graph{
		Screens: []Screen{
			{ID: "a", Role: RoleEntry},
			{ID: "a", Role: RoleForm},
		},
	}

	err := Validate(graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate screen id")
}

func TestValidateUnknownRole(t *testing.T) {
	graph := &Graph{
		Screens: []Screen{{ID: "a", Role: "popup"}},
	}

	err := Validate(graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestValidateDanglingTransition(t *testing.T) {
	graph := &Graph{
		Screens:     []Screen{{ID: "a", Role: RoleEntry}},
		Transitions: []Transition{{From: "a", To: "ghost"}},
	}

	err := Validate(graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown screen")
}

func TestScreenByIDNotFound(t *testing.T) {
	graph := &Graph{}
	_, ok := graph.ScreenByID("missing")
	assert.False(t, ok)
}
