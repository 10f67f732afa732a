package flow

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/flowboard/backend/pkg/logger"
)

var validRoles = map[string]bool{
	RoleEntry:        true,
	RoleForm:         true,
	RoleList:         true,
	RoleDetail:       true,
	RoleConfirmation: true,
	RoleTerminal:     true,
}

// Load reads the flow graph definition from a JSON file and validates it.
// The returned graph is treated as immutable by every consumer.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow graph: %w", err)
	}

	var graph Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to parse flow graph: %w", err)
	}

	if err := Validate(&graph); err != nil {
		return nil, err
	}

	logger.Info("Flow graph loaded",
		zap.String("path", path),
		zap.Int("screens", len(graph.Screens)),
		zap.Int("transitions", len(graph.Transitions)),
	)

	return &graph, nil
}

// Validate checks id uniqueness, role values and transition endpoints.
func Validate(graph *Graph) error {
	seen := make(map[string]bool, len(graph.Screens))

	for _, screen := range graph.Screens {
		if screen.ID == "" {
			return fmt.Errorf("screen with empty id (label %q)", screen.Label)
		}
		if seen[screen.ID] {
			return fmt.Errorf("duplicate screen id: %s", screen.ID)
		}
		seen[screen.ID] = true

		if !validRoles[screen.Role] {
			return fmt.Errorf("screen %s has unknown role %q", screen.ID, screen.Role)
		}
	}

	for _, t := range graph.Transitions {
		if !seen[t.From] {
			return fmt.Errorf("transition references unknown screen: %s", t.From)
		}
		if !seen[t.To] {
			return fmt.Errorf("transition references unknown screen: %s", t.To)
		}
	}

	return nil
}

// ScreenByID returns the screen with the given id, or false.
func (g *Graph) ScreenByID(id string) (Screen, bool) {
	for _, screen := range g.Screens {
		if screen.ID == id {
			return screen, true
		}
	}
	return Screen{}, false
}
