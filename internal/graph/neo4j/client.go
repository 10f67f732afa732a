package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/pkg/circuitbreaker"
	"github.com/flowboard/backend/pkg/logger"
	"github.com/flowboard/backend/pkg/retry"
)

// Client mirrors the loaded flow graph into neo4j and serves the adjacency
// and path queries the graph panel uses.
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// Path is one screen-to-screen route returned by FindPaths.
type Path struct {
	ScreenIDs []string `json:"screen_ids"`
	Length    int      `json:"length"`
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// SyncGraph upserts every screen and transition of the loaded flow graph.
// Called once at startup after the definition file is read.
func (c *Client) SyncGraph(ctx context.Context, graph *flow.Graph) error {
	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, screen := range graph.Screens {
			query := `
				MERGE (s:Screen {id: $id})
				SET s.label = $label,
				    s.role = $role,
				    s.product = $product,
				    s.section = $section,
				    s.feature = $feature,
				    s.synced_at = timestamp()
			`

			_, err := session.Run(ctx, query, map[string]interface{}{
				"id":      screen.ID,
				"label":   screen.Label,
				"role":    screen.Role,
				"product": screen.Product,
				"section": screen.Section,
				"feature": screen.Feature,
			})
			if err != nil {
				return fmt.Errorf("failed to sync screen %s: %w", screen.ID, err)
			}
		}

		for _, t := range graph.Transitions {
			query := `
				MATCH (from:Screen {id: $from})
				MATCH (to:Screen {id: $to})
				MERGE (from)-[r:LEADS_TO]->(to)
				SET r.label = $label,
				    r.synced_at = timestamp()
			`

			_, err := session.Run(ctx, query, map[string]interface{}{
				"from":  t.From,
				"to":    t.To,
				"label": t.Label,
			})
			if err != nil {
				return fmt.Errorf("failed to sync transition %s->%s: %w", t.From, t.To, err)
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	logger.Info("Flow graph synced to neo4j",
		zap.Int("screens", len(graph.Screens)),
		zap.Int("transitions", len(graph.Transitions)),
	)

	return nil
}

// Neighbors returns the ids of screens directly reachable from the given one.
func (c *Client) Neighbors(ctx context.Context, screenID string) ([]string, error) {
	var neighbors []string

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := `
			MATCH (:Screen {id: $id})-[:LEADS_TO]->(next:Screen)
			RETURN next.id
			ORDER BY next.id
		`

		result, err := session.Run(ctx, query, map[string]interface{}{"id": screenID})
		if err != nil {
			return fmt.Errorf("failed to query neighbors: %w", err)
		}

		for result.Next(ctx) {
			id, _ := result.Record().Get("next.id")
			if s, ok := id.(string); ok {
				neighbors = append(neighbors, s)
			}
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	return neighbors, nil
}

// FindPaths returns directed paths between two screens up to maxDepth hops.
func (c *Client) FindPaths(ctx context.Context, fromID, toID string, maxDepth int) ([]Path, error) {
	if maxDepth <= 0 || maxDepth > 10 {
		maxDepth = 6
	}

	var paths []Path

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		query := fmt.Sprintf(`
			MATCH p = (from:Screen {id: $from})-[:LEADS_TO*1..%d]->(to:Screen {id: $to})
			RETURN [n IN nodes(p) | n.id] AS ids, length(p) AS len
			ORDER BY len
			LIMIT 20
		`, maxDepth)

		result, err := session.Run(ctx, query, map[string]interface{}{
			"from": fromID,
			"to":   toID,
		})
		if err != nil {
			return fmt.Errorf("failed to query paths: %w", err)
		}

		for result.Next(ctx) {
			record := result.Record()
			rawIDs, _ := record.Get("ids")
			rawLen, _ := record.Get("len")

			var ids []string
			if list, ok := rawIDs.([]interface{}); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						ids = append(ids, s)
					}
				}
			}

			length := 0
			if n, ok := rawLen.(int64); ok {
				length = int(n)
			}

			paths = append(paths, Path{ScreenIDs: ids, Length: length})
		}

		return result.Err()
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Path query completed",
		zap.String("from", fromID),
		zap.String("to", toID),
		zap.Int("paths", len(paths)),
	)

	return paths, nil
}
