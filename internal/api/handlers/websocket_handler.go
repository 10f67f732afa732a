package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/flow"
	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/pkg/logger"
)

// WebSocketHandler streams overview refreshes. Each refresh request bumps a
// per-connection sequence; a run that finishes after a newer one has started
// is dropped, so late results never clobber a newer run's output.
type WebSocketHandler struct {
	graph      *flow.Graph
	aggregator *risk.Aggregator
}

func NewWebSocketHandler(graph *flow.Graph, aggregator *risk.Aggregator) *WebSocketHandler {
	return &WebSocketHandler{
		graph:      graph,
		aggregator: aggregator,
	}
}

type wsConn struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	seq     uint64
	writeMu sync.Mutex
}

func (w *wsConn) nextSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	return w.seq
}

func (w *wsConn) isCurrent(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq == seq
}

func (w *wsConn) writeJSON(v interface{}) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(v)
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ws := &wsConn{conn: c}

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Product string `json:"product"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "refresh" {
			continue
		}

		seq := ws.nextSeq()
		go h.runRefresh(ws, seq, msg.Product)
	}
}

func (h *WebSocketHandler) runRefresh(ws *wsConn, seq uint64, product string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	screens := h.screensForProduct(product)

	start := time.Now()
	overview := h.aggregator.FeatureOverview(ctx, screens)

	if !ws.isCurrent(seq) {
		logger.Debug("Dropping stale overview run",
			zap.Uint64("seq", seq),
			zap.String("product", product),
		)
		return
	}

	recordRunMetrics(overview, time.Since(start))

	err := ws.writeJSON(map[string]interface{}{
		"type":     "overview",
		"seq":      seq,
		"product":  product,
		"overview": overview,
	})
	if err != nil {
		logger.Warn("Failed to write overview to websocket", zap.Error(err))
	}
}

func (h *WebSocketHandler) screensForProduct(product string) []flow.Screen {
	if product == "" {
		return h.graph.Screens
	}

	var screens []flow.Screen
	for _, screen := range h.graph.Screens {
		if screen.Product == product {
			screens = append(screens, screen)
		}
	}
	return screens
}
