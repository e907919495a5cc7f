package analysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"kata_review/internal/domain"
	errs "kata_review/internal/errors"
	"kata_review/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	EventNode  = "node"
	EventDone  = "done"
	EventError = "error"
)

// Event is one message of the progress stream. A run produces one "node"
// event per ply followed by exactly one "done" or "error".
type Event struct {
	Type  string                `json:"type"`
	Node  *domain.AnnotatedNode `json:"node,omitempty"`
	Run   *domain.Analysis      `json:"run,omitempty"`
	Error string                `json:"error,omitempty"`
	Ply   *int                  `json:"ply,omitempty"`
}

// AnalyzeWS godoc
// @Summary Анализ партии с потоковой выдачей узлов
// @Description Клиент шлёт AnalyzeRequest первым сообщением и получает события node/done/error. Закрытие соединения отменяет анализ
// @Tags analysis
// @Router /ws/analyze [get]
func (h *AnalysisHandler) AnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		h.log.Debugw("websocket closed before request", "error", err)
		return
	}
	var req AnalyzeRequest
	if err := utils.DecodeJSON(msg, &req); err != nil {
		_ = conn.WriteJSON(Event{Type: EventError, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the only reads after the request are control frames; a failed read
	// means the client is gone
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	run, err := h.analyzer.RunText(ctx, req.Source, req.SGF, func(node domain.AnnotatedNode) {
		if err := conn.WriteJSON(Event{Type: EventNode, Node: &node}); err != nil {
			h.log.Debugw("websocket write failed, cancelling analysis", "error", err)
			cancel()
		}
	})
	if err != nil {
		ev := Event{Type: EventError, Error: err.Error()}
		var plyErr *errs.PlyError
		if errors.As(err, &plyErr) {
			ev.Ply = &plyErr.Ply
		}
		_ = conn.WriteJSON(ev)
		return
	}
	run.Nodes = nil
	_ = conn.WriteJSON(Event{Type: EventDone, Run: &run})
}
