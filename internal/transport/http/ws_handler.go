package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

const sendBuffer = 64

type WSHandler struct {
	service    *app.RunService
	defaultSet string
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.RunService, defaultSet string, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service:    service,
		defaultSet: defaultSet,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value json.RawMessage `json:"value"`
}

// ServeWS upgrades HTTP requests to websockets and drives one run per connection.
// Reconnecting with the same run id resumes a paused run.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	setID := r.URL.Query().Get("set")
	if setID == "" {
		setID = h.defaultSet
	}
	if setID == "" {
		http.Error(w, "missing set", http.StatusBadRequest)
		return
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := h.logger.With("run", runID, "set", setID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	presenter := newWSPresenter(sendBuffer, logger)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range presenter.send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "err", err)
				// keep draining so emitters never block on a dead socket
				for range presenter.send {
				}
				return
			}
		}
	}()

	presenter.emit("run", runPayload{RunID: runID, SetID: setID})
	driver, err := h.service.Open(r.Context(), setID, runID, presenter)
	if err != nil {
		presenter.emit("error", errorPayload{Message: err.Error()})
		presenter.close()
		<-writerDone
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				presenter.emit("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			value, err := decodeAnswer(payload.Value)
			if err != nil {
				presenter.emit("error", errorPayload{Message: err.Error()})
				continue
			}
			driver.Answer(r.Context(), value)
		case "pause":
			driver.Pause()
		case "resume":
			driver.Resume()
		case "restart":
			driver.Restart(r.Context())
		case "resetAll":
			if err := driver.ResetAll(r.Context()); err != nil {
				logger.Error("reset progress", "err", err)
				presenter.emit("error", errorPayload{Message: "could not reset progress"})
			}
		default:
			presenter.emit("error", errorPayload{Message: "unsupported message type"})
		}
	}

	h.service.Release(runID, presenter)
	presenter.close()
	<-writerDone
}

// decodeAnswer maps a JSON number to a Choice and a JSON boolean to a TrueFalse.
func decodeAnswer(raw json.RawMessage) (domain.Answer, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.New("invalid answer value")
	}
	switch value := v.(type) {
	case bool:
		return domain.TrueFalse(value), nil
	case float64:
		if value != math.Trunc(value) {
			return nil, fmt.Errorf("answer index %v is not an integer", value)
		}
		return domain.Choice(int(value)), nil
	default:
		return nil, errors.New("answer value must be a number or a boolean")
	}
}

// ServeBests reports persisted bests on GET and clears them on DELETE.
func (h *WSHandler) ServeBests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		bests, err := h.service.Bests(r.Context())
		if err != nil {
			h.logger.Error("load bests", "err", err)
			http.Error(w, "bests unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bests)
	case http.MethodDelete:
		if err := h.service.ResetAllProgress(r.Context()); err != nil {
			h.logger.Error("reset bests", "err", err)
			http.Error(w, "reset failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Routes mounts the websocket, bests and health endpoints.
func (h *WSHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/bests", h.ServeBests)
	return mux
}
