package http

import (
	"log/slog"
	"sync"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type runPayload struct {
	RunID string `json:"runId"`
	SetID string `json:"setId"`
}

// questionPayload never carries the correct answer.
type questionPayload struct {
	ID      string              `json:"id"`
	Kind    domain.QuestionKind `json:"kind"`
	Prompt  string              `json:"prompt"`
	Options []string            `json:"options,omitempty"`
	Index   int                 `json:"index"`
	Total   int                 `json:"total"`
	Score   domain.Score        `json:"score"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type feedbackPayload struct {
	QuestionID    string       `json:"questionId"`
	Correct       bool         `json:"correct"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Score         domain.Score `json:"score"`
}

type pausedPayload struct {
	Paused    bool `json:"paused"`
	Remaining int  `json:"remaining"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsPresenter turns driver callbacks into queued websocket messages.
// Callbacks arrive from the read loop and from timer goroutines; sends after close are dropped.
type wsPresenter struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	send   chan outboundMessage[any]
}

var _ app.Presenter = (*wsPresenter)(nil)

func newWSPresenter(buffer int, logger *slog.Logger) *wsPresenter {
	return &wsPresenter{
		logger: logger,
		send:   make(chan outboundMessage[any], buffer),
	}
}

func (p *wsPresenter) emit(typ string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	default:
		p.logger.Warn("ws send buffer full, dropping message", "type", typ)
	}
}

func (p *wsPresenter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
}

func (p *wsPresenter) ShowQuestion(q domain.Question, index, total int, score domain.Score) {
	payload := questionPayload{
		ID:     q.ID,
		Kind:   q.Kind(),
		Prompt: q.Prompt,
		Index:  index,
		Total:  total,
		Score:  score,
	}
	if text, ok := q.Data.(domain.TextData); ok {
		payload.Options = append([]string(nil), text.Options...)
	}
	p.emit("question", payload)
}

func (p *wsPresenter) ShowTick(remaining int) {
	p.emit("tick", tickPayload{Remaining: remaining})
}

func (p *wsPresenter) ShowFeedback(correct bool, q domain.Question, score domain.Score) {
	p.emit("feedback", feedbackPayload{
		QuestionID:    q.ID,
		Correct:       correct,
		CorrectAnswer: app.CorrectAnswerText(q),
		Explanation:   q.Explanation,
		Score:         score,
	})
}

func (p *wsPresenter) ShowTimeout(q domain.Question, score domain.Score) {
	p.emit("timeout", feedbackPayload{
		QuestionID:    q.ID,
		CorrectAnswer: app.CorrectAnswerText(q),
		Explanation:   q.Explanation,
		Score:         score,
	})
}

func (p *wsPresenter) ShowPaused(paused bool, remaining int) {
	p.emit("paused", pausedPayload{Paused: paused, Remaining: remaining})
}

func (p *wsPresenter) ShowSummary(summary domain.Summary) {
	p.emit("summary", summary)
}
