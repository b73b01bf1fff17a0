// Package roleplay runs the sales-training conversation: the simulated client's next
// turn, best-effort coaching feedback, and saved sessions.
package roleplay

import (
	"context"
	"time"

	"github.com/meghashyamc/bioagents/db/store"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/llm"
)

const (
	SessionsCollection = "roleplay_sessions"
	fieldCreatedAt     = "createdAt"

	DefaultListLimit = 20
	MaxListLimit     = 100

	// defaultFeedbackWait bounds how long a finished reply waits for the feedback call.
	defaultFeedbackWait = 2 * time.Second
)

type Feedback struct {
	PontosFortes []string `json:"pontosFortes"`
	Melhorias    []string `json:"melhorias"`
	Nota         int      `json:"nota"`
}

type TurnResult struct {
	Resposta string    `json:"resposta"`
	Feedback *Feedback `json:"feedback"`
}

type SessionInput struct {
	Cenario  string         `json:"cenario"`
	Messages []Message      `json:"messages"`
	Feedback map[string]any `json:"feedback"`
	Score    *float64       `json:"score"`
	Duration *int           `json:"duration"`
}

type Service struct {
	logger    logger.Logger
	generator llm.Generator
	store     store.DB
	catalog   *Catalog
	model     string
	now       func() time.Time

	feedbackWait time.Duration
}

// New uses model, when non-empty, instead of the generator's default model.
func New(logger logger.Logger, generator llm.Generator, db store.DB, catalog *Catalog, model string) *Service {
	return &Service{
		logger:    logger,
		generator: generator,
		store:     db,
		catalog:   catalog,
		model:     model,
		now:       time.Now,

		feedbackWait: defaultFeedbackWait,
	}
}

func (s *Service) Scenarios() []Scenario {
	return s.catalog.List()
}

// Turn generates the client's next line. Feedback on the latest user turn is asked for
// in parallel; its failure, or its not finishing shortly after the reply, only leaves
// Feedback nil.
func (s *Service) Turn(ctx context.Context, cenario string, messages []Message) (*TurnResult, error) {
	scenario := s.catalog.Get(cenario)
	if !s.catalog.Has(cenario) {
		s.logger.Info("unknown scenario, using default", "cenario", cenario, "default", scenario.ID)
	}
	exchange := normalizeMessages(messages)

	feedbackCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedbackC := make(chan *Feedback, 1)
	if last, ok := lastUserMessage(exchange); ok {
		go func() {
			feedbackC <- s.feedback(feedbackCtx, scenario, exchange, last)
		}()
	} else {
		feedbackC <- nil
	}

	reply, err := s.generator.Generate(ctx, llm.Request{
		System:      personaSystemPrompt(scenario),
		Prompt:      buildTurnPrompt(scenario, exchange),
		Model:       s.model,
		Temperature: llm.Temperature(0.8),
	})
	if err != nil {
		s.logger.Error("roleplay turn generation failed", "cenario", scenario.ID, "err", err.Error())
		return nil, err
	}

	resposta := cleanReply(reply)
	if resposta == "" {
		return nil, errs.UpstreamFormat("model returned an empty reply", nil)
	}

	var feedback *Feedback
	select {
	case feedback = <-feedbackC:
	case <-time.After(s.feedbackWait):
		s.logger.Warn("roleplay feedback timed out", "cenario", scenario.ID, "wait", s.feedbackWait.String())
		cancel()
	case <-ctx.Done():
	}

	return &TurnResult{Resposta: resposta, Feedback: feedback}, nil
}

func (s *Service) feedback(ctx context.Context, scenario Scenario, exchange []Message, last Message) *Feedback {
	text, err := s.generator.Generate(ctx, llm.Request{
		System:      coachSystemPrompt,
		Prompt:      buildFeedbackPrompt(scenario, exchange, last),
		Model:       s.model,
		JSON:        true,
		Temperature: llm.Temperature(0.2),
	})
	if err != nil {
		s.logger.Warn("roleplay feedback generation failed", "cenario", scenario.ID, "err", err.Error())
		return nil
	}

	feedback := &Feedback{}
	if err := llm.DecodeObject(text, feedback); err != nil {
		s.logger.Warn("roleplay feedback was not usable", "cenario", scenario.ID, "err", err.Error())
		return nil
	}

	feedback.Nota = min(max(feedback.Nota, 0), 10)
	if feedback.PontosFortes == nil {
		feedback.PontosFortes = []string{}
	}
	if feedback.Melhorias == nil {
		feedback.Melhorias = []string{}
	}

	return feedback
}

// SaveSession always writes a new document; store failures are returned as is.
func (s *Service) SaveSession(ctx context.Context, input SessionInput) (string, error) {
	scenario := s.catalog.Get(input.Cenario)
	exchange := normalizeMessages(input.Messages)

	messages := make([]map[string]any, 0, len(exchange))
	for _, message := range exchange {
		messages = append(messages, map[string]any{"role": message.Role, "content": message.Content})
	}

	fields := map[string]any{
		"cenario":       scenario.ID,
		"cenarioTitulo": scenario.Title,
		"messages":      messages,
		"messageCount":  len(messages),
		fieldCreatedAt:  store.Timestamp(s.now()),
	}
	if input.Feedback != nil {
		fields["feedback"] = input.Feedback
	}
	if input.Score != nil {
		fields["score"] = *input.Score
	}
	if input.Duration != nil {
		fields["duration"] = *input.Duration
	}

	id, err := s.store.Write(ctx, SessionsCollection, fields, store.NewID())
	if err != nil {
		s.logger.Error("could not save roleplay session", "err", err.Error())
		return "", err
	}

	return id, nil
}

func (s *Service) ListSessions(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	documents, err := s.store.List(ctx, SessionsCollection, store.ListOptions{Limit: limit, OrderBy: fieldCreatedAt})
	if err != nil {
		s.logger.Error("could not list roleplay sessions", "err", err.Error())
		return nil, err
	}

	sessions := make([]map[string]any, 0, len(documents))
	for _, document := range documents {
		session := map[string]any{"id": document.ID}
		for key, value := range document.Data {
			session[key] = value
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}
