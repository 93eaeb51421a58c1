package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
)

// Service implements the LLMService interface on top of the provider
// factory. Structured turns carry a response schema so Gemini emits
// protocol JSON directly; Claude relies on the system prompt alone.
type Service struct {
	factory *ProviderFactory
	logger  arbor.ILogger
}

var _ interfaces.LLMService = (*Service)(nil)

// NewService creates a new LLM turn generation service
func NewService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	factory := NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, kvStorage, logger)
	return &Service{
		factory: factory,
		logger:  logger,
	}
}

// GenerateTurn produces raw model output for one conversation turn
func (s *Service) GenerateTurn(ctx context.Context, req *interfaces.GenerateRequest) (*interfaces.GenerateResponse, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("turn message cannot be empty")
	}

	messages := make([]interfaces.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, interfaces.Message{Role: "user", Content: req.Message})

	contentReq := &ContentRequest{
		Messages:          messages,
		Model:             req.Model,
		Temperature:       req.Temperature,
		SystemInstruction: BuildSystemPrompt(req.Mode, req.TripContext),
	}

	if req.Mode != interfaces.TurnModeNarrative {
		contentReq.OutputSchema = TurnResultSchema()
	}

	startTime := time.Now()
	resp, err := s.factory.GenerateContent(ctx, contentReq)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("mode", string(req.Mode)).
			Int("history_count", len(req.History)).
			Msg("Turn generation failed")
		return nil, fmt.Errorf("turn generation failed: %w", err)
	}

	s.logger.Debug().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("response_length", len(resp.Text)).
		Dur("duration", time.Since(startTime)).
		Msg("Turn generation completed")

	return &interfaces.GenerateResponse{
		Text:     resp.Text,
		Provider: string(resp.Provider),
		Model:    resp.Model,
	}, nil
}

// HealthCheck verifies provider connectivity with a minimal probe against
// the default provider.
func (s *Service) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := s.factory.GenerateContent(probeCtx, &ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("LLM health check failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return fmt.Errorf("LLM health check returned empty response")
	}
	return nil
}

// Close releases provider clients
func (s *Service) Close() error {
	return s.factory.Close()
}
