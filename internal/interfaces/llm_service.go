package interfaces

import (
	"context"
)

// TurnMode selects the shape of the LLM response.
type TurnMode string

const (
	// TurnModeStructured instructs the model to emit the action-protocol JSON
	TurnModeStructured TurnMode = "structured"
	// TurnModeNarrative instructs the model to emit a day-by-day itinerary text
	TurnModeNarrative TurnMode = "narrative"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string `json:"role"`

	// Content contains the text content of the message
	Content string `json:"content"`
}

// TripContext summarizes the current trip for prompt construction.
type TripContext struct {
	TripID            string `json:"trip_id,omitempty"`
	TripName          string `json:"trip_name,omitempty"`
	TotalDays         int    `json:"total_days,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
	DestinationsCount int    `json:"destinations_count"`
	Language          string `json:"language,omitempty"`
}

// GenerateRequest is a provider-agnostic turn generation request.
type GenerateRequest struct {
	Message     string
	History     []Message
	TripContext *TripContext
	Mode        TurnMode
	Model       string // Optional model override; provider detected from prefix
	Temperature float32
}

// GenerateResponse carries the raw model output. In structured mode Text is
// the action-protocol JSON, validated downstream by the action schema.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
}

// LLMService defines the interface for turn generation against a language
// model provider. Implementations are expected to bound each call with the
// caller's context deadline.
type LLMService interface {
	// GenerateTurn produces raw model output for one conversation turn
	GenerateTurn(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// HealthCheck verifies provider connectivity and credentials
	HealthCheck(ctx context.Context) error

	// Close releases provider clients
	Close() error
}
