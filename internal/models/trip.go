package models

import "time"

// PlaceType categorizes a destination within a trip day.
type PlaceType string

const (
	PlaceTypeAttraction PlaceType = "tourist_attraction"
	PlaceTypeLodging    PlaceType = "lodging"
	PlaceTypeRestaurant PlaceType = "restaurant"
)

// Trip is the root entity owning a set of destinations.
type Trip struct {
	ID        string    `json:"id" badgerhold:"key"`
	Name      string    `json:"name"`
	TotalDays int       `json:"total_days"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Destination is a single planned stop within a trip.
// VisitDate is a 1-based day index into the trip, not a calendar date.
// OrderIndex is 1-based ordering within that day.
type Destination struct {
	ID               string    `json:"id" badgerhold:"key"`
	TripID           string    `json:"trip_id" badgerhold:"index"`
	Name             string    `json:"name"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	PlaceID          string    `json:"place_id,omitempty"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	VisitDate        int       `json:"visit_date"`
	OrderIndex       int       `json:"order_index"`
	PlaceType        PlaceType `json:"place_type,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	UserRatingsTotal int       `json:"user_ratings_total,omitempty"`
	EstimatedCost    float64   `json:"estimated_cost,omitempty"`
	VisitDurationMin int       `json:"visit_duration_min,omitempty"`
	RecommendedByAI  bool      `json:"recommended_by_ai"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChatMessage is one entry in a trip's conversation transcript.
type ChatMessage struct {
	ID        string    `json:"id" badgerhold:"key"`
	TripID    string    `json:"trip_id" badgerhold:"index"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
