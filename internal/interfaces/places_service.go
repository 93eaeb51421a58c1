package interfaces

import (
	"context"

	"github.com/ternarybob/voyager/internal/models"
)

// PlacesSearchRequest represents a request to search for places
type PlacesSearchRequest struct {
	Query      string  `json:"query"`
	MaxResults int     `json:"max_results,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Radius     int     `json:"radius,omitempty"` // meters, for location-biased searches
}

// PlacesService defines the interface for the external place-search provider
type PlacesService interface {
	// SearchPlaces performs a text search and returns ranked results.
	// Results lacking geometry are filtered out by the provider client.
	SearchPlaces(ctx context.Context, req *PlacesSearchRequest) ([]*models.ResolvedPlace, error)

	// GetPlaceDetails fetches a single place by its stable provider ID
	GetPlaceDetails(ctx context.Context, placeID string) (*models.ResolvedPlace, error)
}
