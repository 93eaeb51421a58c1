package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/voyager/internal/common"
	"github.com/ternarybob/voyager/internal/interfaces"
	"github.com/ternarybob/voyager/internal/models"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Service implements the PlacesService interface against the Google
// Places Web Service. All calls share one rate limiter so concurrent
// resolutions stay inside the provider quota.
type Service struct {
	config     *common.PlacesAPIConfig
	logger     arbor.ILogger
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

var _ interfaces.PlacesService = (*Service)(nil)

// NewService creates a new Places service instance
func NewService(
	config *common.PlacesAPIConfig,
	storageManager interfaces.StorageManager,
	logger arbor.ILogger,
) *Service {
	// Resolve API key with KV-first resolution order: KV store -> config fallback
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, storageManager.KeyValueStorage(), "google_places_key", config.APIKey)
	if err != nil {
		apiKey = config.APIKey
		logger.Warn().Err(err).Msg("Failed to resolve Places API key from KV store, using config value")
	}

	interval := rate.Every(config.RateLimit)
	if config.RateLimit <= 0 {
		interval = rate.Inf
	}

	return &Service{
		config: config,
		logger: logger,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(interval, 1),
		baseURL: defaultBaseURL,
	}
}

// SetBaseURL overrides the provider endpoint. Used by tests.
func (s *Service) SetBaseURL(baseURL string) {
	s.baseURL = baseURL
}

// SearchPlaces performs a text search and returns results that carry
// geometry. Results without coordinates are unusable downstream and are
// dropped here.
func (s *Service) SearchPlaces(ctx context.Context, req *interfaces.PlacesSearchRequest) ([]*models.ResolvedPlace, error) {
	if req == nil || req.Query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 || maxResults > s.config.MaxResultsPerSearch {
		maxResults = s.config.MaxResultsPerSearch
	}

	params := url.Values{}
	params.Set("query", req.Query)
	if s.config.Language != "" {
		params.Set("language", s.config.Language)
	}
	if s.config.Region != "" {
		params.Set("region", s.config.Region)
	}
	if req.Latitude != 0 || req.Longitude != 0 {
		params.Set("location", fmt.Sprintf("%f,%f", req.Latitude, req.Longitude))
		if req.Radius > 0 {
			params.Set("radius", fmt.Sprintf("%d", req.Radius))
		}
	}
	params.Set("key", s.apiKey)

	fullURL := fmt.Sprintf("%s/textsearch/json?%s", s.baseURL, params.Encode())

	// Redact API key in logs
	logURL := fmt.Sprintf("%s/textsearch/json?query=%s&key=***REDACTED***", s.baseURL, url.QueryEscape(req.Query))
	s.logger.Debug().Str("url", logURL).Msg("Calling Places Text Search API")

	var apiResp TextSearchResponse
	if err := s.doGet(ctx, fullURL, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API error: %s - %s", apiResp.Status, apiResp.ErrorMessage)
	}

	results := make([]*models.ResolvedPlace, 0, len(apiResp.Results))
	dropped := 0
	for _, place := range apiResp.Results {
		if len(results) >= maxResults {
			break
		}
		resolved := convertResult(place)
		if resolved == nil {
			dropped++
			continue
		}
		results = append(results, resolved)
	}

	s.logger.Debug().
		Str("search_query", req.Query).
		Int("results_count", len(results)).
		Int("dropped_no_geometry", dropped).
		Str("status", apiResp.Status).
		Msg("Places text search completed")

	return results, nil
}

// GetPlaceDetails fetches a single place by its stable provider ID
func (s *Service) GetPlaceDetails(ctx context.Context, placeID string) (*models.ResolvedPlace, error) {
	if placeID == "" {
		return nil, fmt.Errorf("place ID cannot be empty")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,geometry,rating,user_ratings_total,price_level,types")
	if s.config.Language != "" {
		params.Set("language", s.config.Language)
	}
	params.Set("key", s.apiKey)

	fullURL := fmt.Sprintf("%s/details/json?%s", s.baseURL, params.Encode())

	logURL := fmt.Sprintf("%s/details/json?place_id=%s&key=***REDACTED***", s.baseURL, placeID)
	s.logger.Debug().Str("url", logURL).Msg("Calling Place Details API")

	var apiResp DetailsResponse
	if err := s.doGet(ctx, fullURL, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != "OK" {
		return nil, fmt.Errorf("places API error: %s - %s", apiResp.Status, apiResp.ErrorMessage)
	}
	if apiResp.Result == nil {
		return nil, fmt.Errorf("places API returned no result for %s", placeID)
	}

	resolved := convertResult(*apiResp.Result)
	if resolved == nil {
		return nil, fmt.Errorf("place %s has no geometry", placeID)
	}

	return resolved, nil
}

// doGet performs a GET request and decodes the JSON response
func (s *Service) doGet(ctx context.Context, fullURL string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call places API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("places API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}

	return nil
}

// convertResult maps a provider result to the canonical place record.
// Returns nil when the result lacks geometry.
func convertResult(place PlaceResult) *models.ResolvedPlace {
	if place.Geometry == nil || place.Geometry.Location == nil {
		return nil
	}

	address := place.FormattedAddress
	if address == "" {
		address = place.Vicinity
	}

	return &models.ResolvedPlace{
		PlaceID:          place.PlaceID,
		Name:             place.Name,
		FormattedAddress: address,
		Latitude:         place.Geometry.Location.Lat,
		Longitude:        place.Geometry.Location.Lng,
		Rating:           place.Rating,
		UserRatingsTotal: place.UserRatingsTotal,
		PriceLevel:       place.PriceLevel,
		Types:            place.Types,
	}
}
