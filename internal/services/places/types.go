package places

// TextSearchResponse represents the Google Places Text Search API response
type TextSearchResponse struct {
	HTMLAttributions []string      `json:"html_attributions"`
	Results          []PlaceResult `json:"results"`
	Status           string        `json:"status"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	NextPageToken    string        `json:"next_page_token,omitempty"`
}

// DetailsResponse represents the Google Place Details API response
type DetailsResponse struct {
	HTMLAttributions []string     `json:"html_attributions"`
	Result           *PlaceResult `json:"result,omitempty"`
	Status           string       `json:"status"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// PlaceResult represents a single place result from Google Places API
type PlaceResult struct {
	BusinessStatus   string    `json:"business_status,omitempty"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	Geometry         *Geometry `json:"geometry,omitempty"`
	Name             string    `json:"name"`
	PlaceID          string    `json:"place_id"`
	PriceLevel       int       `json:"price_level,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	Types            []string  `json:"types,omitempty"`
	UserRatingsTotal int       `json:"user_ratings_total,omitempty"`
	Vicinity         string    `json:"vicinity,omitempty"`
}

// Geometry represents the geometry information of a place
type Geometry struct {
	Location *LatLng `json:"location,omitempty"`
	Viewport *Bounds `json:"viewport,omitempty"`
}

// LatLng represents a geographic coordinate
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds represents a geographic bounding box
type Bounds struct {
	Northeast *LatLng `json:"northeast,omitempty"`
	Southwest *LatLng `json:"southwest,omitempty"`
}
