package models

import "time"

// ResolvedPlace is the canonical place record produced by the resolver.
// PlaceID is the search provider's stable identifier and is the cache key.
type ResolvedPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Latitude         float64  `json:"lat"`
	Longitude        float64  `json:"lng"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	PriceLevel       int      `json:"price_level,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// CachedPlace is a ResolvedPlace persisted in the place cache.
// Reads are only honored while now < CacheExpiresAt; writes always set a
// fixed forward expiry so repeated resolutions converge to one fresh row.
type CachedPlace struct {
	PlaceID          string    `json:"place_id" badgerhold:"key"`
	Name             string    `json:"name"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	Latitude         float64   `json:"lat"`
	Longitude        float64   `json:"lng"`
	Rating           float64   `json:"rating,omitempty"`
	UserRatingsTotal int       `json:"user_ratings_total,omitempty"`
	PriceLevel       int       `json:"price_level,omitempty"`
	Types            []string  `json:"types,omitempty"`
	CachedAt         time.Time `json:"cached_at"`
	CacheExpiresAt   time.Time `json:"cache_expires_at"`
}

// Expired reports whether the cache entry is past its expiry at the given time.
func (c *CachedPlace) Expired(now time.Time) bool {
	return !now.Before(c.CacheExpiresAt)
}

// ToResolved converts a cache row back to the resolver's result type.
func (c *CachedPlace) ToResolved() *ResolvedPlace {
	return &ResolvedPlace{
		PlaceID:          c.PlaceID,
		Name:             c.Name,
		FormattedAddress: c.FormattedAddress,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		Rating:           c.Rating,
		UserRatingsTotal: c.UserRatingsTotal,
		PriceLevel:       c.PriceLevel,
		Types:            c.Types,
	}
}

// NewCachedPlace builds a cache row from a resolved place with a forward expiry.
func NewCachedPlace(p *ResolvedPlace, ttl time.Duration, now time.Time) *CachedPlace {
	return &CachedPlace{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		FormattedAddress: p.FormattedAddress,
		Latitude:         p.Latitude,
		Longitude:        p.Longitude,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		PriceLevel:       p.PriceLevel,
		Types:            p.Types,
		CachedAt:         now,
		CacheExpiresAt:   now.Add(ttl),
	}
}
