package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingDraft is the transient result of one extraction attempt. It has not
// been identity-checked yet; the ingestion coordinator either persists it,
// skips it as a duplicate, or discards it.
type ListingDraft struct {
	CompanyName    string
	Symbol         *string
	Country        *string
	Sector         *string
	Status         *string
	LastKnownPrice *float64
	PriceCurrency  *string
	Valuation      *string
	Metadata       map[string]string
	SourceName     string
	SourceURL      string
}

// Listing is the persisted unlisted-share record. Once created it is never
// mutated by the ingestion pipeline; re-ingesting the same identity is a
// no-op and RetrievedAt keeps the first-seen time.
type Listing struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	Symbol      *string   `json:"symbol,omitempty"`
	Country     string    `json:"country"`
	Sector      *string   `json:"sector,omitempty"`
	Status      string    `json:"status"`

	LastKnownPrice *float64 `json:"last_known_price,omitempty"`
	PriceCurrency  string   `json:"price_currency"`
	Valuation      *string  `json:"valuation,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	// Source attribution and auditing
	SourceName  string    `json:"source_name"`
	SourceURL   string    `json:"source_url"`
	UniqueHash  string    `json:"unique_hash"`
	RetrievedAt time.Time `json:"retrieved_at"`
}
