package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/models"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// ErrDuplicateListing is returned by InsertIfAbsent when a listing with the
// same unique hash already exists. The store's uniqueness constraint is the
// sole arbiter of duplicate races, so losing an insert race surfaces as
// this error rather than a generic persistence failure.
var ErrDuplicateListing = errors.New("listing with identical unique hash already exists")

// ListingFilter narrows a listing query. Empty fields are ignored; Limit
// defaults to 50 when unset.
type ListingFilter struct {
	Sector  string
	Country string
	Limit   int
}

// ListingStore is the persistence boundary the ingestion core depends on.
// Query and Search serve the read API and are not used by the coordinator.
type ListingStore interface {
	FindByHash(ctx context.Context, hash string) (*models.Listing, error)
	InsertIfAbsent(ctx context.Context, listing *models.Listing) error
	Query(ctx context.Context, filter ListingFilter) ([]models.Listing, error)
	Search(ctx context.Context, companyName string, limit int) ([]models.Listing, error)
}

const listingColumns = `id, company_name, symbol, country, sector, status,
	last_known_price, price_currency, valuation, metadata,
	source_name, source_url, unique_hash, retrieved_at`

// ListingService is the Postgres-backed ListingStore.
type ListingService struct {
	DB *sql.DB
}

// NewListingService creates a listing service on top of an open database handle.
func NewListingService(db *sql.DB) *ListingService {
	return &ListingService{DB: db}
}

// FindByHash returns the listing with the given unique hash, or nil when absent.
func (s *ListingService) FindByHash(ctx context.Context, hash string) (*models.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM unlisted_stocks WHERE unique_hash = $1`, listingColumns)

	row := s.DB.QueryRowContext(ctx, query, hash)
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.NewIngestError(shared.ErrorCategoryPersistence, "LOOKUP_FAILED",
			"lookup by unique hash failed", "listing-store", err)
	}
	return listing, nil
}

// InsertIfAbsent persists a new listing, stamping its store-assigned ID and
// first-seen timestamp. The schema-level UNIQUE constraint on unique_hash
// closes the check-then-insert race: a violation of that constraint maps to
// ErrDuplicateListing, any other failure to a persistence error.
func (s *ListingService) InsertIfAbsent(ctx context.Context, listing *models.Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if listing.RetrievedAt.IsZero() {
		listing.RetrievedAt = time.Now().UTC()
	}

	metadataJSON, err := marshalMetadata(listing.Metadata)
	if err != nil {
		return shared.NewIngestError(shared.ErrorCategoryPersistence, "METADATA_ENCODE",
			"failed to encode listing metadata", listing.SourceName, err)
	}

	query := `
		INSERT INTO unlisted_stocks (
			id, company_name, symbol, country, sector, status,
			last_known_price, price_currency, valuation, metadata,
			source_name, source_url, unique_hash, retrieved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.DB.ExecContext(ctx, query,
		listing.ID, listing.CompanyName, listing.Symbol, listing.Country, listing.Sector, listing.Status,
		listing.LastKnownPrice, listing.PriceCurrency, listing.Valuation, metadataJSON,
		listing.SourceName, listing.SourceURL, listing.UniqueHash, listing.RetrievedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" &&
			strings.Contains(pqErr.Constraint, "unique_hash") {
			return ErrDuplicateListing
		}
		return shared.NewIngestError(shared.ErrorCategoryPersistence, "INSERT_FAILED",
			fmt.Sprintf("failed to insert listing %s", listing.CompanyName), listing.SourceName, err)
	}

	logrus.WithFields(logrus.Fields{
		"company_name": listing.CompanyName,
		"source_name":  listing.SourceName,
		"unique_hash":  listing.UniqueHash,
	}).Debug("Inserted listing")

	return nil
}

// Query returns listings matching the filter, newest first.
func (s *ListingService) Query(ctx context.Context, filter ListingFilter) ([]models.Listing, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var conditions []string
	var args []interface{}

	if filter.Sector != "" {
		args = append(args, filter.Sector)
		conditions = append(conditions, fmt.Sprintf("sector = $%d", len(args)))
	}
	if filter.Country != "" {
		args = append(args, filter.Country)
		conditions = append(conditions, fmt.Sprintf("country = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM unlisted_stocks`, listingColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY retrieved_at DESC LIMIT $%d", len(args))

	return s.queryListings(ctx, query, args...)
}

// Search returns listings whose company name contains the given substring,
// case-insensitively, newest first. Limit defaults to 25 when unset.
func (s *ListingService) Search(ctx context.Context, companyName string, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 25
	}

	query := fmt.Sprintf(`SELECT %s FROM unlisted_stocks
		WHERE company_name ILIKE $1
		ORDER BY retrieved_at DESC LIMIT $2`, listingColumns)

	return s.queryListings(ctx, query, "%"+companyName+"%", limit)
}

func (s *ListingService) queryListings(ctx context.Context, query string, args ...interface{}) ([]models.Listing, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.NewIngestError(shared.ErrorCategoryPersistence, "QUERY_FAILED",
			"listing query failed", "listing-store", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, shared.NewIngestError(shared.ErrorCategoryPersistence, "SCAN_FAILED",
				"failed to scan listing row", "listing-store", err)
		}
		listings = append(listings, *listing)
	}
	return listings, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(scanner rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var symbol, sector, valuation sql.NullString
	var country, status, currency sql.NullString
	var price sql.NullFloat64
	var metadataJSON []byte

	err := scanner.Scan(
		&listing.ID, &listing.CompanyName, &symbol, &country, &sector, &status,
		&price, &currency, &valuation, &metadataJSON,
		&listing.SourceName, &listing.SourceURL, &listing.UniqueHash, &listing.RetrievedAt,
	)
	if err != nil {
		return nil, err
	}

	listing.Country = country.String
	listing.Status = status.String
	listing.PriceCurrency = currency.String
	if symbol.Valid {
		listing.Symbol = &symbol.String
	}
	if sector.Valid {
		listing.Sector = &sector.String
	}
	if valuation.Valid {
		listing.Valuation = &valuation.String
	}
	if price.Valid {
		listing.LastKnownPrice = &price.Float64
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &listing.Metadata); err != nil {
			return nil, fmt.Errorf("decode listing metadata: %w", err)
		}
	}

	return &listing, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(metadata)
}
