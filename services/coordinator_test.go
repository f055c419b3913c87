package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlistedhub/unlisted-backend/models"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// memoryStore is an in-memory ListingStore for coordinator tests. Setting
// raceOnInsert makes every insert report a lost duplicate race regardless of
// what FindByHash said, mimicking a concurrent writer.
type memoryStore struct {
	mutex        sync.Mutex
	byHash       map[string]*models.Listing
	raceOnInsert bool
	failInsert   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byHash: make(map[string]*models.Listing)}
}

func (m *memoryStore) FindByHash(_ context.Context, hash string) (*models.Listing, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.byHash[hash], nil
}

func (m *memoryStore) InsertIfAbsent(_ context.Context, listing *models.Listing) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failInsert != nil {
		return m.failInsert
	}
	if m.raceOnInsert {
		return ErrDuplicateListing
	}
	if _, exists := m.byHash[listing.UniqueHash]; exists {
		return ErrDuplicateListing
	}
	m.byHash[listing.UniqueHash] = listing
	return nil
}

func (m *memoryStore) Query(_ context.Context, _ ListingFilter) ([]models.Listing, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	listings := make([]models.Listing, 0, len(m.byHash))
	for _, listing := range m.byHash {
		listings = append(listings, *listing)
	}
	return listings, nil
}

func (m *memoryStore) Search(_ context.Context, _ string, _ int) ([]models.Listing, error) {
	return nil, nil
}

func (m *memoryStore) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.byHash)
}

// stubFetcher serves canned documents keyed by URL.
type stubFetcher struct {
	pages  map[string][]byte
	errors map[string]error
}

func (f *stubFetcher) FetchPage(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errors[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, errors.New("no canned page for " + url)
}

// stubExtractor returns a fixed draft per URL, nil for non-listing pages.
type stubExtractor struct {
	name   string
	drafts map[string]*models.ListingDraft
	err    error
}

func (e *stubExtractor) SourceName() string { return e.name }

func (e *stubExtractor) Extract(_ []byte, originURL string) (*models.ListingDraft, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.drafts[originURL], nil
}

func draftFor(name, url string) *models.ListingDraft {
	return &models.ListingDraft{
		CompanyName: name,
		SourceName:  "StubSource",
		SourceURL:   url,
	}
}

func makeTask(url string, fetcher shared.PageFetcher, extractor Extractor) SourceTask {
	return SourceTask{SourceName: "StubSource", URL: url, Fetcher: fetcher, Extractor: extractor}
}

func TestCoordinatorPersistsNewListings(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{pages: map[string][]byte{
		"https://src/a": []byte("<html/>"),
		"https://src/b": []byte("<html/>"),
	}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
		"https://src/b": draftFor("Beta Ltd", "https://src/b"),
	}}

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(context.Background(), []SourceTask{
		makeTask("https://src/a", fetcher, extractor),
		makeTask("https://src/b", fetcher, extractor),
	})

	require.Len(t, results, 2)
	assert.Equal(t, OutcomeInserted, results[0].Outcome)
	assert.Equal(t, OutcomeInserted, results[1].Outcome)
	assert.Equal(t, 2, store.count())
}

func TestCoordinatorIsIdempotentAcrossRuns(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/a": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
	}}
	tasks := []SourceTask{makeTask("https://src/a", fetcher, extractor)}

	coordinator := NewCoordinator(store, time.Second)

	first := coordinator.Run(context.Background(), tasks)
	second := coordinator.Run(context.Background(), tasks)

	assert.Equal(t, OutcomeInserted, first[0].Outcome)
	assert.Equal(t, OutcomeDuplicate, second[0].Outcome)
	assert.Equal(t, 1, store.count(), "re-running the same task table must not create records")
}

func TestCoordinatorIsolatesTaskFailures(t *testing.T) {
	store := newMemoryStore()
	fetchErr := shared.NewIngestError(shared.ErrorCategoryFetch, "HTTP_STATUS", "unexpected status 500", "StubSource", nil)
	fetcher := &stubFetcher{
		pages: map[string][]byte{
			"https://src/a": []byte("<html/>"),
			"https://src/c": []byte("<html/>"),
		},
		errors: map[string]error{"https://src/b": fetchErr},
	}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
		"https://src/c": draftFor("Gamma Inc", "https://src/c"),
	}}

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(context.Background(), []SourceTask{
		makeTask("https://src/a", fetcher, extractor),
		makeTask("https://src/b", fetcher, extractor),
		makeTask("https://src/c", fetcher, extractor),
	})

	require.Len(t, results, 3)
	assert.Equal(t, OutcomeInserted, results[0].Outcome)
	assert.Equal(t, OutcomeFetchError, results[1].Outcome)
	assert.ErrorIs(t, results[1].Err, fetchErr)
	assert.Equal(t, OutcomeInserted, results[2].Outcome, "a failed task must not block later tasks")
	assert.Equal(t, 2, store.count())
}

func TestCoordinatorSkipsNonListingPages(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/about": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{}}

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(context.Background(), []SourceTask{
		makeTask("https://src/about", fetcher, extractor),
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNotAListing, results[0].Outcome)
	assert.Zero(t, store.count())
}

func TestCoordinatorAppliesDefaultsWithoutOverriding(t *testing.T) {
	store := newMemoryStore()
	status := "Available"
	draft := draftFor("Acme Corp", "https://src/a")
	draft.Status = &status

	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/a": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{"https://src/a": draft}}

	coordinator := NewCoordinator(store, time.Second)
	coordinator.Run(context.Background(), []SourceTask{makeTask("https://src/a", fetcher, extractor)})

	hash := DedupKey("Acme Corp", "https://src/a")
	stored, err := store.FindByHash(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "Available", stored.Status, "extracted status must not be overridden by the default")
	assert.Equal(t, "India", stored.Country)
	assert.Equal(t, "INR", stored.PriceCurrency)
}

func TestCoordinatorTreatsInsertRaceAsDuplicate(t *testing.T) {
	store := newMemoryStore()
	store.raceOnInsert = true

	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/a": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
	}}

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(context.Background(), []SourceTask{makeTask("https://src/a", fetcher, extractor)})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeDuplicate, results[0].Outcome)
	assert.NoError(t, results[0].Err, "a lost insert race is not an error outcome")
}

func TestCoordinatorReportsPersistenceErrors(t *testing.T) {
	store := newMemoryStore()
	store.failInsert = shared.NewIngestError(shared.ErrorCategoryPersistence, "INSERT_FAILED", "connection reset", "StubSource", nil)

	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/a": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
	}}

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(context.Background(), []SourceTask{makeTask("https://src/a", fetcher, extractor)})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomePersistError, results[0].Outcome)
	assert.Equal(t, shared.ErrorCategoryPersistence, shared.CategoryOf(results[0].Err))
}

func TestCoordinatorStopsOnCancelledContext(t *testing.T) {
	store := newMemoryStore()
	fetcher := &stubFetcher{pages: map[string][]byte{"https://src/a": []byte("<html/>")}}
	extractor := &stubExtractor{name: "StubSource", drafts: map[string]*models.ListingDraft{
		"https://src/a": draftFor("Acme Corp", "https://src/a"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coordinator := NewCoordinator(store, time.Second)
	results := coordinator.Run(ctx, []SourceTask{
		makeTask("https://src/a", fetcher, extractor),
		makeTask("https://src/a", fetcher, extractor),
	})

	assert.Empty(t, results)
	assert.Zero(t, store.count())
}
