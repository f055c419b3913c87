package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/models"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// TaskOutcome classifies the result of one source task within a run.
type TaskOutcome string

const (
	OutcomeInserted     TaskOutcome = "inserted"
	OutcomeDuplicate    TaskOutcome = "duplicate"
	OutcomeNotAListing  TaskOutcome = "not_a_listing"
	OutcomeFetchError   TaskOutcome = "fetch_error"
	OutcomeExtractError TaskOutcome = "extract_error"
	OutcomePersistError TaskOutcome = "persist_error"
)

// Last-resort defaults for the Indian unlisted market, applied at
// persistence time only when the draft leaves a field empty.
const (
	DefaultStatus   = "Pre-IPO"
	DefaultCurrency = "INR"
	DefaultCountry  = "India"
)

// SourceTask is one configured (source, url, fetcher, extractor) unit of an
// ingestion run.
type SourceTask struct {
	SourceName string
	URL        string
	Fetcher    shared.PageFetcher
	Extractor  Extractor
}

// TaskResult records how a single task ended.
type TaskResult struct {
	SourceName string
	URL        string
	Outcome    TaskOutcome
	Err        error
}

// Coordinator orchestrates the fetch → extract → dedup → persist sequence
// over an ordered task list, isolating failures per task.
type Coordinator struct {
	store        ListingStore
	fetchTimeout time.Duration
}

// NewCoordinator creates a coordinator over the given store. fetchTimeout
// bounds each task's document fetch; it defaults to 10 seconds.
func NewCoordinator(store ListingStore, fetchTimeout time.Duration) *Coordinator {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Coordinator{store: store, fetchTimeout: fetchTimeout}
}

// Run processes the tasks in order. No task failure aborts the run: every
// task gets a result and the run completes after the last one. Cancelling
// ctx lets the in-flight task finish or abort cleanly and stops before the
// next one starts.
func (c *Coordinator) Run(ctx context.Context, tasks []SourceTask) []TaskResult {
	logrus.WithField("task_count", len(tasks)).Info("Starting ingestion run")

	metrics := shared.NewRunMetrics()
	results := make([]TaskResult, 0, len(tasks))

	for _, task := range tasks {
		if ctx.Err() != nil {
			logrus.WithField("remaining_tasks", len(tasks)-len(results)).
				Warn("Ingestion run cancelled, skipping remaining tasks")
			break
		}

		result := c.runTask(ctx, task)
		metrics.Record(string(result.Outcome))
		results = append(results, result)
	}

	metrics.LogSummary()
	return results
}

func (c *Coordinator) runTask(ctx context.Context, task SourceTask) TaskResult {
	logger := logrus.WithFields(logrus.Fields{
		"source": task.SourceName,
		"url":    task.URL,
	})
	result := TaskResult{SourceName: task.SourceName, URL: task.URL}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	document, err := task.Fetcher.FetchPage(fetchCtx, task.URL)
	if err != nil {
		logger.WithError(err).Warn("Fetch failed, skipping task")
		result.Outcome, result.Err = OutcomeFetchError, err
		return result
	}

	draft, err := task.Extractor.Extract(document, task.URL)
	if err != nil {
		logger.WithError(err).Warn("Extraction failed, skipping task")
		result.Outcome, result.Err = OutcomeExtractError, err
		return result
	}
	if draft == nil {
		logger.Warn("Document is not a listing page, skipping task")
		result.Outcome = OutcomeNotAListing
		return result
	}

	hash := DedupKey(draft.CompanyName, draft.SourceURL)

	existing, err := c.store.FindByHash(ctx, hash)
	if err != nil {
		logger.WithError(err).Error("Listing store lookup failed")
		result.Outcome, result.Err = OutcomePersistError, err
		return result
	}
	if existing != nil {
		logger.WithFields(logrus.Fields{
			"company_name": draft.CompanyName,
			"unique_hash":  hash,
		}).Info("Skipping duplicate listing")
		result.Outcome = OutcomeDuplicate
		return result
	}

	listing := buildListing(draft, hash)
	if err := c.store.InsertIfAbsent(ctx, listing); err != nil {
		if errors.Is(err, ErrDuplicateListing) {
			// Lost an insert race; same as a duplicate skip.
			logger.WithField("unique_hash", hash).Info("Insert raced with a duplicate, skipping")
			result.Outcome = OutcomeDuplicate
			return result
		}
		logger.WithError(err).Error("Failed to persist listing")
		result.Outcome, result.Err = OutcomePersistError, err
		return result
	}

	logger.WithFields(logrus.Fields{
		"company_name": listing.CompanyName,
		"unique_hash":  hash,
	}).Info("Persisted new listing")
	result.Outcome = OutcomeInserted
	return result
}

// buildListing turns a draft into its persisted form, filling last-resort
// defaults without ever overriding values the draft carries.
func buildListing(draft *models.ListingDraft, hash string) *models.Listing {
	listing := &models.Listing{
		CompanyName:    draft.CompanyName,
		Symbol:         draft.Symbol,
		Sector:         draft.Sector,
		Valuation:      draft.Valuation,
		LastKnownPrice: draft.LastKnownPrice,
		Metadata:       draft.Metadata,
		SourceName:     draft.SourceName,
		SourceURL:      draft.SourceURL,
		UniqueHash:     hash,
		Status:         DefaultStatus,
		Country:        DefaultCountry,
		PriceCurrency:  DefaultCurrency,
	}

	if draft.Status != nil && *draft.Status != "" {
		listing.Status = *draft.Status
	}
	if draft.Country != nil && *draft.Country != "" {
		listing.Country = *draft.Country
	}
	if draft.PriceCurrency != nil && *draft.PriceCurrency != "" {
		listing.PriceCurrency = *draft.PriceCurrency
	}

	return listing
}
