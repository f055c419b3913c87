package jobs

import (
	"context"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/config"
	"github.com/unlistedhub/unlisted-backend/services"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// IngestJob runs the ingestion pipeline over the configured source table,
// on a cron schedule and on demand.
type IngestJob struct {
	Coordinator     *services.Coordinator
	Registry        *services.ExtractorRegistry
	Sources         []config.SourceEntry
	HTTPFetcher     shared.PageFetcher
	RenderedFetcher shared.PageFetcher
	Discovery       *services.LinkDiscovery

	cron *cron.Cron
}

func NewIngestJob(
	coordinator *services.Coordinator,
	registry *services.ExtractorRegistry,
	sources []config.SourceEntry,
	httpFetcher, renderedFetcher shared.PageFetcher,
	discovery *services.LinkDiscovery,
) *IngestJob {
	return &IngestJob{
		Coordinator:     coordinator,
		Registry:        registry,
		Sources:         sources,
		HTTPFetcher:     httpFetcher,
		RenderedFetcher: renderedFetcher,
		Discovery:       discovery,
	}
}

// Start schedules recurring ingestion runs. cronSpec uses the
// seconds-resolution cron format.
func (j *IngestJob) Start(cronSpec string) error {
	j.cron = cron.New(cron.WithSeconds())
	if _, err := j.cron.AddFunc(cronSpec, j.Run); err != nil {
		return err
	}
	j.cron.Start()

	logrus.WithField("schedule", cronSpec).Info("Ingestion job scheduled")
	return nil
}

func (j *IngestJob) Stop() {
	if j.cron != nil {
		j.cron.Stop()
		logrus.Info("Ingestion job stopped")
	}
}

// Run executes one full ingestion pass over every configured source.
func (j *IngestJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	tasks := j.buildTasks()
	if len(tasks) == 0 {
		logrus.Warn("No ingestion tasks configured, skipping run")
		return
	}

	j.Coordinator.Run(ctx, tasks)
}

// buildTasks turns source entries into runnable tasks, expanding entries
// with an index page through link discovery. A source whose discovery
// fails still contributes its configured URL.
func (j *IngestJob) buildTasks() []services.SourceTask {
	var tasks []services.SourceTask

	for _, entry := range j.Sources {
		extractor, ok := j.Registry.Lookup(entry.Extractor)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"source":    entry.Name,
				"extractor": entry.Extractor,
			}).Warn("Unknown extractor, skipping source")
			continue
		}

		fetcher := j.HTTPFetcher
		if entry.Rendered {
			fetcher = j.RenderedFetcher
		}

		urls := []string{entry.URL}
		if entry.IndexURL != "" && entry.LinkPattern != "" {
			urls = append(urls, j.discoverURLs(entry)...)
		}

		seen := make(map[string]struct{}, len(urls))
		for _, url := range urls {
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
			tasks = append(tasks, services.SourceTask{
				SourceName: entry.Name,
				URL:        url,
				Fetcher:    fetcher,
				Extractor:  extractor,
			})
		}
	}

	return tasks
}

func (j *IngestJob) discoverURLs(entry config.SourceEntry) []string {
	pattern, err := regexp.Compile(entry.LinkPattern)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"source":  entry.Name,
			"pattern": entry.LinkPattern,
		}).WithError(err).Warn("Invalid link pattern, skipping discovery")
		return nil
	}

	urls, err := j.Discovery.DiscoverListingURLs(entry.IndexURL, pattern)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"source":    entry.Name,
			"index_url": entry.IndexURL,
		}).WithError(err).Warn("Link discovery failed, continuing with configured URL")
		return nil
	}
	return urls
}
