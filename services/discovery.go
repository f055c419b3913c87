package services

import (
	"fmt"
	"regexp"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/shared"
)

// LinkDiscovery expands the source task table by crawling a source's index
// page and collecting links that match its listing URL pattern.
type LinkDiscovery struct {
	userAgent string
	maxLinks  int
}

// NewLinkDiscovery creates a discovery crawler with a cap on how many
// listing URLs a single index page may contribute.
func NewLinkDiscovery() *LinkDiscovery {
	return &LinkDiscovery{
		userAgent: shared.DefaultUserAgent,
		maxLinks:  50,
	}
}

// DiscoverListingURLs visits indexURL and returns, in document order, the
// distinct absolute link targets matching pattern.
func (d *LinkDiscovery) DiscoverListingURLs(indexURL string, pattern *regexp.Regexp) ([]string, error) {
	collector := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.MaxDepth(1),
	)

	var links []string
	seen := make(map[string]struct{})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if !MatchListingURL(link, pattern) {
			return
		}
		if _, ok := seen[link]; ok || len(links) >= d.maxLinks {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	collector.OnError(func(response *colly.Response, err error) {
		logrus.WithFields(logrus.Fields{
			"component": "LinkDiscovery",
			"url":       indexURL,
		}).WithError(err).Warn("Discovery request failed")
	})

	if err := collector.Visit(indexURL); err != nil {
		return nil, fmt.Errorf("visit index page %s: %w", indexURL, err)
	}
	collector.Wait()

	logrus.WithFields(logrus.Fields{
		"component":   "LinkDiscovery",
		"index_url":   indexURL,
		"links_found": len(links),
	}).Info("Discovered listing URLs")

	return links, nil
}

// MatchListingURL reports whether link points at a listing detail page.
func MatchListingURL(link string, pattern *regexp.Regexp) bool {
	if link == "" || pattern == nil {
		return false
	}
	return pattern.MatchString(link)
}
