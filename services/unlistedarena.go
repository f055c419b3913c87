package services

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/models"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// UnlistedArenaExtractor parses UnlistedArena share pages. The company name
// is the first top-level heading; the data lives in a two-column
// "unlisted-price-table" of label/value rows.
type UnlistedArenaExtractor struct{}

// NewUnlistedArenaExtractor creates the UnlistedArena source extractor.
func NewUnlistedArenaExtractor() *UnlistedArenaExtractor {
	return &UnlistedArenaExtractor{}
}

func (e *UnlistedArenaExtractor) SourceName() string { return "UnlistedArena" }

// Extract parses an UnlistedArena page into a listing draft.
func (e *UnlistedArenaExtractor) Extract(document []byte, originURL string) (*models.ListingDraft, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return nil, shared.NewIngestError(shared.ErrorCategoryExtraction, "HTML_PARSE",
			"failed to parse document as HTML", e.SourceName(), err)
	}

	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, nil
	}
	companyName := NormalizeText(heading.Text())
	if companyName == "" {
		return nil, shared.NewIngestError(shared.ErrorCategoryExtraction, "MISSING_COMPANY_NAME",
			"company name heading is empty", e.SourceName(), nil)
	}

	draft := &models.ListingDraft{
		CompanyName: companyName,
		SourceName:  e.SourceName(),
		SourceURL:   originURL,
	}

	doc.Find("table.unlisted-price-table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() != 2 {
			return
		}
		label := strings.TrimSuffix(NormalizeText(cells.Eq(0).Text()), ":")
		value := NormalizeText(cells.Eq(1).Text())
		if value == "" {
			return
		}

		switch {
		case strings.Contains(label, "Unlisted Share Price"):
			price, err := ParsePriceText(value)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"source":    e.SourceName(),
					"url":       originURL,
					"raw_value": value,
				}).Debug("Dropping unparseable price field")
				return
			}
			currency := "INR"
			draft.LastKnownPrice = &price
			draft.PriceCurrency = &currency
		case strings.Contains(label, "Sector"):
			draft.Sector = &value
		case strings.Contains(label, "Face Value"):
			if draft.Metadata == nil {
				draft.Metadata = make(map[string]string)
			}
			draft.Metadata["face_value"] = value
		}
	})

	return draft, nil
}
