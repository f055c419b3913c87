package services

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/models"
	"github.com/unlistedhub/unlisted-backend/shared"
)

// UnlistedZoneExtractor parses UnlistedZone share detail pages. The company
// name is the first top-level heading; price, sector and status are encoded
// as "<strong>Label</strong>" tags followed by a text sibling holding the
// value.
type UnlistedZoneExtractor struct{}

// NewUnlistedZoneExtractor creates the UnlistedZone source extractor.
func NewUnlistedZoneExtractor() *UnlistedZoneExtractor {
	return &UnlistedZoneExtractor{}
}

func (e *UnlistedZoneExtractor) SourceName() string { return "UnlistedZone" }

// Extract parses an UnlistedZone page into a listing draft.
func (e *UnlistedZoneExtractor) Extract(document []byte, originURL string) (*models.ListingDraft, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return nil, shared.NewIngestError(shared.ErrorCategoryExtraction, "HTML_PARSE",
			"failed to parse document as HTML", e.SourceName(), err)
	}

	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		// No heading element at all: this is not a listing page.
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

	doc.Find("strong").Each(func(_ int, label *goquery.Selection) {
		labelText := NormalizeText(label.Text())
		if labelText == "" {
			return
		}
		value := NormalizeText(siblingText(label))

		switch {
		case strings.Contains(labelText, "Buy Price"):
			e.applyPrice(draft, value, originURL)
		case strings.Contains(labelText, "Sector"):
			if value != "" {
				draft.Sector = &value
			}
		case strings.Contains(labelText, "Status"):
			if value != "" {
				draft.Status = &value
			}
		}
	})

	return draft, nil
}

// applyPrice sets the draft's price from raw label text. Parsing failure
// drops the price field only; the draft still proceeds.
func (e *UnlistedZoneExtractor) applyPrice(draft *models.ListingDraft, value, originURL string) {
	if value == "" {
		return
	}
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
}
