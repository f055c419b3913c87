package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/services"
)

// ListingHandler serves the read side of the pipeline: filterable queries
// over the accumulated listings.
type ListingHandler struct {
	Store services.ListingStore
}

func NewListingHandler(store services.ListingStore) *ListingHandler {
	return &ListingHandler{Store: store}
}

// GetListings handles GET /api/unlisted with optional sector, country and
// limit query parameters.
func (h *ListingHandler) GetListings(c *fiber.Ctx) error {
	filter := services.ListingFilter{
		Sector:  c.Query("sector"),
		Country: c.Query("country"),
		Limit:   c.QueryInt("limit", 50),
	}

	listings, err := h.Store.Query(c.Context(), filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to query listings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch listings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(listings),
		"data":    listings,
	})
}

// GetLatestListings handles GET /api/latest, returning the ten most
// recently retrieved listings.
func (h *ListingHandler) GetLatestListings(c *fiber.Ctx) error {
	listings, err := h.Store.Query(c.Context(), services.ListingFilter{Limit: 10})
	if err != nil {
		logrus.WithError(err).Error("Failed to query latest listings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch latest listings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(listings),
		"data":    listings,
	})
}

// SearchListings handles GET /api/search?q=, matching company names
// case-insensitively. An empty query returns an empty result set rather
// than an error.
func (h *ListingHandler) SearchListings(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.JSON(fiber.Map{
			"success": true,
			"count":   0,
			"data":    []interface{}{},
		})
	}

	listings, err := h.Store.Search(c.Context(), query, 25)
	if err != nil {
		logrus.WithError(err).Error("Failed to search listings")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to search listings",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(listings),
		"data":    listings,
	})
}
