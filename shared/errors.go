package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory classifies ingestion failures so the coordinator can decide
// how loudly to report them
type ErrorCategory string

const (
	ErrorCategoryFetch       ErrorCategory = "fetch"
	ErrorCategoryExtraction  ErrorCategory = "extraction"
	ErrorCategoryDuplicate   ErrorCategory = "duplicate"
	ErrorCategoryPersistence ErrorCategory = "persistence"
)

// IngestError is a categorized error with enough context to log a skipped
// task without losing the underlying cause.
type IngestError struct {
	Category  ErrorCategory `json:"category"`
	Code      string        `json:"code"`
	Message   string        `json:"message"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Cause     error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *IngestError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// NewIngestError creates a new categorized ingestion error
func NewIngestError(category ErrorCategory, code, message, source string, cause error) *IngestError {
	return &IngestError{
		Category:  category,
		Code:      code,
		Message:   message,
		Source:    source,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// CategoryOf returns the category carried by err, or an empty category when
// err was not produced by this package.
func CategoryOf(err error) ErrorCategory {
	var ingestErr *IngestError
	if errors.As(err, &ingestErr) {
		return ingestErr.Category
	}
	return ""
}

// LogError logs the error with structured fields. Persistence failures are
// the loud category: they may indicate a systemic store problem rather than
// a per-document issue.
func (e *IngestError) LogError() {
	fields := logrus.Fields{
		"error_category": e.Category,
		"error_code":     e.Code,
		"error_message":  e.Message,
		"source":         e.Source,
		"underlying":     e.Cause,
	}

	if e.Category == ErrorCategoryPersistence {
		logrus.WithFields(fields).Error("Ingestion error occurred")
		return
	}
	logrus.WithFields(fields).Warn("Ingestion error occurred")
}
