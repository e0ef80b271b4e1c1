// Package parser decodes API payloads and validates export records.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// ValidateRecord rejects rows that cannot be exported: a missing or
// non-positive ID, or a negative price. An empty title is allowed.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if r.ID <= 0 {
		return fmt.Errorf("record has invalid id %d", r.ID)
	}
	if r.RegularPrice != nil && *r.RegularPrice < 0 {
		return fmt.Errorf("record has negative regular price for %d", r.ID)
	}
	if r.PromoPrice != nil && *r.PromoPrice < 0 {
		return fmt.Errorf("record has negative promo price for %d", r.ID)
	}
	return nil
}

// NormalizeText collapses runs of whitespace and trims the ends.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
