// Package catalog searches and maintains the Elasticsearch index of
// previously extracted exchange programs.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

// Document is the indexed form of a ProgramRecord.
type Document struct {
	ProgramName         string    `json:"program_name"`
	Institution         string    `json:"institution"`
	Location            string    `json:"location"`
	Duration            string    `json:"duration"`
	Cost                string    `json:"cost,omitempty"`
	ApplicationDeadline string    `json:"application_deadline,omitempty"`
	Eligibility         string    `json:"eligibility"`
	Highlights          []string  `json:"highlights"`
	Description         string    `json:"description"`
	ProgramURL          string    `json:"program_url"`
	ExtractedAt         time.Time `json:"extracted_at"`
	IndexedAt           time.Time `json:"indexed_at"`
}

func newDocument(r *domain.ProgramRecord, now time.Time) Document {
	return Document{
		ProgramName:         r.ProgramName,
		Institution:         r.Institution,
		Location:            r.Location,
		Duration:            r.Duration,
		Cost:                r.Cost,
		ApplicationDeadline: r.ApplicationDeadline,
		Eligibility:         r.Eligibility,
		Highlights:          r.Highlights,
		Description:         r.Description,
		ProgramURL:          r.ProgramURL,
		ExtractedAt:         r.ExtractedAt,
		IndexedAt:           now,
	}
}

// DocumentID is the hex sha256 of the record's identity key, so re-indexing
// the same program overwrites it.
func DocumentID(r *domain.ProgramRecord) string {
	sum := sha256.Sum256([]byte(r.Identity().String()))
	return hex.EncodeToString(sum[:])
}
