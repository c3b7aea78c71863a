package filings

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// MaxBatchSize bounds CreateFilings so a batch fits one INSERT statement.
const MaxBatchSize = 1000

var (
	// ErrNotFound is returned when no filing has the requested id.
	ErrNotFound = errors.New("filing not found")
	// ErrInvalid marks requests rejected before they are queued.
	ErrInvalid = errors.New("invalid request")
)

// Filing is one regulatory filing. (Source, AccessionNo) is unique.
type Filing struct {
	ID          uint64          `json:"id"`
	Source      string          `json:"source"`
	AccessionNo string          `json:"accession_no"`
	Symbol      string          `json:"symbol,omitempty"`
	FormType    string          `json:"form_type,omitempty"`
	PeriodEnd   time.Time       `json:"period_end"`
	FiledAt     time.Time       `json:"filed_at"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields a caller must supply.
func (f Filing) Validate() error {
	if strings.TrimSpace(f.Source) == "" {
		return errors.Mark(errors.New("source is required"), ErrInvalid)
	}
	if strings.TrimSpace(f.AccessionNo) == "" {
		return errors.Mark(errors.New("accession_no is required"), ErrInvalid)
	}
	if len(f.Payload) > 0 && !json.Valid(f.Payload) {
		return errors.Mark(errors.Newf("payload of %s is not valid JSON", f.AccessionNo), ErrInvalid)
	}
	return nil
}

// PageRequest selects a page of filings ordered by id.
type PageRequest struct {
	Size  int
	After uint64
}

// Page is one page of filings. NextAfter is zero when there is nothing left.
type Page struct {
	Items     []Filing `json:"items"`
	NextAfter uint64   `json:"next_after,omitempty"`
}

func msOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOf(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
