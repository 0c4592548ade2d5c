package models

import (
	"time"

	"github.com/miradorstack/mirador-failchain/internal/failure"
)

// Source identifies which input kind a report was normalized from.
type Source string

const (
	SourceLive   Source = "live"
	SourceLegacy Source = "legacy"
	SourceXML    Source = "xml"
)

// Report wraps a normalized failure chain with identity and provenance.
type Report struct {
	ID        string        `json:"id"`
	Source    Source        `json:"source"`
	Chain     failure.Chain `json:"chain"`
	Mismatch  bool          `json:"mismatch"`
	CreatedAt time.Time     `json:"created_at"`
}
