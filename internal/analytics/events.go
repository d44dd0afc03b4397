package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventQueryError EventType = "query_error"
)

// QueryEvent describes one evaluated query.
type QueryEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	Terms        []string  `json:"terms"`
	SkippedTerms []string  `json:"skipped_terms,omitempty"`
	Returned     int       `json:"returned"`
	TopDocID     *uint32   `json:"top_doc_id,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// Classify sets Type from the outcome of the query.
func (e *QueryEvent) Classify(err error) {
	switch {
	case err != nil:
		e.Type = EventQueryError
	case e.Returned == 0:
		e.Type = EventZeroResult
	default:
		e.Type = EventQuery
	}
}
