package models

import "time"

// Envelope is the answer returned by process_query to every caller.
type Envelope struct {
	QueryID         string     `json:"query_id"`
	Query           string     `json:"query"`
	Intent          QueryType  `json:"intent"`
	Entities        Entities   `json:"entities"`
	DataSource      DataSource `json:"data_source"`
	Results         []Row      `json:"results"`
	Aggregates      []Row      `json:"aggregates,omitempty"`
	Count           int        `json:"count"`
	Response        string     `json:"response"`
	ExecutionTimeMs float64    `json:"execution_time_ms"`
	Confidence      float64    `json:"confidence"`
	Status          Status     `json:"status"`
	Suggestions     []string   `json:"suggestions"`
	Error           string     `json:"error,omitempty"`
	CacheHit        bool       `json:"cache_hit"`
	Timestamp       time.Time  `json:"timestamp"`
}

// Clone returns a copy safe to hand to another caller.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	out := *e
	out.Entities = e.Entities.Clone()
	out.Results = cloneRows(e.Results)
	out.Aggregates = cloneRows(e.Aggregates)
	out.Suggestions = cloneStrings(e.Suggestions)
	return &out
}
