package models

import "time"

// Row is one flat result document.
type Row map[string]interface{}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// QueryResult is what an execution path produced for one attempt.
type QueryResult struct {
	Rows            []Row                  `json:"rows"`
	Count           int                    `json:"count"`
	Aggregates      []Row                  `json:"aggregates,omitempty"`
	Source          DataSource             `json:"source"`
	ExecutionTimeMs float64                `json:"execution_time_ms"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// EmptyResult builds a failed result carrying the error in its metadata.
func EmptyResult(source DataSource, err error, elapsed time.Duration) *QueryResult {
	r := &QueryResult{
		Rows:            []Row{},
		Source:          source,
		ExecutionTimeMs: Millis(elapsed),
		Metadata:        map[string]interface{}{},
	}
	if err != nil {
		r.Metadata["error"] = err.Error()
	}
	return r
}

// Error returns the execution error recorded in metadata, if any.
func (r *QueryResult) Error() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata["error"].(string); ok {
		return s
	}
	return ""
}

// Failed reports whether the result carries an execution error.
func (r *QueryResult) Failed() bool { return r.Error() != "" }

// Clone copies rows and metadata so callers cannot mutate a shared instance.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Rows = cloneRows(r.Rows)
	out.Aggregates = cloneRows(r.Aggregates)
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func cloneRows(in []Row) []Row {
	if in == nil {
		return nil
	}
	out := make([]Row, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
