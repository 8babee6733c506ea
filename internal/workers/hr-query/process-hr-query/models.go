// internal/workers/hr-query/process-hr-query/models.go
package processhrquery

import "hr-query-engine/internal/models"

type Input struct {
	Question string                 `json:"question"`
	Filters  map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Answer   string           `json:"answer"`
	Status   models.Status    `json:"status"`
	Envelope *models.Envelope `json:"hrQueryResult"`
}
