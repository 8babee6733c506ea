package store

import (
	"fmt"
	"testing"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger { return &TestLogger{t: t} }

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

// testDataset has ten employees: seven in IT, three in Sales, E10 without a
// performance row and ratings stored as text.
func testDataset() Dataset {
	data := Dataset{}
	ratings := []interface{}{"5", "4", "3", "2", 4, "N/A", "1", 3.5, "5", nil}
	salaries := []interface{}{120000, "95000", 80000, 70000, "110,000", 60000, 90000, 85000, 130000, 50000}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("E%02d", i+1)
		dept := "IT"
		if i >= 7 {
			dept = "Sales"
		}
		data[querycontext.CollectionPersonal] = append(data[querycontext.CollectionPersonal], models.Row{
			"employee_id": id, "full_name": "Employee " + id, "age": 25 + i, "location": "Chennai",
		})
		data[querycontext.CollectionEmployment] = append(data[querycontext.CollectionEmployment], models.Row{
			"employee_id": id, "department": dept, "role": "Developer", "total_experience_years": fmt.Sprint(i),
		})
		if i < 9 {
			data[querycontext.CollectionPerformance] = append(data[querycontext.CollectionPerformance], models.Row{
				"employee_id": id, "performance_rating": ratings[i],
			})
		}
		data[querycontext.CollectionCompensation] = append(data[querycontext.CollectionCompensation], models.Row{
			"employee_id": id, "current_salary": salaries[i],
		})
		data[querycontext.CollectionLearning] = append(data[querycontext.CollectionLearning], models.Row{
			"employee_id": id, "certifications": certs(i),
		})
	}
	return data
}

func certs(i int) interface{} {
	switch i % 3 {
	case 0:
		return "AWS Solutions Architect, PMP"
	case 1:
		return []interface{}{"Azure Fundamentals"}
	}
	return ""
}
