package querycontext

import "sort"

// Collection is a logical data category joined on employee_id.
type Collection string

const (
	CollectionPersonal     Collection = "personal"
	CollectionEmployment   Collection = "employment"
	CollectionPerformance  Collection = "performance"
	CollectionCompensation Collection = "compensation"
	CollectionAttendance   Collection = "attendance"
	CollectionLearning     Collection = "learning"
	CollectionEngagement   Collection = "engagement"
	CollectionAttrition    Collection = "attrition"

	// BaseCollection holds one document per employee and anchors every plan.
	BaseCollection = CollectionPersonal
	// KeyField joins every collection to the base.
	KeyField = "employee_id"
	// NameField is the display name on the base collection.
	NameField = "full_name"
)

// Collections lists every category in stable order.
func Collections() []Collection {
	return []Collection{
		CollectionPersonal, CollectionEmployment, CollectionPerformance, CollectionCompensation,
		CollectionAttendance, CollectionLearning, CollectionEngagement, CollectionAttrition,
	}
}

type fieldInfo struct {
	collection Collection
	numeric    bool
}

var fieldTable = map[string]fieldInfo{
	"full_name":      {CollectionPersonal, false},
	"age":            {CollectionPersonal, true},
	"gender":         {CollectionPersonal, false},
	"location":       {CollectionPersonal, false},
	"email":          {CollectionPersonal, false},
	"contact_number": {CollectionPersonal, false},

	"department":               {CollectionEmployment, false},
	"role":                     {CollectionEmployment, false},
	"work_mode":                {CollectionEmployment, false},
	"employment_type":          {CollectionEmployment, false},
	"joining_date":             {CollectionEmployment, false},
	"grade_band":               {CollectionEmployment, false},
	"total_experience_years":   {CollectionEmployment, true},
	"years_in_current_company": {CollectionEmployment, true},
	"known_skills_count":       {CollectionEmployment, true},

	"performance_rating": {CollectionPerformance, true},
	"awards":             {CollectionPerformance, false},
	"kpis_met_pct":       {CollectionPerformance, true},
	"improvement_areas":  {CollectionPerformance, false},

	"current_salary": {CollectionCompensation, true},
	"bonus":          {CollectionCompensation, true},
	"total_ctc":      {CollectionCompensation, true},
	"currency":       {CollectionCompensation, false},

	"leave_balance":          {CollectionAttendance, true},
	"leave_days_taken":       {CollectionAttendance, true},
	"monthly_attendance_pct": {CollectionAttendance, true},
	"leave_pattern":          {CollectionAttendance, false},

	"certifications":     {CollectionLearning, false},
	"courses_completed":  {CollectionLearning, true},
	"learning_hours_ytd": {CollectionLearning, true},
	"internal_trainings": {CollectionLearning, true},

	"current_project":  {CollectionEngagement, false},
	"engagement_score": {CollectionEngagement, true},
	"manager_feedback": {CollectionEngagement, false},
	"days_on_bench":    {CollectionEngagement, true},

	"attrition_risk_score": {CollectionAttrition, true},
	"exit_intent_flag":     {CollectionAttrition, false},
	"retention_plan":       {CollectionAttrition, false},
}

// Lookup returns the owning collection of a field.
func Lookup(field string) (Collection, bool) {
	info, ok := fieldTable[field]
	return info.collection, ok
}

// IsNumeric reports whether a field holds numbers that may be stored as text.
func IsNumeric(field string) bool {
	return fieldTable[field].numeric
}

// FieldsOf lists the fields owned by a collection, sorted.
func FieldsOf(c Collection) []string {
	var out []string
	for name, info := range fieldTable {
		if info.collection == c {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Qualified returns the path a field has after its collection is joined and flattened.
func Qualified(field string) string {
	c, ok := Lookup(field)
	if !ok || c == BaseCollection {
		return field
	}
	return string(c) + "." + field
}
