// Package scoring holds the pure per-part score calculators for the staff
// appraisal form. Calculators never fail: out-of-range ratings are clamped to
// the nearest bound so replayed or stale client payloads stay scoreable.
package scoring

import (
	"fmt"
	"sort"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
)

// Field declares one rated input of a part together with its maximum.
type Field struct {
	Name string
	Max  float64
}

// partFields fixes the field set of every part. Part D's attendance carries
// the distinguished "excellent" tier maximum of 5; every other Part D rating
// tops out at 4.
var partFields = map[models.PartKey][]Field{
	models.PartA: {
		{Name: "courses_taught", Max: 10},
		{Name: "teaching_innovation", Max: 10},
		{Name: "student_feedback", Max: 20},
		{Name: "result_quality", Max: 10},
	},
	models.PartB: {
		{Name: "papers_published", Max: 10},
		{Name: "conferences_attended", Max: 10},
		{Name: "workshops_conducted", Max: 5},
		{Name: "certifications", Max: 5},
	},
	models.PartC: {
		{Name: "committee_work", Max: 5},
		{Name: "event_organization", Max: 5},
		{Name: "mentoring", Max: 5},
		{Name: "admin_duties", Max: 5},
	},
	models.PartD: {
		{Name: "attendance", Max: 5},
		{Name: "responsibility", Max: 4},
		{Name: "honesty", Max: 4},
		{Name: "teamwork", Max: 4},
		{Name: "inclusiveness", Max: 4},
		{Name: "conduct", Max: 4},
	},
	models.PartE: {
		{Name: "goal_achievement", Max: 10},
		{Name: "self_improvement", Max: 5},
		{Name: "student_mentoring", Max: 5},
	},
}

// Fields returns the declared field set of a part in form order.
func Fields(key models.PartKey) []Field {
	return append([]Field(nil), partFields[key]...)
}

// PartMax returns the constant maximum score of a part.
func PartMax(key models.PartKey) float64 {
	var max float64
	for _, field := range partFields[key] {
		max += field.Max
	}
	return max
}

// OverallMax is the constant sum of all part maxima.
func OverallMax() float64 {
	var max float64
	for _, key := range models.PartKeys {
		max += PartMax(key)
	}
	return max
}

// Calculate maps a part's raw field values to a bounded score. It is total and
// deterministic: each declared field contributes its value clamped to
// [0, fieldMax], absent fields contribute 0, undeclared fields are ignored.
func Calculate(key models.PartKey, values models.PartValues) models.PartScore {
	score := models.PartScore{Max: PartMax(key)}
	for _, field := range partFields[key] {
		score.Score += clamp(values[field.Name], 0, field.Max)
	}
	return score
}

// ValidateShape checks that the payload carries exactly the declared field set.
// Range violations are not shape errors; they are clamped by Calculate.
func ValidateShape(key models.PartKey, values models.PartValues) error {
	declared := make(map[string]struct{}, len(partFields[key]))
	for _, field := range partFields[key] {
		declared[field.Name] = struct{}{}
		if _, ok := values[field.Name]; !ok {
			return fmt.Errorf("part %s: missing field %q", key, field.Name)
		}
	}
	unknown := make([]string, 0)
	for name := range values {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("part %s: unknown field %q", key, unknown[0])
	}
	return nil
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
