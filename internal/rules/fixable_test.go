package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeductSaturates(t *testing.T) {
	tests := []struct {
		name  string
		start int
		w     Weight
		want  int
	}{
		{"within budget", 30, Medium, 25},
		{"exactly to zero", 10, High, 0},
		{"below zero", 5, High, 0},
		{"already zero", 0, Critical, 0},
		{"non-positive weight", 7, Weight(-3), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreState{DataValidation: tt.start, Security: tt.start}
			s.Deduct(CounterSecurity, tt.w)
			assert.Equal(t, tt.want, s.Security)
			assert.Equal(t, tt.start, s.DataValidation)
		})
	}
}

func TestNewScoreState(t *testing.T) {
	s := NewScoreState()
	assert.Equal(t, 70, s.DataValidation)
	assert.Equal(t, 30, s.Security)
	assert.Equal(t, 100, s.Total())

	s.Deduct(CounterDataValidation, Critical)
	assert.Equal(t, 50, s.DataValidation)
	assert.Equal(t, 80, s.Total())
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryWarning, CategoryOf(Minimum))
	assert.Equal(t, CategoryError, CategoryOf(Medium))
	assert.Equal(t, CategoryError, CategoryOf(High))
	assert.Equal(t, CategoryError, CategoryOf(Critical))
}

func TestWeightString(t *testing.T) {
	assert.Equal(t, "Minimum", Minimum.String())
	assert.Equal(t, "Medium", Medium.String())
	assert.Equal(t, "High", High.String())
	assert.Equal(t, "Critical", Critical.String())
	assert.Equal(t, "Weight(1)", Weight(1).String())
}

func TestRuleFixableMessage(t *testing.T) {
	r := Rule{ID: "X1", Weight: Medium, Counter: CounterSecurity, Message: "Server %s is served over plain HTTP"}
	f := r.Fixable(Match{Line: 4, Path: "servers[0]", Subject: "http://a"})
	assert.Equal(t, "Server http://a is served over plain HTTP", f.Message)
	assert.Equal(t, "X1", f.RuleID)
	assert.Equal(t, 4, f.Line)
	assert.Equal(t, CategoryError, f.Category)

	r.Message = "No security schemes are declared"
	assert.Equal(t, r.Message, r.Fixable(Match{}).Message)
}

func TestDefaultsTable(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Defaults() {
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
		assert.NotNil(t, r.Check, r.ID)
		assert.NotEmpty(t, r.Title, r.ID)
		assert.Contains(t, []Weight{Minimum, Medium, High, Critical}, r.Weight, r.ID)
	}
	assert.Len(t, seen, 12)
}
