package rules

import "fmt"

// Weight is the score cost of a finding
type Weight int

const (
	Minimum  Weight = 2
	Medium   Weight = 5
	High     Weight = 10
	Critical Weight = 20
)

// String returns the severity name of the weight
func (w Weight) String() string {
	switch {
	case w >= Critical:
		return "Critical"
	case w >= High:
		return "High"
	case w >= Medium:
		return "Medium"
	case w >= Minimum:
		return "Minimum"
	default:
		return fmt.Sprintf("Weight(%d)", int(w))
	}
}

// Category splits findings into errors and warnings
type Category string

const (
	CategoryError   Category = "Error"
	CategoryWarning Category = "Warning"
)

// CategoryOf derives the category from a weight: Medium and above is an error
func CategoryOf(w Weight) Category {
	if w >= Medium {
		return CategoryError
	}
	return CategoryWarning
}

// Counter names the score a rule draws from
type Counter string

const (
	CounterDataValidation Counter = "dataValidation"
	CounterSecurity       Counter = "security"
)

// Fixable is one reported defect
type Fixable struct {
	RuleID   string   `json:"rule"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Weight   Weight   `json:"weight"`
	Severity string   `json:"severity"`
	Category Category `json:"category"`
	Counter  Counter  `json:"counter"`
	Path     string   `json:"path,omitempty"`
}

// Initial category budgets; together they add up to 100
const (
	InitialDataValidationScore = 70
	InitialSecurityScore       = 30
)

// ScoreState holds the two category scores of a scan
type ScoreState struct {
	DataValidation int `json:"dataValidationScore"`
	Security       int `json:"securityScore"`
}

// NewScoreState returns both scores at their initial budget
func NewScoreState() ScoreState {
	return ScoreState{
		DataValidation: InitialDataValidationScore,
		Security:       InitialSecurityScore,
	}
}

// Deduct subtracts w from the counter c. Scores never drop below zero.
func (s *ScoreState) Deduct(c Counter, w Weight) {
	switch c {
	case CounterDataValidation:
		s.DataValidation = saturatingSub(s.DataValidation, int(w))
	case CounterSecurity:
		s.Security = saturatingSub(s.Security, int(w))
	}
}

// Total is the combined score out of 100
func (s ScoreState) Total() int {
	return s.DataValidation + s.Security
}

func saturatingSub(score, w int) int {
	if w <= 0 {
		return score
	}
	if w >= score {
		return 0
	}
	return score - w
}
