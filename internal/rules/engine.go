package rules

import (
	"errors"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/document"
	"github.com/propenster/rustysec/internal/scanerr"
	"github.com/sirupsen/logrus"
)

// Engine runs a rule table against documents
type Engine struct {
	logger *logrus.Logger
	rules  []Rule
	skip   map[string]bool
}

// Result is the outcome of one evaluation
type Result struct {
	Fixables []Fixable `json:"fixables"`
	Scores   ScoreState `json:"scores"`
}

// New creates an engine over rules. A nil table uses Defaults.
func New(logger *logrus.Logger, rules []Rule) *Engine {
	if rules == nil {
		rules = Defaults()
	}
	return &Engine{
		logger: logger,
		rules:  rules,
		skip:   make(map[string]bool),
	}
}

// Skip disables the rules with the given IDs
func (e *Engine) Skip(ids ...string) {
	known := make(map[string]bool, len(e.rules))
	for _, r := range e.rules {
		known[r.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			e.logger.Warnf("Ignoring unknown rule %q", id)
			continue
		}
		e.skip[id] = true
	}
}

// Rules returns the rules the engine will evaluate, in order
func (e *Engine) Rules() []Rule {
	active := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		if !e.skip[r.ID] {
			active = append(active, r)
		}
	}
	return active
}

// Scan evaluates every active rule against doc, which must be of dialect d.
// Findings are ordered by rule, then by document traversal. Rule matches
// never fail the scan; a malformed keyword value or a dialect mismatch does,
// and no partial result is returned.
func (e *Engine) Scan(doc document.Document, d dialect.SpecDialect) (*Result, error) {
	if doc.Dialect() != d {
		return nil, &scanerr.IncompatibleSpecificationError{
			Expected: d.String(),
			Actual:   doc.Dialect().String(),
		}
	}

	result := &Result{
		Fixables: make([]Fixable, 0),
		Scores:   NewScoreState(),
	}
	for _, r := range e.Rules() {
		if r.Dialect != doc.Dialect() {
			return nil, &scanerr.IncompatibleSpecificationError{
				Rule:     r.ID,
				Expected: r.Dialect.String(),
				Actual:   doc.Dialect().String(),
			}
		}

		matches, err := r.Check(doc)
		if err != nil {
			var dvErr *scanerr.DataValidationError
			if errors.As(err, &dvErr) && dvErr.Rule == "" {
				dvErr.Rule = r.ID
			}
			return nil, err
		}
		e.logger.Debugf("Rule %s (%s): %d finding(s)", r.ID, r.Title, len(matches))

		for _, m := range matches {
			f := r.Fixable(m)
			result.Fixables = append(result.Fixables, f)
			result.Scores.Deduct(r.Counter, r.Weight)
			e.logger.WithFields(logrus.Fields{
				"rule":   f.RuleID,
				"weight": int(f.Weight),
				"line":   f.Line,
			}).Debug(f.Message)
		}
	}
	return result, nil
}
