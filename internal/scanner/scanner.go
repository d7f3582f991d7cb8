// Package scanner runs the full analysis pipeline over one specification
// text: dialect detection, structural parsing and rule evaluation.
package scanner

import (
	"fmt"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/document"
	"github.com/propenster/rustysec/internal/rules"
	"github.com/propenster/rustysec/internal/scanerr"
	"github.com/sirupsen/logrus"
)

// State is a step of the scan pipeline
type State int

const (
	Idle State = iota
	Detecting
	Parsing
	Evaluating
	Reported
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Detecting:
		return "Detecting"
	case Parsing:
		return "Parsing"
	case Evaluating:
		return "Evaluating"
	case Reported:
		return "Reported"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options tune a Scanner
type Options struct {
	// Rules replaces the built-in rule table when set
	Rules []rules.Rule
	// SkipRules lists rule IDs that are not evaluated
	SkipRules []string
}

// Report is the outcome of a successful scan
type Report struct {
	Dialect  string           `json:"dialect"`
	Flavor   dialect.Flavor   `json:"flavor,omitempty"`
	Fixables []rules.Fixable  `json:"fixables"`
	Scores   rules.ScoreState `json:"scores"`
	Total    int              `json:"total"`
}

// Scanner drives one scan at a time through the pipeline. It is not safe for
// concurrent use; independent scans should use their own Scanner.
type Scanner struct {
	logger *logrus.Logger
	engine *rules.Engine
	state  State
	err    error
}

// New creates a new Scanner
func New(logger *logrus.Logger, opts Options) *Scanner {
	engine := rules.New(logger, opts.Rules)
	engine.Skip(opts.SkipRules...)
	return &Scanner{
		logger: logger,
		engine: engine,
		state:  Idle,
	}
}

// State returns the state the last scan ended in
func (s *Scanner) State() State {
	return s.state
}

// Err returns the error that moved the last scan to Failed
func (s *Scanner) Err() error {
	return s.err
}

// Scan analyzes text. On failure no partial report is returned and the
// scanner ends in the Failed state.
func (s *Scanner) Scan(text string) (*Report, error) {
	s.state, s.err = Idle, nil
	if text == "" {
		return s.fail(scanerr.ErrInvalidInputText)
	}

	s.enter(Detecting)
	d := dialect.Detect(text)
	if d == dialect.Unknown {
		return s.fail(scanerr.ErrInvalidSpecificationType)
	}
	s.logger.Infof("Detected specification dialect: %s", d)

	s.enter(Parsing)
	doc, err := document.Parse(text, d)
	if err != nil {
		return s.fail(err)
	}

	s.enter(Evaluating)
	result, err := s.engine.Scan(doc, d)
	if err != nil {
		return s.fail(err)
	}

	s.enter(Reported)
	return &Report{
		Dialect:  d.String(),
		Flavor:   doc.Flavor(),
		Fixables: result.Fixables,
		Scores:   result.Scores,
		Total:    result.Scores.Total(),
	}, nil
}

func (s *Scanner) enter(state State) {
	s.logger.WithFields(logrus.Fields{
		"from": s.state.String(),
		"to":   state.String(),
	}).Debug("Scan state transition")
	s.state = state
}

func (s *Scanner) fail(err error) (*Report, error) {
	s.logger.WithField("state", s.state.String()).Debugf("Scan failed: %v", err)
	s.enter(Failed)
	s.err = err
	return nil, err
}
