package reporter

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/propenster/rustysec/internal/rules"
	"github.com/propenster/rustysec/internal/scanner"
	"github.com/sirupsen/logrus"
)

// Reporter handles scan result reporting
type Reporter struct {
	logger *logrus.Logger
	source string
	report *scanner.Report
}

// Summary aggregates the findings of one scan
type Summary struct {
	Source           string           `json:"source"`
	Dialect          string           `json:"dialect"`
	Flavor           string           `json:"flavor,omitempty"`
	TotalIssues      int              `json:"total_issues"`
	IssuesBySeverity map[string]int   `json:"issues_by_severity"`
	IssuesByCategory map[string]int   `json:"issues_by_category"`
	IssuesByRule     map[string]int   `json:"issues_by_rule"`
	Scores           rules.ScoreState `json:"scores"`
	TotalScore       int              `json:"total_score"`
	Timestamp        time.Time        `json:"timestamp"`
}

// File is the layout of a written report
type File struct {
	Summary  Summary         `json:"summary"`
	Fixables []rules.Fixable `json:"fixables"`
}

// New creates a new reporter instance
func New(logger *logrus.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Record stores the report of a scan of source
func (r *Reporter) Record(source string, report *scanner.Report) {
	r.source = source
	r.report = report
}

// LogFindings logs every recorded finding, errors at warn level
func (r *Reporter) LogFindings() {
	if r.report == nil {
		return
	}
	for _, f := range r.report.Fixables {
		entry := r.logger.WithFields(logrus.Fields{
			"rule":   f.RuleID,
			"weight": int(f.Weight),
			"line":   f.Line,
		})
		if f.Category == rules.CategoryError {
			entry.Warnf("[%s] %s", f.Severity, f.Message)
		} else {
			entry.Infof("[%s] %s", f.Severity, f.Message)
		}
	}
}

// Summarize computes the summary of the recorded report
func (r *Reporter) Summarize() Summary {
	s := Summary{
		Source:           r.source,
		IssuesBySeverity: make(map[string]int),
		IssuesByCategory: make(map[string]int),
		IssuesByRule:     make(map[string]int),
		Timestamp:        time.Now(),
	}
	if r.report == nil {
		return s
	}

	s.Dialect = r.report.Dialect
	s.Flavor = string(r.report.Flavor)
	s.TotalIssues = len(r.report.Fixables)
	s.Scores = r.report.Scores
	s.TotalScore = r.report.Total
	for _, f := range r.report.Fixables {
		s.IssuesBySeverity[f.Severity]++
		s.IssuesByCategory[string(f.Category)]++
		s.IssuesByRule[f.RuleID]++
	}
	return s
}

// GenerateReport writes the recorded report as JSON to outputPath
func (r *Reporter) GenerateReport(outputPath string) error {
	// Clean up the output path
	outputPath = filepath.Clean(outputPath)
	if filepath.Ext(outputPath) == "" {
		outputPath += ".json"
	}

	report := File{
		Summary:  r.Summarize(),
		Fixables: make([]rules.Fixable, 0),
	}
	if r.report != nil {
		report.Fixables = r.report.Fixables
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}

	r.logger.Info("Report generated successfully: ", outputPath)
	r.logSummary(report.Summary)
	return nil
}

func (r *Reporter) logSummary(s Summary) {
	r.logger.Info("=== Scan Summary ===")
	r.logger.Infof("Total Issues: %d", s.TotalIssues)
	r.logger.Info("Issues by Severity:")
	for _, severity := range slices.Sorted(maps.Keys(s.IssuesBySeverity)) {
		r.logger.Infof("  %s: %d", severity, s.IssuesBySeverity[severity])
	}
	r.logger.Info("Issues by Category:")
	for _, category := range slices.Sorted(maps.Keys(s.IssuesByCategory)) {
		r.logger.Infof("  %s: %d", category, s.IssuesByCategory[category])
	}
	r.logger.Infof("Data validation score: %d/%d", s.Scores.DataValidation, rules.InitialDataValidationScore)
	r.logger.Infof("Security score: %d/%d", s.Scores.Security, rules.InitialSecurityScore)
	r.logger.Infof("Total score: %d/100", s.TotalScore)
}

// GetIssueCount returns the number of recorded findings
func (r *Reporter) GetIssueCount() int {
	if r.report == nil {
		return 0
	}
	return len(r.report.Fixables)
}
