package reporter

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/rules"
	"github.com/propenster/rustysec/internal/scanner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleReport() *scanner.Report {
	r1 := rules.Defaults()[0]
	r5 := rules.Defaults()[4]
	scores := rules.NewScoreState()
	scores.Deduct(r1.Counter, r1.Weight)
	scores.Deduct(r5.Counter, r5.Weight)
	return &scanner.Report{
		Dialect: dialect.OpenApiRest.String(),
		Flavor:  dialect.FlavorOpenAPI3,
		Fixables: []rules.Fixable{
			r1.Fixable(rules.Match{Path: "servers"}),
			r5.Fixable(rules.Match{Line: 12, Path: "components.schemas.A.properties.b", Subject: "components.schemas.A.b"}),
		},
		Scores: scores,
		Total:  scores.Total(),
	}
}

func TestGenerateReport(t *testing.T) {
	r := New(newTestLogger())
	r.Record("spec.json", sampleReport())
	r.LogFindings()
	assert.Equal(t, 2, r.GetIssueCount())

	// the extension is added when missing
	out := filepath.Join(t.TempDir(), "report")
	require.NoError(t, r.GenerateReport(out))

	data, err := os.ReadFile(out + ".json")
	require.NoError(t, err)

	var file File
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, "spec.json", file.Summary.Source)
	assert.Equal(t, "Open API", file.Summary.Dialect)
	assert.Equal(t, "openapi3", file.Summary.Flavor)
	assert.Equal(t, 2, file.Summary.TotalIssues)
	assert.Equal(t, map[string]int{"Critical": 1, "Medium": 1}, file.Summary.IssuesBySeverity)
	assert.Equal(t, map[string]int{"Error": 2}, file.Summary.IssuesByCategory)
	assert.Equal(t, map[string]int{"R1": 1, "R5": 1}, file.Summary.IssuesByRule)
	assert.Equal(t, 65, file.Summary.Scores.DataValidation)
	assert.Equal(t, 10, file.Summary.Scores.Security)
	assert.Equal(t, 75, file.Summary.TotalScore)

	require.Len(t, file.Fixables, 2)
	assert.Equal(t, "R5", file.Fixables[1].RuleID)
	assert.Equal(t, 12, file.Fixables[1].Line)
	assert.Equal(t, rules.Medium, file.Fixables[1].Weight)
}

func TestGenerateReportEmpty(t *testing.T) {
	r := New(newTestLogger())
	out := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, r.GenerateReport(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fixables": []`)
	assert.Equal(t, 0, r.GetIssueCount())
}

func TestGenerateReportBadPath(t *testing.T) {
	r := New(newTestLogger())
	r.Record("spec.json", sampleReport())
	err := r.GenerateReport(filepath.Join(t.TempDir(), "missing", "dir", "report.json"))
	assert.Error(t, err)
}
