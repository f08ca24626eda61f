package rundetail

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/runstore"
)

// PassScore is the minimum numeric score that counts as a pass.
const PassScore = 3.0

type lexicalGrade struct {
	score  float64
	passed bool
}

var lexicalScale = map[string]lexicalGrade{
	"poor":      {1.0, false},
	"adequate":  {3.0, true},
	"good":      {4.0, true},
	"excellent": {5.0, true},
}

// applyPrimary sets the case verdict from the primary assessment.
func applyPrimary(c *models.CaseResult, a runstore.Assessment) {
	c.Justification = a.Rationale

	switch v := a.Value.(type) {
	case bool:
		setBool(c, v)
	case float64:
		setNumeric(c, v)
	case int:
		setNumeric(c, float64(v))
	case int64:
		setNumeric(c, float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			setNumeric(c, f)
		}
	case string:
		applyText(c, v)
	}
}

func applyText(c *models.CaseResult, s string) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if grade, ok := lexicalScale[norm]; ok {
		c.Rating = norm
		c.Score = &grade.score
		c.Passed = &grade.passed
		return
	}
	switch norm {
	case "yes", "true", "pass":
		setBool(c, true)
		return
	case "no", "false", "fail":
		setBool(c, false)
		return
	}
	if f, err := strconv.ParseFloat(norm, 64); err == nil {
		setNumeric(c, f)
		return
	}
	c.Rating = norm
}

func setBool(c *models.CaseResult, v bool) {
	score := 0.0
	if v {
		score = 1.0
	}
	c.Score = &score
	c.Passed = &v
}

func setNumeric(c *models.CaseResult, f float64) {
	passed := f >= PassScore
	c.Score = &f
	c.Passed = &passed
}

// addExtra keeps a non-primary assessment as-is.
func addExtra(c *models.CaseResult, a runstore.Assessment) {
	if c.Extras == nil {
		c.Extras = map[string]models.AssessmentExtra{}
	}
	c.Extras[a.Name] = models.AssessmentExtra{Value: a.Value, Rationale: a.Rationale}
}
