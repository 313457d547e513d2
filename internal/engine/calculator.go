package engine

import (
	"fmt"
	"sort"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// Band maps an inclusive numeric lower bound to a classification label.
type Band struct {
	Lower float64
	Label string
}

// DefaultBands returns the Angolan 0-20 classification table.
func DefaultBands() []Band {
	return []Band{
		{Lower: 17, Label: "Excellent"},
		{Lower: 14, Label: "Good"},
		{Lower: 10, Label: "Sufficient"},
		{Lower: 0, Label: "Insufficient"},
	}
}

// BreakdownLine is one per-component entry of the arithmetic trace attached
// to a final grade. Step is the textual arithmetic an auditor can replay.
type BreakdownLine struct {
	Code         string  `json:"code"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Step         string  `json:"step"`
}

// FinalResult is the outcome of a final-grade computation.
type FinalResult struct {
	Value          float64         `json:"value"`
	Classification string          `json:"classification"`
	Passed         bool            `json:"passed"`
	Breakdown      []BreakdownLine `json:"breakdown"`
}

// Calculator combines a discipline's component values into a final grade and
// classification. Bands and the pass threshold are injected configuration so
// regional grading variants do not touch this code.
type Calculator struct {
	bands            []Band
	passingThreshold float64
}

// NewCalculator builds a calculator. Bands are sorted by descending lower
// bound; an empty slice falls back to DefaultBands.
func NewCalculator(bands []Band, passingThreshold float64) *Calculator {
	if len(bands) == 0 {
		bands = DefaultBands()
	}
	sorted := append([]Band(nil), bands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lower > sorted[j].Lower })
	if passingThreshold <= 0 {
		passingThreshold = 10
	}
	return &Calculator{bands: sorted, passingThreshold: passingThreshold}
}

// Classify maps a numeric value to its band label (inclusive lower bounds).
func (c *Calculator) Classify(value float64) string {
	for _, band := range c.bands {
		if value >= band.Lower {
			return band.Label
		}
	}
	return c.bands[len(c.bands)-1].Label
}

// ComputeFinal produces the final grade for one student in one
// discipline+period.
//
// Every required component must have a value (raw or resolved-calculated);
// otherwise a *MissingComponentError naming all gaps is returned and nothing
// is computed. A validated custom formula takes precedence over the default
// weighted sum; an unvalidated formula is ignored. The weighted sum is
// weight-normalized, Σ(value·weight)/Σ(weight), which equals the plain
// weighted average when weights sum to 100.
func (c *Calculator) ComputeFinal(components []models.GradeComponent, formula *models.DisciplineFormula, values map[string]float64) (*FinalResult, error) {
	var missing []string
	for _, comp := range components {
		if !comp.Required {
			continue
		}
		if _, ok := values[comp.Code]; !ok {
			missing = append(missing, comp.Code)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingComponentError{Codes: missing}
	}

	if formula != nil && formula.Validated {
		return c.computeByFormula(formula, values)
	}
	return c.computeWeighted(components, values)
}

func (c *Calculator) computeByFormula(formula *models.DisciplineFormula, values map[string]float64) (*FinalResult, error) {
	value, err := Evaluate(formula.Expression, values)
	if err != nil {
		return nil, err
	}

	used := append([]string(nil), formula.ComponentsUsed...)
	sort.Strings(used)
	breakdown := make([]BreakdownLine, 0, len(used)+1)
	for _, code := range used {
		v := values[code]
		breakdown = append(breakdown, BreakdownLine{
			Code:  code,
			Value: v,
			Step:  fmt.Sprintf("%s = %.2f", code, v),
		})
	}
	breakdown = append(breakdown, BreakdownLine{
		Code:  "FORMULA",
		Value: value,
		Step:  fmt.Sprintf("%s = %.2f", formula.Expression, value),
	})

	return &FinalResult{
		Value:          value,
		Classification: c.Classify(value),
		Passed:         value >= c.passingThreshold,
		Breakdown:      breakdown,
	}, nil
}

func (c *Calculator) computeWeighted(components []models.GradeComponent, values map[string]float64) (*FinalResult, error) {
	sorted := append([]models.GradeComponent(nil), components...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	var weightedSum, totalWeight float64
	breakdown := make([]BreakdownLine, 0, len(sorted))
	for _, comp := range sorted {
		v, ok := values[comp.Code]
		if !ok {
			// optional component without a value contributes nothing
			continue
		}
		contribution := Round2(v * comp.WeightPercent / 100)
		weightedSum += v * comp.WeightPercent
		totalWeight += comp.WeightPercent
		breakdown = append(breakdown, BreakdownLine{
			Code:         comp.Code,
			Value:        v,
			Weight:       comp.WeightPercent,
			Contribution: contribution,
			Step:         fmt.Sprintf("%s: %.2f x %.0f%% = %.2f", comp.Code, v, comp.WeightPercent, contribution),
		})
	}
	if totalWeight == 0 {
		return nil, &EvaluationError{Reason: "no weighted components with values"}
	}

	value := Round2(weightedSum / totalWeight)
	return &FinalResult{
		Value:          value,
		Classification: c.Classify(value),
		Passed:         value >= c.passingThreshold,
		Breakdown:      breakdown,
	}, nil
}

// WeightSumWarning returns an advisory message when a non-formula scheme's
// weights do not sum to 100. Not a hard validation failure.
func WeightSumWarning(components []models.GradeComponent) string {
	var total float64
	for _, comp := range components {
		total += comp.WeightPercent
	}
	if total < 99.999 || total > 100.001 {
		return fmt.Sprintf("component weights sum to %.2f, expected 100", total)
	}
	return ""
}
