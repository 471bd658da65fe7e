package service

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lms-grades-api/internal/models"
	appErrors "github.com/noah-isme/lms-grades-api/pkg/errors"
)

var randIntn = rand.Intn // mockable

// Grader turns format-keyed subsection totals into a course grade.
type Grader interface {
	Grade(sheet map[string][]models.AggregatedScore, generateRandom bool) models.GradeResult
}

// AssignmentFormatGrader grades every subsection of one format, dropping the
// lowest DropCount and padding to MinCount with unreleased zero entries.
type AssignmentFormatGrader struct {
	Type            string
	MinCount        int
	DropCount       int
	Category        string
	SectionType     string
	ShortLabel      string
	ShowOnlyAverage bool
	HideAverage     bool
	StartingIndex   int
}

// NewAssignmentFormatGrader applies the defaults: category, section type and
// short label fall back to the type and numbering starts at 1.
func NewAssignmentFormatGrader(cfg models.GraderConfig) *AssignmentFormatGrader {
	g := &AssignmentFormatGrader{
		Type:            cfg.Type,
		MinCount:        cfg.MinCount,
		DropCount:       cfg.DropCount,
		Category:        cfg.Category,
		SectionType:     cfg.SectionType,
		ShortLabel:      cfg.ShortLabel,
		ShowOnlyAverage: cfg.ShowOnlyAverage,
		HideAverage:     cfg.HideAverage,
		StartingIndex:   cfg.StartingIndex,
	}
	if g.Category == "" {
		g.Category = g.Type
	}
	if g.SectionType == "" {
		g.SectionType = g.Type
	}
	if g.ShortLabel == "" {
		g.ShortLabel = g.Type
	}
	if g.StartingIndex <= 0 {
		g.StartingIndex = 1
	}
	return g
}

// Grade implements Grader.
func (g *AssignmentFormatGrader) Grade(sheet map[string][]models.AggregatedScore, generateRandom bool) models.GradeResult {
	scores := sheet[g.Type]
	count := g.MinCount
	if len(scores) > count {
		count = len(scores)
	}

	breakdown := make([]models.SectionBreakdown, 0, count+1)
	for i := 0; i < count; i++ {
		index := i + g.StartingIndex
		var percent float64
		var detail string
		if i < len(scores) || generateRandom {
			var earned, possible float64
			var name string
			if generateRandom {
				e := 2 + randIntn(14)
				earned = float64(e)
				possible = float64(e + randIntn(16-e))
				name = "Generated"
			} else {
				earned = scores[i].Earned
				possible = scores[i].Possible
				name = scores[i].DisplayName
			}
			if possible > 0 {
				percent = earned / possible
			}
			detail = fmt.Sprintf("%s %d - %s - %s (%s/%s)",
				g.SectionType, index, name, formatPercent(percent, 0), formatScore(earned), formatScore(possible))
		} else {
			detail = fmt.Sprintf("%s %d Unreleased - 0%% (?/?)", g.SectionType, index)
		}
		breakdown = append(breakdown, models.SectionBreakdown{
			Category: g.Category,
			Label:    fmt.Sprintf("%s %02d", g.ShortLabel, index),
			Detail:   detail,
			Percent:  percent,
		})
	}

	total, dropped := totalWithDrops(breakdown, g.DropCount)
	for _, idx := range dropped {
		breakdown[idx].Mark = &models.BreakdownMark{
			Detail: fmt.Sprintf("The lowest %d %s scores are dropped.", g.DropCount, g.SectionType),
		}
	}

	if len(breakdown) == 1 {
		// a single entry stands for the whole section
		breakdown = []models.SectionBreakdown{{
			Category:  g.Category,
			Label:     g.ShortLabel,
			Detail:    fmt.Sprintf("%s = %s", g.SectionType, formatPercent(total, 0)),
			Percent:   total,
			Prominent: true,
		}}
	} else {
		if g.ShowOnlyAverage {
			breakdown = breakdown[:0]
		}
		if !g.HideAverage {
			breakdown = append(breakdown, models.SectionBreakdown{
				Category:  g.Category,
				Label:     g.ShortLabel + " Avg",
				Detail:    fmt.Sprintf("%s Average = %s", g.SectionType, formatPercent(total, 0)),
				Percent:   total,
				Prominent: true,
			})
		}
	}

	return models.GradeResult{Percent: total, SectionBreakdown: breakdown}
}

// totalWithDrops averages the entries after dropping the dropCount lowest.
// Among equal percents the later entries are dropped first.
func totalWithDrops(breakdown []models.SectionBreakdown, dropCount int) (float64, []int) {
	order := make([]int, len(breakdown))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return breakdown[order[a]].Percent > breakdown[order[b]].Percent
	})

	var dropped []int
	if dropCount > 0 {
		start := len(order) - dropCount
		if start < 0 {
			start = 0
		}
		dropped = append(dropped, order[start:]...)
	}
	droppedSet := make(map[int]struct{}, len(dropped))
	for _, idx := range dropped {
		droppedSet[idx] = struct{}{}
	}

	total := 0.0
	for i, mark := range breakdown {
		if _, skip := droppedSet[i]; !skip {
			total += mark.Percent
		}
	}
	if kept := len(breakdown) - dropCount; kept > 0 {
		total /= float64(kept)
	}
	return total, dropped
}

type weightedSubgrader struct {
	grader   Grader
	category string
	weight   float64
}

// WeightedSubsectionsGrader sums its subgraders' percents scaled by weight.
type WeightedSubsectionsGrader struct {
	subgraders []weightedSubgrader
}

// NewWeightedSubsectionsGrader builds an empty grader; use Add to register subgraders.
func NewWeightedSubsectionsGrader() *WeightedSubsectionsGrader {
	return &WeightedSubsectionsGrader{}
}

// Add registers a subgrader for category with the given weight.
func (g *WeightedSubsectionsGrader) Add(grader Grader, category string, weight float64) {
	g.subgraders = append(g.subgraders, weightedSubgrader{grader: grader, category: category, weight: weight})
}

// Grade implements Grader.
func (g *WeightedSubsectionsGrader) Grade(sheet map[string][]models.AggregatedScore, generateRandom bool) models.GradeResult {
	result := models.GradeResult{
		SectionBreakdown: []models.SectionBreakdown{},
		GradeBreakdown:   []models.GradeBreakdown{},
	}
	for _, sub := range g.subgraders {
		subResult := sub.grader.Grade(sheet, generateRandom)
		weighted := subResult.Percent * sub.weight
		result.Percent += weighted
		result.SectionBreakdown = append(result.SectionBreakdown, subResult.SectionBreakdown...)
		result.GradeBreakdown = append(result.GradeBreakdown, models.GradeBreakdown{
			Category: sub.category,
			Percent:  weighted,
			Detail:   fmt.Sprintf("%s = %s of a possible %s", sub.category, formatPercent(weighted, 2), formatPercent(sub.weight, 2)),
		})
	}
	return result
}

// GraderFromConfig builds the course grader described by a grading policy.
func GraderFromConfig(policy models.GradingPolicy, validate *validator.Validate) (*WeightedSubsectionsGrader, error) {
	if validate == nil {
		validate = validator.New()
	}
	grader := NewWeightedSubsectionsGrader()
	for _, cfg := range policy.Grader {
		if err := validate.Struct(cfg); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidGrader.Code, appErrors.ErrInvalidGrader.Status,
				fmt.Sprintf("unable to parse grader configuration %q", cfg.Type))
		}
		sub := NewAssignmentFormatGrader(cfg)
		grader.Add(sub, sub.Category, cfg.Weight)
	}
	return grader, nil
}

func formatPercent(fraction float64, decimals int) string {
	return strconv.FormatFloat(fraction*100, 'f', decimals, 64) + "%"
}

// formatScore prints up to three significant digits.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
