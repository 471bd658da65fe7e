package service

import (
	"github.com/noah-isme/lms-grades-api/internal/models"
)

// possiblyScoredTypes are block types that either hold a score or can contain
// blocks that do. Videos and html never affect a grade.
var possiblyScoredTypes = map[string]struct{}{
	"course":           {},
	"chapter":          {},
	"sequential":       {},
	"vertical":         {},
	"problem":          {},
	"library_content":  {},
	"split_test":       {},
	"conditional":      {},
	"randomize":        {},
	"openassessment":   {},
	"lti":              {},
	"lti_consumer":     {},
	"drag-and-drop-v2": {},
	"edx_sga":          {},
}

// PossiblyScored reports whether a block could affect grading.
func PossiblyScored(key models.UsageKey) bool {
	_, ok := possiblyScoredTypes[key.BlockType()]
	return ok
}

// ScoresClient serves the courseware student module scores of one student.
type ScoresClient struct {
	scores map[models.UsageKey]models.StudentModuleScore
}

// NewScoresClient indexes the rows by module id.
func NewScoresClient(rows []models.StudentModuleScore) *ScoresClient {
	scores := make(map[models.UsageKey]models.StudentModuleScore, len(rows))
	for _, row := range rows {
		scores[row.ModuleID] = row
	}
	return &ScoresClient{scores: scores}
}

// Get returns the stored score for location.
func (c *ScoresClient) Get(location models.UsageKey) (models.StudentModuleScore, bool) {
	if c == nil {
		return models.StudentModuleScore{}, false
	}
	score, ok := c.scores[location]
	return score, ok
}

// SubmissionScores maps a block location string to its pre-weighted score.
type SubmissionScores map[string]models.SubmissionScore

// NewSubmissionScores indexes the rows by item id.
func NewSubmissionScores(rows []models.SubmissionScore) SubmissionScores {
	out := make(SubmissionScores, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row
	}
	return out
}

// WeightedScore rescales a raw score to weight. The raw values come back
// unchanged when weight is nil or rawPossible is zero.
func WeightedScore(rawEarned, rawPossible float64, weight *float64) (float64, float64) {
	if weight == nil || rawPossible == 0 {
		return rawEarned, rawPossible
	}
	return rawEarned * *weight / rawPossible, *weight
}

type resolvedScore struct {
	rawEarned, rawPossible           *float64
	weightedEarned, weightedPossible *float64
}

// GetScore resolves the score of block for one student. Sources are tried in
// order: submissions, student module state, then the block itself (or the
// persisted record when given) with nothing earned. Returns nil when no source
// defines a score.
func GetScore(scores *ScoresClient, submissions SubmissionScores, block *models.BlockData, persisted *models.BlockRecord) *models.ProblemScore {
	weight := block.Weight

	resolved, ok := scoreFromSubmissions(submissions, block)
	if !ok {
		resolved, ok = scoreFromStudentModule(scores, block, weight)
	}
	if !ok {
		resolved = scoreFromBlock(persisted, block, weight)
	}

	if resolved.weightedEarned == nil && resolved.weightedPossible == nil {
		return nil
	}

	graded := false
	if resolved.weightedPossible != nil && *resolved.weightedPossible > 0 {
		graded = explicitGraded(block)
	}

	score := &models.ProblemScore{
		RawEarned:   resolved.rawEarned,
		RawPossible: resolved.rawPossible,
		Weight:      weight,
		Graded:      graded,
		DisplayName: block.DisplayNameWithDefaultEscaped(),
		ModuleID:    block.Location,
	}
	if resolved.weightedEarned != nil {
		score.Earned = *resolved.weightedEarned
	}
	if resolved.weightedPossible != nil {
		score.Possible = *resolved.weightedPossible
	}
	return score
}

func scoreFromSubmissions(submissions SubmissionScores, block *models.BlockData) (resolvedScore, bool) {
	if len(submissions) == 0 {
		return resolvedScore{}, false
	}
	value, ok := submissions[block.Location.String()]
	if !ok {
		return resolvedScore{}, false
	}
	earned, possible := value.Earned, value.Possible
	return resolvedScore{weightedEarned: &earned, weightedPossible: &possible}, true
}

// A student module row is only trusted when it carries a total: the student
// is graded on what was possible when they answered.
func scoreFromStudentModule(scores *ScoresClient, block *models.BlockData, weight *float64) (resolvedScore, bool) {
	row, ok := scores.Get(block.Location)
	if !ok || row.Total == nil {
		return resolvedScore{}, false
	}
	rawEarned := 0.0
	if row.Correct != nil {
		rawEarned = *row.Correct
	}
	rawPossible := *row.Total
	earned, possible := WeightedScore(rawEarned, rawPossible, weight)
	return resolvedScore{
		rawEarned:        &rawEarned,
		rawPossible:      &rawPossible,
		weightedEarned:   &earned,
		weightedPossible: &possible,
	}, true
}

func scoreFromBlock(persisted *models.BlockRecord, block *models.BlockData, weight *float64) resolvedScore {
	rawEarned := 0.0
	var rawPossible *float64
	if persisted != nil {
		rawPossible = persisted.MaxScore
	} else {
		rawPossible = block.MaxScore
	}
	if rawPossible == nil {
		return resolvedScore{rawEarned: &rawEarned}
	}
	possibleValue := *rawPossible
	earned, possible := WeightedScore(rawEarned, possibleValue, weight)
	return resolvedScore{
		rawEarned:        &rawEarned,
		rawPossible:      &possibleValue,
		weightedEarned:   &earned,
		weightedPossible: &possible,
	}
}

func explicitGraded(block *models.BlockData) bool {
	if block.ExplicitGraded == nil {
		return true
	}
	return *block.ExplicitGraded
}

// AggregateScores sums scores into an all-problems total and a graded-only total.
func AggregateScores(scores []models.ProblemScore, displayName string, location models.UsageKey) (all models.AggregatedScore, graded models.AggregatedScore) {
	all = models.AggregatedScore{Graded: false, DisplayName: displayName, ModuleID: location}
	graded = models.AggregatedScore{Graded: true, DisplayName: displayName, ModuleID: location}
	for _, score := range scores {
		all.Earned += score.Earned
		all.Possible += score.Possible
		if score.Graded {
			graded.Earned += score.Earned
			graded.Possible += score.Possible
		}
	}
	return all, graded
}
