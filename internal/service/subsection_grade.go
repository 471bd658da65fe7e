package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// SubsectionGrade is one student's grade for a subsection (sequential).
type SubsectionGrade struct {
	Location               models.UsageKey
	DisplayName            string
	URLName                string
	Format                 string
	Due                    *time.Time
	Graded                 bool
	CourseVersion          string
	SubtreeEditedTimestamp time.Time

	GradedTotal models.AggregatedScore
	AllTotal    models.AggregatedScore

	locations []models.UsageKey
	scores    map[models.UsageKey]models.ProblemScore
}

func newSubsectionGrade(subsection *models.BlockData, course *models.Course) *SubsectionGrade {
	return &SubsectionGrade{
		Location:               subsection.Location,
		DisplayName:            subsection.DisplayNameWithDefaultEscaped(),
		URLName:                subsection.URLName(),
		Format:                 subsection.Format,
		Due:                    subsection.Due,
		Graded:                 subsection.Graded,
		CourseVersion:          course.CourseVersion,
		SubtreeEditedTimestamp: subsection.SubtreeEditedOn,
		scores:                 make(map[models.UsageKey]models.ProblemScore),
	}
}

// Scores returns the problem scores in traversal order.
func (g *SubsectionGrade) Scores() []models.ProblemScore {
	out := make([]models.ProblemScore, 0, len(g.locations))
	for _, location := range g.locations {
		out = append(out, g.scores[location])
	}
	return out
}

// Locations returns the scored block locations in traversal order.
func (g *SubsectionGrade) Locations() []models.UsageKey {
	return append([]models.UsageKey(nil), g.locations...)
}

// Score returns the score recorded for location.
func (g *SubsectionGrade) Score(location models.UsageKey) (models.ProblemScore, bool) {
	score, ok := g.scores[location]
	return score, ok
}

func (g *SubsectionGrade) initFromStructure(structure *models.BlockStructure, scores *ScoresClient, submissions SubmissionScores) {
	for _, key := range structure.PostOrderTraversal(g.Location, PossiblyScored) {
		g.computeBlockScore(key, structure, scores, submissions, nil)
	}
	g.AllTotal, g.GradedTotal = AggregateScores(g.Scores(), g.DisplayName, g.Location)
}

// initFromModel rebuilds the per-block scores from the recorded visible
// blocks and trusts the persisted totals.
func (g *SubsectionGrade) initFromModel(model *models.PersistentSubsectionGrade, structure *models.BlockStructure, scores *ScoresClient, submissions SubmissionScores) {
	for i := range model.VisibleBlocks.Blocks {
		record := model.VisibleBlocks.Blocks[i]
		g.computeBlockScore(record.Locator, structure, scores, submissions, &record)
	}
	g.GradedTotal = models.AggregatedScore{
		Earned: model.EarnedGraded, Possible: model.PossibleGraded, Graded: true,
		DisplayName: g.DisplayName, ModuleID: g.Location,
	}
	g.AllTotal = models.AggregatedScore{
		Earned: model.EarnedAll, Possible: model.PossibleAll, Graded: false,
		DisplayName: g.DisplayName, ModuleID: g.Location,
	}
}

func (g *SubsectionGrade) computeBlockScore(key models.UsageKey, structure *models.BlockStructure, scores *ScoresClient, submissions SubmissionScores, persisted *models.BlockRecord) {
	block, ok := structure.Get(key)
	if !ok || !block.HasScore {
		return
	}
	score := GetScore(scores, submissions, block, persisted)
	if score == nil {
		return
	}
	if _, seen := g.scores[key]; !seen {
		g.locations = append(g.locations, key)
	}
	g.scores[key] = *score
}

// visibleBlocks snapshots the scored blocks so a later read can rebuild the grade.
func (g *SubsectionGrade) visibleBlocks(courseID models.CourseKey) models.BlockRecordList {
	records := make([]models.BlockRecord, 0, len(g.locations))
	for _, location := range g.locations {
		score := g.scores[location]
		records = append(records, models.BlockRecord{Locator: location, Weight: score.Weight, MaxScore: score.RawPossible})
	}
	return models.NewBlockRecordList(records, courseID)
}

func (g *SubsectionGrade) persistedModel(userID int64, courseID models.CourseKey) *models.PersistentSubsectionGrade {
	return &models.PersistentSubsectionGrade{
		UserID:                 userID,
		CourseID:               courseID,
		UsageKey:               g.Location,
		SubtreeEditedTimestamp: g.SubtreeEditedTimestamp,
		CourseVersion:          g.CourseVersion,
		EarnedAll:              g.AllTotal.Earned,
		PossibleAll:            g.AllTotal.Possible,
		EarnedGraded:           g.GradedTotal.Earned,
		PossibleGraded:         g.GradedTotal.Possible,
		VisibleBlocks:          g.visibleBlocks(courseID),
	}
}

type subsectionGradeStore interface {
	ListForUser(ctx context.Context, userID int64, courseID models.CourseKey) ([]models.PersistentSubsectionGrade, error)
	Upsert(ctx context.Context, grade *models.PersistentSubsectionGrade) error
	BulkUpsert(ctx context.Context, grades []*models.PersistentSubsectionGrade) error
}

type scoreSource interface {
	ListStudentModuleScores(ctx context.Context, userID int64, courseID models.CourseKey, locations []models.UsageKey) ([]models.StudentModuleScore, error)
	ListLatestSubmissionScores(ctx context.Context, anonymousID string, courseID models.CourseKey) ([]models.SubmissionScore, error)
}

type persistentGradesFlag interface {
	FeatureEnabled(ctx context.Context, courseID models.CourseKey) bool
}

// GradeBackends groups the stores grade computation reads from and writes to.
type GradeBackends struct {
	Grades            subsectionGradeStore
	Scores            scoreSource
	Flag              persistentGradesFlag
	AnonymousIDSecret string
}

// SubsectionGradeFactory creates the subsection grades of one student in one
// course, reusing persisted grades when the feature is enabled.
type SubsectionGradeFactory struct {
	student   *models.User
	course    *models.Course
	structure *models.BlockStructure
	backends  GradeBackends
	logger    *zap.Logger

	cached  map[models.UsageKey]*models.PersistentSubsectionGrade
	unsaved []*SubsectionGrade

	scoresClient *ScoresClient
	submissions  SubmissionScores
	sourcesReady bool
}

// NewSubsectionGradeFactory constructs a factory bound to a student and course structure.
func NewSubsectionGradeFactory(student *models.User, course *models.Course, structure *models.BlockStructure, backends GradeBackends, logger *zap.Logger) *SubsectionGradeFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubsectionGradeFactory{
		student:   student,
		course:    course,
		structure: structure,
		backends:  backends,
		logger: logger.With(
			zap.String("course_id", course.ID.String()),
			zap.String("course_version", course.CourseVersion),
			zap.Int64("user_id", student.ID),
		),
	}
}

// Create returns the grade for subsection. With readOnly set, freshly computed
// grades are queued for BulkCreateUnsaved instead of being written.
func (f *SubsectionGradeFactory) Create(ctx context.Context, subsection *models.BlockData, readOnly bool) (*SubsectionGrade, error) {
	f.logger.Debug("create subsection grade", zap.Bool("read_only", readOnly), zap.String("subsection", subsection.Location.String()))

	if err := f.loadSources(ctx); err != nil {
		return nil, err
	}

	enabled := f.featureEnabled(ctx)
	if enabled {
		if saved := f.savedGrade(ctx, subsection); saved != nil {
			return saved, nil
		}
	}

	grade := newSubsectionGrade(subsection, f.course)
	grade.initFromStructure(f.structure, f.scoresClient, f.submissions)
	f.logGrade("init_from_structure", grade)

	if enabled {
		if readOnly {
			f.unsaved = append(f.unsaved, grade)
		} else {
			model := grade.persistedModel(f.student.ID, f.course.ID)
			if err := f.backends.Grades.Upsert(ctx, model); err != nil {
				f.persistenceFailed(err)
			} else {
				f.rememberSaved(model)
			}
		}
	}
	return grade, nil
}

// BulkCreateUnsaved persists every grade queued by read-only Create calls.
func (f *SubsectionGradeFactory) BulkCreateUnsaved(ctx context.Context) {
	if len(f.unsaved) == 0 {
		return
	}
	f.logger.Debug("bulk create unsaved subsection grades", zap.Int("count", len(f.unsaved)))

	rows := make([]*models.PersistentSubsectionGrade, 0, len(f.unsaved))
	for _, grade := range f.unsaved {
		rows = append(rows, grade.persistedModel(f.student.ID, f.course.ID))
	}
	if err := f.backends.Grades.BulkUpsert(ctx, rows); err != nil {
		f.persistenceFailed(err)
		return
	}
	for _, model := range rows {
		f.rememberSaved(model)
	}
	f.unsaved = nil
}

// Update recomputes and stores the grade of subsection. It is a no-op
// returning nil when persistent grades are disabled for the course.
func (f *SubsectionGradeFactory) Update(ctx context.Context, subsection *models.BlockData) (*SubsectionGrade, error) {
	if !f.featureEnabled(ctx) {
		return nil, nil
	}
	if err := f.loadSources(ctx); err != nil {
		return nil, err
	}

	grade := newSubsectionGrade(subsection, f.course)
	grade.initFromStructure(f.structure, f.scoresClient, f.submissions)

	model := grade.persistedModel(f.student.ID, f.course.ID)
	if err := f.backends.Grades.Upsert(ctx, model); err != nil {
		return nil, fmt.Errorf("update subsection grade: %w", err)
	}
	f.rememberSaved(model)
	f.logGrade("update_or_create_model", grade)
	return grade, nil
}

// Unsaved returns how many grades are waiting for BulkCreateUnsaved.
func (f *SubsectionGradeFactory) Unsaved() int {
	return len(f.unsaved)
}

func (f *SubsectionGradeFactory) featureEnabled(ctx context.Context) bool {
	return f.backends.Flag != nil && f.backends.Flag.FeatureEnabled(ctx, f.course.ID)
}

func (f *SubsectionGradeFactory) savedGrade(ctx context.Context, subsection *models.BlockData) *SubsectionGrade {
	if f.cached == nil {
		rows, err := f.backends.Grades.ListForUser(ctx, f.student.ID, f.course.ID)
		if err != nil {
			f.persistenceFailed(err)
			return nil
		}
		f.cached = make(map[models.UsageKey]*models.PersistentSubsectionGrade, len(rows))
		for i := range rows {
			f.cached[rows[i].UsageKey] = &rows[i]
		}
	}

	model, ok := f.cached[subsection.Location]
	if !ok {
		return nil
	}
	grade := newSubsectionGrade(subsection, f.course)
	grade.initFromModel(model, f.structure, f.scoresClient, f.submissions)
	f.logGrade("init_from_model", grade)
	return grade
}

func (f *SubsectionGradeFactory) rememberSaved(model *models.PersistentSubsectionGrade) {
	if f.cached != nil {
		f.cached[model.UsageKey] = model
	}
}

// loadSources fetches both score sources once per factory.
func (f *SubsectionGradeFactory) loadSources(ctx context.Context) error {
	if f.sourcesReady {
		return nil
	}
	var scorable []models.UsageKey
	for _, key := range f.structure.Keys() {
		if PossiblyScored(key) {
			scorable = append(scorable, key)
		}
	}
	rows, err := f.backends.Scores.ListStudentModuleScores(ctx, f.student.ID, f.course.ID, scorable)
	if err != nil {
		return fmt.Errorf("load student module scores: %w", err)
	}
	anonymousID := AnonymousIDForUser(f.backends.AnonymousIDSecret, f.student.ID, f.course.ID)
	submissions, err := f.backends.Scores.ListLatestSubmissionScores(ctx, anonymousID, f.course.ID)
	if err != nil {
		return fmt.Errorf("load submission scores: %w", err)
	}
	f.scoresClient = NewScoresClient(rows)
	f.submissions = NewSubmissionScores(submissions)
	f.sourcesReady = true
	return nil
}

func (f *SubsectionGradeFactory) persistenceFailed(err error) {
	f.logger.Warn("persistent grades: persistence error, falling back", zap.Error(err))
}

func (f *SubsectionGradeFactory) logGrade(event string, grade *SubsectionGrade) {
	f.logger.Debug("subsection grade "+event,
		zap.String("subsection", grade.Location.String()),
		zap.Time("subtree_edited", grade.SubtreeEditedTimestamp),
		zap.Float64("earned_all", grade.AllTotal.Earned),
		zap.Float64("possible_all", grade.AllTotal.Possible),
		zap.Float64("earned_graded", grade.GradedTotal.Earned),
		zap.Float64("possible_graded", grade.GradedTotal.Possible),
	)
}
