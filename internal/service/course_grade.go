package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/models"
)

// ChapterGrade groups the subsection grades of one chapter.
type ChapterGrade struct {
	DisplayName string
	URLName     string
	Sections    []*SubsectionGrade
}

// CourseGrade is one student's grade in one course. Derived values are
// computed on first use and kept for the lifetime of the value, which is
// never shared between requests.
type CourseGrade struct {
	Student       *models.User
	Course        *models.Course
	Structure     *models.BlockStructure
	ChapterGrades []ChapterGrade

	grader         Grader
	generateRandom bool
	signal         *GradesUpdatedSignal
	logger         *zap.Logger

	totalsByFormat map[string][]models.AggregatedScore
	scoreOrder     []models.UsageKey
	scores         map[models.UsageKey]models.ProblemScore
	gradeValue     *models.GradeResult
	summary        *models.GradeSummary
}

// CourseGradeOptions configures a CourseGrade.
type CourseGradeOptions struct {
	Grader Grader
	// GenerateRandomScores makes the grader synthesize scores; profiling only.
	GenerateRandomScores bool
	Signal               *GradesUpdatedSignal
	Logger               *zap.Logger
}

// NewCourseGrade builds an uncomputed course grade.
func NewCourseGrade(student *models.User, course *models.Course, structure *models.BlockStructure, opts CourseGradeOptions) *CourseGrade {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseGrade{
		Student:        student,
		Course:         course,
		Structure:      structure,
		grader:         opts.Grader,
		generateRandom: opts.GenerateRandomScores,
		signal:         opts.Signal,
		logger:         logger.With(zap.String("course_id", course.ID.String()), zap.Int64("user_id", student.ID)),
	}
}

// ComputeAndUpdate grades every subsection of every chapter, persists new
// subsection grades unless readOnly, then notifies GRADES_UPDATED receivers.
func (g *CourseGrade) ComputeAndUpdate(ctx context.Context, factory *SubsectionGradeFactory, readOnly bool) error {
	g.logger.Debug("compute_and_update", zap.Bool("read_only", readOnly))

	for _, chapterKey := range g.Structure.Children(g.Course.Location()) {
		chapter, ok := g.Structure.Get(chapterKey)
		if !ok {
			continue
		}
		record := ChapterGrade{DisplayName: chapter.DisplayNameWithDefaultEscaped(), URLName: chapter.URLName()}
		for _, subsectionKey := range g.Structure.Children(chapterKey) {
			subsection, ok := g.Structure.Get(subsectionKey)
			if !ok {
				continue
			}
			grade, err := factory.Create(ctx, subsection, true)
			if err != nil {
				return err
			}
			record.Sections = append(record.Sections, grade)
		}
		g.ChapterGrades = append(g.ChapterGrades, record)
	}

	if !readOnly {
		factory.BulkCreateUnsaved(ctx)
	}

	g.signalListeners(ctx)
	return nil
}

// SubsectionGradeTotalsByFormat maps each format to the graded totals of its
// graded subsections with a positive possible score.
func (g *CourseGrade) SubsectionGradeTotalsByFormat() map[string][]models.AggregatedScore {
	if g.totalsByFormat != nil {
		return g.totalsByFormat
	}
	totals := make(map[string][]models.AggregatedScore)
	for _, chapter := range g.ChapterGrades {
		for _, subsection := range chapter.Sections {
			if subsection.Graded && subsection.GradedTotal.Possible > 0 {
				totals[subsection.Format] = append(totals[subsection.Format], subsection.GradedTotal)
			}
		}
	}
	g.totalsByFormat = totals
	return totals
}

// LocationsToScores merges the problem scores of every subsection.
func (g *CourseGrade) LocationsToScores() map[models.UsageKey]models.ProblemScore {
	g.mergeScores()
	return g.scores
}

// RawScores lists every problem score in course order.
func (g *CourseGrade) RawScores() []models.ProblemScore {
	g.mergeScores()
	out := make([]models.ProblemScore, 0, len(g.scoreOrder))
	for _, location := range g.scoreOrder {
		out = append(out, g.scores[location])
	}
	return out
}

func (g *CourseGrade) mergeScores() {
	if g.scores != nil {
		return
	}
	g.scores = make(map[models.UsageKey]models.ProblemScore)
	for _, chapter := range g.ChapterGrades {
		for _, subsection := range chapter.Sections {
			for _, location := range subsection.Locations() {
				score, _ := subsection.Score(location)
				if _, seen := g.scores[location]; !seen {
					g.scoreOrder = append(g.scoreOrder, location)
				}
				g.scores[location] = score
			}
		}
	}
}

// GradeValue runs the course grader over the format totals.
func (g *CourseGrade) GradeValue() models.GradeResult {
	if g.gradeValue != nil {
		return *g.gradeValue
	}
	var result models.GradeResult
	if g.grader != nil {
		result = g.grader.Grade(g.SubsectionGradeTotalsByFormat(), g.generateRandom)
	}
	g.gradeValue = &result
	return result
}

// HasAccessToCourse reports whether the student sees any part of the course.
func (g *CourseGrade) HasAccessToCourse() bool {
	return g.Structure.Len() > 0
}

// Percent is the grader percent rounded to a whole percentage point with a
// half-up bias, as a fraction.
func (g *CourseGrade) Percent() float64 {
	return RoundPercent(g.GradeValue().Percent)
}

// RoundPercent rounds a fraction to two decimals after adding 0.05 points.
func RoundPercent(raw float64) float64 {
	return math.Round(raw*100+0.05) / 100
}

// LetterGrade returns the letter of the highest cutoff the percent meets.
func (g *CourseGrade) LetterGrade() *string {
	return LetterGradeFor(g.Course.GradeCutoffs(), g.Percent())
}

// LetterGradeFor picks the letter with the highest threshold met by percent.
// Ties are broken alphabetically.
func LetterGradeFor(cutoffs map[string]float64, percent float64) *string {
	letters := make([]string, 0, len(cutoffs))
	for letter := range cutoffs {
		letters = append(letters, letter)
	}
	sort.Slice(letters, func(i, j int) bool {
		if cutoffs[letters[i]] != cutoffs[letters[j]] {
			return cutoffs[letters[i]] > cutoffs[letters[j]]
		}
		return letters[i] < letters[j]
	})
	for _, letter := range letters {
		if percent >= cutoffs[letter] {
			l := letter
			return &l
		}
	}
	return nil
}

// Passed reports whether the percent reaches the lowest nonzero cutoff. A
// course without nonzero cutoffs cannot be passed.
func (g *CourseGrade) Passed() bool {
	success := 0.0
	for _, cutoff := range g.Course.GradeCutoffs() {
		if cutoff > 0 && (success == 0 || cutoff < success) {
			success = cutoff
		}
	}
	if success == 0 {
		return false
	}
	return g.Percent() >= success
}

// Summary decorates the grade value with the rounded percent, letter grade
// and the underlying scores.
func (g *CourseGrade) Summary() *models.GradeSummary {
	if g.summary != nil {
		return g.summary
	}
	value := g.GradeValue()
	summary := &models.GradeSummary{
		Percent:          g.Percent(),
		Grade:            g.LetterGrade(),
		SectionBreakdown: value.SectionBreakdown,
		GradeBreakdown:   value.GradeBreakdown,
		TotaledScores:    g.SubsectionGradeTotalsByFormat(),
		RawScores:        g.RawScores(),
	}
	grade := ""
	if summary.Grade != nil {
		grade = *summary.Grade
	}
	g.logger.Info("grade_summary", zap.Float64("percent", summary.Percent), zap.String("grade", grade))
	g.summary = summary
	return summary
}

// ScoreForModule returns the weighted (earned, possible) of location: its
// own score when it has one, else the sum over its children.
func (g *CourseGrade) ScoreForModule(location models.UsageKey) (float64, float64) {
	if score, ok := g.LocationsToScores()[location]; ok {
		return score.Earned, score.Possible
	}
	earned, possible := 0.0, 0.0
	for _, child := range g.Structure.Children(location) {
		childEarned, childPossible := g.ScoreForModule(child)
		earned += childEarned
		possible += childPossible
	}
	return earned, possible
}

func (g *CourseGrade) signalListeners(ctx context.Context) {
	if g.signal == nil {
		return
	}
	event := GradesUpdatedEvent{
		User:      g.Student,
		Summary:   g.Summary(),
		CourseKey: g.Course.ID,
		Deadline:  g.Course.End,
	}
	for _, resp := range g.signal.SendRobust(ctx, event) {
		if resp.Err != nil {
			g.logger.Warn("grades updated receiver failed", zap.String("receiver", resp.Receiver), zap.Error(resp.Err))
			continue
		}
		g.logger.Info("signal fired when student grade is calculated",
			zap.String("receiver", resp.Receiver), zap.Any("response", resp.Response))
	}
}

type courseBlocksProvider interface {
	GetCourseBlocks(ctx context.Context, student *models.User, root models.UsageKey) (*models.BlockStructure, error)
}

type gradeMetrics interface {
	ObserveCourseGrade(readOnly bool, outcome string, duration time.Duration)
}

// CourseGradeFactoryConfig carries the settings course grading depends on.
type CourseGradeFactoryConfig struct {
	GenerateProfileScores bool
}

// CourseGradeFactory builds CourseGrades from the student-visible course structure.
type CourseGradeFactory struct {
	blocks    courseBlocksProvider
	backends  GradeBackends
	signal    *GradesUpdatedSignal
	metrics   gradeMetrics
	validator *validator.Validate
	cfg       CourseGradeFactoryConfig
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewCourseGradeFactory constructs the factory.
func NewCourseGradeFactory(blocks courseBlocksProvider, backends GradeBackends, signal *GradesUpdatedSignal, metrics gradeMetrics, validate *validator.Validate, cfg CourseGradeFactoryConfig, logger *zap.Logger) *CourseGradeFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseGradeFactory{
		blocks:    blocks,
		backends:  backends,
		signal:    signal,
		metrics:   metrics,
		validator: validate,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/noah-isme/lms-grades-api/internal/service/course_grade"),
		logger:    logger,
	}
}

// Create returns the student's grade in course, computing it when no
// persisted course grade is available.
func (f *CourseGradeFactory) Create(ctx context.Context, student *models.User, course *models.Course, readOnly bool) (grade *CourseGrade, err error) {
	ctx, span := f.tracer.Start(ctx, "grades.course_grade.create", trace.WithAttributes(
		attribute.String("grades.course_id", course.ID.String()),
		attribute.Int64("grades.user_id", student.ID),
		attribute.Bool("grades.read_only", readOnly),
	))
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "course_grade_failed")
		}
		if f.metrics != nil {
			f.metrics.ObserveCourseGrade(readOnly, outcome, time.Since(start))
		}
		span.End()
	}()

	structure, err := f.blocks.GetCourseBlocks(ctx, student, course.Location())
	if err != nil {
		return nil, err
	}
	if saved := f.savedGrade(ctx, course); saved != nil {
		return saved, nil
	}
	return f.computeAndUpdate(ctx, student, course, structure, readOnly)
}

// savedGrade is where a persisted course grade would be read. Only subsection
// grades are persisted so far, so it always falls through to computation.
func (f *CourseGradeFactory) savedGrade(ctx context.Context, course *models.Course) *CourseGrade {
	if f.backends.Flag != nil && f.backends.Flag.FeatureEnabled(ctx, course.ID) {
		f.logger.Debug("persisted course grades not available, computing", zap.String("course_id", course.ID.String()))
	}
	return nil
}

func (f *CourseGradeFactory) computeAndUpdate(ctx context.Context, student *models.User, course *models.Course, structure *models.BlockStructure, readOnly bool) (*CourseGrade, error) {
	// policy is re-read from the course so per-run overrides never leak in
	grader, err := GraderFromConfig(course.GradingPolicy, f.validator)
	if err != nil {
		return nil, err
	}
	grade := NewCourseGrade(student, course, structure, CourseGradeOptions{
		Grader:               grader,
		GenerateRandomScores: f.cfg.GenerateProfileScores,
		Signal:               f.signal,
		Logger:               f.logger,
	})
	factory := NewSubsectionGradeFactory(student, course, structure, f.backends, f.logger)
	if err := grade.ComputeAndUpdate(ctx, factory, readOnly); err != nil {
		return nil, err
	}
	return grade, nil
}
