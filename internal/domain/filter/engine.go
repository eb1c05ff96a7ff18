package filter

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/adapters/roster"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Engine turns filters into cohorts and record sets. It holds no state
// between calls.
type Engine struct {
	store  repository.Store
	roster roster.Provider
	log    logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an Engine reading records from store and students from r.
func NewEngine(store repository.Store, r roster.Provider, opts ...Option) *Engine {
	e := &Engine{store: store, roster: r, log: logger.Get().Named("filter")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolution is a cohort together with the cohort's records in range.
type Resolution struct {
	Cohort  []model.Student
	Records []model.AttendanceRecord
}

// ResolveCohort returns the students matching level, section and search.
// Date and status are ignored.
func (e *Engine) ResolveCohort(ctx context.Context, f Filter) ([]model.Student, error) {
	if err := e.checkReferences(ctx, f); err != nil {
		return nil, err
	}
	return e.listCohort(ctx, f)
}

// ResolveRecords returns records in the inclusive date range that match the
// status and, when the filter narrows students, belong to the cohort.
func (e *Engine) ResolveRecords(ctx context.Context, f Filter) ([]model.AttendanceRecord, error) {
	if err := e.validate(ctx, f); err != nil {
		return nil, err
	}

	q := repository.RecordQuery{From: f.StartDate, To: f.EndDate, Status: f.Status}
	if f.RestrictsStudents() {
		cohort, err := e.listCohort(ctx, f)
		if err != nil {
			return nil, err
		}
		q.StudentIDs = studentIDs(cohort)
	}
	return e.query(ctx, q)
}

// Resolve returns the cohort and the records restricted to it, so that
// every record belongs to a cohort member.
func (e *Engine) Resolve(ctx context.Context, f Filter) (Resolution, error) {
	if err := e.validate(ctx, f); err != nil {
		return Resolution{}, err
	}
	cohort, err := e.listCohort(ctx, f)
	if err != nil {
		return Resolution{}, err
	}
	records, err := e.query(ctx, repository.RecordQuery{
		From:       f.StartDate,
		To:         f.EndDate,
		Status:     f.Status,
		StudentIDs: studentIDs(cohort),
	})
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Cohort: cohort, Records: records}, nil
}

// validate runs every check that needs no store I/O first, then the
// roster reference checks.
func (e *Engine) validate(ctx context.Context, f Filter) error {
	if err := f.ValidateRange(); err != nil {
		metrics.RecordErrorByComponent("filter", "invalid_range")
		return err
	}
	if err := f.ValidateStatus(); err != nil {
		metrics.RecordErrorByComponent("filter", "invalid_filter")
		return err
	}
	return e.checkReferences(ctx, f)
}

// checkReferences verifies that level and section name known roster
// entries. Both lists are fetched concurrently.
func (e *Engine) checkReferences(ctx context.Context, f Filter) error {
	if f.Level == "" && f.Section == "" {
		return nil
	}

	var (
		levels   []model.Level
		sections []model.Section
	)
	g, gctx := errgroup.WithContext(ctx)
	if f.Level != "" {
		g.Go(func() error {
			var err error
			levels, err = e.roster.ListLevels(gctx)
			return err
		})
	}
	if f.Section != "" {
		g.Go(func() error {
			var err error
			sections, err = e.roster.ListSections(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if f.Level != "" && !containsLevel(levels, f.Level) {
		metrics.RecordErrorByComponent("filter", "invalid_filter")
		return &ReferenceError{Field: "level", Value: f.Level}
	}
	if f.Section != "" && !containsSection(sections, f.Section) {
		metrics.RecordErrorByComponent("filter", "invalid_filter")
		return &ReferenceError{Field: "section", Value: f.Section}
	}
	return nil
}

func (e *Engine) listCohort(ctx context.Context, f Filter) ([]model.Student, error) {
	students, err := e.roster.ListStudents(ctx, roster.Query{
		LevelID:   f.Level,
		SectionID: f.Section,
		Search:    f.Search,
	})
	if err != nil {
		e.log.Error(ctx, "roster lookup failed", logger.Error(err))
		return nil, err
	}
	return dedupe(students), nil
}

func (e *Engine) query(ctx context.Context, q repository.RecordQuery) ([]model.AttendanceRecord, error) {
	start := time.Now()
	records, err := e.store.Query(ctx, q)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.log.Error(ctx, "record query failed", logger.Error(err))
		}
		return nil, err
	}
	e.log.Debug(ctx, "records resolved",
		logger.Int("count", len(records)),
		logger.Duration("took", time.Since(start)))
	return records, nil
}

func dedupe(students []model.Student) []model.Student {
	seen := make(map[string]struct{}, len(students))
	out := students[:0:0]
	for _, s := range students {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func studentIDs(students []model.Student) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}

func containsLevel(levels []model.Level, id string) bool {
	for _, l := range levels {
		if l.ID == id {
			return true
		}
	}
	return false
}

func containsSection(sections []model.Section, id string) bool {
	for _, s := range sections {
		if s.ID == id {
			return true
		}
	}
	return false
}
