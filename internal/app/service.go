// Package service provides the attendance service that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/adapters/repository/gormstore"
	"github.com/okian/rollcall/internal/adapters/roster"
	"github.com/okian/rollcall/internal/domain/bulk"
	"github.com/okian/rollcall/internal/domain/filter"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/stats"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
	"gorm.io/gorm"
)

// Store and roster selectors.
const (
	DriverMemory   = "memory"
	RosterSeed     = "seed"
	RosterDatabase = "database"
)

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for attendance tracking.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	roster roster.Provider
	engine *filter.Engine
	writer *bulk.Writer
	agg    *stats.Aggregator
	db     *gorm.DB

	// set when Start opened the component rather than an option
	ownsStore  bool
	ownsRoster bool

	// Configuration
	storeDriver    string
	storeDSN       string
	batchSize      int
	rosterSource   string
	rosterSeedFile string
	checkIn        types.TimeOfDay
	template       bulk.Template
	weights        stats.Weights
	today          func() types.Date

	// State
	started   bool
	startedAt time.Time
	bulkOps   atomic.Int64
	written   atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready store; Start will not open one.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRoster injects a ready roster provider.
func WithRoster(p roster.Provider) Option {
	return func(s *Service) { s.roster = p }
}

// WithStoreDriver selects memory, sqlite or postgres and its DSN.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
			s.storeDSN = dsn
		}
	}
}

// WithBatchSize sets the SQL store commit chunk size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRosterSource selects seed or database and the seed file path.
func WithRosterSource(source, seedFile string) Option {
	return func(s *Service) {
		if source != "" {
			s.rosterSource = source
		}
		s.rosterSeedFile = seedFile
	}
}

// WithCheckInTime sets the check-in time stamped by bulk present marks.
func WithCheckInTime(t types.TimeOfDay) Option {
	return func(s *Service) { s.checkIn = t }
}

// WithNoteTemplate sets the bulk note template.
func WithNoteTemplate(t bulk.Template) Option {
	return func(s *Service) {
		if !t.IsZero() {
			s.template = t
		}
	}
}

// WithWeights sets the average attendance weighting.
func WithWeights(w stats.Weights) Option {
	return func(s *Service) {
		if len(w) > 0 {
			s.weights = w
		}
	}
}

// WithToday overrides the clock used for default ranges and today's listing.
func WithToday(today func() types.Date) Option {
	return func(s *Service) {
		if today != nil {
			s.today = today
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:  DriverMemory,
		batchSize:    gormstore.DefaultBatchSize,
		rosterSource: RosterSeed,
		checkIn:      bulk.DefaultCheckInTime,
		template:     bulk.DefaultTemplate,
		weights:      stats.PresentOnly,
		today:        types.Today,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and roster and builds the domain components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting attendance service...")

	if err := s.openStore(ctx); err != nil {
		return err
	}
	if err := s.openRoster(ctx); err != nil {
		s.release(ctx)
		return err
	}

	s.engine = filter.NewEngine(s.store, s.roster, filter.WithLogger(s.logger.Named("filter")))
	s.writer = bulk.NewWriter(s.store,
		bulk.WithCheckInTime(s.checkIn),
		bulk.WithTemplate(s.template),
		bulk.WithLogger(s.logger.Named("bulk")),
	)
	s.agg = stats.NewAggregator(stats.WithWeights(s.weights))

	s.started = true
	s.startedAt = time.Now()
	metrics.UpdateRepositoryRecordsTotal(s.store.Count(ctx))
	s.logger.Info(ctx, "attendance service started",
		logger.String("store", s.storeDriver),
		logger.String("roster", s.rosterSource),
		logger.String("check_in", s.checkIn.String()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		return nil
	}
	if s.storeDriver == DriverMemory {
		s.store = repository.NewMemStore()
		s.ownsStore = true
		return nil
	}

	db, err := gormstore.Open(s.storeDriver, s.storeDSN)
	if err != nil {
		return err
	}
	chunkLog := s.logger.Named("store")
	store, err := gormstore.New(ctx, db,
		gormstore.WithBatchSize(s.batchSize),
		gormstore.WithChunkCallback(func(written int) {
			chunkLog.Debug(ctx, "chunk committed", logger.Int("written", written))
		}),
	)
	if err != nil {
		return err
	}
	s.db = db
	s.store = store
	s.ownsStore = true
	return nil
}

func (s *Service) openRoster(ctx context.Context) error {
	if s.roster != nil {
		return nil
	}
	switch s.rosterSource {
	case RosterSeed:
		if s.rosterSeedFile == "" {
			s.logger.Warn(ctx, "no roster seed file configured; roster is empty")
			s.roster = roster.NewSeedProvider(roster.Roster{})
			s.ownsRoster = true
			return nil
		}
		p, err := roster.LoadSeedFile(s.rosterSeedFile)
		if err != nil {
			return err
		}
		s.roster = p
		s.ownsRoster = true
	case RosterDatabase:
		if s.db == nil {
			return fmt.Errorf("%w: database roster needs a SQL store", roster.ErrUnknownSource)
		}
		p := roster.NewSQLProvider(s.db)
		if err := p.Migrate(ctx); err != nil {
			return err
		}
		s.roster = p
		s.ownsRoster = true
	default:
		return fmt.Errorf("%w: %q", roster.ErrUnknownSource, s.rosterSource)
	}
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping attendance service...")
	s.release(context.Background())
	s.started = false
	s.logger.Info(context.Background(), "attendance service stopped")
}

// release closes the store and drops the components Start opened, so the
// next Start opens fresh ones. Components passed as options are kept.
func (s *Service) release(ctx context.Context) {
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}
	if s.ownsStore {
		s.store, s.db, s.ownsStore = nil, nil, false
	}
	if s.ownsRoster {
		s.roster, s.ownsRoster = nil, false
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ListAttendance returns records matching f, enriched with roster data.
// Without dates the current week is used.
func (s *Service) ListAttendance(ctx context.Context, f filter.Filter) ([]model.RecordView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	records, err := s.engine.ResolveRecords(ctx, f.WithDefaultRange(s.today()))
	if err != nil {
		return nil, err
	}
	return s.views(ctx, records)
}

// Statistics summarises the records of the cohort matching f.
func (s *Service) Statistics(ctx context.Context, f filter.Filter) (stats.Summary, error) {
	if err := s.ready(); err != nil {
		return stats.Summary{}, err
	}
	res, err := s.engine.Resolve(ctx, f.WithDefaultRange(s.today()))
	if err != nil {
		return stats.Summary{}, err
	}
	metrics.UpdateCohortSize(len(res.Cohort))
	return s.agg.Summarize(res.Records, len(res.Cohort)), nil
}

// BulkMark resolves the cohort from the request filters and marks it.
func (s *Service) BulkMark(ctx context.Context, req bulk.Request) (model.BulkResult, error) {
	if err := s.ready(); err != nil {
		return model.BulkResult{}, err
	}
	cohort, err := s.engine.ResolveCohort(ctx, filter.Filter{
		Level:   req.Level,
		Section: req.Section,
		Search:  req.Search,
	})
	if err != nil {
		return model.BulkResult{}, err
	}
	metrics.UpdateCohortSize(len(cohort))

	res, err := s.writer.Mark(ctx, req.Date, cohort, req.Status, bulk.Template{})
	s.countBulk(res)
	return res, err
}

// BulkWrite applies explicit per-student entries for one date. Entries for
// students missing from the roster fail individually.
func (s *Service) BulkWrite(ctx context.Context, date types.Date, entries []bulk.Entry) (model.BulkResult, error) {
	if err := s.ready(); err != nil {
		return model.BulkResult{}, err
	}
	if date.IsZero() {
		return model.BulkResult{}, bulk.ErrInvalidDate
	}
	if len(entries) == 0 {
		return model.BulkResult{}, bulk.ErrEmptyCohort
	}

	known, err := s.studentIndex(ctx)
	if err != nil {
		return model.BulkResult{}, err
	}
	valid := make([]bulk.Entry, 0, len(entries))
	var unknown []model.BulkFailure
	for _, e := range entries {
		if _, ok := known[e.StudentID]; !ok {
			unknown = append(unknown, model.BulkFailure{StudentID: e.StudentID, Reason: "unknown student"})
			continue
		}
		valid = append(valid, e)
	}

	res := model.BulkResult{Date: date, Succeeded: []string{}}
	if len(valid) > 0 {
		res, err = s.writer.WriteEntries(ctx, date, valid)
		var writeErr *bulk.WriteError
		if err != nil && !errors.As(err, &writeErr) {
			return model.BulkResult{}, err
		}
	}
	res.Failed = append(res.Failed, unknown...)
	s.countBulk(res)

	if res.Partial() {
		return res, &bulk.WriteError{Result: res}
	}
	return res, nil
}

func (s *Service) countBulk(res model.BulkResult) {
	if len(res.Succeeded) == 0 && len(res.Failed) == 0 {
		return
	}
	s.bulkOps.Add(1)
	s.written.Add(int64(len(res.Succeeded)))
}

// CreateRecord upserts one record by its natural key.
func (s *Service) CreateRecord(ctx context.Context, rec model.AttendanceRecord) (model.RecordView, error) {
	if err := s.ready(); err != nil {
		return model.RecordView{}, err
	}
	known, err := s.studentIndex(ctx)
	if err != nil {
		return model.RecordView{}, err
	}
	if _, ok := known[rec.StudentID]; !ok {
		return model.RecordView{}, &filter.ReferenceError{Field: "student", Value: rec.StudentID}
	}
	out, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return model.RecordView{}, err
	}
	s.written.Add(1)
	return view(out, known), nil
}

// GetRecord returns one record by ID.
func (s *Service) GetRecord(ctx context.Context, id string) (model.RecordView, error) {
	if err := s.ready(); err != nil {
		return model.RecordView{}, err
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.RecordView{}, err
	}
	return s.view(ctx, rec)
}

// UpdateRecord changes status, times and notes of a record. The date and
// student cannot change.
func (s *Service) UpdateRecord(ctx context.Context, rec model.AttendanceRecord) (model.RecordView, error) {
	if err := s.ready(); err != nil {
		return model.RecordView{}, err
	}
	out, err := s.store.Update(ctx, rec)
	if err != nil {
		return model.RecordView{}, err
	}
	return s.view(ctx, out)
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Today lists records dated today.
func (s *Service) Today(ctx context.Context) ([]model.RecordView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	today := s.today()
	records, err := s.store.Query(ctx, repository.RecordQuery{From: today, To: today})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, records)
}

// ByStudent lists every record of one student.
func (s *Service) ByStudent(ctx context.Context, studentID string) ([]model.RecordView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	records, err := s.store.Query(ctx, repository.RecordQuery{StudentIDs: []string{studentID}})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, records)
}

// ListStudents passes through to the roster.
func (s *Service) ListStudents(ctx context.Context, q roster.Query) ([]model.Student, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.roster.ListStudents(ctx, q)
}

// ListLevels passes through to the roster.
func (s *Service) ListLevels(ctx context.Context) ([]model.Level, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.roster.ListLevels(ctx)
}

// ListSections passes through to the roster.
func (s *Service) ListSections(ctx context.Context) ([]model.Section, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.roster.ListSections(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]interface{}{
		"started":        s.started,
		"storeDriver":    s.storeDriver,
		"rosterSource":   s.rosterSource,
		"bulkOps":        s.bulkOps.Load(),
		"recordsWritten": s.written.Load(),
	}
	if s.started {
		total := s.store.Count(context.Background())
		out["totalRecords"] = total
		out["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		metrics.UpdateRepositoryRecordsTotal(total)
	}
	return out
}

func (s *Service) studentIndex(ctx context.Context) (map[string]model.Student, error) {
	students, err := s.roster.ListStudents(ctx, roster.Query{})
	if err != nil {
		return nil, err
	}
	idx := make(map[string]model.Student, len(students))
	for _, st := range students {
		idx[st.ID] = st
	}
	return idx, nil
}

func (s *Service) views(ctx context.Context, records []model.AttendanceRecord) ([]model.RecordView, error) {
	idx, err := s.studentIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.RecordView, len(records))
	for i, rec := range records {
		out[i] = view(rec, idx)
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, rec model.AttendanceRecord) (model.RecordView, error) {
	idx, err := s.studentIndex(ctx)
	if err != nil {
		return model.RecordView{}, err
	}
	return view(rec, idx), nil
}

func view(rec model.AttendanceRecord, idx map[string]model.Student) model.RecordView {
	v := model.RecordView{AttendanceRecord: rec}
	if st, ok := idx[rec.StudentID]; ok {
		v.StudentName = st.Name
		v.StudentNumber = st.StudentNumber
		v.LevelID = st.LevelID
		v.SectionID = st.SectionID
	}
	return v
}
