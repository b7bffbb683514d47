package scheduler

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/connstring"
	"github.com/leapstack-labs/ingestiond/internal/dataset"
	"github.com/leapstack-labs/ingestiond/internal/execstore"
	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/pipeline"
)

// ConnectionTemplateLookup resolves a dataset's connectionKey to its raw
// (env-interpolated but not yet vault-resolved) connection template, per
// §6.3's host configuration.
type ConnectionTemplateLookup func(connectionKey string) (string, bool)

// Deps are the Scheduler's collaborators.
type Deps struct {
	Loader       *dataset.Loader
	Resolver     *connstring.Resolver
	ConnTemplate ConnectionTemplateLookup
	Engine       *pipeline.Engine
	Store        *execstore.Store
	Logger       *zap.Logger

	// PollInterval, if positive, additionally polls the dataset directory
	// for hot reload (§4.9); 0 disables polling.
	PollInterval time.Duration
	// Watch enables fsnotify-based low-latency hot reload of the same
	// directory the loader reads.
	Watch bool
}

// Scheduler owns the cron engine and the currently-registered triggers,
// one per enabled dataset (§4.9).
type Scheduler struct {
	deps Deps

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID     // datasetID -> registered entry
	specs   map[string]model.DatasetSpec // datasetID -> spec last scheduled from

	running map[string]*atomic.Bool // datasetID -> at-most-one guard

	activeMu sync.Mutex
	active   map[string]*model.JobExecution // executionID -> in-flight execution

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Scheduler; call Start to load datasets and begin firing.
func New(deps Deps) *Scheduler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Scheduler{
		deps:    deps,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]model.DatasetSpec),
		running: make(map[string]*atomic.Bool),
		active:  make(map[string]*model.JobExecution),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start loads every dataset, registers a trigger for each enabled one,
// and starts the cron loop (§4.9 "On start"). If Watch or PollInterval is
// configured, hot reload also starts.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.reload(); err != nil {
		return err
	}
	s.cron.Start()

	if s.deps.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("%w: starting dataset directory watcher: %v", model.ErrInternal, err)
		}
		if err := watcher.Add(s.deps.Loader.Dir()); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("%w: watching dataset directory: %v", model.ErrInternal, err)
		}
		s.watcher = watcher
		go s.watchLoop(ctx)
	}

	if s.deps.PollInterval > 0 {
		go s.pollLoop(ctx)
	}

	return nil
}

func (s *Scheduler) watchLoop(ctx context.Context) {
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if err := s.reload(); err != nil {
				s.deps.Logger.Warn("dataset hot reload failed", zap.Error(err))
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.deps.Logger.Warn("dataset directory watcher error", zap.Error(err))
		}
	}
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.reload(); err != nil {
				s.deps.Logger.Warn("dataset poll reload failed", zap.Error(err))
			}
		}
	}
}

// reload loads the current dataset files and reconciles the cron
// registration for each: additions are added, removals are unscheduled,
// modifications (spec changed) are rescheduled by deleting then
// re-adding the entry, matching §4.9's "if a job exists under that key,
// delete and reschedule" rule. Active executions of a removed or
// modified dataset are left to finish (their JobExecution and lock are
// independent of the cron registration).
func (s *Scheduler) reload() error {
	specs, err := s.deps.Loader.Load()
	if err != nil {
		return fmt.Errorf("loading dataset specs: %w", err)
	}

	seen := make(map[string]struct{}, len(specs))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range specs {
		seen[spec.ID] = struct{}{}

		prior, existed := s.specs[spec.ID]
		unchanged := existed && reflect.DeepEqual(prior, spec)
		if unchanged {
			continue
		}

		if entryID, ok := s.entries[spec.ID]; ok {
			s.cron.Remove(entryID)
			delete(s.entries, spec.ID)
		}

		if !spec.Enabled {
			s.specs[spec.ID] = spec
			continue
		}

		schedule, err := ParseSchedule(spec.Cron)
		if err != nil {
			s.deps.Logger.Warn("skipping dataset with unparseable cron expression",
				zap.String("dataset_id", spec.ID), zap.Error(err))
			delete(s.specs, spec.ID)
			continue
		}

		datasetID := spec.ID
		entryID := s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(datasetID) }))
		s.entries[spec.ID] = entryID
		s.specs[spec.ID] = spec
		s.deps.Logger.Info("dataset scheduled", zap.String("dataset_id", spec.ID), zap.String("cron", spec.Cron))
	}

	for datasetID, entryID := range s.entries {
		if _, ok := seen[datasetID]; !ok {
			s.cron.Remove(entryID)
			delete(s.entries, datasetID)
			delete(s.specs, datasetID)
			s.deps.Logger.Info("dataset unscheduled", zap.String("dataset_id", datasetID))
		}
	}

	return nil
}

// fire runs one dataset's pipeline for the current trigger, enforcing
// at-most-one concurrent execution per dataset (§4.9). It never lets a
// per-execution failure escape the scheduler.
func (s *Scheduler) fire(datasetID string) {
	s.mu.Lock()
	spec, ok := s.specs[datasetID]
	s.mu.Unlock()
	if !ok {
		return
	}

	guard := s.guardFor(datasetID)
	if !guard.CompareAndSwap(false, true) {
		s.deps.Logger.Warn("skipping fire: dataset execution already in flight",
			zap.String("dataset_id", datasetID))
		return
	}
	defer guard.Store(false)

	startTime := time.Now().UTC()
	executionID := model.NewExecutionID(datasetID, startTime, uuid.NewString()[:8])

	exec := model.NewJobExecution(context.Background(), datasetID, startTime, executionID)
	s.trackActive(exec)
	defer s.untrackActive(executionID)

	if err := s.prepare(exec, spec); err != nil {
		exec.AddError("Extract", "preparing execution inputs failed", err, model.SeverityCritical)
		exec.State = model.StateAborted
		exec.EndTime = time.Now().UTC()
		s.finish(exec)
		return
	}

	s.deps.Engine.Run(exec.Context(), exec, spec)
	exec.EndTime = time.Now().UTC()
	s.finish(exec)
}

// prepare resolves the connection template through C2, reads query text
// (from disk for query-kind sources), and renders the artifact file name,
// storing them on exec for the Extract and Publish stages to read (§4.9
// "On trigger fire").
func (s *Scheduler) prepare(exec *model.JobExecution, spec model.DatasetSpec) error {
	template, ok := s.deps.ConnTemplate(spec.Source.ConnectionKey)
	if !ok {
		return fmt.Errorf("%w: no connection template registered for key %q", model.ErrConfig, spec.Source.ConnectionKey)
	}

	connString, err := s.deps.Resolver.Resolve(exec.Context(), template)
	if err != nil {
		return fmt.Errorf("resolving connection template: %w", err)
	}

	query, err := queryText(spec.Source)
	if err != nil {
		return err
	}

	exec.SetExtractionInput(string(spec.Source.Kind), connString, query, spec.Source.Parameters, spec.Source.CommandTimeoutSec)
	exec.ArtifactFileName = renderFileName(spec.Output.FileNamePattern, exec.StartTime)
	return nil
}

// queryText resolves the text C3 receives as "query" from the source
// spec's extraction kind (§3.1, §4.9).
func queryText(source model.SourceSpec) (string, error) {
	switch source.ExtractionKind {
	case model.ExtractionProcedure:
		return source.Procedure, nil
	case model.ExtractionPackage:
		return source.Package, nil
	case model.ExtractionQuery:
		raw, err := os.ReadFile(source.SqlFile)
		if err != nil {
			return "", fmt.Errorf("%w: reading sql file %q: %v", model.ErrConfig, source.SqlFile, err)
		}
		return strings.TrimSpace(string(raw)), nil
	default:
		return "", fmt.Errorf("%w: unknown extraction kind %q", model.ErrConfig, source.ExtractionKind)
	}
}

func (s *Scheduler) finish(exec *model.JobExecution) {
	logger := s.deps.Logger.With(
		zap.String("dataset_id", exec.DatasetID),
		zap.String("execution_id", exec.ExecutionID),
	)
	logger.Info("execution completed",
		zap.String("state", string(exec.State)),
		zap.Float64("duration_seconds", exec.EndTime.Sub(exec.StartTime).Seconds()),
		zap.Int("error_count", len(exec.Errors)),
		zap.String("published_uri", exec.PublishedURI))

	if s.deps.Store != nil {
		if err := s.deps.Store.RecordTerminal(exec); err != nil {
			logger.Warn("recording execution to execstore failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) guardFor(datasetID string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	guard, ok := s.running[datasetID]
	if !ok {
		guard = &atomic.Bool{}
		s.running[datasetID] = guard
	}
	return guard
}

func (s *Scheduler) trackActive(exec *model.JobExecution) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.active[exec.ExecutionID] = exec
}

func (s *Scheduler) untrackActive(executionID string) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	delete(s.active, executionID)
}

// Specs returns a snapshot of every currently loaded dataset spec
// (enabled or not), for the operator diagnostics endpoint.
func (s *Scheduler) Specs() []model.DatasetSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.DatasetSpec, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, spec)
	}
	return out
}

// Stop cancels every active execution, waits up to gracePeriod for the
// cron engine's in-flight jobs to finish, then returns regardless (§4.9
// "On stop").
func (s *Scheduler) Stop(gracePeriod time.Duration) {
	close(s.stopCh)
	if s.watcher != nil {
		_ = s.watcher.Close()
	}

	s.activeMu.Lock()
	for _, exec := range s.active {
		exec.Cancel()
	}
	s.activeMu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(gracePeriod):
		s.deps.Logger.Warn("scheduler stop grace period elapsed; force-exiting", zap.Duration("grace_period", gracePeriod))
	}
}
