// Package summary generates weekly digest notes from the previous week's notes.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jclarke67/voice-canvas-scribe/internal/metrics"
	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

// FolderName is the folder that receives generated summaries.
const FolderName = "Auto Note Summaries"

// DefaultInterval is the cadence of periodic checks.
const DefaultInterval = 24 * time.Hour

var (
	errMissingRepository = errors.New("note repository is required")
	errMissingSettings   = errors.New("settings store is required")
)

// State reports whether a summarization pass is running.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// NoteRepository is the subset of the note repository used to read notes and write summaries.
type NoteRepository interface {
	Notes() []notes.Note
	FolderByName(name string) (notes.Folder, bool)
	CreateFolder(ctx context.Context, name string) (notes.Folder, error)
	CreateNote(ctx context.Context, folderID string) (notes.Note, error)
	UpdateNote(ctx context.Context, note notes.Note) (notes.Note, error)
	DeleteNote(ctx context.Context, id string) error
	Changes() <-chan struct{}
}

// Result describes the outcome of one pass.
type Result struct {
	WeekID         string      `json:"weekId"`
	PreviousWeekID string      `json:"previousWeekId,omitempty"`
	Skipped        string      `json:"skipped,omitempty"`
	SourceCount    int         `json:"sourceCount"`
	Summary        *notes.Note `json:"summary,omitempty"`
}

// Reasons reported in Result.Skipped.
const (
	SkipDisabled      = "disabled"
	SkipAlreadyRun    = "already_processed"
	SkipNoSourceNotes = "no_source_notes"
	SkipExists        = "summary_exists"
)

// SchedulerConfig wires the collaborators of a Scheduler.
type SchedulerConfig struct {
	Repository NoteRepository
	Settings   *SettingsStore
	Clock      func() time.Time
	Location   *time.Location
	Interval   time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Registry
}

// Scheduler runs summarization passes at start, on an interval and after repository changes.
type Scheduler struct {
	repository NoteRepository
	settings   *SettingsStore
	clock      func() time.Time
	location   *time.Location
	interval   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Registry

	passMu sync.Mutex
	state  atomic.Value

	lifecycleMu sync.Mutex
	stop        chan struct{}
	done        chan struct{}
}

// NewScheduler validates cfg and applies defaults.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}
	if cfg.Settings == nil {
		return nil, errMissingSettings
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		repository: cfg.Repository,
		settings:   cfg.Settings,
		clock:      clock,
		location:   location,
		interval:   interval,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
	s.state.Store(StateIdle)
	return s, nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

// Start runs a first check and then keeps checking until ctx is done or Stop is called.
// Calling Start on a running scheduler has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.done != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stop, s.done)
}

// Stop ends the loop started by Start and waits for it to exit.
func (s *Scheduler) Stop() {
	s.lifecycleMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.lifecycleMu.Unlock()
	if done == nil {
		return
	}
	close(stop)
	<-done
}

// Run blocks running the loop until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.checkAndLog(ctx)
		case <-s.repository.Changes():
			s.checkAndLog(ctx)
		}
	}
}

func (s *Scheduler) checkAndLog(ctx context.Context) {
	result, err := s.Check(ctx)
	if err != nil {
		s.logger.Error("weekly summary check failed", zap.Error(err))
		return
	}
	if result.Summary != nil {
		s.logger.Info("weekly summary created",
			zap.String("week_id", result.PreviousWeekID),
			zap.Int("source_notes", result.SourceCount),
			zap.String("note_id", result.Summary.ID))
	}
}

// Check runs a pass unless summarization is disabled or the current week was already processed.
func (s *Scheduler) Check(ctx context.Context) (Result, error) {
	return s.pass(ctx, false)
}

// RunNow runs a pass regardless of the enabled flag and the last processed week.
func (s *Scheduler) RunNow(ctx context.Context) (Result, error) {
	return s.pass(ctx, true)
}

// Settings returns the persisted scheduler settings.
func (s *Scheduler) Settings(ctx context.Context) (Settings, error) {
	return s.settings.Load(ctx)
}

// SetEnabled toggles automatic summarization.
func (s *Scheduler) SetEnabled(ctx context.Context, enabled bool) (Settings, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	settings.Enabled = enabled
	if err := s.settings.Save(ctx, settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Scheduler) pass(ctx context.Context, forced bool) (Result, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	s.state.Store(StateProcessing)
	defer s.state.Store(StateIdle)

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("summary: load settings: %w", err)
	}
	currentWeek := WeekID(s.clock().In(s.location))
	result := Result{WeekID: currentWeek}

	if !forced {
		if !settings.Enabled {
			result.Skipped = SkipDisabled
			return result, nil
		}
		if settings.LastProcessedWeek == currentWeek {
			result.Skipped = SkipAlreadyRun
			return result, nil
		}
	}

	if err := s.summarize(ctx, &result); err != nil {
		return result, err
	}

	settings.LastProcessedWeek = currentWeek
	if err := s.settings.Save(ctx, settings); err != nil {
		return result, fmt.Errorf("summary: save settings: %w", err)
	}
	return result, nil
}

func (s *Scheduler) summarize(ctx context.Context, result *Result) error {
	previousWeek, err := PreviousWeekID(result.WeekID)
	if err != nil {
		return err
	}
	result.PreviousWeekID = previousWeek

	all := s.repository.Notes()
	var sources []notes.Note
	for _, note := range all {
		if IsSummaryTitle(note.Title) {
			if covered, ok := WeekIDFromTitle(note.Title); ok && covered == previousWeek {
				result.Skipped = SkipExists
				return nil
			}
			continue
		}
		if WeekID(time.UnixMilli(note.CreatedAtMillis).In(s.location)) == previousWeek {
			sources = append(sources, note)
		}
	}
	result.SourceCount = len(sources)
	if len(sources) == 0 {
		result.Skipped = SkipNoSourceNotes
		return nil
	}

	title, err := Title(previousWeek)
	if err != nil {
		return err
	}
	folder, ok := s.repository.FolderByName(FolderName)
	if !ok {
		folder, err = s.repository.CreateFolder(ctx, FolderName)
		if err != nil {
			return fmt.Errorf("summary: create folder: %w", err)
		}
	}
	created, err := s.repository.CreateNote(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("summary: create note: %w", err)
	}
	created.Title = title
	created.Pages[0].Content = Digest(sources, s.location)
	updated, err := s.repository.UpdateNote(ctx, created)
	if err != nil {
		// A failed pass leaves no empty summary note behind.
		if removeErr := s.repository.DeleteNote(ctx, created.ID); removeErr != nil {
			s.logger.Warn("failed to remove unwritten summary note",
				zap.String("note_id", created.ID), zap.Error(removeErr))
		}
		return fmt.Errorf("summary: write note: %w", err)
	}

	s.metrics.SummaryCreated()
	result.Summary = &updated
	return nil
}
