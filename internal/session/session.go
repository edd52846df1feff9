// Package session owns one dataset at a time and serializes the operations
// run against it. It is the single writer the engines assume: callers that
// race an in-flight operation get ErrBusy instead of interleaved writes.
package session

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/KaramelBytes/datamend-cli/internal/config"
	"github.com/KaramelBytes/datamend-cli/internal/correction"
	"github.com/KaramelBytes/datamend-cli/internal/dataset"
	"github.com/KaramelBytes/datamend-cli/internal/status"
	"github.com/KaramelBytes/datamend-cli/internal/validation"
)

// ErrBusy is returned when an operation is requested while another is in
// flight against the same session.
var ErrBusy = errors.New("another operation is in progress")

// ErrNoDataset is returned when an operation needs a dataset and none has
// been imported.
var ErrNoDataset = errors.New("no dataset loaded")

// Session wires the stores and engines together for one dataset lifecycle.
type Session struct {
	log   *zap.Logger
	cfg   *config.Global
	lists *validation.ListStore
	rules *correction.Table

	validator *validation.Engine
	corrector *correction.Engine

	ds   *dataset.Dataset
	busy atomic.Bool
}

// New creates a session around the given stores. The config value is
// captured once; there is no ambient global state underneath.
func New(cfg *config.Global, lists *validation.ListStore, rules *correction.Table, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	validator := validation.NewEngine(log)
	return &Session{
		log:       log,
		cfg:       cfg,
		lists:     lists,
		rules:     rules,
		validator: validator,
		corrector: correction.NewEngine(log, validator),
	}
}

// Dataset returns the current dataset, or nil before import.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// Rules returns the session's rule table.
func (s *Session) Rules() *correction.Table { return s.rules }

// Lists returns the session's validation list store.
func (s *Session) Lists() *validation.ListStore { return s.lists }

// ValidationOptions translates the captured config into the explicit
// per-call options the engines take.
func (s *Session) ValidationOptions() validation.Options {
	strategy, err := validation.ParseStrategy(s.cfg.MatchStrategy)
	if err != nil {
		s.log.Warn("invalid match strategy in config, using exact", zap.Error(err))
		strategy = validation.StrategyExact
	}
	perColumn := make(map[string]validation.Strategy, len(s.cfg.ColumnStrategies))
	for col, raw := range s.cfg.ColumnStrategies {
		st, err := validation.ParseStrategy(raw)
		if err != nil {
			s.log.Warn("invalid column strategy in config, ignoring",
				zap.String("column", col), zap.Error(err))
			continue
		}
		perColumn[col] = st
	}
	return validation.Options{
		Bindings:       s.cfg.Columns,
		Strategy:       strategy,
		PerColumn:      perColumn,
		FuzzyThreshold: s.cfg.FuzzyThreshold,
	}
}

// CorrectionOptions translates the captured config into correction options.
func (s *Session) CorrectionOptions() correction.Options {
	return correction.Options{
		OnlyInvalid:   s.cfg.OnlyInvalid,
		Recursive:     s.cfg.Recursive,
		MaxIterations: s.cfg.MaxIterations,
		Validation:    s.ValidationOptions(),
	}
}

// ImportDataset replaces the session's dataset and, per config, runs the
// auto validate/correct pipeline. Returns the status delta of whatever ran.
func (s *Session) ImportDataset(ctx context.Context, ds *dataset.Dataset) (dataset.Delta, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	s.ds = ds
	if !s.cfg.AutoValidateOnImport && !s.cfg.AutoCorrectOnImport {
		return nil, nil
	}
	delta, err := s.validateLocked()
	if err != nil {
		return delta, err
	}
	if s.cfg.AutoCorrectOnImport {
		if _, err := s.applyLocked(ctx, s.CorrectionOptions()); err != nil {
			return delta, err
		}
	}
	return delta, nil
}

// Validate runs a full validation plus correctability check. Returns the
// changed cells and the derived summary.
func (s *Session) Validate(ctx context.Context) (dataset.Delta, status.Summary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, status.Summary{}, ErrBusy
	}
	defer s.busy.Store(false)
	if s.ds == nil {
		return nil, status.Summary{}, ErrNoDataset
	}

	delta, err := s.validateLocked()
	if err != nil {
		return delta, status.Summary{}, err
	}
	if s.cfg.AutoCorrectOnValidation {
		if _, err := s.applyLocked(ctx, s.CorrectionOptions()); err != nil {
			return delta, status.Summary{}, err
		}
	}
	return delta, s.Summary(), nil
}

// ApplyCorrections runs the correction engine with the given options,
// then re-checks correctability so remaining invalid cells keep an accurate
// CORRECTABLE marking.
func (s *Session) ApplyCorrections(ctx context.Context, opts correction.Options) (correction.Stats, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return correction.Stats{}, ErrBusy
	}
	defer s.busy.Store(false)
	if s.ds == nil {
		return correction.Stats{}, ErrNoDataset
	}
	return s.applyLocked(ctx, opts)
}

// Summary recomputes the aggregate counters. Read-only, derived on demand.
func (s *Session) Summary() status.Summary {
	if s.ds == nil {
		return status.Summary{}
	}
	return status.Summarize(s.ds, s.cfg.Columns)
}

func (s *Session) validateLocked() (dataset.Delta, error) {
	delta, err := s.validator.Validate(s.ds, s.lists, s.ValidationOptions())
	if err != nil {
		return delta, err
	}
	ccDelta := s.corrector.CheckCorrectable(s.ds, s.rules, correction.Options{Validation: s.ValidationOptions()})
	return append(delta, ccDelta...), nil
}

func (s *Session) applyLocked(ctx context.Context, opts correction.Options) (correction.Stats, error) {
	stats, err := s.corrector.Apply(ctx, s.ds, s.rules, s.lists, opts)
	if err != nil {
		return stats, err
	}
	s.corrector.CheckCorrectable(s.ds, s.rules, opts)
	return stats, nil
}
