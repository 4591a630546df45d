package usecase

import (
	"time"

	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/service/batch"
	"github.com/starlog-lab/starlog/pkg/service/matcher"
	"github.com/starlog-lab/starlog/pkg/service/notify"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/service/timeline"
	"github.com/starlog-lab/starlog/pkg/utils/retry"
)

const (
	DefaultConcurrency       = 8
	DefaultSummarizerTimeout = 60 * time.Second
)

type settings struct {
	concurrency       int
	summarizerTimeout time.Duration
	retry             retry.Policy
	threshold         int
	batchOpts         []batch.Option
	notifier          interfaces.Notifier
	now               func() time.Time
}

type UseCases struct {
	repo    interfaces.Repository
	batch   *batch.Controller
	store   *timeline.Store
	matcher *matcher.Matcher

	Ingest   *IngestUseCase
	Compact  *CompactUseCase
	Diagnose *DiagnoseUseCase
	Reset    *ResetUseCase
}

type Option func(*settings)

// WithConcurrency bounds the number of articles or figures processed at once
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSummarizerTimeout bounds each summarizer call
func WithSummarizerTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.summarizerTimeout = d
		}
	}
}

// WithRetryPolicy sets how failing summarizer calls are retried
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *settings) {
		s.retry = p
	}
}

// WithCompactionThreshold overrides model.CompactionThreshold
func WithCompactionThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithBatchOptions configures the commit controller
func WithBatchOptions(opts ...batch.Option) Option {
	return func(s *settings) {
		s.batchOpts = append(s.batchOpts, opts...)
	}
}

// WithNotifier sends a summary after every run
func WithNotifier(n interfaces.Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// New wires the use cases on one commit controller so that every write,
// whether from ingestion, compaction or reset, goes through the same queue.
// summarizer may be nil when only diagnostics, reset or dry runs are used.
func New(repo interfaces.Repository, reg *registry.Registry, summarizer interfaces.Summarizer, opts ...Option) *UseCases {
	cfg := &settings{
		concurrency:       DefaultConcurrency,
		summarizerTimeout: DefaultSummarizerTimeout,
		retry:             retry.DefaultPolicy,
		threshold:         model.CompactionThreshold,
		notifier:          notify.Nop{},
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctrl := batch.New(repo.Timeline(), cfg.batchOpts...)
	store := timeline.New(repo.Timeline(), ctrl, timeline.WithClock(cfg.now))

	uc := &UseCases{
		repo:  repo,
		batch: ctrl,
		store: store,
	}
	if reg != nil {
		uc.matcher = matcher.New(reg)
	}

	uc.Ingest = &IngestUseCase{
		repo:       repo,
		registry:   reg,
		matcher:    uc.matcher,
		summarizer: summarizer,
		store:      store,
		cfg:        cfg,
	}
	uc.Compact = &CompactUseCase{
		repo:       repo,
		summarizer: summarizer,
		store:      store,
		cfg:        cfg,
	}
	uc.Diagnose = &DiagnoseUseCase{
		repo: repo,
		cfg:  cfg,
	}
	uc.Reset = &ResetUseCase{
		repo:  repo,
		store: store,
		cfg:   cfg,
	}

	return uc
}

// Store returns the timeline store shared by all use cases
func (uc *UseCases) Store() *timeline.Store {
	return uc.store
}

// Matcher returns the mention matcher, nil without a registry
func (uc *UseCases) Matcher() *matcher.Matcher {
	return uc.matcher
}
