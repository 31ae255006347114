// Package stream consumes the fragment sequence of a request and reduces it
// into display state and latency figures.
//
// Only one session is live at a time. Beginning a new session supersedes the
// previous one: its context is cancelled and every later call carrying its
// id is rejected with ErrSuperseded before any state is touched.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gregiteen/ai-devices/internal/display"
	"github.com/gregiteen/ai-devices/internal/fragment"
	"github.com/gregiteen/ai-devices/internal/latency"
	"github.com/gregiteen/ai-devices/internal/metrics"
)

var (
	// ErrStreamAborted wraps an abnormal end of the fragment sequence.
	ErrStreamAborted = errors.New("stream aborted")
	// ErrSuperseded is returned for calls on a session that is no longer live.
	ErrSuperseded = errors.New("session superseded")
	// ErrSessionDone is returned when fragments arrive after completion.
	ErrSessionDone = errors.New("session already completed")
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateSubmitted
	StateStreaming
	StateCompleted
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateSuperseded:
		return "superseded"
	}
	return "idle"
}

// Source yields fragments in arrival order. Next returns io.EOF after the
// last fragment; any other error is an abnormal end.
type Source interface {
	Next(ctx context.Context) (fragment.Raw, error)
}

// Player starts audio playback. Play is called with the reducer lock held
// and must not block.
type Player interface {
	Play(locator string)
}

// Completion describes a finished session.
type Completion struct {
	SessionID string
	StartedAt time.Time
	Report    latency.Report
	// Recorded lists the stages that were actually observed.
	Recorded []latency.Stage
	// View is the display state at completion.
	View display.View
	// Err is non-nil and wraps ErrStreamAborted when the stream ended abnormally.
	Err error
}

// Aborted reports whether the stream ended abnormally.
func (c Completion) Aborted() bool { return c.Err != nil }

// Snapshot is a read-only copy of the live session.
type Snapshot struct {
	SessionID string
	State     State
	View      display.View
	// Latency holds stage durations so far; Total is set once completed.
	Latency  latency.Report
	Recorded []latency.Stage
	Err      error
}

type session struct {
	id      string
	state   State
	tracker *latency.Tracker
	display display.State
	cancel  context.CancelFunc
	done    *Completion
}

// Reducer owns the live session.
type Reducer struct {
	mu         sync.Mutex
	live       *session
	now        func() time.Time
	deadline   time.Duration
	player     Player
	logger     *zap.Logger
	metrics    *metrics.Collector
	onComplete []func(Completion)
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reducer) { r.now = now }
}

// WithDeadline bounds every session. Zero means no deadline.
func WithDeadline(d time.Duration) Option {
	return func(r *Reducer) { r.deadline = d }
}

// WithPlayer sets the audio playback collaborator.
func WithPlayer(p Player) Option {
	return func(r *Reducer) { r.player = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reducer) { r.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Reducer) { r.metrics = m }
}

// OnComplete registers a callback for every completed session. Callbacks run
// after the reducer lock is released.
func OnComplete(fn func(Completion)) Option {
	return func(r *Reducer) { r.onComplete = append(r.onComplete, fn) }
}

// NewReducer creates an idle reducer.
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "stream"))
	return r
}

// Begin starts a new session and supersedes any previous one. The returned
// context is cancelled when the session is superseded, completes, or hits
// the configured deadline.
func (r *Reducer) Begin(parent context.Context) (string, context.Context) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.deadline > 0 {
		ctx, cancel = context.WithTimeout(parent, r.deadline)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	s := &session{
		id:     uuid.NewString(),
		state:  StateSubmitted,
		cancel: cancel,
	}

	r.mu.Lock()
	prev := r.live
	superseded := prev != nil && (prev.state == StateSubmitted || prev.state == StateStreaming)
	if superseded {
		prev.state = StateSuperseded
	}
	s.tracker = latency.NewTracker(r.now())
	r.live = s
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	if superseded {
		r.metrics.RecordSession(metrics.OutcomeSuperseded, latency.Report{}, nil)
		r.logger.Debug("session superseded", zap.String("session", prev.id))
	}
	r.logger.Debug("session submitted", zap.String("session", s.id))
	return s.id, ctx
}

// Attach moves a submitted session to streaming once the stream handle exists.
func (r *Reducer) Attach(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	if s.state == StateSubmitted {
		s.state = StateStreaming
	}
	return nil
}

// Apply reduces one fragment into the live session. Malformed channels are
// logged and dropped; they never fail the call.
func (r *Reducer) Apply(id string, raw fragment.Raw) error {
	c := fragment.Classify(raw)

	r.mu.Lock()
	s, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if s.state == StateCompleted {
		r.mu.Unlock()
		return ErrSessionDone
	}
	s.state = StateStreaming

	now := r.now()
	for _, u := range c.Updates {
		switch u.Channel {
		case fragment.RateLimit:
			s.display.SetMessage(u.Text, 0)
		case fragment.Time:
			s.display.SetTime(u.Text)
		case fragment.Transcription:
			s.display.Transcription = u.Text
			s.tracker.MarkTranscription(now)
		case fragment.Weather:
			s.display.SetWeather(u.Weather)
		case fragment.Result:
			elapsed := s.tracker.MarkResult(now)
			s.display.SetMessage(u.Text, elapsed)
		case fragment.Audio:
			s.tracker.MarkAudio(now)
			if r.player != nil {
				r.player.Play(u.Text)
			}
		case fragment.MusicTrack:
			s.display.MusicTrackID = u.Text
		}
		r.metrics.RecordChannel(u.Channel.String())
	}
	r.mu.Unlock()

	for _, e := range c.Errs {
		var chErr *fragment.ChannelError
		if errors.As(e, &chErr) {
			r.metrics.RecordMalformed(chErr.Channel.String())
		}
		r.logger.Warn("dropping malformed channel", zap.String("session", id), zap.Error(e))
	}
	return nil
}

// Finish completes the session. A nil or io.EOF cause is a normal end; any
// other cause is recorded as ErrStreamAborted. Accumulated state is kept.
// Finishing an already completed session returns the first completion.
func (r *Reducer) Finish(id string, cause error) (Completion, error) {
	r.mu.Lock()
	s, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return Completion{}, err
	}
	if s.done != nil {
		done := *s.done
		r.mu.Unlock()
		return done, nil
	}

	s.state = StateCompleted
	comp := Completion{
		SessionID: s.id,
		StartedAt: s.tracker.Start(),
		Report:    s.tracker.Complete(),
		View:      s.display.Project(),
	}
	for _, st := range latency.Stages {
		if s.tracker.Recorded(st) {
			comp.Recorded = append(comp.Recorded, st)
		}
	}
	if cause != nil && !errors.Is(cause, io.EOF) {
		comp.Err = fmt.Errorf("%w: %w", ErrStreamAborted, cause)
	}
	s.done = &comp
	s.cancel()
	tracker := s.tracker
	r.mu.Unlock()

	outcome := metrics.OutcomeCompleted
	if comp.Aborted() {
		outcome = metrics.OutcomeAborted
		r.logger.Warn("stream ended abnormally", zap.String("session", id), zap.Error(cause))
	}
	r.metrics.RecordSession(outcome, comp.Report, tracker.Recorded)
	for _, fn := range r.onComplete {
		fn(comp)
	}
	return comp, nil
}

// Run consumes src until it ends, the session is superseded, or ctx is done.
// It returns ErrSuperseded without completing when a newer session took over.
func (r *Reducer) Run(ctx context.Context, id string, src Source) (Completion, error) {
	if err := r.Attach(id); err != nil {
		return Completion{}, err
	}
	for {
		raw, err := src.Next(ctx)
		if err != nil {
			return r.Finish(id, err)
		}
		if err := r.Apply(id, raw); err != nil {
			if errors.Is(err, ErrSessionDone) {
				return r.Finish(id, nil)
			}
			return Completion{}, err
		}
	}
}

// Do runs a whole request: begin a session, open the stream, reduce it to
// completion. Opening failures complete the session as aborted.
func (r *Reducer) Do(ctx context.Context, open func(ctx context.Context) (Source, error)) (Completion, error) {
	id, sctx := r.Begin(ctx)
	src, err := open(sctx)
	if err != nil {
		return r.Finish(id, fmt.Errorf("open stream: %w", err))
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	return r.Run(sctx, id, src)
}

// Live returns the id of the live session, or "".
func (r *Reducer) Live() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		return ""
	}
	return r.live.id
}

// Snapshot returns the live session's state.
func (r *Reducer) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.live
	if s == nil {
		return Snapshot{State: StateIdle}
	}
	snap := Snapshot{
		SessionID: s.id,
		State:     s.state,
		View:      s.display.Project(),
		Latency:   s.tracker.Snapshot(),
	}
	for _, st := range latency.Stages {
		if s.tracker.Recorded(st) {
			snap.Recorded = append(snap.Recorded, st)
		}
	}
	if s.done != nil {
		snap.Latency = s.done.Report
		snap.Err = s.done.Err
	}
	return snap
}

// lookup returns the live session if id names it. Callers hold r.mu.
func (r *Reducer) lookup(id string) (*session, error) {
	if r.live == nil || r.live.id != id {
		return nil, ErrSuperseded
	}
	return r.live, nil
}
