// Package tracker implements the peertrack UDP tracker: a per-client state
// machine that pages the file catalog and the seeders of a file to discovery
// clients, and records seeders announced by registration clients.
package tracker

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/session"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/internal/telemetry"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
)

// Engine turns request datagrams into response datagrams.
//
// Handle and Sweep are called from a single goroutine. The session store and
// the directory may be read concurrently by other goroutines.
type Engine struct {
	cfg      Config
	sessions *session.Store
	dir      directory.Directory
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	now        func() time.Time
	registerer prometheus.Registerer
}

// WithClock replaces time.Now, for tests that drive idle expiry.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithMetrics registers tracker and session metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *engineOptions) { o.registerer = reg }
}

// NewEngine validates cfg and creates an engine serving dir.
func NewEngine(cfg Config, dir directory.Directory, opts ...Option) (*Engine, error) {
	if dir == nil {
		return nil, errors.New("tracker: directory is required")
	}

	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}

	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		m  *Metrics
		sm *session.Metrics
	)
	if o.registerer != nil {
		m = NewMetrics(o.registerer)
		sm = session.NewMetrics(o.registerer)
	}

	return &Engine{
		cfg:      cfg,
		sessions: session.NewStore(sm),
		dir:      dir,
		metrics:  m,
		now:      o.now,
	}, nil
}

// Config returns the normalized configuration, with derived chunk limits.
func (e *Engine) Config() Config { return e.cfg }

// Sessions returns the session store.
func (e *Engine) Sessions() *session.Store { return e.sessions }

// Directory returns the directory the engine serves.
func (e *Engine) Directory() directory.Directory { return e.dir }

// Handle processes one request datagram from addr.
//
// It returns the response datagram, or nil with a nil error when the request
// ends the session. Any error means the datagram is dropped: the sender's
// session is left as it was, and a session the request itself created is
// discarded.
func (e *Engine) Handle(ctx context.Context, addr netip.AddrPort, datagram []byte) ([]byte, error) {
	start := time.Now()

	req, err := wire.DecodeRequest(datagram)
	if err != nil {
		e.metrics.recordDrop(DropMalformed)
		return nil, err
	}
	proc := DispatchTable[req.Type]

	ctx, span := telemetry.StartRequestSpan(ctx, proc.Name, addr, telemetry.DatagramSize(len(datagram)))
	defer span.End()

	lc := logger.NewLogContext(addr.String()).WithMessage(proc.Name)
	if sc := span.SpanContext(); sc.IsValid() {
		lc = lc.WithTrace(sc.TraceID().String(), sc.SpanID().String())
	}
	ctx = logger.WithContext(ctx, lc)

	resp, outcome, err := e.handle(ctx, addr, req, proc)
	if err != nil {
		reason := dropReason(err)
		e.metrics.recordDrop(reason)
		e.metrics.recordRequest(proc.Name, outcomeDropped, time.Since(start))

		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		if reason == DropHandlerError {
			logger.WarnCtx(ctx, "Request failed", logger.KeyReason, reason, logger.KeyError, err)
		} else {
			logger.DebugCtx(ctx, "Request dropped", logger.KeyReason, reason, logger.KeyError, err)
		}
		return nil, err
	}

	e.metrics.recordRequest(proc.Name, outcome, time.Since(start))
	return resp, nil
}

func (e *Engine) handle(ctx context.Context, addr netip.AddrPort, req wire.Request, proc *Procedure) ([]byte, string, error) {
	// The state check runs before decoding so a request that is illegal in
	// the current state is reported as such whatever its payload.
	sess, ok := e.sessions.Get(addr)
	switch {
	case !ok && proc.Creates == wire.StateNone:
		return nil, "", &IllegalTransitionError{Type: req.Type, State: wire.StateNone}
	case ok && !proc.Accepts(sess.State):
		return nil, "", &IllegalTransitionError{Type: req.Type, State: sess.State, Session: sess.ID}
	}

	// Decoding before creation keeps bad payloads from creating sessions.
	args, err := proc.Decode(req.Payload)
	if err != nil {
		return nil, "", err
	}

	now := e.now()

	var created bool
	if !ok {
		sess, created = e.sessions.GetOrCreate(addr, proc.Creates, now)
	}

	from := sess.State
	if !proc.Accepts(from) {
		return nil, "", &IllegalTransitionError{Type: req.Type, State: from, Session: sess.ID}
	}

	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithSession(sess.ID))
	telemetry.SetAttributes(ctx, telemetry.SessionID(sess.ID), telemetry.StateFrom(from.String()))

	tr, err := proc.Handler(ctx, e, sess, args)
	if err != nil {
		if created {
			e.sessions.Remove(addr, session.ReasonAborted, now)
		}
		return nil, "", err
	}

	if tr.end {
		e.sessions.Remove(addr, session.ReasonThanks, now)
		logger.DebugCtx(ctx, "Session ended", logger.KeyState, from.String())
		return nil, outcomeEnded, nil
	}

	e.sessions.Update(sess, func(s *session.Session) {
		if tr.apply != nil {
			tr.apply(s)
		}
		s.State = tr.next
		s.Touch(now)
	})

	telemetry.SetAttributes(ctx, telemetry.StateTo(tr.next.String()))
	if count, start, _, err := wire.DecodeChunkHeader(tr.payload); err == nil {
		telemetry.SetAttributes(ctx, telemetry.Chunk(start, int(count))...)
	}
	logger.DebugCtx(ctx, "Transition",
		"from", from.String(),
		logger.KeyState, tr.next.String(),
		logger.KeyBytes, wire.TagSize+len(tr.payload))

	return wire.EncodeResponse(tr.next, tr.payload), outcomeOK, nil
}

// Sweep removes sessions idle for longer than the configured timeout and
// returns how many were removed.
func (e *Engine) Sweep(ctx context.Context) int {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanTrackerSweep)
	defer span.End()

	removed := e.sessions.Sweep(e.now(), e.cfg.IdleTimeout)
	span.SetAttributes(telemetry.SweepRemoved(removed))
	return removed
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrMalformedMessage):
		return DropMalformed
	case errors.Is(err, wire.ErrPayloadTooShort):
		return DropPayloadTooShort
	case errors.Is(err, ErrIllegalTransition):
		return DropIllegalTransition
	default:
		return DropHandlerError
	}
}
