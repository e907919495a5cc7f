package repository

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kata_review/internal/domain"
)

type EngineProcess interface {
	Stop(ctx context.Context) error
}

// Launcher starts a fresh engine process and hands over its stdio.
type Launcher func() (stdout io.Reader, stdin io.WriteCloser, proc EngineProcess, err error)

// Supervisor keeps one engine session around for a long-lived server.
// A faulted or closed session is never reused: the next Submit after a
// failed run stops the old process and launches a new one.
type Supervisor struct {
	launch   Launcher
	protocol Protocol
	timeout  time.Duration
	log      *zap.SugaredLogger
	hook     func(SessionState)

	mu      sync.Mutex
	session *Session
	proc    EngineProcess
}

func NewSupervisor(launch Launcher, protocol Protocol, timeout time.Duration, log *zap.SugaredLogger) *Supervisor {
	return &Supervisor{launch: launch, protocol: protocol, timeout: timeout, log: log}
}

func (e *Supervisor) OnStateChange(fn func(SessionState)) {
	e.hook = fn
}

func (e *Supervisor) Submit(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error) {
	s, err := e.current(ctx)
	if err != nil {
		return domain.Verdict{}, err
	}
	return s.Submit(ctx, q)
}

func (e *Supervisor) current(ctx context.Context) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil && e.session.State().Usable() {
		return e.session, nil
	}
	if e.session != nil {
		e.log.Warnw("replacing engine session", "state", e.session.State().String(), "error", e.session.Err())
		e.stopLocked(ctx)
	}

	stdout, stdin, proc, err := e.launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch engine")
	}
	s := NewSession(stdout, stdin, e.protocol, e.timeout, e.log)
	if e.hook != nil {
		s.OnStateChange(e.hook)
		e.hook(StateIdle)
	}
	e.session, e.proc = s, proc
	return s, nil
}

func (e *Supervisor) stopLocked(ctx context.Context) {
	if e.session != nil {
		_ = e.session.Close()
	}
	if e.proc != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := e.proc.Stop(stopCtx); err != nil {
			e.log.Errorw("failed to stop engine", "error", err)
		}
	}
	e.session, e.proc = nil, nil
}

// Close stops the current engine, if any.
func (e *Supervisor) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(ctx)
	return nil
}
