package repository

import (
	"bufio"
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

// Protocol encodes queries for the engine and decodes its answers.
type Protocol interface {
	Marshal(q domain.AnalysisQuery) ([]byte, error)
	Interpret(line []byte, q domain.AnalysisQuery) (domain.Verdict, error)
}

type SessionState int32

const (
	StateIdle SessionState = iota
	StateAwaitingResponse
	StateFaulted
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateFaulted:
		return "faulted"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Usable reports whether a session in this state accepts queries.
func (s SessionState) Usable() bool {
	return s == StateIdle || s == StateAwaitingResponse
}

// KataGo prints ownership and policy for every point on one line.
const maxLineSize = 4 << 20

type lineResult struct {
	line []byte
	err  error
}

// Session owns the stdin/stdout pair of one engine process. One query is in
// flight at a time: Submit writes a line and waits for exactly one line
// back. Any I/O error, timeout or undecodable line faults the session for
// good, since the FIFO pairing of queries and answers can no longer be
// trusted.
//
// Pipelining would replace the single lines channel with a map from query
// id to a pending slot, filled by listenForResponses.
type Session struct {
	stdin    *bufio.Writer
	closer   io.Closer
	protocol Protocol
	timeout  time.Duration
	log      *zap.SugaredLogger

	lines chan lineResult
	done  chan struct{}

	mu        sync.Mutex // held for the whole write+read round trip
	state     atomic.Int32
	fault     error
	closeOnce sync.Once
	hook      func(SessionState)
}

// NewSession starts reading stdout right away. timeout bounds the wait for
// each answer; zero disables it.
func NewSession(stdout io.Reader, stdin io.WriteCloser, protocol Protocol, timeout time.Duration, log *zap.SugaredLogger) *Session {
	s := &Session{
		stdin:    bufio.NewWriter(stdin),
		closer:   stdin,
		protocol: protocol,
		timeout:  timeout,
		log:      log,
		lines:    make(chan lineResult, 1),
		done:     make(chan struct{}),
	}
	go s.listenForResponses(stdout)
	return s
}

// OnStateChange registers fn to be called on every state transition.
// It must be set before the first Submit.
func (s *Session) OnStateChange(fn func(SessionState)) {
	s.hook = fn
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(st SessionState) {
	s.state.Store(int32(st))
	if s.hook != nil {
		s.hook(st)
	}
}

func (s *Session) listenForResponses(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		line := make([]byte, len(raw))
		copy(line, raw)
		select {
		case s.lines <- lineResult{line: line}:
		case <-s.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case s.lines <- lineResult{err: err}:
	case <-s.done:
	}
}

// Submit sends q and blocks until its verdict arrives, the timeout fires or
// ctx is cancelled. Cancellation while waiting closes the session; a ctx
// that is already done returns before anything is written. Standalone
// warning lines for q are logged and skipped.
func (s *Session) Submit(ctx context.Context, q domain.AnalysisQuery) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateFaulted:
		return domain.Verdict{}, fmt.Errorf("%w: %w", ownErrors.ErrSessionFaulted, s.fault)
	case StateClosed:
		return domain.Verdict{}, ownErrors.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		// nothing written yet, the session stays usable
		return domain.Verdict{}, errors.Wrapf(err, "query %s cancelled", q.ID)
	}

	payload, err := s.protocol.Marshal(q)
	if err != nil {
		// nothing was written, the stream is still in sync
		return domain.Verdict{}, err
	}

	s.setState(StateAwaitingResponse)
	s.log.Debugw("katago query", "id", q.ID, "moves", len(q.MovesSoFar))

	if _, err := s.stdin.Write(append(payload, '\n')); err != nil {
		return domain.Verdict{}, s.faultLocked(errors.Wrapf(ownErrors.ErrEngineUnavailable, "write query %s: %v", q.ID, err))
	}
	if err := s.stdin.Flush(); err != nil {
		return domain.Verdict{}, s.faultLocked(errors.Wrapf(ownErrors.ErrEngineUnavailable, "flush query %s: %v", q.ID, err))
	}

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case r := <-s.lines:
			if r.err != nil {
				return domain.Verdict{}, s.faultLocked(errors.Wrapf(ownErrors.ErrEngineUnavailable, "awaiting %s: %v", q.ID, r.err))
			}
			s.log.Debugw("katago response", "id", q.ID, "bytes", len(r.line))
			verdict, err := s.protocol.Interpret(r.line, q)
			switch {
			case stdErrors.Is(err, ownErrors.ErrEngineWarning):
				// the analysis for q.ID is still to come
				continue
			case stdErrors.Is(err, ownErrors.ErrIncompleteVerdict):
				// the line was consumed, pairing is intact
				s.setState(StateIdle)
				return domain.Verdict{}, err
			case err != nil:
				return domain.Verdict{}, s.faultLocked(err)
			}
			s.setState(StateIdle)
			return verdict, nil
		case <-timeout:
			return domain.Verdict{}, s.faultLocked(errors.Wrapf(ownErrors.ErrEngineTimeout, "query %s after %v", q.ID, s.timeout))
		case <-s.done:
			s.setState(StateClosed)
			return domain.Verdict{}, errors.Wrapf(ownErrors.ErrSessionClosed, "query %s", q.ID)
		case <-ctx.Done():
			s.shutdown()
			s.setState(StateClosed)
			return domain.Verdict{}, errors.Wrapf(ctx.Err(), "query %s cancelled", q.ID)
		}
	}
}

func (s *Session) faultLocked(err error) error {
	s.fault = err
	s.log.Errorw("katago session faulted", "error", err)
	s.shutdown()
	s.setState(StateFaulted)
	return err
}

// Err returns the error that faulted the session, if any.
func (s *Session) Err() error {
	if s.State() != StateFaulted {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.closer.Close(); err != nil {
			s.log.Debugw("closing engine stdin", "error", err)
		}
	})
}

// Close closes the engine's stdin. An in-flight Submit returns
// ErrSessionClosed; a faulted session stays faulted.
func (s *Session) Close() error {
	s.shutdown()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateFaulted {
		s.setState(StateClosed)
	}
	return nil
}
