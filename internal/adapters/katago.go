package adapters

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kata_review/internal/bootstrap"
	"kata_review/internal/repository"
)

// KatagoProcess is a running `katago analysis` with piped stdio.
type KatagoProcess struct {
	cmd    *exec.Cmd
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	log    *zap.SugaredLogger
	exited chan struct{}
	err    error
}

func StartKatago(cfg bootstrap.KatagoConfig, log *zap.SugaredLogger) (*KatagoProcess, error) {
	args := []string{"analysis", "-config", cfg.Config}
	if cfg.Model != "" {
		args = append(args, "-model", cfg.Model)
	}
	cmd := exec.Command(cfg.Engine, args...)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "katago stdin")
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "katago stdout")
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "katago stderr")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", cfg.Engine)
	}
	log.Infow("katago started", "pid", cmd.Process.Pid, "engine", cfg.Engine, "model", cfg.Model)

	p := &KatagoProcess{
		cmd:    cmd,
		Stdin:  stdinPipe,
		Stdout: stdoutPipe,
		log:    log,
		exited: make(chan struct{}),
	}

	// KataGo пишет в stderr прогресс загрузки модели и предупреждения
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			log.Debugw("katago stderr", "line", scanner.Text())
		}
	}()
	go func() {
		p.err = cmd.Wait()
		if p.err != nil {
			log.Warnw("katago exited", "pid", cmd.Process.Pid, "error", p.err)
		} else {
			log.Infow("katago exited", "pid", cmd.Process.Pid)
		}
		close(p.exited)
	}()
	return p, nil
}

// Stop closes stdin, which makes KataGo finish and exit, and kills the
// process if it is still alive when ctx expires.
func (p *KatagoProcess) Stop(ctx context.Context) error {
	_ = p.Stdin.Close()
	select {
	case <-p.exited:
	case <-ctx.Done():
		p.log.Warn("katago did not exit in time, killing")
		if err := p.cmd.Process.Kill(); err != nil {
			return errors.Wrap(err, "kill katago")
		}
		select {
		case <-p.exited:
		case <-time.After(5 * time.Second):
			return errors.New("katago did not exit after kill")
		}
	}
	return nil
}

func (p *KatagoProcess) Exited() <-chan struct{} { return p.exited }

// Err is the exit status, valid once Exited is closed.
func (p *KatagoProcess) Err() error { return p.err }

// KatagoLauncher starts a new KataGo process for every engine session.
func KatagoLauncher(cfg bootstrap.KatagoConfig, log *zap.SugaredLogger) repository.Launcher {
	return func() (io.Reader, io.WriteCloser, repository.EngineProcess, error) {
		p, err := StartKatago(cfg, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return p.Stdout, p.Stdin, p, nil
	}
}
