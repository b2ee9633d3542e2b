package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/config"
	"github.com/timwarnock/runone/internal/log"
	"github.com/timwarnock/runone/internal/ui"
	"github.com/timwarnock/runone/pkg/multilock"
)

// runRoot dispatches the bare invocation: wait mode when --wait was
// given, otherwise supervise the wrapped command.
func runRoot(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("wait") {
		if len(args) > 0 {
			return fmt.Errorf("--wait takes no command; wait first, then run in a second invocation")
		}
		return runWait(cmd)
	}
	if len(args) == 0 {
		return cmd.Help()
	}
	return runSupervised(cmd, args)
}

// runSupervised acquires the lock and runs the wrapped command while
// holding it. A busy lock is not an error: the whole point is that
// overlapping invocations silently stand down.
func runSupervised(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lk, err := newLock(cfg, cfg.LockName)
	if err != nil {
		return err
	}

	runLogger := logger.With(
		slog.String(log.RunIDKey, uuid.NewString()),
		slog.String(log.LockKey, lk.Name()),
		slog.String(log.CommandKey, args[0]),
	)

	ok, err := lk.Acquire()
	if err != nil {
		return fmt.Errorf("acquire lock %q: %w", lk.Name(), err)
	}
	if !ok {
		runLogger.Info("lock held elsewhere, exiting without running")
		return nil
	}

	if cfg.Persistent {
		runLogger.Info("persistent lock stays held",
			slog.String("release", "runone release "+lk.Name()))
	} else {
		defer func() {
			if _, rerr := lk.Release(); rerr != nil {
				runLogger.Warn("release failed", log.Error(rerr))
			}
		}()
	}

	return runChild(runLogger, args)
}

// runChild starts the command with inherited stdio, forwards signals
// to it, and maps its exit status onto runone's own.
func runChild(runLogger *slog.Logger, args []string) error {
	child := exec.Command(args[0], args[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	// Forward rather than die: the lock must stay held until the child
	// is actually gone, and the child decides what a signal means.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	start := time.Now()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	runLogger.Debug("command started", slog.Int("pid", child.Process.Pid))

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			runLogger.Debug("forwarding signal", slog.String("signal", sig.String()))
			_ = child.Process.Signal(sig)
		case err := <-done:
			elapsed := time.Since(start).Round(time.Millisecond)
			if err == nil {
				runLogger.Debug("command exited", slog.Duration("elapsed", elapsed))
				return nil
			}
			var exit *exec.ExitError
			if errors.As(err, &exit) {
				code := exit.ExitCode()
				if status, ok := exit.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					code = 128 + int(status.Signal())
				}
				runLogger.Info("command exited nonzero",
					slog.Int("code", code), slog.Duration("elapsed", elapsed))
				return &ExitError{Code: code}
			}
			return fmt.Errorf("wait for %s: %w", args[0], err)
		}
	}
}

// runWait blocks until every lock in the lockgroup is released or the
// timeout elapses. Timeout is exit code 2 so scripts can tell "jobs
// still running" from real failures.
func runWait(cmd *cobra.Command) error {
	timeout, err := config.ParseDuration(waitSpec)
	if err != nil {
		return fmt.Errorf("--wait: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lk, err := newLock(cfg, cfg.LockName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	stop := waitProgress(time.Duration(cfg.Poll))
	err = lk.Wait(ctx, timeout)
	stop()

	var timeoutErr *multilock.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &ExitError{Code: ExitWaitTimeout, Message: timeoutErr.Error()}
	}
	return err
}

// waitProgress prints a dot per poll round on interactive terminals so
// a long wait does not look hung. The returned stop ends the dots and
// terminates the line.
func waitProgress(interval time.Duration) (stop func()) {
	if !ui.IsInteractive() {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprintln(os.Stderr)
				return
			case <-ticker.C:
				fmt.Fprint(os.Stderr, ".")
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
