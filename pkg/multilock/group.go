package multilock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// State describes what a lock directory holds.
type State int

const (
	// StateUnlocked is a bare lock directory with no record, the husk
	// of an acquisition that died between mkdir and record create.
	StateUnlocked State = iota
	// StatePending has a record that was never committed.
	StatePending
	// StateAcquired is a held lock.
	StateAcquired
	// StateStale is a held or pending lock whose owner process on this
	// host is gone. Foreign hosts are never judged stale.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "unlocked"
	case StatePending:
		return "pending"
	case StateAcquired:
		return "acquired"
	case StateStale:
		return "stale"
	}
	return "unknown"
}

// Info is a snapshot of one lock in a lockgroup.
type Info struct {
	Name  string
	State State
	Owner Identity
	Age   time.Duration
	Path  string
}

// List snapshots every lock under the group directory, sorted by name.
// A missing group directory is an empty list, not an error. The
// snapshot is advisory: concurrent acquisitions and releases can
// change any entry the moment it is read.
func List(base, group string) ([]Info, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base path %s: %w", base, err)
	}
	groupDir := filepath.Join(abs, group)
	entries, err := os.ReadDir(groupDir)
	if err != nil {
		if classify(err) == classNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("read lockgroup %s: %w", groupDir, err)
	}
	local, _ := os.Hostname()

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		lockDir := filepath.Join(groupDir, name)
		info := Info{Name: name, State: StateUnlocked, Path: lockDir}
		if fi, err := entry.Info(); err == nil {
			info.Age = time.Since(fi.ModTime())
		}

		state := StateAcquired
		data, err := os.ReadFile(filepath.Join(lockDir, name+".locked"))
		if err != nil {
			state = StatePending
			data, err = os.ReadFile(filepath.Join(lockDir, name+".lock"))
		}
		if err != nil {
			infos = append(infos, info)
			continue
		}
		info.State = state
		if owner, perr := parseRecord(data); perr == nil {
			info.Owner = owner
			if owner.Host == local && owner.PID > 0 && probeProcess(owner.PID) == Dead {
				info.State = StateStale
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Wait blocks until the whole lockgroup is clear or timeout elapses,
// returning a *TimeoutError in the latter case. It polls at the lock's
// poll interval, each round trying to rmdir the group directory; the
// directory disappearing under either attempt counts as clear.
//
// Success means the group was observed empty once, not that it stayed
// so: Wait is a barrier for "all jobs in the group finished", useful
// only when no new jobs are starting.
func (l *Lock) Wait(ctx context.Context, timeout time.Duration) error {
	start := time.Now()
	for {
		if time.Since(start) >= timeout {
			return &TimeoutError{Group: l.group, Timeout: timeout}
		}
		if _, err := os.Stat(l.paths.GroupDir); err != nil {
			if classify(err) == classNotFound {
				return nil
			}
			return fmt.Errorf("stat lockgroup %s: %w", l.paths.GroupDir, err)
		}
		l.logger.Debug("waiting for lockgroup to clear",
			slog.String("lockgroup", l.group),
			slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
		err := os.Remove(l.paths.GroupDir)
		if err == nil {
			return nil
		}
		if raceExpected(classify(err)) {
			continue
		}
		return fmt.Errorf("remove lockgroup %s: %w", l.paths.GroupDir, err)
	}
}
