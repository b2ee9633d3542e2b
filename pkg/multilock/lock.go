package multilock

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Defaults applied by New when no option overrides them.
const (
	DefaultName  = "lock"
	DefaultGroup = ".locks"
	DefaultPoll  = 500 * time.Millisecond
)

// Lock is one named mutual-exclusion unit bound to an identity. A Lock
// value carries no open resources and no in-process mutex: all
// synchronization happens through the filesystem, so any number of
// processes and hosts may race the same paths safely.
type Lock struct {
	name       string
	group      string
	base       string
	paths      Paths
	id         Identity
	poll       time.Duration
	maxAge     time.Duration
	persistent bool
	probe      ProbeFunc
	logger     *slog.Logger
}

// Option configures a Lock during New.
type Option func(*Lock)

// WithGroup sets the lockgroup name (default ".locks").
func WithGroup(group string) Option {
	return func(l *Lock) {
		if group != "" {
			l.group = group
		}
	}
}

// WithBasePath sets the directory the lockgroup lives under (default
// the current directory). Point it at a shared mount to coordinate
// across hosts.
func WithBasePath(dir string) Option {
	return func(l *Lock) {
		if dir != "" {
			l.base = dir
		}
	}
}

// WithPollInterval sets the barrier wait's poll interval (default
// 500ms). Keep it above the time a single acquisition takes; that
// contract is the caller's to honor.
func WithPollInterval(d time.Duration) Option {
	return func(l *Lock) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithMaxAge sets the age past which Acquire force-reclaims an
// existing lock directory regardless of ownership. Zero (the default)
// disables age-based reclamation during Acquire.
func WithMaxAge(d time.Duration) Option {
	return func(l *Lock) { l.maxAge = d }
}

// WithIdentity overrides the identity captured from the local host and
// process. Intended for administrative tooling and tests.
func WithIdentity(id Identity) Option {
	return func(l *Lock) { l.id = id }
}

// Persistent records the lock with the PersistentPID sentinel instead
// of this process id. The lock then survives process exit and must be
// released explicitly or reclaimed by age.
func Persistent() Option {
	return func(l *Lock) { l.persistent = true }
}

// WithProbe replaces the platform liveness probe.
func WithProbe(p ProbeFunc) Option {
	return func(l *Lock) {
		if p != nil {
			l.probe = p
		}
	}
}

// WithLogger sets the logger for protocol debug output (default
// slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lock) { l.logger = logger }
}

// New builds a lock named name. An empty name means DefaultName. The
// caller's identity (hostname, pid) is captured here and never
// changes; constructing is pure apart from hostname resolution.
func New(name string, opts ...Option) (*Lock, error) {
	if name == "" {
		name = DefaultName
	}
	l := &Lock{
		name:  name,
		group: DefaultGroup,
		base:  ".",
		poll:  DefaultPoll,
		probe: probeProcess,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.id == (Identity{}) {
		id, err := LocalIdentity()
		if err != nil {
			return nil, err
		}
		l.id = id
	}
	if l.persistent {
		l.id.PID = PersistentPID
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With(slog.String("lock", l.name))
	paths, err := newPaths(l.name, l.group, l.base)
	if err != nil {
		return nil, err
	}
	l.paths = paths
	return l, nil
}

// Name returns the lock name.
func (l *Lock) Name() string { return l.name }

// Identity returns the holder identity this lock acquires as.
func (l *Lock) Identity() Identity { return l.id }

// Paths returns the derived on-disk locations.
func (l *Lock) Paths() Paths { return l.paths }

// Acquire attempts to take the lock. It returns true when this
// identity holds the lock afterward and false when another holder or a
// concurrent racer kept it; race losses are never errors. Before
// attempting, stale state is reclaimed per Cleanup using the
// configured max age.
//
// Re-acquiring a lock already held by the same identity succeeds
// without rewriting the record, so the lock's age keeps counting from
// the original acquisition.
func (l *Lock) Acquire() (bool, error) {
	if l.Verify() {
		l.logger.Debug("already holding lock")
		return true, nil
	}
	if _, err := l.Cleanup(l.maxAge); err != nil {
		return false, err
	}
	if err := os.MkdirAll(l.paths.GroupDir, 0o755); err != nil {
		return false, fmt.Errorf("create lockgroup %s: %w", l.paths.GroupDir, err)
	}
	won, err := l.takePending()
	if err != nil || !won {
		return false, err
	}
	l.logger.Debug("committing lock", slog.String("acquired", l.paths.Acquired))
	if err := os.Rename(l.paths.Pending, l.paths.Acquired); err != nil {
		if classify(err) == classNotFound {
			// a reclaimer swept the pending record out from under us
			l.logger.Debug("pending record vanished before commit")
			return false, nil
		}
		return false, fmt.Errorf("commit lock %s: %w", l.name, err)
	}
	return l.Verify(), nil
}

// takePending creates the lock directory and writes this identity's
// pending record in it. The directory create is the mutual-exclusion
// point; the exclusive file create is an independent second check.
// Losing either race reports false with no error.
func (l *Lock) takePending() (bool, error) {
	if err := os.Mkdir(l.paths.LockDir, 0o755); err != nil {
		if classify(err) == classAlreadyExists {
			l.logger.Debug("lock directory exists, lost the race")
			return false, nil
		}
		return false, fmt.Errorf("create lock directory %s: %w", l.paths.LockDir, err)
	}
	f, err := os.OpenFile(l.paths.Pending, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		switch classify(err) {
		case classAlreadyExists:
			l.logger.Debug("pending record exists, lost the race")
			return false, nil
		case classNotFound:
			// a cleaner swept our still-empty directory as a husk
			l.logger.Debug("lock directory swept before record write")
			return false, nil
		}
		return false, fmt.Errorf("create pending record %s: %w", l.paths.Pending, err)
	}
	if _, err := f.Write(l.id.record()); err != nil {
		f.Close()
		return false, fmt.Errorf("write lock record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, fmt.Errorf("sync lock record: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close lock record: %w", err)
	}
	return true, nil
}

// Verify reports whether this identity owns the acquired record right
// now. Any read or parse failure means no; Verify is the sole
// authority for "do I hold the lock" and never returns an error.
func (l *Lock) Verify() bool {
	data, err := os.ReadFile(l.paths.Acquired)
	if err != nil {
		return false
	}
	owner, err := parseRecord(data)
	if err != nil {
		return false
	}
	return owner == l.id
}

// Release tears the lock down if this identity holds it: the lock
// directory is removed and, best-effort, the lockgroup directory too
// when this was its last member (losing that race to a sibling is
// normal). Release always finishes with a fresh Cleanup(0) so the
// returned bool is a provably-current "lock is clear" verdict; called
// without holding the lock it degrades to exactly that check.
func (l *Lock) Release() (bool, error) {
	if l.Verify() {
		l.logger.Debug("releasing lock")
		if err := os.RemoveAll(l.paths.LockDir); err != nil {
			return false, fmt.Errorf("remove lock directory %s: %w", l.paths.LockDir, err)
		}
		if err := os.Remove(l.paths.GroupDir); err != nil && !raceExpected(classify(err)) {
			return false, fmt.Errorf("remove lockgroup %s: %w", l.paths.GroupDir, err)
		}
	}
	return l.Cleanup(0)
}

// Cleanup reports whether the lock is clear: true when nothing holds
// it (including when this call just reclaimed a stale holder), false
// when a holder remains.
//
// A positive maxAge force-removes the lock directory once its mtime is
// at least that old, regardless of ownership or record readability.
// Otherwise reclamation is conservative: only records written by this
// host are judged, by probing the recorded pid; persistent records,
// foreign hosts, unreadable records and probe-refused pids are all
// treated as still held.
func (l *Lock) Cleanup(maxAge time.Duration) (bool, error) {
	if maxAge > 0 {
		reclaimed, err := l.reclaimAged(maxAge)
		if err != nil || reclaimed {
			return reclaimed, err
		}
	}

	// The acquired record is authoritative; a pending record without
	// one is a crash artifact from an acquisition that never
	// committed, judged by the same liveness rules.
	for _, path := range []string{l.paths.Acquired, l.paths.Pending} {
		data, err := os.ReadFile(path)
		if err != nil {
			if classify(err) == classNotFound {
				continue
			}
			return false, fmt.Errorf("read lock record %s: %w", path, err)
		}
		owner, perr := parseRecord(data)
		if perr != nil {
			l.logger.Debug("unreadable lock record, leaving in place",
				slog.String("path", path))
			return false, nil
		}
		return l.reclaimDead(owner)
	}

	// No record at all. A bare lock directory is a husk from an
	// acquisition that died between mkdir and record create; rmdir
	// (not RemoveAll) so a racer that just created its record turns
	// this into a normal not-empty loss instead of being destroyed.
	if err := os.Remove(l.paths.LockDir); err != nil {
		switch c := classify(err); {
		case c == classNotFound:
		case raceExpected(c):
			return false, nil
		default:
			return false, fmt.Errorf("remove lock directory %s: %w", l.paths.LockDir, err)
		}
	}
	return true, nil
}

// reclaimAged force-removes the whole lock directory once it is maxAge
// old. Age is judged from the directory mtime, which acquisition set
// and re-acquisition deliberately does not refresh.
func (l *Lock) reclaimAged(maxAge time.Duration) (bool, error) {
	info, err := os.Stat(l.paths.LockDir)
	if err != nil {
		if classify(err) == classNotFound {
			return false, nil
		}
		return false, fmt.Errorf("stat lock directory %s: %w", l.paths.LockDir, err)
	}
	age := time.Since(info.ModTime())
	if age < maxAge {
		return false, nil
	}
	l.logger.Info("force releasing lock past max age",
		slog.Duration("age", age.Round(time.Second)),
		slog.Duration("max_age", maxAge))
	if err := os.RemoveAll(l.paths.LockDir); err != nil {
		return false, fmt.Errorf("remove aged lock directory %s: %w", l.paths.LockDir, err)
	}
	return true, nil
}

// reclaimDead applies the liveness policy to a parsed owner record.
func (l *Lock) reclaimDead(owner Identity) (bool, error) {
	if owner.Host != l.id.Host {
		l.logger.Debug("lock held by another host", slog.String("owner", owner.String()))
		return false, nil
	}
	if owner.PID == PersistentPID {
		l.logger.Debug("persistent lock, release manually or by max age")
		return false, nil
	}
	if owner.PID <= 0 {
		// out of range, ownership unknown
		return false, nil
	}
	switch l.probe(owner.PID) {
	case Dead:
		l.logger.Info("reclaiming lock from dead process", slog.Int("pid", owner.PID))
		if err := os.RemoveAll(l.paths.LockDir); err != nil {
			return false, fmt.Errorf("reclaim lock directory %s: %w", l.paths.LockDir, err)
		}
		return true, nil
	case Unknown:
		l.logger.Debug("cannot signal owner, assuming alive", slog.Int("pid", owner.PID))
	default:
		l.logger.Debug("lock owner still running", slog.Int("pid", owner.PID))
	}
	return false, nil
}

// Do runs fn while holding the lock and releases on every exit path.
// When the lock cannot be acquired it returns a *DeniedError without
// running fn. This is the primary idiom; Acquire and Release remain
// the low-level API for callers managing the held window themselves,
// which persistent locks must, since their point is to outlive the
// process.
func (l *Lock) Do(fn func() error) (err error) {
	ok, aerr := l.Acquire()
	if aerr != nil {
		return &DeniedError{Name: l.name, Err: aerr}
	}
	if !ok {
		return &DeniedError{Name: l.name}
	}
	defer func() {
		if _, rerr := l.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("release %s: %w", l.name, rerr)
		}
	}()
	return fn()
}
