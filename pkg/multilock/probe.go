package multilock

// Liveness is the verdict of a local process liveness probe.
type Liveness int

const (
	// Alive means the process exists.
	Alive Liveness = iota
	// Dead means the process no longer exists.
	Dead
	// Unknown means the probe was refused (no permission to signal
	// the process). Reclamation treats Unknown as Alive.
	Unknown
)

// ProbeFunc reports whether a process id is alive on the local host.
// Probes are only ever consulted for records written by this host;
// remote pids cannot be judged.
type ProbeFunc func(pid int) Liveness
