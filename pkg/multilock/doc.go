// Package multilock provides distributed mutual exclusion over a shared
// filesystem, with no lock server and no network protocol.
//
// A lock is a directory under a lockgroup directory; the holder is
// recorded as "<hostname> <pid>" in a file inside it. Acquisition
// exploits three independent filesystem atomicity guarantees: directory
// creation (only one concurrent creator wins), exclusive file creation,
// and atomic rename (publishing the record so observers never see a
// half-written holder). Hosts that share a mount therefore share the
// mutex, provided the filesystem honors those guarantees.
//
// Locks abandoned by crashed processes are reclaimed: records written by
// the local host are probed for process liveness, and any lock can be
// force-released once it exceeds a caller-supplied age. Records from
// other hosts are never judged; only their age can reclaim them.
//
// # Example
//
//	lk, err := multilock.New("spam",
//	    multilock.WithGroup("spams"),
//	    multilock.WithBasePath("/shared/path"))
//	if err != nil {
//	    return err
//	}
//	err = lk.Do(func() error {
//	    // only one process across all hosts runs this at a time
//	    return work()
//	})
//
// A coordinator elsewhere can block until every lock in the group is
// released:
//
//	err = lk.Wait(ctx, time.Hour)
package multilock
