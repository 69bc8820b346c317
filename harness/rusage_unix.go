//go:build unix

package harness

import (
	"time"

	"golang.org/x/sys/unix"
)

// childUsage returns the CPU time consumed so far by terminated and waited
// for child processes.
func childUsage() (user, system time.Duration) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return 0, 0
	}

	return time.Duration(ru.Utime.Nano()), time.Duration(ru.Stime.Nano())
}
