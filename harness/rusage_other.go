//go:build !unix

package harness

import "time"

func childUsage() (user, system time.Duration) {
	return 0, 0
}
