//go:build linux

package soft

import (
	"time"

	"golang.org/x/sys/unix"
)

// preciseSleep спит d через clock_nanosleep(CLOCK_MONOTONIC), продолжая после EINTR.
func preciseSleep(d time.Duration) {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, 0, &ts, &rem)
		if err == unix.EINTR {
			ts = rem
			continue
		}
		if err != nil {
			time.Sleep(d)
		}
		return
	}
}
