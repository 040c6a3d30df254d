//go:build !linux

package soft

import "time"

// preciseSleep — на не-Linux обычный time.Sleep.
func preciseSleep(d time.Duration) {
	time.Sleep(d)
}
