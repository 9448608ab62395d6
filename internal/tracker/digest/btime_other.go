//go:build !linux

package digest

import "time"

// CreationTime is not available on this platform.
func CreationTime(string) time.Time {
	return time.Time{}
}
