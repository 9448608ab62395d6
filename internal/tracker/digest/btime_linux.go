//go:build linux

package digest

import (
	"time"

	"golang.org/x/sys/unix"
)

// CreationTime returns the birth time of path without following symlinks, or
// the zero time when the filesystem does not record one.
func CreationTime(path string) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW|unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
