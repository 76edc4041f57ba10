//go:build linux || darwin

package worker

import "golang.org/x/sys/unix"

// ProbeDefaultCapacityBytes returns the available space on the
// filesystem backing dataDir, for workers launched without an explicit
// capacity override. Uses golang.org/x/sys/unix directly (the same
// "raw syscall" concern as an rlimit probe, applied to disk space
// instead of file-descriptor limits).
func ProbeDefaultCapacityBytes(dataDir string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dataDir, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
