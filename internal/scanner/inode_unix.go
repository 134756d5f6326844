// file: internal/scanner/inode_unix.go
// version: 1.1.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

//go:build !windows

package scanner

import (
	"os"
	"syscall"
)

// getInode returns the inode of a scanned file so hard links to the same
// video (seed folder plus library folder) are identified once.
func getInode(info os.FileInfo) (uint64, bool) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return uint64(sys.Ino), true
}
