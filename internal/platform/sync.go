package platform

import "golang.org/x/sys/unix"

var syncFunc = unix.Sync

// SyncFilesystems flushes all filesystem buffers to disk. sync(2) never
// fails; it just blocks until the writeback is scheduled.
func SyncFilesystems() {
	syncFunc()
}
