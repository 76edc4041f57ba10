// Package errs defines the typed failure taxonomy raised at RPC
// boundaries by the master and worker services. Each kind is a distinct
// struct so callers can use errors.As/errors.Is instead of matching on
// error strings.
package errs

import "fmt"

// FileAlreadyExist is returned when a create/rename targets a path that
// is already in use.
type FileAlreadyExist struct {
	Path string
}

func (e *FileAlreadyExist) Error() string {
	return fmt.Sprintf("file already exists: %s", e.Path)
}

// FileDoesNotExist is returned when a file-id or path cannot be found.
type FileDoesNotExist struct {
	// Either Path or ID is set, whichever the caller looked up by.
	Path string
	ID   int32
}

func (e *FileDoesNotExist) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("file does not exist: %s", e.Path)
	}
	return fmt.Sprintf("file does not exist: id %d", e.ID)
}

// InvalidPath is returned for syntactic or structural path violations:
// non-absolute paths, "..", empty components, a non-folder intermediate,
// a non-recursive delete of a non-empty folder, or a rename into the
// source's own subtree.
type InvalidPath struct {
	Path   string
	Reason string
}

func (e *InvalidPath) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// SuspectedFileSize is returned when a cache-file or add-checkpoint call
// reports a size that disagrees with the size already committed for the
// file.
type SuspectedFileSize struct {
	ID        int32
	Committed int64
	Reported  int64
}

func (e *SuspectedFileSize) Error() string {
	return fmt.Sprintf(
		"suspected file size for id %d: committed %d, reported %d",
		e.ID, e.Committed, e.Reported)
}

// TableColumn is returned when a raw table's requested column count
// falls outside [1, MAX_COLUMNS].
type TableColumn struct {
	Requested int
	Max       int
}

func (e *TableColumn) Error() string {
	return fmt.Sprintf(
		"invalid raw table column count %d, must be in [1, %d]",
		e.Requested, e.Max)
}

// TableDoesNotExist is returned when a table id does not refer to a raw
// table.
type TableDoesNotExist struct {
	ID int32
}

func (e *TableDoesNotExist) Error() string {
	return fmt.Sprintf("raw table does not exist: id %d", e.ID)
}

// UnknownWorker is returned when a worker-facing RPC names a worker-id
// the registry has no record of, forcing the worker back through
// worker_register.
type UnknownWorker struct {
	ID int32
}

func (e *UnknownWorker) Error() string {
	return fmt.Sprintf("unknown worker id %d", e.ID)
}

// NoLocalWorker is returned when placement cannot satisfy a host
// constraint passed to user_getWorker.
type NoLocalWorker struct {
	Host string
}

func (e *NoLocalWorker) Error() string {
	return fmt.Sprintf("no live worker on host %q", e.Host)
}

// OutOfMemoryForPinFile is returned when a worker cannot admit a pinned
// file even after evicting every eligible victim.
type OutOfMemoryForPinFile struct {
	ID int32
}

func (e *OutOfMemoryForPinFile) Error() string {
	return fmt.Sprintf("out of memory admitting pinned file %d", e.ID)
}

// FailedToCheckpoint is returned when the UFS copy behind an
// add-checkpoint call fails.
type FailedToCheckpoint struct {
	ID  int32
	Err error
}

func (e *FailedToCheckpoint) Error() string {
	return fmt.Sprintf("failed to checkpoint file %d: %v", e.ID, e.Err)
}

func (e *FailedToCheckpoint) Unwrap() error {
	return e.Err
}

// RequestSpaceRateLimited is returned when a user's requestSpace calls
// exceed their configured admission rate, independent of whether
// capacity itself is available.
type RequestSpaceRateLimited struct {
	UserID int64
}

func (e *RequestSpaceRateLimited) Error() string {
	return fmt.Sprintf("requestSpace rate limited for user %d", e.UserID)
}
