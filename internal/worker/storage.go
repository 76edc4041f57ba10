// Package worker implements the worker half of the system: WorkerStorage
// (bounded in-memory cache admission, LRU eviction, pin/lock
// protection, user temp-folder lifecycle) and the WorkerService RPC
// surface. Grounded on gcsfuse's lease/mutable packages'
// claim-promote-release local-file lifecycle (see DESIGN.md for the
// adaptation notes) and on fs.Server's single-mutex composition style,
// generalized from a FUSE inode table to a byte-budget cache.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/errs"
	"github.com/tachyoncache/tachyon/internal/lrucache"
)

// ResidentFile is the per-file bookkeeping record for a cached file.
type ResidentFile struct {
	SizeBytes    int64
	LastAccessMs int64
	LockCount    int
	Pinned       bool
}

// sizeEntry adapts a resident file's size to lrucache.ValueType.
type sizeEntry struct {
	fileID int32
	size   uint64
}

func (e sizeEntry) Size() uint64 { return e.size }

func fileKey(fileID int32) string { return strconv.Itoa(int(fileID)) }

func parseFileKey(key string) int32 {
	n, _ := strconv.Atoi(key)
	return int32(n)
}

// MasterClient is the subset of rpc.MasterService a worker calls back
// into; a narrow interface keeps Storage testable without a full master
// fixture.
type MasterClient interface {
	WorkerCacheFile(ctx context.Context, workerID int32, workerUsedBytes int64, fileID int32, fileSizeBytes int64) error
	AddCheckpoint(ctx context.Context, workerID int64, fileID int32, fileSizeBytes int64, checkpointPath string) (bool, error)
	UserOutOfMemoryForPinFile(ctx context.Context, fileID int32) error
}

// Config bundles Storage's tunables.
type Config struct {
	CapacityBytes int64
	WorkerID      int32
	DataDir       string // local backing storage root
	UfsDataDir    string // UFS-mirrored checkpoint root

	// PerUserRequestSpaceQPS bounds how often a single user may call
	// RequestSpace, independent of whether capacity is available --
	// admission backpressure against one user hammering eviction.
	// Zero disables rate limiting.
	PerUserRequestSpaceQPS float64
	PerUserRequestSpaceBurst int
}

// Storage is the WorkerStorage: bounded-memory admission, LRU eviction
// respecting pin/lock, and per-user reservation accounting. Not safe
// for concurrent use except through its exported methods, which take
// mu themselves.
type Storage struct {
	mu sync.Mutex

	cfg    Config
	clk    clock.Clock
	master MasterClient
	log    *slog.Logger

	usedBytes   int64
	resident    map[int32]*ResidentFile
	lru         *lrucache.Cache
	userSpace   map[int64]int64
	pendingFree map[int32]struct{}
	removed     []int32

	limiterMu sync.Mutex
	limiters  map[int64]*rate.Limiter
}

// New returns an empty Storage.
func New(clk clock.Clock, master MasterClient, log *slog.Logger, cfg Config) *Storage {
	return &Storage{
		cfg:         cfg,
		clk:         clk,
		master:      master,
		log:         log,
		resident:    make(map[int32]*ResidentFile),
		lru:         lrucache.New(),
		userSpace:   make(map[int64]int64),
		pendingFree: make(map[int32]struct{}),
		limiters:    make(map[int64]*rate.Limiter),
	}
}

// limiterFor returns userID's RequestSpace rate limiter, creating one
// lazily on first use. Returns nil when rate limiting is disabled.
func (s *Storage) limiterFor(userID int64) *rate.Limiter {
	if s.cfg.PerUserRequestSpaceQPS <= 0 {
		return nil
	}
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	lim, ok := s.limiters[userID]
	if !ok {
		burst := s.cfg.PerUserRequestSpaceBurst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(s.cfg.PerUserRequestSpaceQPS), burst)
		s.limiters[userID] = lim
	}
	return lim
}

// RequestSpace is an atomic admission test for userID reserving
// requestBytes. On insufficient capacity it triggers eviction and
// retries once before giving up.
func (s *Storage) RequestSpace(ctx context.Context, userID int64, requestBytes int64) (bool, error) {
	if lim := s.limiterFor(userID); lim != nil && !lim.Allow() {
		return false, &errs.RequestSpaceRateLimited{UserID: userID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admitLocked(userID, requestBytes) {
		return true, nil
	}

	s.evictLocked(requestBytes)
	if s.admitLocked(userID, requestBytes) {
		return true, nil
	}
	return false, nil
}

func (s *Storage) admitLocked(userID int64, requestBytes int64) bool {
	if s.usedBytes+requestBytes > s.cfg.CapacityBytes {
		return false
	}
	s.usedBytes += requestBytes
	s.userSpace[userID] += requestBytes
	return true
}

// ReturnSpace decrements userID's reservation and usedBytes. A return
// in excess of the user's outstanding reservation is clamped (and
// logged) rather than driving usedBytes negative.
func (s *Storage) ReturnSpace(ctx context.Context, userID int64, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserved := s.userSpace[userID]
	if bytes > reserved {
		if s.log != nil {
			s.log.Warn("returnSpace exceeds reservation, clamping",
				"userID", userID, "requested", bytes, "reserved", reserved)
		}
		bytes = reserved
	}

	s.userSpace[userID] = reserved - bytes
	s.usedBytes -= bytes
	return nil
}

// evictLocked selects LRU victims that are unpinned and unlocked,
// deleting their backing storage until at least neededBytes is free or
// no eligible victim remains. mu must be held.
func (s *Storage) evictLocked(neededBytes int64) {
	freed := int64(0)
	for _, key := range s.lru.LRUOrder() {
		if freed >= neededBytes {
			return
		}
		fileID := parseFileKey(key)
		rf, ok := s.resident[fileID]
		if !ok || rf.Pinned || rf.LockCount > 0 {
			continue
		}

		s.removeResidentLocked(fileID)
		freed += rf.SizeBytes
		s.usedBytes -= rf.SizeBytes
	}
}

func (s *Storage) removeResidentLocked(fileID int32) {
	s.lru.Erase(fileKey(fileID))
	delete(s.resident, fileID)
	delete(s.pendingFree, fileID)
	s.removed = append(s.removed, fileID)
	if err := os.RemoveAll(s.localPath(fileID)); err != nil && s.log != nil {
		s.log.Warn("failed to remove backing storage on eviction", "fileID", fileID, "err", err)
	}
}

func (s *Storage) localPath(fileID int32) string {
	return filepath.Join(s.cfg.DataDir, strconv.Itoa(int(fileID)))
}

func (s *Storage) ufsPath(fileID int32) string {
	return filepath.Join(s.cfg.UfsDataDir, strconv.Itoa(int(fileID)))
}

// userTempFile is where a user stages a file's bytes before CacheFile
// promotes it into the resident set.
func (s *Storage) userTempFile(userID int64, fileID int32) string {
	return filepath.Join(s.cfg.DataDir, "tmp", strconv.FormatInt(userID, 10), strconv.Itoa(int(fileID)))
}

// CacheFile promotes fileID from userID's temp folder into the
// resident set. Its on-disk size becomes authoritative; the user's
// reservation is debited by that amount (any residual reservation
// stays reserved). On success, notifies the master.
func (s *Storage) CacheFile(ctx context.Context, userID int64, fileID int32) error {
	info, err := os.Stat(s.userTempFile(userID, fileID))
	if err != nil {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	sizeBytes := info.Size()

	s.mu.Lock()
	if reserved := s.userSpace[userID]; reserved < sizeBytes {
		s.mu.Unlock()
		return fmt.Errorf("cacheFile: user %d reservation %d smaller than on-disk size %d", userID, reserved, sizeBytes)
	}
	s.userSpace[userID] -= sizeBytes

	if err := os.Rename(s.userTempFile(userID, fileID), s.localPath(fileID)); err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.clk.Now().UnixMilli()
	s.resident[fileID] = &ResidentFile{SizeBytes: sizeBytes, LastAccessMs: now}
	s.lru.Insert(fileKey(fileID), sizeEntry{fileID: fileID, size: uint64(sizeBytes)})
	usedBytes := s.usedBytes
	s.mu.Unlock()

	return s.master.WorkerCacheFile(ctx, s.cfg.WorkerID, usedBytes, fileID, sizeBytes)
}

// AddCheckpoint copies fileID's bytes from userID's UFS temp folder
// into the UFS data area atomically (temp file then rename), then
// notifies the master.
func (s *Storage) AddCheckpoint(ctx context.Context, userID int64, fileID int32) error {
	tmp := s.userTempFile(userID, fileID) + ".ufs"
	info, err := os.Stat(tmp)
	if err != nil {
		return &errs.FileDoesNotExist{ID: fileID}
	}

	final := s.ufsPath(fileID)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return &errs.FailedToCheckpoint{ID: fileID, Err: err}
	}
	if err := os.Rename(tmp, final); err != nil {
		return &errs.FailedToCheckpoint{ID: fileID, Err: err}
	}

	ok, err := s.master.AddCheckpoint(ctx, int64(s.cfg.WorkerID), fileID, info.Size(), final)
	if err != nil {
		return err
	}
	if !ok {
		return &errs.FailedToCheckpoint{ID: fileID}
	}
	return nil
}

// LockFile increments fileID's lock count, making it ineligible for
// eviction while held.
func (s *Storage) LockFile(ctx context.Context, fileID int32, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, ok := s.resident[fileID]
	if !ok {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	rf.LockCount++
	return nil
}

// UnlockFile decrements fileID's lock count. An unmatched unlock is a
// no-op (logged), not an error. Dropping to zero re-examines
// pendingFree.
func (s *Storage) UnlockFile(ctx context.Context, fileID int32, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, ok := s.resident[fileID]
	if !ok || rf.LockCount == 0 {
		if s.log != nil {
			s.log.Warn("unmatched unlockFile", "fileID", fileID, "userID", userID)
		}
		return nil
	}
	rf.LockCount--
	if rf.LockCount == 0 {
		s.reexaminePendingFreeLocked(fileID)
	}
	return nil
}

func (s *Storage) reexaminePendingFreeLocked(fileID int32) {
	if _, pending := s.pendingFree[fileID]; !pending {
		return
	}
	if rf, ok := s.resident[fileID]; ok && !rf.Pinned && rf.LockCount == 0 {
		s.usedBytes -= rf.SizeBytes
		s.removeResidentLocked(fileID)
	}
}

// AccessFile touches fileID's last-access time and LRU position.
func (s *Storage) AccessFile(ctx context.Context, fileID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, ok := s.resident[fileID]
	if !ok {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	rf.LastAccessMs = s.clk.Now().UnixMilli()
	s.lru.LookUp(fileKey(fileID))
	return nil
}

// SetPinned marks fileID pinned or unpinned, guarding it from eviction
// while pinned.
func (s *Storage) SetPinned(fileID int32, pinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rf, ok := s.resident[fileID]; ok {
		rf.Pinned = pinned
	}
}

// HandleFree evicts every eligible id immediately; ineligible ones are
// recorded in pendingFree and re-examined when UnlockFile drops their
// lock count to zero.
func (s *Storage) HandleFree(fileIDs []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range fileIDs {
		rf, ok := s.resident[id]
		if !ok {
			continue
		}
		if rf.Pinned || rf.LockCount > 0 {
			s.pendingFree[id] = struct{}{}
			continue
		}
		s.usedBytes -= rf.SizeBytes
		s.removeResidentLocked(id)
	}
}

// HandleDelete evicts every id regardless of lock state: the file no
// longer exists in the namespace.
func (s *Storage) HandleDelete(fileIDs []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range fileIDs {
		rf, ok := s.resident[id]
		if !ok {
			continue
		}
		s.usedBytes -= rf.SizeBytes
		s.removeResidentLocked(id)
	}
}

// UsedBytes returns the current usage, for heartbeat reporting.
func (s *Storage) UsedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedBytes
}

// ResidentFileIDs returns the ids of every currently resident file.
func (s *Storage) ResidentFileIDs() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int32, 0, len(s.resident))
	for id := range s.resident {
		out = append(out, id)
	}
	return out
}

// CapacityBytes returns the configured cache capacity, for registration
// and heartbeat reporting.
func (s *Storage) CapacityBytes() int64 {
	return s.cfg.CapacityBytes
}

// DrainRemovedFiles returns and clears the set of file ids removed
// (evicted or freed) since the last call, for reporting in the next
// heartbeat's removedFiles argument.
func (s *Storage) DrainRemovedFiles() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.removed
	s.removed = nil
	return out
}

// RequestSpaceForPin is RequestSpace's pin-aware variant used when
// admitting a pinned file: on failure after eviction, it surfaces
// OutOfMemoryForPinFile to the master for fileID before reporting
// failure to the caller, per the pin-overcommit rule: a pinned file
// that cannot be admitted even after evicting every eligible victim is
// the master's problem to resolve, not silently dropped.
func (s *Storage) RequestSpaceForPin(ctx context.Context, userID int64, fileID int32, requestBytes int64) (bool, error) {
	ok, err := s.RequestSpace(ctx, userID, requestBytes)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if notifyErr := s.master.UserOutOfMemoryForPinFile(ctx, fileID); notifyErr != nil && s.log != nil {
		s.log.Warn("failed to notify master of pin admission failure", "fileID", fileID, "err", notifyErr)
	}
	return false, &errs.OutOfMemoryForPinFile{ID: fileID}
}
