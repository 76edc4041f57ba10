package worker

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/ttlcache"
)

// userRecord is a worker-local user session: its two temp folders.
// Users are purely a worker-lifetime concept; the master never stores
// them.
type userRecord struct {
	localTempDir string
	ufsTempDir   string
}

// Users tracks worker-local user sessions and expires them on
// inactivity, removing their temp folders. Built on internal/ttlcache.
// Expiry does not release any bytes the user still has reserved in
// Storage.
type Users struct {
	mu      sync.Mutex
	dataDir string
	cache   *ttlcache.Cache[int64, *userRecord]
	log     *slog.Logger
}

// NewUsers returns a Users tracker that expires sessions idle longer
// than timeout, sweeping every cleanupInterval.
func NewUsers(clk clock.Clock, dataDir string, timeout, cleanupInterval time.Duration, log *slog.Logger) *Users {
	u := &Users{dataDir: dataDir, log: log}
	u.cache = ttlcache.New[int64, *userRecord](clk, timeout, cleanupInterval)
	u.cache.OnEvict(func(userID int64, rec *userRecord) {
		u.removeFolders(userID, rec)
	})
	return u
}

func (u *Users) removeFolders(userID int64, rec *userRecord) {
	if rec == nil {
		return
	}
	if err := os.RemoveAll(rec.localTempDir); err != nil && u.log != nil {
		u.log.Warn("failed to remove expired user local temp folder", "userID", userID, "err", err)
	}
	if err := os.RemoveAll(rec.ufsTempDir); err != nil && u.log != nil {
		u.log.Warn("failed to remove expired user UFS temp folder", "userID", userID, "err", err)
	}
}

func (u *Users) getOrCreate(userID int64) (*userRecord, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if rec, ok := u.cache.Get(userID); ok {
		u.cache.Set(userID, rec)
		return rec, nil
	}

	uidStr := strconv.FormatInt(userID, 10)
	rec := &userRecord{
		localTempDir: filepath.Join(u.dataDir, "tmp", uidStr),
		ufsTempDir:   filepath.Join(u.dataDir, "tmp", uidStr, "ufs"),
	}
	if err := os.MkdirAll(rec.localTempDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(rec.ufsTempDir, 0o755); err != nil {
		return nil, err
	}
	u.cache.Set(userID, rec)
	return rec, nil
}

// GetUserTempFolder returns (creating if needed) userID's local temp
// folder, and refreshes its liveness.
func (u *Users) GetUserTempFolder(userID int64) (string, error) {
	rec, err := u.getOrCreate(userID)
	if err != nil {
		return "", err
	}
	return rec.localTempDir, nil
}

// GetUserUnderfsTempFolder returns (creating if needed) userID's UFS
// temp folder, and refreshes its liveness.
func (u *Users) GetUserUnderfsTempFolder(userID int64) (string, error) {
	rec, err := u.getOrCreate(userID)
	if err != nil {
		return "", err
	}
	return rec.ufsTempDir, nil
}

// Heartbeat refreshes userID's liveness without creating a new
// session if one does not already exist.
func (u *Users) Heartbeat(userID int64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if rec, ok := u.cache.Get(userID); ok {
		u.cache.Set(userID, rec)
	}
}

// Stop releases the background sweep goroutine.
func (u *Users) Stop() {
	u.cache.Stop()
}
