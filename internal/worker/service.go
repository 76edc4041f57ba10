package worker

import (
	"context"

	"github.com/tachyoncache/tachyon/internal/rpc"
)

// Service implements rpc.WorkerService by delegating capacity/eviction
// concerns to Storage and session concerns to Users.
type Service struct {
	storage *Storage
	users   *Users
}

var _ rpc.WorkerService = (*Service)(nil)

// NewService wires a Storage and Users pair into a WorkerService.
func NewService(storage *Storage, users *Users) *Service {
	return &Service{storage: storage, users: users}
}

func (s *Service) AccessFile(ctx context.Context, fileID int32) error {
	return s.storage.AccessFile(ctx, fileID)
}

func (s *Service) AddCheckpoint(ctx context.Context, userID int64, fileID int32) error {
	return s.storage.AddCheckpoint(ctx, userID, fileID)
}

func (s *Service) CacheFile(ctx context.Context, userID int64, fileID int32) error {
	return s.storage.CacheFile(ctx, userID, fileID)
}

func (s *Service) GetDataFolder(ctx context.Context) (string, error) {
	return s.storage.cfg.DataDir, nil
}

func (s *Service) GetUserTempFolder(ctx context.Context, userID int64) (string, error) {
	return s.users.GetUserTempFolder(userID)
}

func (s *Service) GetUserUnderfsTempFolder(ctx context.Context, userID int64) (string, error) {
	return s.users.GetUserUnderfsTempFolder(userID)
}

func (s *Service) LockFile(ctx context.Context, fileID int32, userID int64) error {
	return s.storage.LockFile(ctx, fileID, userID)
}

func (s *Service) ReturnSpace(ctx context.Context, userID int64, bytes int64) error {
	return s.storage.ReturnSpace(ctx, userID, bytes)
}

func (s *Service) RequestSpace(ctx context.Context, userID int64, bytes int64) (bool, error) {
	return s.storage.RequestSpace(ctx, userID, bytes)
}

func (s *Service) UnlockFile(ctx context.Context, fileID int32, userID int64) error {
	return s.storage.UnlockFile(ctx, fileID, userID)
}

func (s *Service) UserHeartbeat(ctx context.Context, userID int64) error {
	s.users.Heartbeat(userID)
	return nil
}
