package master

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/errs"
	"github.com/tachyoncache/tachyon/internal/inode"
	"github.com/tachyoncache/tachyon/internal/rpc"
)

// Config bundles the MasterService's tunables.
type Config struct {
	// WorkerTimeoutMs is how long a worker may go without a heartbeat
	// before its registration is dropped.
	WorkerTimeoutMs int64
	// UnderfsAddress is returned verbatim by UserGetUnderfsAddress.
	UnderfsAddress string
}

// Service implements rpc.MasterService, composing InodeStore,
// workerRegistry and placementIndex under a single lock: reads take a
// shared view, writes are exclusive. Grounded on gcsfuse's fs.Server,
// which plays the analogous composition role over its own inode table
// under one mutex.
type Service struct {
	mu sync.RWMutex

	cfg Config
	clk clock.Clock
	rng *rand.Rand

	inodes    *inode.Store
	registry  *workerRegistry
	placement *placementIndex
}

var _ rpc.MasterService = (*Service)(nil)

// New returns a MasterService with an empty namespace and no workers.
func New(clk clock.Clock, cfg Config) *Service {
	return &Service{
		cfg:       cfg,
		clk:       clk,
		rng:       rand.New(rand.NewSource(clk.Now().UnixNano())),
		inodes:    inode.New(clk),
		registry:  newWorkerRegistry(clk),
		placement: newPlacementIndex(),
	}
}

// --- Worker-facing ---------------------------------------------------

func (s *Service) WorkerRegister(ctx context.Context, addr rpc.NetAddress, totalBytes, usedBytes int64, currentFiles []int32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.registry.register(addr, totalBytes, usedBytes)
	s.placement.reconcileWorker(w.ID, currentFiles)
	return rpc.EncodeRegistration(w.ID, w.StartTimeMs), nil
}

func (s *Service) WorkerHeartbeat(ctx context.Context, workerID int32, usedBytes int64, removedFiles []int32) (rpc.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.touch(workerID, usedBytes) {
		return rpc.Command{Type: rpc.CommandRegister}, nil
	}
	for _, fileID := range removedFiles {
		s.placement.removeFile(fileID, workerID)
	}
	return s.registry.drain(workerID), nil
}

func (s *Service) WorkerCacheFile(ctx context.Context, workerID int32, workerUsedBytes int64, fileID int32, fileSizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.get(workerID); !ok {
		return &errs.UnknownWorker{ID: workerID}
	}
	if err := s.inodes.CommitSize(fileID, fileSizeBytes); err != nil {
		return err
	}
	s.registry.touch(workerID, workerUsedBytes)
	s.placement.add(fileID, workerID)
	return nil
}

func (s *Service) AddCheckpoint(ctx context.Context, workerID int64, fileID int32, fileSizeBytes int64, checkpointPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := int32(workerID)
	if _, ok := s.registry.get(id); !ok {
		return false, &errs.UnknownWorker{ID: id}
	}
	if err := s.inodes.AddCheckpoint(fileID, fileSizeBytes, checkpointPath); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetWorkersInfo(ctx context.Context) ([]rpc.ClientWorkerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := s.registry.list()
	out := make([]rpc.ClientWorkerInfo, 0, len(workers))
	for _, w := range workers {
		out = append(out, rpc.ClientWorkerInfo{
			ID:             w.ID,
			Address:        w.Address,
			LastContactSec: w.LastContactMs / 1000,
			State:          "ALIVE",
			CapacityBytes:  w.TotalBytes,
			UsedBytes:      w.UsedBytes,
			StartTimeMs:    w.StartTimeMs,
		})
	}
	return out, nil
}

func (s *Service) WorkerGetPinIDList(ctx context.Context) (map[int32]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int32]struct{})
	for id := range s.placement.fileToWorkers {
		if f, ok := s.inodes.Get(id); ok && f.Pin {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// EvictTimedOutWorkers drops every worker whose last heartbeat is older
// than the configured timeout, reconciling PlacementIndex in the same
// critical section. Intended to be called periodically by the server's
// membership-sweep goroutine.
func (s *Service) EvictTimedOutWorkers() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	timedOut := s.registry.evictTimedOut(s.cfg.WorkerTimeoutMs)
	for _, id := range timedOut {
		s.placement.removeWorker(id)
	}
	return timedOut
}

// --- Client-facing -----------------------------------------------------

func (s *Service) clientInfoLocked(f inode.File) rpc.ClientFileInfo {
	return rpc.ClientFileInfo{
		ID:             f.ID,
		Name:           f.Name,
		Path:           f.Path,
		CheckpointPath: f.CheckpointPath,
		SizeBytes:      f.SizeBytes,
		CreationTimeMs: f.CreationTimeMs,
		Ready:          f.Ready,
		Folder:         f.IsFolder,
		InMemory:       len(s.placement.workersForFile(f.ID)) > 0,
		NeedPin:        f.Pin,
		NeedCache:      f.Cache,
	}
}

func (s *Service) ListStatus(ctx context.Context, path string) ([]rpc.ClientFileInfo, error) {
	return s.UserLs(ctx, path)
}

func (s *Service) UserCreateFile(ctx context.Context, path string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.CreateFile(path)
}

func (s *Service) UserGetFileID(ctx context.Context, path string) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inodes.FileID(path), nil
}

func (s *Service) UserGetUserID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.Now().UnixNano(), nil
}

func (s *Service) UserGetWorker(ctx context.Context, random bool, host string) (rpc.NetAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !random && host != "" {
		for _, w := range s.registry.workers {
			if w.Address.Host == host {
				return w.Address, nil
			}
		}
		return rpc.NetAddress{}, &errs.NoLocalWorker{Host: host}
	}

	ids := s.registry.liveIDs()
	if len(ids) == 0 {
		return rpc.NetAddress{}, &errs.NoLocalWorker{Host: host}
	}
	pick := ids[s.rng.Intn(len(ids))]
	return s.registry.workers[pick].Address, nil
}

func (s *Service) UserGetClientFileInfoByID(ctx context.Context, fileID int32) (rpc.ClientFileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.inodes.Get(fileID)
	if !ok {
		return rpc.ClientFileInfo{}, &errs.FileDoesNotExist{ID: fileID}
	}
	return s.clientInfoLocked(f), nil
}

func (s *Service) UserGetClientFileInfoByPath(ctx context.Context, path string) (rpc.ClientFileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.inodes.GetByPath(path)
	if !ok {
		return rpc.ClientFileInfo{}, &errs.FileDoesNotExist{Path: path}
	}
	return s.clientInfoLocked(f), nil
}

func (s *Service) UserGetFileLocationsByID(ctx context.Context, fileID int32) ([]rpc.NetAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locationsLocked(fileID), nil
}

func (s *Service) UserGetFileLocationsByPath(ctx context.Context, path string) ([]rpc.NetAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.inodes.GetByPath(path)
	if !ok {
		return nil, &errs.FileDoesNotExist{Path: path}
	}
	return s.locationsLocked(f.ID), nil
}

func (s *Service) locationsLocked(fileID int32) []rpc.NetAddress {
	workerIDs := s.placement.workersForFile(fileID)
	out := make([]rpc.NetAddress, 0, len(workerIDs))
	for _, id := range workerIDs {
		if w, ok := s.registry.get(id); ok {
			out = append(out, w.Address)
		}
	}
	return out
}

func (s *Service) UserListFiles(ctx context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children, err := s.inodes.List(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.Name)
	}
	return out, nil
}

func (s *Service) UserLs(ctx context.Context, path string) ([]rpc.ClientFileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children, err := s.inodes.List(path)
	if err != nil {
		return nil, err
	}
	out := make([]rpc.ClientFileInfo, 0, len(children))
	for _, c := range children {
		out = append(out, s.clientInfoLocked(c))
	}
	return out, nil
}

func (s *Service) deleteCommon(deleted []int32) {
	for _, id := range deleted {
		workers := s.placement.workersForFile(id)
		s.placement.removeFileEverywhere(id)
		for _, workerID := range workers {
			s.registry.enqueue(workerID, rpc.Command{Type: rpc.CommandDelete, Data: []int32{id}})
		}
	}
}

func (s *Service) UserDeleteByID(ctx context.Context, fileID int32, recursive bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.inodes.Delete(fileID, recursive)
	if err != nil {
		return false, err
	}
	s.deleteCommon(deleted)
	return true, nil
}

func (s *Service) UserDeleteByPath(ctx context.Context, path string, recursive bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.inodes.DeleteByPath(path, recursive)
	if err != nil {
		return false, err
	}
	s.deleteCommon(deleted)
	return true, nil
}

func (s *Service) UserRenameFile(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.Rename(src, dst)
}

func (s *Service) UserUnpinFile(ctx context.Context, fileID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.MarkPin(fileID, false)
}

func (s *Service) UserMkdir(ctx context.Context, path string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.Mkdir(path)
}

func (s *Service) UserOutOfMemoryForPinFile(ctx context.Context, fileID int32) error {
	return errors.Wrapf(&errs.OutOfMemoryForPinFile{ID: fileID}, "worker reported pin admission failure")
}

func (s *Service) UserCreateRawTable(ctx context.Context, path string, columns int, metadata []byte) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.CreateRawTable(path, columns, metadata)
}

func (s *Service) UserGetRawTableID(ctx context.Context, path string) (int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inodes.RawTableID(path), nil
}

func (s *Service) UserGetClientRawTableInfoByID(ctx context.Context, tableID int32) (rpc.ClientRawTableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rawTableInfoLocked(tableID)
}

func (s *Service) UserGetClientRawTableInfoByPath(ctx context.Context, path string) (rpc.ClientRawTableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := s.inodes.RawTableID(path)
	if id == 0 {
		return rpc.ClientRawTableInfo{}, &errs.TableDoesNotExist{}
	}
	return s.rawTableInfoLocked(id)
}

func (s *Service) rawTableInfoLocked(tableID int32) (rpc.ClientRawTableInfo, error) {
	rt, ok := s.inodes.RawTable(tableID)
	if !ok {
		return rpc.ClientRawTableInfo{}, &errs.TableDoesNotExist{ID: tableID}
	}
	f, ok := s.inodes.Get(tableID)
	if !ok {
		return rpc.ClientRawTableInfo{}, &errs.TableDoesNotExist{ID: tableID}
	}
	return rpc.ClientRawTableInfo{
		ID:       rt.ID,
		Name:     f.Name,
		Path:     f.Path,
		Columns:  rt.Columns,
		Metadata: rt.Metadata,
	}, nil
}

func (s *Service) UserUpdateRawTableMetadata(ctx context.Context, tableID int32, metadata []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inodes.UpdateRawTableMetadata(tableID, metadata)
}

func (s *Service) UserGetNumberOfFiles(ctx context.Context, path string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inodes.NumberOfFiles(path)
}

func (s *Service) UserGetUnderfsAddress(ctx context.Context) (string, error) {
	return s.cfg.UnderfsAddress, nil
}
