// Package rpc defines the wire contract between clients, the master and
// workers: method signatures, argument orders and record shapes. These
// interfaces are what a protoc-gen-go invocation would otherwise emit
// from a .proto file; internal/rpc/grpcserver hosts and dials them over
// real grpc without a generated stub.
package rpc

import "context"

// NetAddress identifies a worker's RPC endpoint.
type NetAddress struct {
	Host string
	Port int32
}

// CommandType enumerates the instructions a heartbeat reply can carry.
type CommandType int32

const (
	CommandUnknown CommandType = iota
	CommandNothing
	CommandRegister
	CommandFree
	CommandDelete
)

func (c CommandType) String() string {
	switch c {
	case CommandNothing:
		return "Nothing"
	case CommandRegister:
		return "Register"
	case CommandFree:
		return "Free"
	case CommandDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Command is the single instruction a worker_heartbeat reply carries.
type Command struct {
	Type CommandType
	Data []int32
}

// ClientFileInfo is the snapshot of a file/folder returned to clients.
type ClientFileInfo struct {
	ID             int32
	Name           string
	Path           string
	CheckpointPath string
	SizeBytes      int64
	CreationTimeMs int64
	Ready          bool
	Folder         bool
	InMemory       bool
	NeedPin        bool
	NeedCache      bool
}

// ClientWorkerInfo is the snapshot of a worker returned to clients.
type ClientWorkerInfo struct {
	ID             int32
	Address        NetAddress
	LastContactSec int64
	State          string
	CapacityBytes  int64
	UsedBytes      int64
	StartTimeMs    int64
}

// ClientRawTableInfo is the snapshot of a raw table returned to clients.
type ClientRawTableInfo struct {
	ID       int32
	Name     string
	Path     string
	Columns  int
	Metadata []byte
}

// MasterService is the client- and worker-facing RPC surface hosted by
// the master, matching section 6 exactly in method name, argument
// order, and failure kind.
type MasterService interface {
	// Worker-facing. AddCheckpoint's workerID is intentionally int64,
	// matching the external interface: it is the worker's own locally
	// decoded id, widened to match the wire signature.
	AddCheckpoint(ctx context.Context, workerID int64, fileID int32, fileSizeBytes int64, checkpointPath string) (bool, error)
	GetWorkersInfo(ctx context.Context) ([]ClientWorkerInfo, error)
	WorkerRegister(ctx context.Context, addr NetAddress, totalBytes, usedBytes int64, currentFiles []int32) (int64, error)
	WorkerHeartbeat(ctx context.Context, workerID int32, usedBytes int64, removedFiles []int32) (Command, error)
	WorkerCacheFile(ctx context.Context, workerID int32, workerUsedBytes int64, fileID int32, fileSizeBytes int64) error
	WorkerGetPinIDList(ctx context.Context) (map[int32]struct{}, error)

	// Client-facing.
	ListStatus(ctx context.Context, path string) ([]ClientFileInfo, error)
	UserCreateFile(ctx context.Context, path string) (int32, error)
	UserGetFileID(ctx context.Context, path string) (int32, error)
	UserGetUserID(ctx context.Context) (int64, error)
	UserGetWorker(ctx context.Context, random bool, host string) (NetAddress, error)
	UserGetClientFileInfoByID(ctx context.Context, fileID int32) (ClientFileInfo, error)
	UserGetClientFileInfoByPath(ctx context.Context, path string) (ClientFileInfo, error)
	UserGetFileLocationsByID(ctx context.Context, fileID int32) ([]NetAddress, error)
	UserGetFileLocationsByPath(ctx context.Context, path string) ([]NetAddress, error)
	UserListFiles(ctx context.Context, path string) ([]string, error)
	UserLs(ctx context.Context, path string) ([]ClientFileInfo, error)
	UserDeleteByID(ctx context.Context, fileID int32, recursive bool) (bool, error)
	UserDeleteByPath(ctx context.Context, path string, recursive bool) (bool, error)
	UserRenameFile(ctx context.Context, src, dst string) error
	UserUnpinFile(ctx context.Context, fileID int32) error
	UserMkdir(ctx context.Context, path string) (int32, error)
	UserOutOfMemoryForPinFile(ctx context.Context, fileID int32) error
	UserCreateRawTable(ctx context.Context, path string, columns int, metadata []byte) (int32, error)
	UserGetRawTableID(ctx context.Context, path string) (int32, error)
	UserGetClientRawTableInfoByID(ctx context.Context, tableID int32) (ClientRawTableInfo, error)
	UserGetClientRawTableInfoByPath(ctx context.Context, path string) (ClientRawTableInfo, error)
	UserUpdateRawTableMetadata(ctx context.Context, tableID int32, metadata []byte) error
	UserGetNumberOfFiles(ctx context.Context, path string) (int, error)
	UserGetUnderfsAddress(ctx context.Context) (string, error)
}

// EncodeRegistration packs a worker's assigned id and the master's
// start time (milliseconds since epoch) into the single int64 returned
// from WorkerRegister, mirroring how the wire protocol folds two values
// into one RPC return slot. workerID must be in [0, 99999].
func EncodeRegistration(workerID int32, masterStartTimeMs int64) int64 {
	return masterStartTimeMs*1000000 + int64(workerID)
}

// DecodeRegistration reverses EncodeRegistration: rv mod 100000 is the
// real worker-id, rv / 1000000 is the master's start time in milliseconds.
func DecodeRegistration(rv int64) (workerID int32, masterStartTimeMs int64) {
	return int32(rv % 100000), rv / 1000000
}

// WorkerService is the local data-path and lifecycle RPC surface hosted
// by each worker.
type WorkerService interface {
	AccessFile(ctx context.Context, fileID int32) error
	AddCheckpoint(ctx context.Context, userID int64, fileID int32) error
	CacheFile(ctx context.Context, userID int64, fileID int32) error
	GetDataFolder(ctx context.Context) (string, error)
	GetUserTempFolder(ctx context.Context, userID int64) (string, error)
	GetUserUnderfsTempFolder(ctx context.Context, userID int64) (string, error)
	LockFile(ctx context.Context, fileID int32, userID int64) error
	ReturnSpace(ctx context.Context, userID int64, bytes int64) error
	RequestSpace(ctx context.Context, userID int64, bytes int64) (bool, error)
	UnlockFile(ctx context.Context, fileID int32, userID int64) error
	UserHeartbeat(ctx context.Context, userID int64) error
}
