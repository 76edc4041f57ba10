package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tachyoncache/tachyon/internal/rpc"
)

// MasterClient implements rpc.MasterService by calling across a bridge
// connection to a master server registered with RegisterMasterServer.
type MasterClient struct {
	cc *grpc.ClientConn
}

var _ rpc.MasterService = (*MasterClient)(nil)

// NewMasterClient wraps cc, which must have been dialed with DialOptions().
func NewMasterClient(cc *grpc.ClientConn) *MasterClient {
	return &MasterClient{cc: cc}
}

func (c *MasterClient) AddCheckpoint(ctx context.Context, workerID int64, fileID int32, fileSizeBytes int64, checkpointPath string) (bool, error) {
	var reply bool
	err := call(ctx, c.cc, masterCallMethod, "AddCheckpoint", &reply, workerID, fileID, fileSizeBytes, checkpointPath)
	return reply, err
}

func (c *MasterClient) GetWorkersInfo(ctx context.Context) ([]rpc.ClientWorkerInfo, error) {
	var reply []rpc.ClientWorkerInfo
	err := call(ctx, c.cc, masterCallMethod, "GetWorkersInfo", &reply)
	return reply, err
}

func (c *MasterClient) WorkerRegister(ctx context.Context, addr rpc.NetAddress, totalBytes, usedBytes int64, currentFiles []int32) (int64, error) {
	var reply int64
	err := call(ctx, c.cc, masterCallMethod, "WorkerRegister", &reply, addr, totalBytes, usedBytes, currentFiles)
	return reply, err
}

func (c *MasterClient) WorkerHeartbeat(ctx context.Context, workerID int32, usedBytes int64, removedFiles []int32) (rpc.Command, error) {
	var reply rpc.Command
	err := call(ctx, c.cc, masterCallMethod, "WorkerHeartbeat", &reply, workerID, usedBytes, removedFiles)
	return reply, err
}

func (c *MasterClient) WorkerCacheFile(ctx context.Context, workerID int32, workerUsedBytes int64, fileID int32, fileSizeBytes int64) error {
	return call(ctx, c.cc, masterCallMethod, "WorkerCacheFile", nil, workerID, workerUsedBytes, fileID, fileSizeBytes)
}

func (c *MasterClient) WorkerGetPinIDList(ctx context.Context) (map[int32]struct{}, error) {
	var reply map[int32]struct{}
	err := call(ctx, c.cc, masterCallMethod, "WorkerGetPinIDList", &reply)
	return reply, err
}

func (c *MasterClient) ListStatus(ctx context.Context, path string) ([]rpc.ClientFileInfo, error) {
	var reply []rpc.ClientFileInfo
	err := call(ctx, c.cc, masterCallMethod, "ListStatus", &reply, path)
	return reply, err
}

func (c *MasterClient) UserCreateFile(ctx context.Context, path string) (int32, error) {
	var reply int32
	err := call(ctx, c.cc, masterCallMethod, "UserCreateFile", &reply, path)
	return reply, err
}

func (c *MasterClient) UserGetFileID(ctx context.Context, path string) (int32, error) {
	var reply int32
	err := call(ctx, c.cc, masterCallMethod, "UserGetFileID", &reply, path)
	return reply, err
}

func (c *MasterClient) UserGetUserID(ctx context.Context) (int64, error) {
	var reply int64
	err := call(ctx, c.cc, masterCallMethod, "UserGetUserID", &reply)
	return reply, err
}

func (c *MasterClient) UserGetWorker(ctx context.Context, random bool, host string) (rpc.NetAddress, error) {
	var reply rpc.NetAddress
	err := call(ctx, c.cc, masterCallMethod, "UserGetWorker", &reply, random, host)
	return reply, err
}

func (c *MasterClient) UserGetClientFileInfoByID(ctx context.Context, fileID int32) (rpc.ClientFileInfo, error) {
	var reply rpc.ClientFileInfo
	err := call(ctx, c.cc, masterCallMethod, "UserGetClientFileInfoByID", &reply, fileID)
	return reply, err
}

func (c *MasterClient) UserGetClientFileInfoByPath(ctx context.Context, path string) (rpc.ClientFileInfo, error) {
	var reply rpc.ClientFileInfo
	err := call(ctx, c.cc, masterCallMethod, "UserGetClientFileInfoByPath", &reply, path)
	return reply, err
}

func (c *MasterClient) UserGetFileLocationsByID(ctx context.Context, fileID int32) ([]rpc.NetAddress, error) {
	var reply []rpc.NetAddress
	err := call(ctx, c.cc, masterCallMethod, "UserGetFileLocationsByID", &reply, fileID)
	return reply, err
}

func (c *MasterClient) UserGetFileLocationsByPath(ctx context.Context, path string) ([]rpc.NetAddress, error) {
	var reply []rpc.NetAddress
	err := call(ctx, c.cc, masterCallMethod, "UserGetFileLocationsByPath", &reply, path)
	return reply, err
}

func (c *MasterClient) UserListFiles(ctx context.Context, path string) ([]string, error) {
	var reply []string
	err := call(ctx, c.cc, masterCallMethod, "UserListFiles", &reply, path)
	return reply, err
}

func (c *MasterClient) UserLs(ctx context.Context, path string) ([]rpc.ClientFileInfo, error) {
	var reply []rpc.ClientFileInfo
	err := call(ctx, c.cc, masterCallMethod, "UserLs", &reply, path)
	return reply, err
}

func (c *MasterClient) UserDeleteByID(ctx context.Context, fileID int32, recursive bool) (bool, error) {
	var reply bool
	err := call(ctx, c.cc, masterCallMethod, "UserDeleteByID", &reply, fileID, recursive)
	return reply, err
}

func (c *MasterClient) UserDeleteByPath(ctx context.Context, path string, recursive bool) (bool, error) {
	var reply bool
	err := call(ctx, c.cc, masterCallMethod, "UserDeleteByPath", &reply, path, recursive)
	return reply, err
}

func (c *MasterClient) UserRenameFile(ctx context.Context, src, dst string) error {
	return call(ctx, c.cc, masterCallMethod, "UserRenameFile", nil, src, dst)
}

func (c *MasterClient) UserUnpinFile(ctx context.Context, fileID int32) error {
	return call(ctx, c.cc, masterCallMethod, "UserUnpinFile", nil, fileID)
}

func (c *MasterClient) UserMkdir(ctx context.Context, path string) (int32, error) {
	var reply int32
	err := call(ctx, c.cc, masterCallMethod, "UserMkdir", &reply, path)
	return reply, err
}

func (c *MasterClient) UserOutOfMemoryForPinFile(ctx context.Context, fileID int32) error {
	return call(ctx, c.cc, masterCallMethod, "UserOutOfMemoryForPinFile", nil, fileID)
}

func (c *MasterClient) UserCreateRawTable(ctx context.Context, path string, columns int, metadata []byte) (int32, error) {
	var reply int32
	err := call(ctx, c.cc, masterCallMethod, "UserCreateRawTable", &reply, path, columns, metadata)
	return reply, err
}

func (c *MasterClient) UserGetRawTableID(ctx context.Context, path string) (int32, error) {
	var reply int32
	err := call(ctx, c.cc, masterCallMethod, "UserGetRawTableID", &reply, path)
	return reply, err
}

func (c *MasterClient) UserGetClientRawTableInfoByID(ctx context.Context, tableID int32) (rpc.ClientRawTableInfo, error) {
	var reply rpc.ClientRawTableInfo
	err := call(ctx, c.cc, masterCallMethod, "UserGetClientRawTableInfoByID", &reply, tableID)
	return reply, err
}

func (c *MasterClient) UserGetClientRawTableInfoByPath(ctx context.Context, path string) (rpc.ClientRawTableInfo, error) {
	var reply rpc.ClientRawTableInfo
	err := call(ctx, c.cc, masterCallMethod, "UserGetClientRawTableInfoByPath", &reply, path)
	return reply, err
}

func (c *MasterClient) UserUpdateRawTableMetadata(ctx context.Context, tableID int32, metadata []byte) error {
	return call(ctx, c.cc, masterCallMethod, "UserUpdateRawTableMetadata", nil, tableID, metadata)
}

func (c *MasterClient) UserGetNumberOfFiles(ctx context.Context, path string) (int, error) {
	var reply int
	err := call(ctx, c.cc, masterCallMethod, "UserGetNumberOfFiles", &reply, path)
	return reply, err
}

func (c *MasterClient) UserGetUnderfsAddress(ctx context.Context) (string, error) {
	var reply string
	err := call(ctx, c.cc, masterCallMethod, "UserGetUnderfsAddress", &reply)
	return reply, err
}
