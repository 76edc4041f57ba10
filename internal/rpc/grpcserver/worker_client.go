package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/tachyoncache/tachyon/internal/rpc"
)

// WorkerClient implements rpc.WorkerService by calling across a bridge
// connection to a worker server registered with RegisterWorkerServer.
type WorkerClient struct {
	cc *grpc.ClientConn
}

var _ rpc.WorkerService = (*WorkerClient)(nil)

// NewWorkerClient wraps cc, which must have been dialed with DialOptions().
func NewWorkerClient(cc *grpc.ClientConn) *WorkerClient {
	return &WorkerClient{cc: cc}
}

func (c *WorkerClient) AccessFile(ctx context.Context, fileID int32) error {
	return call(ctx, c.cc, workerCallMethod, "AccessFile", nil, fileID)
}

func (c *WorkerClient) AddCheckpoint(ctx context.Context, userID int64, fileID int32) error {
	return call(ctx, c.cc, workerCallMethod, "AddCheckpoint", nil, userID, fileID)
}

func (c *WorkerClient) CacheFile(ctx context.Context, userID int64, fileID int32) error {
	return call(ctx, c.cc, workerCallMethod, "CacheFile", nil, userID, fileID)
}

func (c *WorkerClient) GetDataFolder(ctx context.Context) (string, error) {
	var reply string
	err := call(ctx, c.cc, workerCallMethod, "GetDataFolder", &reply)
	return reply, err
}

func (c *WorkerClient) GetUserTempFolder(ctx context.Context, userID int64) (string, error) {
	var reply string
	err := call(ctx, c.cc, workerCallMethod, "GetUserTempFolder", &reply, userID)
	return reply, err
}

func (c *WorkerClient) GetUserUnderfsTempFolder(ctx context.Context, userID int64) (string, error) {
	var reply string
	err := call(ctx, c.cc, workerCallMethod, "GetUserUnderfsTempFolder", &reply, userID)
	return reply, err
}

func (c *WorkerClient) LockFile(ctx context.Context, fileID int32, userID int64) error {
	return call(ctx, c.cc, workerCallMethod, "LockFile", nil, fileID, userID)
}

func (c *WorkerClient) ReturnSpace(ctx context.Context, userID int64, bytes int64) error {
	return call(ctx, c.cc, workerCallMethod, "ReturnSpace", nil, userID, bytes)
}

func (c *WorkerClient) RequestSpace(ctx context.Context, userID int64, bytes int64) (bool, error) {
	var reply bool
	err := call(ctx, c.cc, workerCallMethod, "RequestSpace", &reply, userID, bytes)
	return reply, err
}

func (c *WorkerClient) UnlockFile(ctx context.Context, fileID int32, userID int64) error {
	return call(ctx, c.cc, workerCallMethod, "UnlockFile", nil, fileID, userID)
}

func (c *WorkerClient) UserHeartbeat(ctx context.Context, userID int64) error {
	return call(ctx, c.cc, workerCallMethod, "UserHeartbeat", nil, userID)
}
