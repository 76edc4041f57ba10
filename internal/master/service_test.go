package master

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/errs"
	"github.com/tachyoncache/tachyon/internal/rpc"
)

func newTestService() (*Service, *clock.SimulatedClock) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	svc := New(clk, Config{WorkerTimeoutMs: 30_000, UnderfsAddress: "ufs://bucket"})
	return svc, clk
}

func TestCreateAndCacheHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	fileID, err := svc.UserCreateFile(ctx, "/a.dat")
	require.NoError(t, err)

	rv, err := svc.WorkerRegister(ctx, rpc.NetAddress{Host: "h1", Port: 9000}, 1<<20, 0, nil)
	require.NoError(t, err)
	workerID, _ := rpc.DecodeRegistration(rv)

	require.NoError(t, svc.WorkerCacheFile(ctx, workerID, 1024, fileID, 1024))

	info, err := svc.UserGetClientFileInfoByID(ctx, fileID)
	require.NoError(t, err)
	assert.True(t, info.Ready)
	assert.Equal(t, int64(1024), info.SizeBytes)
	assert.True(t, info.InMemory)

	locations, err := svc.UserGetFileLocationsByID(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "h1", locations[0].Host)
}

func TestWorkerCacheFile_SizeDisagreementFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	fileID, err := svc.UserCreateFile(ctx, "/a.dat")
	require.NoError(t, err)
	rv, err := svc.WorkerRegister(ctx, rpc.NetAddress{Host: "h1"}, 1<<20, 0, nil)
	require.NoError(t, err)
	workerID, _ := rpc.DecodeRegistration(rv)

	require.NoError(t, svc.WorkerCacheFile(ctx, workerID, 1024, fileID, 1024))

	err = svc.WorkerCacheFile(ctx, workerID, 2048, fileID, 2048)
	require.Error(t, err)
	assert.True(t, errs.IsSuspectedFileSize(err))
}

func TestDeleteThenHeartbeat_EnqueuesDeleteCommand(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	fileID, err := svc.UserCreateFile(ctx, "/a.dat")
	require.NoError(t, err)
	rv, err := svc.WorkerRegister(ctx, rpc.NetAddress{Host: "h1"}, 1<<20, 0, nil)
	require.NoError(t, err)
	workerID, _ := rpc.DecodeRegistration(rv)
	require.NoError(t, svc.WorkerCacheFile(ctx, workerID, 1024, fileID, 1024))

	ok, err := svc.UserDeleteByID(ctx, fileID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	cmd, err := svc.WorkerHeartbeat(ctx, workerID, 1024, nil)
	require.NoError(t, err)
	assert.Equal(t, rpc.CommandDelete, cmd.Type)
	assert.Equal(t, []int32{fileID}, cmd.Data)
}

func TestMasterRestart_ForcesWorkerReRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.WorkerHeartbeat(ctx, 123, 0, nil)
	require.NoError(t, err)

	cmd, err := svc.WorkerHeartbeat(ctx, 123, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, rpc.CommandRegister, cmd.Type)
}

func TestWorkerTimeout_RemovesFromRegistryAndLocations(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService()

	fileID, err := svc.UserCreateFile(ctx, "/a.dat")
	require.NoError(t, err)
	rv, err := svc.WorkerRegister(ctx, rpc.NetAddress{Host: "h1"}, 1<<20, 0, nil)
	require.NoError(t, err)
	workerID, _ := rpc.DecodeRegistration(rv)
	require.NoError(t, svc.WorkerCacheFile(ctx, workerID, 1024, fileID, 1024))

	clk.AdvanceTime(31 * time.Second)
	timedOut := svc.EvictTimedOutWorkers()
	require.Equal(t, []int32{workerID}, timedOut)

	locations, err := svc.UserGetFileLocationsByID(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestUserGetWorker_HostConstraintFailsWithNoLocalWorker(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.WorkerRegister(ctx, rpc.NetAddress{Host: "h1"}, 1<<20, 0, nil)
	require.NoError(t, err)

	_, err = svc.UserGetWorker(ctx, false, "h2")
	require.Error(t, err)
	var target *errs.NoLocalWorker
	assert.ErrorAs(t, err, &target)

	addr, err := svc.UserGetWorker(ctx, false, "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", addr.Host)
}

func TestRawTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	id, err := svc.UserCreateRawTable(ctx, "/t", 2, []byte("m1"))
	require.NoError(t, err)

	info, err := svc.UserGetClientRawTableInfoByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Columns)
	assert.Equal(t, []byte("m1"), info.Metadata)

	require.NoError(t, svc.UserUpdateRawTableMetadata(ctx, id, []byte("m2")))
	info, err = svc.UserGetClientRawTableInfoByPath(ctx, "/t")
	require.NoError(t, err)
	assert.Equal(t, []byte("m2"), info.Metadata)
}

func TestUserGetUnderfsAddress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	addr, err := svc.UserGetUnderfsAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ufs://bucket", addr)
}
