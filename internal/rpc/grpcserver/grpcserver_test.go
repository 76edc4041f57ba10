package grpcserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/master"
	"github.com/tachyoncache/tachyon/internal/rpc"
	"github.com/tachyoncache/tachyon/internal/rpc/grpcserver"
)

func dialMaster(t *testing.T, svc *master.Service) (*grpcserver.MasterClient, func()) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer(grpcserver.ServerOptions()...)
	grpcserver.RegisterMasterServer(gs, svc, nil)
	go func() { _ = gs.Serve(lis) }()

	dialOpts := append(grpcserver.DialOptions(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	cc, err := grpc.NewClient("passthrough:///bufnet", dialOpts...)
	require.NoError(t, err)

	return grpcserver.NewMasterClient(cc), func() {
		_ = cc.Close()
		gs.Stop()
	}
}

func TestMasterBridge_RoundTripsUnaryCall(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	svc := master.New(clk, master.Config{WorkerTimeoutMs: 10_000, UnderfsAddress: "ufs://bucket"})

	client, closeFn := dialMaster(t, svc)
	defer closeFn()

	ctx := context.Background()
	addr, err := client.UserGetUnderfsAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ufs://bucket", addr)

	fileID, err := client.UserCreateFile(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.NotZero(t, fileID)

	got, err := client.UserGetFileID(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, fileID, got)
}

func TestMasterBridge_WorkerRegisterAndHeartbeatRoundTrip(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	svc := master.New(clk, master.Config{WorkerTimeoutMs: 10_000})

	client, closeFn := dialMaster(t, svc)
	defer closeFn()

	ctx := context.Background()
	rv, err := client.WorkerRegister(ctx, rpc.NetAddress{Host: "worker-1", Port: 8091}, 1<<30, 0, nil)
	require.NoError(t, err)
	workerID, _ := rpc.DecodeRegistration(rv)

	cmd, err := client.WorkerHeartbeat(ctx, workerID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, rpc.CommandNothing, cmd.Type)
}

func TestMasterBridge_UnknownPathIsNotACallError(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(1700000000, 0))
	svc := master.New(clk, master.Config{WorkerTimeoutMs: 10_000})

	client, closeFn := dialMaster(t, svc)
	defer closeFn()

	// A path that does not exist on the server-side Service comes back as
	// an ordinary reply, without a call error and without panicking the
	// bridge.
	_, err := client.UserGetFileID(context.Background(), "/does/not/exist")
	require.NoError(t, err, "unknown paths return -1, not an error, per UserGetFileID semantics")
}
