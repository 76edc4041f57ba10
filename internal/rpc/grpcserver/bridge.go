package grpcserver

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/tachyoncache/tachyon/internal/logger"
)

// CallObserver is notified after every dispatched method call, with the
// wall-clock time it took and the error it returned (nil on success).
// Passed to RegisterMasterServer/RegisterWorkerServer to attach RPC
// latency metrics without the bridge itself depending on a metrics
// package.
type CallObserver func(method string, d time.Duration, err error)

const (
	masterServiceName = "tachyon.rpc.Master"
	workerServiceName = "tachyon.rpc.Worker"
	callStreamName    = "Call"
	masterCallMethod  = "/" + masterServiceName + "/" + callStreamName
	workerCallMethod  = "/" + workerServiceName + "/" + callStreamName
)

// ServerOptions returns the grpc.ServerOption(s) required to host a
// bridge server -- forcing gobCodec in place of the default protobuf
// codec, since Register* below never generates .pb.go message types.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(gobCodec{})}
}

// DialOptions returns the grpc.DialOption(s) required to talk to a
// bridge server.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{}))}
}

// serviceDesc builds a grpc.ServiceDesc exposing a single
// bidirectional-streaming method ("Call") that serve dispatches against
// impl by reflection.
func serviceDesc(serviceName string, impl any, observe CallObserver) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{
			{
				StreamName: callStreamName,
				Handler: func(_ any, stream grpc.ServerStream) error {
					return serve(impl, stream, observe)
				},
				ServerStreams: true,
				ClientStreams: true,
			},
		},
	}
}

// RegisterMasterServer hosts impl on gs under the bridge's reflective
// dispatch. observe, if non-nil, is called after every dispatched
// method with its latency and result.
func RegisterMasterServer(gs *grpc.Server, impl any, observe CallObserver) {
	gs.RegisterService(serviceDesc(masterServiceName, impl, observe), impl)
}

// RegisterWorkerServer hosts impl on gs under the bridge's reflective
// dispatch. observe, if non-nil, is called after every dispatched
// method with its latency and result.
func RegisterWorkerServer(gs *grpc.Server, impl any, observe CallObserver) {
	gs.RegisterService(serviceDesc(workerServiceName, impl, observe), impl)
}

// serve answers every Envelope request arriving on stream until the
// client closes it. Each call is assigned a fresh request id, attached
// to the context so any logging dispatch does can be correlated back
// to this one call.
func serve(impl any, stream grpc.ServerStream, observe CallObserver) error {
	for {
		var req Envelope
		if err := stream.RecvMsg(&req); err != nil {
			return err
		}

		ctx := logger.WithRequestID(stream.Context(), uuid.New().String())
		log := logger.FromContext(ctx)
		log.Debug("rpc call received", "method", req.Method)

		start := time.Now()
		reply, callErr := dispatch(ctx, impl, req.Method, req.Args)
		d := time.Since(start)
		if observe != nil {
			observe(req.Method, d, callErr)
		}
		if callErr != nil {
			log.Warn("rpc call failed", "method", req.Method, "duration", d, "err", callErr)
		} else {
			log.Debug("rpc call completed", "method", req.Method, "duration", d)
		}

		resp := Envelope{Reply: reply}
		if callErr != nil {
			resp.Err = callErr.Error()
		}
		if err := stream.SendMsg(&resp); err != nil {
			return err
		}
	}
}

// dispatch looks up method on impl by name and calls it with ctx as the
// first argument and rawArgs gob-decoded into the remaining parameter
// types, per the method's own reflect.Type.
func dispatch(ctx context.Context, impl any, method string, rawArgs [][]byte) ([]byte, error) {
	fn := reflect.ValueOf(impl).MethodByName(method)
	if !fn.IsValid() {
		return nil, fmt.Errorf("grpcserver: %T has no method %q", impl, method)
	}
	fnType := fn.Type()
	if fnType.NumIn() != len(rawArgs)+1 {
		return nil, fmt.Errorf("grpcserver: %s expects %d args, got %d", method, fnType.NumIn()-1, len(rawArgs))
	}

	args := make([]reflect.Value, fnType.NumIn())
	args[0] = reflect.ValueOf(ctx)
	for i, raw := range rawArgs {
		argPtr := reflect.New(fnType.In(i + 1))
		if err := decodeInto(raw, argPtr.Interface()); err != nil {
			return nil, fmt.Errorf("grpcserver: decode arg %d of %s: %w", i, method, err)
		}
		args[i+1] = argPtr.Elem()
	}

	results := fn.Call(args)
	errVal := results[len(results)-1]
	var callErr error
	if !errVal.IsNil() {
		callErr = errVal.Interface().(error)
	}
	if len(results) == 1 {
		return nil, callErr
	}
	reply, err := encodeArg(results[0].Interface())
	if err != nil {
		return nil, fmt.Errorf("grpcserver: encode reply of %s: %w", method, err)
	}
	return reply, callErr
}
