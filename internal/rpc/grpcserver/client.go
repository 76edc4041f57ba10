package grpcserver

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
)

// call opens one Call stream, sends a single Envelope naming method and
// args, and decodes the single response into replyPtr (nil if the
// callee returns only an error).
func call(ctx context.Context, cc *grpc.ClientConn, fullMethod, method string, replyPtr any, args ...any) error {
	stream, err := cc.NewStream(ctx, &grpc.StreamDesc{
		StreamName:    callStreamName,
		ServerStreams: true,
		ClientStreams: true,
	}, fullMethod)
	if err != nil {
		return fmt.Errorf("grpcserver: open stream for %s: %w", method, err)
	}

	raw := make([][]byte, len(args))
	for i, a := range args {
		b, err := encodeArg(a)
		if err != nil {
			return fmt.Errorf("grpcserver: encode arg %d of %s: %w", i, method, err)
		}
		raw[i] = b
	}

	if err := stream.SendMsg(&Envelope{Method: method, Args: raw}); err != nil {
		return fmt.Errorf("grpcserver: send %s: %w", method, err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("grpcserver: close send for %s: %w", method, err)
	}

	var resp Envelope
	if err := stream.RecvMsg(&resp); err != nil {
		return fmt.Errorf("grpcserver: recv %s: %w", method, err)
	}
	if resp.Err != "" {
		return errors.New(resp.Err)
	}
	if replyPtr != nil && len(resp.Reply) > 0 {
		return decodeInto(resp.Reply, replyPtr)
	}
	return nil
}
