// Package grpcserver hosts rpc.MasterService and rpc.WorkerService on a
// real grpc.Server without a protoc code-generation step: each call is
// dispatched by method name and reflection against the interface value
// passed to Register*, rather than against a generated .pb.go stub.
package grpcserver

import (
	"bytes"
	"encoding/gob"
)

// Envelope is the single message type carried over the bridge's
// streaming RPC in both directions: a request names Method and carries
// one gob blob per argument (ctx excluded); a response carries the
// single return value's gob blob, or Err if the call failed.
type Envelope struct {
	Method string
	Args   [][]byte
	Reply  []byte
	Err    string
}

// codecName identifies gobCodec to grpc; it has nothing to do with the
// wire format other RPC clients would use, it only needs to be unique
// within this process.
const codecName = "tachyon-gob"

// gobCodec lets grpc carry Envelope values without protobuf.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func encodeArg(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeInto(raw []byte, ptr any) error {
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(ptr)
}
