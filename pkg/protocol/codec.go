package protocol

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec marshals umbilical messages as JSON instead of the protobuf
// wire format: there is no .proto IDL or protoc toolchain available here
// to generate wire-compatible protobuf bindings by hand with any
// confidence. Registering under grpc's own codec name ("proto") overrides
// the default codec grpc installs for that name at init time, so every
// Umbilical call below still goes over a real gRPC connection with real
// framing, flow control and keepalive — only the message encoding
// differs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
