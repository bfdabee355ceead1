package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a grpc/encoding.Codec that marshals request/response
// payloads as JSON instead of protobuf wire format. The Brain's transport
// has no .proto-generated stubs (spec.md's scope never calls for a second
// serialization format beyond the declarative YAML the registries already
// use), so messages are plain Go structs tagged for encoding/json and
// exchanged over grpc's framing, interceptor chain, and streaming
// machinery as-is.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
