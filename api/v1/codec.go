// Package apiv1 is the wire contract of the tenancy gRPC API: request and
// response messages, service descriptors and the JSON codec they travel in.
//
// Messages are plain Go structs encoded as JSON. Clients select the codec
// with the "json" content subtype (application/grpc+json); see CallOptions.
package apiv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content subtype served by Codec.
const CodecName = "json"

// Codec marshals API messages with encoding/json. Protobuf messages, such as
// the standard health service's, go through protojson so both kinds can
// share a connection.
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, m)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
