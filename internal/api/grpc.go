package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// gRPC service names. Method names match the REST handler names.
const (
	GRPCAuthService  = "aliasvault.v1.Auth"
	GRPCVaultService = "aliasvault.v1.Vault"
)

// GRPCReasonVaultConflict is the ErrorInfo reason attached to Aborted
// errors; GRPCLatestRevisionKey names the metadata entry with the revision
// the server holds.
const (
	GRPCReasonVaultConflict = "VAULT_CONFLICT"
	GRPCLatestRevisionKey   = "latestRevision"
)

// GRPCCodecName is the content-subtype callers select with
// grpc.CallContentSubtype, giving "application/grpc+json" on the wire.
const GRPCCodecName = "json"

// jsonCodec carries the structs of this package as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return GRPCCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
