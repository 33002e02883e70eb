// Package common contains shared constants and sentinel errors used across
// AliasVault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// ClientHeaderName identifies the client application that uploaded a vault.
const ClientHeaderName = "X-AliasVault-Client"
