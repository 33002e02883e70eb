// Package client contains the client-side building blocks of the
// AliasVault CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the API interface) covering
//     the SRP login round-trips, registration, token revocation, two-factor
//     management and vault get/merge/update/change-password.
//  2. RESTClient, built on resty, which talks to the /v1 HTTP API.
//  3. GRPCClient, which calls the aliasvault.v1 gRPC services with the
//     json codec and injects the access token via an interceptor.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// Both transports refresh an expired access token once and retry the call;
// OnTokensRefreshed lets the caller persist the rotated pair.
//
// # Error Handling
//
// Server failures are returned as *ServerError wrapping a sentinel from
// the common package (or *common.ConflictError), so callers can match with
// errors.Is and errors.As. Transport failures map to ErrUnavailable.
package client
