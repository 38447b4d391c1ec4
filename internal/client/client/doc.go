// Package client contains client-side building blocks for finsync.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface) for talking to
//     the finsync server: Ping and Import.
//  2. A gRPC implementation (see GRPCClient) that injects the access token
//     through an interceptor, bounds every call with a request timeout and
//     maps gRPC status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     SQLite queue and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized.
package client
