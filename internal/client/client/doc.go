// Package client contains the client-side adapters to external collaborators.
//
// # Overview
//
// The package provides:
//  1. GRPCProvider, the identity provider client. It creates accounts,
//     verifies credentials, ends sessions and requests password resets over
//     gRPC, keeps the provider-issued id token in memory and attaches it to
//     outgoing calls through an interceptor that also refreshes expired tokens.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Wire format
//
// Requests and replies are google.protobuf.Struct messages sent to methods of
// the miroir.identity.v1.IdentityService service. Liveness is checked with the
// standard gRPC health service.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors that callers match with
// errors.Is: ErrUnauthorized, ErrUnavailable, ErrInvalidArgument,
// ErrAccountExists.
package client
