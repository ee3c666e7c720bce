package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// identity token on outbound requests.
const AccessTokenHeaderName = "authorization"

// RequestIDHeaderName carries the per-operation correlation id.
const RequestIDHeaderName = "x-request-id"
