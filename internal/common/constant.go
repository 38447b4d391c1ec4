package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// InboundSecretHeaderName is the HTTP header carrying the shared webhook secret.
const InboundSecretHeaderName = "x-inbound-secret"
