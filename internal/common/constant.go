package common

const (
	// AuthorizationHeaderName carries the bearer credential on requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// TokenType is reported to clients alongside issued access tokens.
	TokenType = "bearer"
)
