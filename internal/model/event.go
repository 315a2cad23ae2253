package model

// IdentityEventKind names a session transition reported by the identity service.
type IdentityEventKind string

const (
	SignedIn  IdentityEventKind = "SIGNED_IN"
	SignedOut IdentityEventKind = "SIGNED_OUT"
	// TokenRefreshed is emitted when an expired access token was renewed.
	// The controller ignores it: the principal does not change.
	TokenRefreshed IdentityEventKind = "TOKEN_REFRESHED"
)

// IdentityEvent is delivered to identity subscribers, in order.
type IdentityEvent struct {
	Kind      IdentityEventKind
	Principal *Principal // set for SignedIn and TokenRefreshed
}

// SignInResult is what a password sign-in returns. A successful sign-in may
// carry a principal, only a session token, or (unexpectedly) neither.
type SignInResult struct {
	Principal   *Principal
	AccessToken string
}
