package authkit

import "errors"

var (
	// ErrIdentityNotFound indicates no identity exists for the supplied email or id.
	ErrIdentityNotFound = errors.New("auth.identity.not_found")
	// ErrEmailTaken indicates an identity already exists for the supplied email.
	ErrEmailTaken = errors.New("auth.identity.email_taken")
	// ErrInvalidCredential indicates the password comparison failed.
	ErrInvalidCredential = errors.New("auth.invalid_credential")
	// ErrUnauthenticated indicates a missing, revoked, or mismatched token.
	ErrUnauthenticated = errors.New("auth.unauthenticated")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth.token.expired")
	// ErrTokenInvalid indicates a malformed or badly signed token.
	ErrTokenInvalid = errors.New("auth.token.invalid")
	// ErrForbidden indicates an authenticated identity with an insufficient role.
	ErrForbidden = errors.New("auth.forbidden")
	// ErrSessionNotFound indicates no session record exists for the user.
	ErrSessionNotFound = errors.New("auth.session.not_found")
	// ErrStoreUnavailable indicates the credential or session store is unreachable.
	ErrStoreUnavailable = errors.New("auth.store.unavailable")
)
