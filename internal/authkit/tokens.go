package authkit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClass distinguishes the two bearer token classes the codec signs.
type TokenClass string

const (
	// TokenClassAccess is the short-lived per-request token.
	TokenClassAccess TokenClass = "access"
	// TokenClassRefresh is the long-lived token used only to mint new access tokens.
	TokenClassRefresh TokenClass = "refresh"
)

// SessionClaims is the payload embedded in both token classes.
type SessionClaims struct {
	UserID     string `json:"user_id"`
	TokenClass string `json:"token_class"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access and refresh tokens with distinct
// HS256 secrets.
type TokenCodec struct {
	accessSigningKey  []byte
	refreshSigningKey []byte
	issuer            string
	accessTTL         time.Duration
	refreshTTL        time.Duration
	clock             Clock
}

// NewTokenCodec constructs a TokenCodec after validating the configuration.
func NewTokenCodec(configuration ServerConfig, clock Clock) (*TokenCodec, error) {
	if len(configuration.AccessSigningKey) == 0 {
		return nil, fmt.Errorf("token_codec.new: access signing key must be non-empty")
	}
	if len(configuration.RefreshSigningKey) == 0 {
		return nil, fmt.Errorf("token_codec.new: refresh signing key must be non-empty")
	}
	if string(configuration.AccessSigningKey) == string(configuration.RefreshSigningKey) {
		return nil, fmt.Errorf("token_codec.new: access and refresh signing keys must differ")
	}
	if configuration.AccessTTL <= 0 || configuration.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token_codec.new: token TTLs must be greater than zero")
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("token_codec.new: issuer must be non-empty")
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenCodec{
		accessSigningKey:  configuration.AccessSigningKey,
		refreshSigningKey: configuration.RefreshSigningKey,
		issuer:            configuration.Issuer,
		accessTTL:         configuration.AccessTTL,
		refreshTTL:        configuration.RefreshTTL,
		clock:             clock,
	}, nil
}

// MintAccessToken creates a signed access token for the user.
func (codec *TokenCodec) MintAccessToken(userID string) (string, time.Time, error) {
	return codec.mint(userID, TokenClassAccess, codec.accessSigningKey, codec.accessTTL)
}

// MintRefreshToken creates a signed refresh token for the user.
func (codec *TokenCodec) MintRefreshToken(userID string) (string, time.Time, error) {
	return codec.mint(userID, TokenClassRefresh, codec.refreshSigningKey, codec.refreshTTL)
}

// Verify checks the signature, expiry, issuer, and class of the token and
// returns the embedded user id. Expired tokens fail with ErrTokenExpired,
// anything malformed or forged fails with ErrTokenInvalid.
func (codec *TokenCodec) Verify(tokenString string, class TokenClass) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	signingKey := codec.accessSigningKey
	if class == TokenClassRefresh {
		signingKey = codec.refreshSigningKey
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return codec.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token_codec.verify: %w", ErrTokenExpired)
		}
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	claims, ok := parsedToken.Claims.(*SessionClaims)
	if !ok || claims.UserID == "" {
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	if claims.Issuer != codec.issuer {
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	if claims.TokenClass != string(class) {
		return "", fmt.Errorf("token_codec.verify: %w", ErrTokenInvalid)
	}
	return claims.UserID, nil
}

func (codec *TokenCodec) mint(userID string, class TokenClass, signingKey []byte, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, fmt.Errorf("token_codec.mint: subject must be non-empty")
	}
	issuedAt := codec.clock.Now()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:     userID,
		TokenClass: string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    codec.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(signingKey)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("token_codec.mint: %w", signErr)
	}
	return signed, expiresAt, nil
}
