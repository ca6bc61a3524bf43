package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenPair is an access/refresh token pair minted together at login.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager orchestrates signup, login, logout, and refresh. It holds
// no per-request state; the session record in the token store is the single
// source of truth for refresh-token validity.
type SessionManager struct {
	codec    *TokenCodec
	users    UserStore
	sessions SessionTokenStore
	ttl      time.Duration
	logger   *zap.Logger
	metrics  MetricsRecorder
}

// NewSessionManager wires the codec and stores into a session manager.
func NewSessionManager(codec *TokenCodec, users UserStore, sessions SessionTokenStore, refreshTTL time.Duration, logger *zap.Logger, metrics MetricsRecorder) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SessionManager{
		codec:    codec,
		users:    users,
		sessions: sessions,
		ttl:      refreshTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// Signup creates a new customer identity. It does not start a session;
// the caller logs in separately.
func (manager *SessionManager) Signup(ctx context.Context, name string, email string, password string) (Identity, error) {
	identity, createErr := manager.users.Create(ctx, name, normalizeEmail(email), password, RoleCustomer)
	if createErr != nil {
		return Identity{}, createErr
	}
	manager.metrics.Increment(metricAuthSignupSuccess)
	return identity.Sanitized(), nil
}

// Login verifies the credential, mints a token pair, and stores the refresh
// token keyed by user id. Any previously issued refresh token for the user
// becomes unusable because Refresh requires exact match against the single
// stored value.
func (manager *SessionManager) Login(ctx context.Context, email string, password string) (Identity, TokenPair, error) {
	identity, findErr := manager.users.FindByEmail(ctx, normalizeEmail(email))
	if findErr != nil {
		manager.metrics.Increment(metricAuthLoginFailure)
		return Identity{}, TokenPair{}, findErr
	}
	if !manager.users.VerifyPassword(ctx, identity, password) {
		manager.metrics.Increment(metricAuthLoginFailure)
		return Identity{}, TokenPair{}, fmt.Errorf("session.login: %w", ErrInvalidCredential)
	}

	accessToken, accessExpiresAt, accessErr := manager.codec.MintAccessToken(identity.ID)
	if accessErr != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("session.login: %w", accessErr)
	}
	refreshToken, refreshExpiresAt, refreshErr := manager.codec.MintRefreshToken(identity.ID)
	if refreshErr != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("session.login: %w", refreshErr)
	}
	if storeErr := manager.sessions.Set(ctx, identity.ID, refreshToken, manager.ttl); storeErr != nil {
		return Identity{}, TokenPair{}, fmt.Errorf("session.login: %w", storeErr)
	}

	manager.metrics.Increment(metricAuthLoginSuccess)
	return identity.Sanitized(), TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Logout deletes the session record for the refresh token's user when the
// token verifies. It is idempotent: a missing or invalid token is not an
// error, since logout exists for client-side cleanup.
func (manager *SessionManager) Logout(ctx context.Context, presentedRefresh string) error {
	if strings.TrimSpace(presentedRefresh) == "" {
		manager.metrics.Increment(metricAuthLogoutSuccess)
		return nil
	}
	userID, verifyErr := manager.codec.Verify(presentedRefresh, TokenClassRefresh)
	if verifyErr != nil {
		manager.metrics.Increment(metricAuthLogoutSuccess)
		return nil
	}
	if delErr := manager.sessions.Del(ctx, userID); delErr != nil && !errors.Is(delErr, ErrSessionNotFound) {
		return fmt.Errorf("session.logout: %w", delErr)
	}
	manager.metrics.Increment(metricAuthLogoutSuccess)
	return nil
}

// Refresh validates the presented refresh token against the stored session
// record and mints a new access token. The refresh token itself is not
// rotated; it stays valid until its own expiry, a new login, or logout.
func (manager *SessionManager) Refresh(ctx context.Context, presentedRefresh string) (string, time.Time, error) {
	if strings.TrimSpace(presentedRefresh) == "" {
		manager.metrics.Increment(metricAuthRefreshFailure)
		return "", time.Time{}, fmt.Errorf("session.refresh: %w", ErrUnauthenticated)
	}
	userID, verifyErr := manager.codec.Verify(presentedRefresh, TokenClassRefresh)
	if verifyErr != nil {
		manager.metrics.Increment(metricAuthRefreshFailure)
		return "", time.Time{}, fmt.Errorf("session.refresh: %w", verifyErr)
	}

	storedToken, getErr := manager.sessions.Get(ctx, userID)
	if getErr != nil {
		manager.metrics.Increment(metricAuthRefreshFailure)
		if errors.Is(getErr, ErrSessionNotFound) {
			return "", time.Time{}, fmt.Errorf("session.refresh: %w", ErrUnauthenticated)
		}
		return "", time.Time{}, fmt.Errorf("session.refresh: %w", getErr)
	}
	// Exact match covers revoked, rotated-out, and never-issued tokens.
	if storedToken != presentedRefresh {
		manager.metrics.Increment(metricAuthRefreshFailure)
		return "", time.Time{}, fmt.Errorf("session.refresh: %w", ErrUnauthenticated)
	}

	accessToken, accessExpiresAt, mintErr := manager.codec.MintAccessToken(userID)
	if mintErr != nil {
		return "", time.Time{}, fmt.Errorf("session.refresh: %w", mintErr)
	}
	manager.metrics.Increment(metricAuthRefreshSuccess)
	return accessToken, accessExpiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
