package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
)

// AuditRecorder receives login and logout events. Implementations swallow
// their own failures: recording never changes the outcome returned to the
// caller.
type AuditRecorder interface {
	RecordLogin(ctx context.Context, userID int64, ipAddress, userAgent string)
	RecordFailedLogin(ctx context.Context, userID *int64, ipAddress, userAgent string)
	RecordLogout(ctx context.Context, userID int64)
}

// RegisterRequest holds the fields accepted at registration.
type RegisterRequest struct {
	Email    string
	Password string
	FullName *string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
	Session     *Session
}

// Authenticator orchestrates registration, login and logout over the
// credential store, session manager, token codec and audit log.
type Authenticator struct {
	users    UserRepository
	sessions *SessionManager
	hasher   *PasswordHasher
	tokens   *TokenCodec
	audit    AuditRecorder
	tokenTTL time.Duration
	logger   *slog.Logger

	// dummyHash is verified against when the email is unknown so that both
	// failure paths cost one hash computation.
	dummyHash string
}

// AuthenticatorDeps holds the collaborators of an Authenticator.
type AuthenticatorDeps struct {
	Users    UserRepository
	Sessions *SessionManager
	Hasher   *PasswordHasher
	Tokens   *TokenCodec
	Audit    AuditRecorder
	TokenTTL time.Duration
	Logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. Audit and Logger are optional.
func NewAuthenticator(deps AuthenticatorDeps) (*Authenticator, error) {
	if deps.Users == nil || deps.Sessions == nil || deps.Hasher == nil || deps.Tokens == nil {
		return nil, errors.New("authenticator: users, sessions, hasher and tokens are required")
	}
	if deps.TokenTTL <= 0 {
		return nil, errors.New("authenticator: token ttl must be positive")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dummy, err := deps.Hasher.Hash("apistudio-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("authenticator: %w", err)
	}

	return &Authenticator{
		users:     deps.Users,
		sessions:  deps.Sessions,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		audit:     deps.Audit,
		tokenTTL:  deps.TokenTTL,
		logger:    logger.With("component", "auth"),
		dummyHash: dummy,
	}, nil
}

// Register creates a new active account with the user role.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email, err := ValidateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, ErrInvalidPassword
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, err
	}

	a.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials, opens a session, records the attempt and
// returns a bearer token bound to the new session.
//
// An unknown email and a wrong password both return ErrInvalidCredentials
// (audited with a nil and a known user id respectively). A correct password
// on a deactivated account returns ErrUserInactive.
func (a *Authenticator) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		_, _ = a.hasher.Verify(password, a.dummyHash) //nolint:errcheck // timing only
		a.recordFailed(ctx, nil, client)
		return nil, ErrInvalidCredentials
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		a.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		a.recordFailed(ctx, &user.ID, client)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		a.recordFailed(ctx, &user.ID, client)
		return nil, ErrUserInactive
	}

	if a.hasher.NeedsRehash(user.PasswordHash) {
		a.rehash(ctx, user.ID, password)
	}

	session, err := a.sessions.CreateSession(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if a.audit != nil {
		a.audit.RecordLogin(ctx, user.ID, client.IPAddress, client.UserAgent)
	}

	token, err := a.tokens.Issue(TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.SessionID,
	}, a.tokenTTL)
	if err != nil {
		return nil, err
	}

	a.logger.Info("login succeeded", "user_id", user.ID, "session_id", session.SessionID)
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(a.tokenTTL),
		User:        user,
		Session:     session,
	}, nil
}

// Logout revokes the session the caller's token references and closes the
// most recent open login audit row. A session that is already gone is not
// an error.
func (a *Authenticator) Logout(ctx context.Context, userID int64, sessionID string) error {
	if _, err := a.sessions.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	if a.audit != nil {
		a.audit.RecordLogout(ctx, userID)
	}
	return nil
}

// ParseToken is the first authentication check: signature, algorithm and
// expiry. It never consults the session store.
func (a *Authenticator) ParseToken(token string) (*TokenClaims, error) {
	return a.tokens.Parse(token)
}

// LookupUser resolves the subject of a parsed token.
func (a *Authenticator) LookupUser(ctx context.Context, userID int64) (*User, error) {
	return a.users.GetByID(ctx, userID)
}

// ValidateSession is the second authentication check: the session named
// in the token must still be active for that user.
func (a *Authenticator) ValidateSession(ctx context.Context, claims *TokenClaims) (*Session, error) {
	return a.sessions.ValidateSession(ctx, claims.SessionID, claims.UserID)
}

// Sessions returns the session manager.
func (a *Authenticator) Sessions() *SessionManager {
	return a.sessions
}

func (a *Authenticator) recordFailed(ctx context.Context, userID *int64, client ClientInfo) {
	if a.audit != nil {
		a.audit.RecordFailedLogin(ctx, userID, client.IPAddress, client.UserAgent)
	}
}

func (a *Authenticator) rehash(ctx context.Context, userID int64, password string) {
	hash, err := a.hasher.Hash(password)
	if err == nil {
		err = a.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		a.logger.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	a.logger.Info("password hash upgraded", "user_id", userID)
}

// ValidateEmail checks that s is a bare address (no display name) and
// returns it normalised.
func ValidateEmail(s string) (string, error) {
	email := NormalizeEmail(s)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
