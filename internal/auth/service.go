package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"
)

// Device is the coarse identity of the requesting client, used for session
// binding and hijack detection.
type Device struct {
	Fingerprint string // user-agent string
	IP          string
}

// Actor is the authenticated capability threaded through orchestrator calls.
// It is derived from verified access-token claims, never from ambient state.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the actor may perform administrative operations.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// TokenPair is a freshly minted access/refresh pair plus the cookie lifetime
// the refresh token was issued with.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
}

// Mailer delivers transactional mail. Failures are logged, never fatal to
// the triggering flow.
type Mailer interface {
	SendVerificationMail(ctx context.Context, fullname, email, token string) error
	SendResetPasswordMail(ctx context.Context, fullname, email, token string) error
}

// Uploader stores an uploaded file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
}

// AvatarUpload is an optional file attached to registration.
type AvatarUpload struct {
	Filename string
	Body     io.Reader
}

// Service is the auth orchestrator. It owns all business-rule decisions and
// error mapping; collaborators are injected, never reached through globals.
type Service struct {
	users       UserStore
	sessions    SessionStore
	tokens      *TokenManager
	mailer      Mailer
	uploader    Uploader
	google      GoogleVerifier
	locator     IPLocator
	maxSessions int
}

// ServiceOptions carries the collaborators a Service composes.
type ServiceOptions struct {
	Users       UserStore
	Sessions    SessionStore
	Tokens      *TokenManager
	Mailer      Mailer
	Uploader    Uploader
	Google      GoogleVerifier
	Locator     IPLocator
	MaxSessions int
}

// NewService creates the orchestrator.
func NewService(opts ServiceOptions) *Service {
	if opts.Locator == nil {
		opts.Locator = NoopLocator{}
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 5
	}
	return &Service{
		users:       opts.Users,
		sessions:    opts.Sessions,
		tokens:      opts.Tokens,
		mailer:      opts.Mailer,
		uploader:    opts.Uploader,
		google:      opts.Google,
		locator:     opts.Locator,
		maxSessions: opts.MaxSessions,
	}
}

// Register creates an unverified user and dispatches the verification mail.
// No session is created at this step.
func (s *Service) Register(ctx context.Context, req RegisterRequest, avatar *AvatarUpload) (SafeUser, error) {
	if err := req.Validate(); err != nil {
		return SafeUser{}, err
	}

	exists, err := s.users.ExistsByEmailOrFullname(ctx, req.Email, req.Fullname)
	if err != nil {
		return SafeUser{}, internalError(err)
	}
	if exists {
		return SafeUser{}, newError(CodeConflict, "User already exists")
	}

	user, err := NewUser(req.Fullname, req.Email, req.Password)
	if err != nil {
		return SafeUser{}, internalError(err)
	}

	action, err := s.tokens.GenerateActionToken()
	if err != nil {
		return SafeUser{}, internalError(err)
	}
	user.VerificationTokenHash = action.Hash
	user.VerificationTokenExpiry = &action.Expiry

	// Best-effort: a failed avatar upload never aborts registration.
	if avatar != nil && s.uploader != nil {
		url, err := s.uploader.Upload(ctx, avatar.Filename, avatar.Body)
		if err != nil {
			log.Printf("Avatar upload failed for %s: %v", user.Email, err)
		} else {
			user.Avatar = url
			log.Printf("Avatar uploaded successfully for %s", user.Email)
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return SafeUser{}, newError(CodeConflict, "User already exists")
		}
		return SafeUser{}, internalError(err)
	}

	// The token is persisted at this point, so the link in the mail is live.
	s.sendMailAsync(ctx, func(ctx context.Context) error {
		return s.mailer.SendVerificationMail(ctx, user.Fullname, user.Email, action.Raw)
	}, "verification", user.Email)

	log.Printf("User registered successfully: %s (%s)", user.Email, user.ID)
	return user.Sanitize(), nil
}

// VerifyEmail consumes a verification token, marks the user verified and
// opens the first session for the verifying device.
func (s *Service) VerifyEmail(ctx context.Context, token string, device Device) (*TokenPair, error) {
	if token == "" {
		return nil, newError(CodeInvalidArgument, "Token not found")
	}

	user, err := s.users.GetByVerificationToken(ctx, HashToken(token), time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, newError(CodeNotFound, "Verification token is invalid or expired")
		}
		return nil, internalError(err)
	}

	if err := s.users.SetVerified(ctx, user.ID); err != nil {
		return nil, internalError(err)
	}
	user.IsVerified = true

	pair, err := s.issueSession(ctx, user, device, false)
	if err != nil {
		return nil, err
	}

	log.Printf("User verified successfully: %s (%s)", user.Email, user.ID)
	return pair, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. The update is keyed by the user id.
func (s *Service) ResendVerification(ctx context.Context, req EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return newError(CodeNotFound, "User not found")
		}
		return internalError(err)
	}
	if user.IsVerified {
		return newError(CodeInvalidArgument, "User is already verified")
	}

	action, err := s.tokens.GenerateActionToken()
	if err != nil {
		return internalError(err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, action.Hash, action.Expiry); err != nil {
		return internalError(err)
	}

	s.sendMailAsync(ctx, func(ctx context.Context) error {
		return s.mailer.SendVerificationMail(ctx, user.Fullname, user.Email, action.Raw)
	}, "verification", user.Email)

	return nil
}

// Login authenticates credentials and upserts a session for the device.
func (s *Service) Login(ctx context.Context, req LoginRequest, device Device) (*TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, newError(CodeNotFound, "User not found")
		}
		return nil, internalError(err)
	}

	if !user.VerifyPassword(req.Password) {
		return nil, newError(CodeUnauthorized, "Invalid credentials")
	}
	if !user.IsVerified {
		return nil, newError(CodeForbidden, "User is not verified")
	}

	pair, err := s.issueSession(ctx, user, device, req.KeepSignedIn)
	if err != nil {
		return nil, err
	}

	log.Printf("User logged in successfully: %s (%s)", user.Email, user.ID)
	return pair, nil
}

// Refresh silently re-authenticates using the refresh cookie. It never
// extends privileges past the claims of the presented token.
func (s *Service) Refresh(ctx context.Context, rawRefresh string, device Device) (*TokenPair, error) {
	if rawRefresh == "" {
		return nil, newError(CodeUnauthorized, "Refresh token not found")
	}

	claims, err := s.tokens.VerifyRefreshToken(rawRefresh)
	if err != nil {
		return nil, wrapError(CodeUnauthorized, "Invalid refresh token", err)
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Covers revoked, rotated and stolen tokens alike.
			return nil, newError(CodeUnauthorized, "Invalid refresh token")
		}
		return nil, internalError(err)
	}

	now := time.Now().UTC()
	if session.Expired(now) {
		// An expired session found during refresh is the same as an absent one.
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Printf("Failed to delete expired session %s: %v", session.ID, err)
		}
		return nil, newError(CodeUnauthorized, "Invalid refresh token")
	}

	if session.Fingerprint != device.Fingerprint || session.IPAddress != device.IP {
		// Hard invalidation, not a retry.
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, internalError(err)
		}
		log.Printf("Session hijack suspected for user %s, session %s deleted", session.UserID, session.ID)
		return nil, newError(CodeSessionHijack, "Session has expired. Please log in again.")
	}

	// Privileges come from the original token's claims, not a fresh lookup.
	user := &User{ID: claims.UserID, Email: claims.Email, Role: claims.Role}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, internalError(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user, session.KeepSignedIn)
	if err != nil {
		return nil, internalError(err)
	}

	ttl := s.tokens.RefreshTTL(session.KeepSignedIn)
	if err := s.sessions.UpdateToken(ctx, session.ID, HashToken(refreshToken), now.Add(ttl)); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, newError(CodeUnauthorized, "Invalid refresh token")
		}
		return nil, internalError(err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, RefreshTTL: ttl}, nil
}

// Logout ends the session matching the refresh cookie. Deletion is
// best-effort; the handler clears cookies regardless.
func (s *Service) Logout(ctx context.Context, actor Actor, rawRefresh string) error {
	if rawRefresh == "" {
		return newError(CodeUnauthorized, "Refresh token not found")
	}

	if err := s.sessions.DeleteByTokenHash(ctx, HashToken(rawRefresh)); err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Printf("User logout failed: %s (%s): %v", actor.Email, actor.UserID, err)
		}
		return nil
	}

	log.Printf("User logged out successfully: %s (%s)", actor.Email, actor.UserID)
	return nil
}

// LogoutAll deletes every session for the actor except the current one.
func (s *Service) LogoutAll(ctx context.Context, actor Actor, rawRefresh string) error {
	if rawRefresh == "" {
		return newError(CodeUnauthorized, "Refresh token not found")
	}

	if err := s.sessions.DeleteAllExcept(ctx, actor.UserID, HashToken(rawRefresh)); err != nil {
		return internalError(err)
	}

	log.Printf("Logged out all other sessions for user %s", actor.UserID)
	return nil
}

// ActiveSessions lists the actor's sessions with the current one flagged.
func (s *Service) ActiveSessions(ctx context.Context, actor Actor, rawRefresh string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err)
	}

	currentHash := ""
	if rawRefresh != "" {
		currentHash = HashToken(rawRefresh)
	}

	now := time.Now().UTC()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info := FormatSession(ctx, sess, s.locator, now)
		info.IsCurrent = sess.RefreshTokenHash == currentHash
		infos = append(infos, info)
	}
	return infos, nil
}

// LogoutSession ends one session by id. The actor must own it or be admin.
func (s *Service) LogoutSession(ctx context.Context, actor Actor, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return newError(CodeNotFound, "Session not found")
		}
		return internalError(err)
	}

	if session.UserID != actor.UserID && !actor.IsAdmin() {
		return newError(CodeForbidden, "You do not have permission to end this session")
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return internalError(err)
	}

	log.Printf("Session %s ended by %s", sessionID, actor.UserID)
	return nil
}

// ForgotPasswordResult distinguishes federated accounts without revealing
// whether an account exists.
type ForgotPasswordResult struct {
	Message string
	Code    string // "OAUTH_USER" for federated accounts, empty otherwise
}

const forgotPasswordMessage = "If you have an account with us, we will send you an email to reset your password"

// ForgotPassword always reports the same generic success for existing and
// unknown emails; only the side effect differs.
func (s *Service) ForgotPassword(ctx context.Context, req EmailRequest) (ForgotPasswordResult, error) {
	if err := req.Validate(); err != nil {
		return ForgotPasswordResult{}, err
	}

	generic := ForgotPasswordResult{Message: forgotPasswordMessage}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return generic, nil
		}
		return ForgotPasswordResult{}, internalError(err)
	}

	if user.Provider != ProviderCustom {
		return ForgotPasswordResult{
			Message: "You signed up using Google. Please use Google Sign-in to access your account.",
			Code:    "OAUTH_USER",
		}, nil
	}

	action, err := s.tokens.GenerateActionToken()
	if err != nil {
		return ForgotPasswordResult{}, internalError(err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, action.Hash, action.Expiry); err != nil {
		return ForgotPasswordResult{}, internalError(err)
	}

	s.sendMailAsync(ctx, func(ctx context.Context) error {
		return s.mailer.SendResetPasswordMail(ctx, user.Fullname, user.Email, action.Raw)
	}, "password reset", user.Email)

	return generic, nil
}

// ResetPassword consumes a reset token, stores the new password and deletes
// every session for the user to force re-login everywhere.
func (s *Service) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) error {
	if token == "" {
		return newError(CodeInvalidArgument, "Token not found")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.GetByResetToken(ctx, HashToken(token), time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return newError(CodeNotFound, "Reset password token is invalid or expired")
		}
		return internalError(err)
	}

	if user.VerifyPassword(req.Password) {
		return newError(CodeInvalidArgument, "New password must be different from the current password")
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return internalError(err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hashed); err != nil {
		return internalError(err)
	}

	// Blast-radius limiting after a credential change.
	if err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
		return internalError(err)
	}

	log.Printf("Password reset successfully: %s (%s)", user.Email, user.ID)
	return nil
}

// LoginWithGoogle validates a Google ID token, creating the account on first
// login. Email is the unification key across providers.
func (s *Service) LoginWithGoogle(ctx context.Context, req GoogleLoginRequest, device Device) (*TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := s.google.Verify(ctx, req.Token)
	if err != nil {
		return nil, wrapError(CodeUnauthorized, "Invalid Google token", err)
	}
	if payload.Name == "" || payload.Email == "" {
		return nil, newError(CodeInvalidArgument, "Invalid Google token")
	}

	user, err := s.users.GetByEmail(ctx, payload.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, internalError(err)
		}
		user = NewGoogleUser(payload.Name, payload.Email, payload.Picture)
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, ErrDuplicateUser) {
				return nil, newError(CodeConflict, "User already exists")
			}
			return nil, internalError(err)
		}
	}

	pair, err := s.issueSession(ctx, user, device, req.KeepSignedIn)
	if err != nil {
		return nil, err
	}

	log.Printf("User %s logged in with Google successfully", user.Email)
	return pair, nil
}

// Profile returns the sanitized record for the acting user.
func (s *Service) Profile(ctx context.Context, actor Actor) (SafeUser, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return SafeUser{}, newError(CodeNotFound, "User not found")
		}
		return SafeUser{}, internalError(err)
	}
	return user.Sanitize(), nil
}

// issueSession applies the session-cap policy and upserts the session for
// the device, minting a fresh token pair.
//
// Two concurrent logins on different fingerprints can race the cap check;
// that relaxation is accepted rather than guarded with locks.
func (s *Service) issueSession(ctx context.Context, user *User, device Device, keepSignedIn bool) (*TokenPair, error) {
	existing, err := s.sessions.GetByUserAndFingerprint(ctx, user.ID, device.Fingerprint)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, internalError(err)
	}

	if existing == nil {
		count, err := s.sessions.CountByUser(ctx, user.ID)
		if err != nil {
			return nil, internalError(err)
		}
		if count >= s.maxSessions {
			return nil, newError(CodeSessionLimitExceeded,
				"You have reached the maximum number of sessions. Please log out of an existing session to create a new one.")
		}
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, internalError(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user, keepSignedIn)
	if err != nil {
		return nil, internalError(err)
	}

	tokenHash := HashToken(refreshToken)
	ttl := s.tokens.RefreshTTL(keepSignedIn)
	expiresAt := time.Now().UTC().Add(ttl)

	if existing != nil {
		err = s.sessions.UpdateToken(ctx, existing.ID, tokenHash, expiresAt)
	} else {
		err = s.sessions.Create(ctx, NewSession(user.ID, device.Fingerprint, device.IP, tokenHash, expiresAt, keepSignedIn))
	}
	if err != nil {
		return nil, internalError(err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, RefreshTTL: ttl}, nil
}

// sendMailAsync dispatches mail without blocking the response. The mail
// context is detached so a client disconnect does not cancel delivery.
func (s *Service) sendMailAsync(ctx context.Context, send func(context.Context) error, kind, email string) {
	if s.mailer == nil {
		return
	}
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := send(mailCtx); err != nil {
			log.Printf("Failed to send %s email to %s: %v", kind, email, err)
			return
		}
		log.Printf("Sent %s email to %s", kind, email)
	}()
}

// capitalize uppercases the first letter of each word for display purposes.
func capitalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
