package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mailRecord struct {
	fullname string
	email    string
	token    string
}

// recordingMailer captures dispatched mail so tests can follow the
// out-of-band links. Channels absorb the async dispatch.
type recordingMailer struct {
	verifications chan mailRecord
	resets        chan mailRecord
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		verifications: make(chan mailRecord, 8),
		resets:        make(chan mailRecord, 8),
	}
}

func (m *recordingMailer) SendVerificationMail(_ context.Context, fullname, email, token string) error {
	m.verifications <- mailRecord{fullname, email, token}
	return nil
}

func (m *recordingMailer) SendResetPasswordMail(_ context.Context, fullname, email, token string) error {
	m.resets <- mailRecord{fullname, email, token}
	return nil
}

func waitMail(t *testing.T, ch chan mailRecord) mailRecord {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return mailRecord{}
	}
}

type fakeVerifier struct {
	payload *GooglePayload
	err     error
}

func (v *fakeVerifier) Verify(_ context.Context, _ string) (*GooglePayload, error) {
	return v.payload, v.err
}

type fakeUploader struct {
	url string
	err error
}

func (u *fakeUploader) Upload(_ context.Context, _ string, _ io.Reader) (string, error) {
	return u.url, u.err
}

type serviceFixture struct {
	service  *Service
	users    *SQLUserStore
	sessions *SQLSessionStore
	mailer   *recordingMailer
	verifier *fakeVerifier
}

func newTestService(t *testing.T) *serviceFixture {
	t.Helper()
	db := openTestDB(t)

	f := &serviceFixture{
		users:    NewSQLUserStore(db, "sqlite3"),
		sessions: NewSQLSessionStore(db, "sqlite3"),
		mailer:   newRecordingMailer(),
		verifier: &fakeVerifier{},
	}
	f.service = NewService(ServiceOptions{
		Users:       f.users,
		Sessions:    f.sessions,
		Tokens:      newTestTokenManager(),
		Mailer:      f.mailer,
		Google:      f.verifier,
		MaxSessions: 3,
	})
	return f
}

func (f *serviceFixture) sessionCount(t *testing.T, userID string) int {
	t.Helper()
	count, err := f.sessions.CountByUser(context.Background(), userID)
	require.NoError(t, err)
	return count
}

func (f *serviceFixture) register(t *testing.T, fullname, email, password string) (SafeUser, string) {
	t.Helper()
	user, err := f.service.Register(context.Background(), RegisterRequest{
		Fullname: fullname, Email: email, Password: password,
	}, nil)
	require.NoError(t, err)
	rec := waitMail(t, f.mailer.verifications)
	return user, rec.token
}

func assertCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, code, ae.Code)
}

var (
	deviceA = Device{Fingerprint: "ua-chrome", IP: "1.1.1.1"}
	deviceB = Device{Fingerprint: "ua-firefox", IP: "2.2.2.2"}
	deviceC = Device{Fingerprint: "ua-safari", IP: "3.3.3.3"}
	deviceD = Device{Fingerprint: "ua-edge", IP: "4.4.4.4"}
)

func TestRegister(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "Alice@X.com", "Abc123!@#")
	assert.False(t, user.IsVerified)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotEmpty(t, token)

	// No session exists until verification or login.
	assert.Equal(t, 0, f.sessionCount(t, user.ID))

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := f.service.Register(ctx, RegisterRequest{
			Fullname: "different name", Email: "alice@x.com", Password: "Abc123!@#",
		}, nil)
		assertCode(t, err, CodeConflict)
	})

	t.Run("DuplicateFullname", func(t *testing.T) {
		_, err := f.service.Register(ctx, RegisterRequest{
			Fullname: "alice wonder", Email: "other@x.com", Password: "Abc123!@#",
		}, nil)
		assertCode(t, err, CodeConflict)
	})

	t.Run("WeakPassword", func(t *testing.T) {
		_, err := f.service.Register(ctx, RegisterRequest{
			Fullname: "bob builder", Email: "bob@x.com", Password: "password",
		}, nil)
		assertCode(t, err, CodeInvalidArgument)
	})
}

func TestRegisterAvatarBestEffort(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	t.Run("UploadFailureDoesNotAbort", func(t *testing.T) {
		f.service.uploader = &fakeUploader{err: errors.New("bucket down")}
		avatar := &AvatarUpload{Filename: "me.png", Body: nil}
		user, err := f.service.Register(ctx, RegisterRequest{
			Fullname: "alice wonder", Email: "alice@x.com", Password: "Abc123!@#",
		}, avatar)
		require.NoError(t, err)
		assert.Empty(t, user.Avatar)
		waitMail(t, f.mailer.verifications)
	})

	t.Run("UploadSuccessSetsAvatar", func(t *testing.T) {
		f.service.uploader = &fakeUploader{url: "https://cdn/avatars/me.png"}
		avatar := &AvatarUpload{Filename: "me.png", Body: nil}
		user, err := f.service.Register(ctx, RegisterRequest{
			Fullname: "bob builder", Email: "bob@x.com", Password: "Abc123!@#",
		}, avatar)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/avatars/me.png", user.Avatar)
		waitMail(t, f.mailer.verifications)
	})
}

func TestVerifyEmail(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")

	t.Run("LoginBeforeVerificationForbidden", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
		assertCode(t, err, CodeForbidden)
	})

	t.Run("WrongToken", func(t *testing.T) {
		_, err := f.service.VerifyEmail(ctx, "bogus", deviceA)
		assertCode(t, err, CodeNotFound)
	})

	t.Run("CorrectTokenVerifiesOnce", func(t *testing.T) {
		pair, err := f.service.VerifyEmail(ctx, token, deviceA)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, 1, f.sessionCount(t, user.ID))

		got, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
	})

	t.Run("ReplayFails", func(t *testing.T) {
		_, err := f.service.VerifyEmail(ctx, token, deviceA)
		assertCode(t, err, CodeNotFound)
	})
}

func TestResendVerification(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	_, firstToken := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")

	require.NoError(t, f.service.ResendVerification(ctx, EmailRequest{Email: "alice@x.com"}))
	rec := waitMail(t, f.mailer.verifications)
	assert.NotEqual(t, firstToken, rec.token)

	// The old token was replaced.
	_, err := f.service.VerifyEmail(ctx, firstToken, deviceA)
	assertCode(t, err, CodeNotFound)

	// The fresh one works.
	_, err = f.service.VerifyEmail(ctx, rec.token, deviceA)
	require.NoError(t, err)

	t.Run("AlreadyVerified", func(t *testing.T) {
		err := f.service.ResendVerification(ctx, EmailRequest{Email: "alice@x.com"})
		assertCode(t, err, CodeInvalidArgument)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		err := f.service.ResendVerification(ctx, EmailRequest{Email: "ghost@x.com"})
		assertCode(t, err, CodeNotFound)
	})
}

func TestLogin(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginRequest{Email: "ghost@x.com", Password: "Abc123!@#"}, deviceA)
		assertCode(t, err, CodeNotFound)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Wrong123!@#"}, deviceA)
		assertCode(t, err, CodeUnauthorized)
	})

	t.Run("SameDeviceKeepsOneRow", func(t *testing.T) {
		before, err := f.sessions.GetByUserAndFingerprint(ctx, user.ID, deviceA.Fingerprint)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
			require.NoError(t, err)
		}

		assert.Equal(t, 1, f.sessionCount(t, user.ID))

		after, err := f.sessions.GetByUserAndFingerprint(ctx, user.ID, deviceA.Fingerprint)
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.NotEqual(t, before.RefreshTokenHash, after.RefreshTokenHash)
	})

	t.Run("SessionCap", func(t *testing.T) {
		for _, d := range []Device{deviceB, deviceC} {
			_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, d)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, f.sessionCount(t, user.ID))

		_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceD)
		assertCode(t, err, CodeSessionLimitExceeded)

		// A known fingerprint never counts against the cap.
		_, err = f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
		require.NoError(t, err)
		assert.Equal(t, 3, f.sessionCount(t, user.ID))
	})
}

func TestRefresh(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)

	pair, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
	require.NoError(t, err)

	t.Run("MissingCookie", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, "", deviceA)
		assertCode(t, err, CodeUnauthorized)
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, "garbage", deviceA)
		assertCode(t, err, CodeUnauthorized)
	})

	var rotated *TokenPair
	t.Run("RotationInvalidatesPrevious", func(t *testing.T) {
		rotated, err = f.service.Refresh(ctx, pair.RefreshToken, deviceA)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		// Reusing the pre-rotation token must fail.
		_, err = f.service.Refresh(ctx, pair.RefreshToken, deviceA)
		assertCode(t, err, CodeUnauthorized)

		assert.Equal(t, 1, f.sessionCount(t, user.ID))
	})

	t.Run("FingerprintMismatchDeletesSession", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, rotated.RefreshToken, deviceB)
		assertCode(t, err, CodeSessionHijack)
		assert.Equal(t, 0, f.sessionCount(t, user.ID))

		// Every later attempt with that token fails too.
		_, err = f.service.Refresh(ctx, rotated.RefreshToken, deviceA)
		assertCode(t, err, CodeUnauthorized)
	})

	t.Run("IPMismatchDeletesSession", func(t *testing.T) {
		pair, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
		require.NoError(t, err)

		spoofed := Device{Fingerprint: deviceA.Fingerprint, IP: "9.9.9.9"}
		_, err = f.service.Refresh(ctx, pair.RefreshToken, spoofed)
		assertCode(t, err, CodeSessionHijack)
		assert.Equal(t, 0, f.sessionCount(t, user.ID))
	})
}

func TestRefreshExpiredSessionTreatedAsAbsent(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	pair, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)

	// Force the stored expiry into the past while the JWT itself is valid.
	sess, err := f.sessions.GetByUserAndFingerprint(ctx, user.ID, deviceA.Fingerprint)
	require.NoError(t, err)
	_, err = f.sessions.db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour), sess.ID)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, pair.RefreshToken, deviceA)
	assertCode(t, err, CodeUnauthorized)
	assert.Equal(t, 0, f.sessionCount(t, user.ID))
}

func TestLogout(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	pair, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)

	actor := Actor{UserID: user.ID, Email: user.Email, Role: RoleUser}

	t.Run("MissingCookie", func(t *testing.T) {
		err := f.service.Logout(ctx, actor, "")
		assertCode(t, err, CodeUnauthorized)
	})

	t.Run("DeletesSession", func(t *testing.T) {
		require.NoError(t, f.service.Logout(ctx, actor, pair.RefreshToken))
		assert.Equal(t, 0, f.sessionCount(t, user.ID))
	})

	t.Run("NotFoundSwallowed", func(t *testing.T) {
		assert.NoError(t, f.service.Logout(ctx, actor, pair.RefreshToken))
	})
}

func TestLogoutAll(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)

	current, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
	require.NoError(t, err)
	for _, d := range []Device{deviceB, deviceC} {
		_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, d)
		require.NoError(t, err)
	}
	require.Equal(t, 3, f.sessionCount(t, user.ID))

	actor := Actor{UserID: user.ID, Email: user.Email, Role: RoleUser}
	require.NoError(t, f.service.LogoutAll(ctx, actor, current.RefreshToken))

	assert.Equal(t, 1, f.sessionCount(t, user.ID))
	_, err = f.sessions.GetByTokenHash(ctx, HashToken(current.RefreshToken))
	assert.NoError(t, err)
}

func TestActiveSessions(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)
	current, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
	require.NoError(t, err)
	_, err = f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceB)
	require.NoError(t, err)

	actor := Actor{UserID: user.ID, Email: user.Email, Role: RoleUser}
	infos, err := f.service.ActiveSessions(ctx, actor, current.RefreshToken)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	currentCount := 0
	for _, info := range infos {
		assert.NotEmpty(t, info.Device)
		assert.Equal(t, "active", info.Status)
		if info.IsCurrent {
			currentCount++
		}
	}
	assert.Equal(t, 1, currentCount)
}

func TestLogoutSessionOwnership(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	alice, aliceToken := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, aliceToken, deviceA)
	require.NoError(t, err)
	bob, bobToken := f.register(t, "bob builder", "bob@x.com", "Abc123!@#")
	_, err = f.service.VerifyEmail(ctx, bobToken, deviceB)
	require.NoError(t, err)

	aliceSess, err := f.sessions.GetByUserAndFingerprint(ctx, alice.ID, deviceA.Fingerprint)
	require.NoError(t, err)

	t.Run("OtherUserForbidden", func(t *testing.T) {
		bobActor := Actor{UserID: bob.ID, Email: bob.Email, Role: RoleUser}
		err := f.service.LogoutSession(ctx, bobActor, aliceSess.ID)
		assertCode(t, err, CodeForbidden)
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		admin := Actor{UserID: "admin-id", Email: "admin@x.com", Role: RoleAdmin}
		require.NoError(t, f.service.LogoutSession(ctx, admin, aliceSess.ID))
		assert.Equal(t, 0, f.sessionCount(t, alice.ID))
	})

	t.Run("MissingSession", func(t *testing.T) {
		owner := Actor{UserID: alice.ID, Role: RoleUser}
		err := f.service.LogoutSession(ctx, owner, "missing")
		assertCode(t, err, CodeNotFound)
	})
}

func TestForgotPassword(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")

	t.Run("UniformEnvelope", func(t *testing.T) {
		existing, err := f.service.ForgotPassword(ctx, EmailRequest{Email: "alice@x.com"})
		require.NoError(t, err)
		missing, err := f.service.ForgotPassword(ctx, EmailRequest{Email: "ghost@x.com"})
		require.NoError(t, err)

		// Identical response; only the side effect differs.
		assert.Equal(t, existing, missing)
		waitMail(t, f.mailer.resets)
		select {
		case <-f.mailer.resets:
			t.Fatal("no reset mail expected for unknown email")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("FederatedAccount", func(t *testing.T) {
		f.verifier.payload = &GooglePayload{Name: "carol singer", Email: "carol@x.com", Picture: "p"}
		_, err := f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceC)
		require.NoError(t, err)

		result, err := f.service.ForgotPassword(ctx, EmailRequest{Email: "carol@x.com"})
		require.NoError(t, err)
		assert.Equal(t, "OAUTH_USER", result.Code)
	})
}

func TestResetPassword(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, token := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	_, err := f.service.VerifyEmail(ctx, token, deviceA)
	require.NoError(t, err)
	_, err = f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceB)
	require.NoError(t, err)
	require.Equal(t, 2, f.sessionCount(t, user.ID))

	_, err = f.service.ForgotPassword(ctx, EmailRequest{Email: "alice@x.com"})
	require.NoError(t, err)
	resetToken := waitMail(t, f.mailer.resets).token

	t.Run("SamePasswordRejected", func(t *testing.T) {
		err := f.service.ResetPassword(ctx, resetToken, ResetPasswordRequest{Password: "Abc123!@#", ConfirmPassword: "Abc123!@#"})
		assertCode(t, err, CodeInvalidArgument)
	})

	t.Run("SuccessDeletesAllSessions", func(t *testing.T) {
		require.NoError(t, f.service.ResetPassword(ctx, resetToken, ResetPasswordRequest{Password: "NewAbc123!@#", ConfirmPassword: "NewAbc123!@#"}))
		assert.Equal(t, 0, f.sessionCount(t, user.ID))

		_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "NewAbc123!@#"}, deviceA)
		assert.NoError(t, err)
	})

	t.Run("TokenSingleUse", func(t *testing.T) {
		err := f.service.ResetPassword(ctx, resetToken, ResetPasswordRequest{Password: "Third123!@#", ConfirmPassword: "Third123!@#"})
		assertCode(t, err, CodeNotFound)
	})
}

func TestLoginWithGoogle(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	t.Run("InvalidToken", func(t *testing.T) {
		f.verifier.err = errors.New("bad signature")
		_, err := f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceA)
		assertCode(t, err, CodeUnauthorized)
		f.verifier.err = nil
	})

	t.Run("FirstLoginCreatesVerifiedUser", func(t *testing.T) {
		f.verifier.payload = &GooglePayload{Name: "carol singer", Email: "Carol@X.com", Picture: "pic"}
		pair, err := f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceA)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.RefreshToken)

		user, err := f.users.GetByEmail(ctx, "carol@x.com")
		require.NoError(t, err)
		assert.True(t, user.IsVerified)
		assert.Equal(t, ProviderGoogle, user.Provider)
		assert.Equal(t, 1, f.sessionCount(t, user.ID))
	})

	t.Run("SecondLoginReusesUser", func(t *testing.T) {
		_, err := f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceA)
		require.NoError(t, err)

		user, err := f.users.GetByEmail(ctx, "carol@x.com")
		require.NoError(t, err)
		assert.Equal(t, 1, f.sessionCount(t, user.ID))
	})

	t.Run("ExistingCustomAccountUnifiedByEmail", func(t *testing.T) {
		user, token := f.register(t, "dave miner", "dave@x.com", "Abc123!@#")
		_, err := f.service.VerifyEmail(ctx, token, deviceA)
		require.NoError(t, err)

		f.verifier.payload = &GooglePayload{Name: "Dave Miner", Email: "dave@x.com", Picture: "pic"}
		_, err = f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceB)
		require.NoError(t, err)

		got, err := f.users.GetByEmail(ctx, "dave@x.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, ProviderCustom, got.Provider)
		assert.Equal(t, 2, f.sessionCount(t, user.ID))
	})

	t.Run("MissingClaims", func(t *testing.T) {
		f.verifier.payload = &GooglePayload{Name: "", Email: ""}
		_, err := f.service.LoginWithGoogle(ctx, GoogleLoginRequest{Token: "goog"}, deviceA)
		assertCode(t, err, CodeInvalidArgument)
	})
}

// Full lifecycle: register, failed early login, verify, repeat login from
// the same device, logout-all, reset password.
func TestAuthLifecycleScenario(t *testing.T) {
	f := newTestService(t)
	ctx := context.Background()

	user, verifyToken := f.register(t, "alice wonder", "alice@x.com", "Abc123!@#")
	assert.False(t, user.IsVerified)

	_, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
	assertCode(t, err, CodeForbidden)

	_, err = f.service.VerifyEmail(ctx, verifyToken, deviceA)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessionCount(t, user.ID))

	before, err := f.sessions.GetByUserAndFingerprint(ctx, user.ID, deviceA.Fingerprint)
	require.NoError(t, err)

	current, err := f.service.Login(ctx, LoginRequest{Email: "alice@x.com", Password: "Abc123!@#"}, deviceA)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sessionCount(t, user.ID))

	after, err := f.sessions.GetByUserAndFingerprint(ctx, user.ID, deviceA.Fingerprint)
	require.NoError(t, err)
	assert.NotEqual(t, before.RefreshTokenHash, after.RefreshTokenHash)

	actor := Actor{UserID: user.ID, Email: user.Email, Role: RoleUser}
	require.NoError(t, f.service.LogoutAll(ctx, actor, current.RefreshToken))
	assert.Equal(t, 1, f.sessionCount(t, user.ID))

	_, err = f.service.ForgotPassword(ctx, EmailRequest{Email: "alice@x.com"})
	require.NoError(t, err)
	resetToken := waitMail(t, f.mailer.resets).token

	require.NoError(t, f.service.ResetPassword(ctx, resetToken, ResetPasswordRequest{Password: "NewAbc123!@#", ConfirmPassword: "NewAbc123!@#"}))
	assert.Equal(t, 0, f.sessionCount(t, user.ID))

	// Pre-reset refresh tokens are dead.
	_, err = f.service.Refresh(ctx, current.RefreshToken, deviceA)
	assertCode(t, err, CodeUnauthorized)
}
