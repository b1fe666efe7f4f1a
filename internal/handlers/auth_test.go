package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flexora/internal/models"
)

func TestSignupAndLogin(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))

	signup := map[string]any{
		"email":     "new@example.com",
		"password":  "secret123",
		"firstName": "New",
		"lastName":  "User",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", signup, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.NotEmpty(t, payload["token"])
	userPayload := payload["user"].(map[string]any)
	assert.Equal(t, "new@example.com", userPayload["email"])

	// Duplicate email is rejected.
	resp = doJSON(t, app, http.MethodPost, "/api/auth/signup", signup, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	login := map[string]any{"email": "new@example.com", "password": "secret123"}
	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	login["password"] = "wrong-password"
	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "new@example.com").Error)
	assert.Equal(t, "email", user.AuthProvider)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))
	user := createUser(t, db, "gone@example.com")
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	login := map[string]any{"email": "gone@example.com", "password": "password123"}
	resp := doJSON(t, app, http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "account is deactivated", payload["error"])
}

func TestLogoutBlacklistsToken(t *testing.T) {
	app, db, cfg := setupTestApp(t, new(mockGateway))
	user := createUser(t, db, "session@example.com")
	token := tokenFor(t, cfg, user)

	resp := doJSON(t, app, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The token still carries a valid signature and expiry, but the
	// blacklist entry must reject it at the gate.
	resp = doJSON(t, app, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "token has been invalidated", payload["error"])
}

func TestOTPFlowIsSingleUse(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))

	resp := doJSON(t, app, http.MethodPost, "/api/auth/send-otp",
		map[string]any{"phone": "+919876543210"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var otp models.OTPCode
	require.NoError(t, db.First(&otp, "phone = ?", "+919876543210").Error)

	verify := map[string]any{
		"phone":     "+919876543210",
		"otp":       otp.Code,
		"firstName": "Phone",
		"lastName":  "User",
		"email":     "phone@example.com",
	}
	resp = doJSON(t, app, http.MethodPost, "/api/auth/verify-otp", verify, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.NotEmpty(t, payload["token"])

	var user models.User
	require.NoError(t, db.First(&user, "phone = ?", "+919876543210").Error)
	assert.Equal(t, "phone", user.AuthProvider)
	assert.True(t, user.IsVerified)

	// The code was consumed on first use.
	resp = doJSON(t, app, http.MethodPost, "/api/auth/verify-otp", verify, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload = decodeBody(t, resp)
	assert.Equal(t, "invalid or expired OTP", payload["error"])
}

func TestVerifyOTPRejectsExpiredCode(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))

	resp := doJSON(t, app, http.MethodPost, "/api/auth/send-otp",
		map[string]any{"phone": "+919876543212"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var otp models.OTPCode
	require.NoError(t, db.First(&otp, "phone = ?", "+919876543212").Error)
	require.NoError(t, db.Model(&otp).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	verify := map[string]any{
		"phone":     "+919876543212",
		"otp":       otp.Code,
		"firstName": "Late",
		"lastName":  "User",
		"email":     "late@example.com",
	}
	resp = doJSON(t, app, http.MethodPost, "/api/auth/verify-otp", verify, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload := decodeBody(t, resp)
	assert.Equal(t, "invalid or expired OTP", payload["error"])

	// An expired code is never consumed, and no account is provisioned.
	require.NoError(t, db.First(&otp, "id = ?", otp.ID).Error)
	assert.False(t, otp.IsUsed)

	var count int64
	require.NoError(t, db.Model(&models.User{}).
		Where("phone = ?", "+919876543212").Count(&count).Error)
	assert.Zero(t, count)
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	app, _, _ := setupTestApp(t, new(mockGateway))

	resp := doJSON(t, app, http.MethodPost, "/api/auth/send-otp",
		map[string]any{"phone": "+919876543211"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	verify := map[string]any{"phone": "+919876543211", "otp": "000000"}
	resp = doJSON(t, app, http.MethodPost, "/api/auth/verify-otp", verify, "")
	// Either the code does not match or it matches by coincidence and then
	// lacks the new-user fields; both are client errors.
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGoogleSignInCreatesAndBackfills(t *testing.T) {
	app, db, _ := setupTestApp(t, new(mockGateway))

	google := map[string]any{
		"googleId":  "g-12345",
		"email":     "gmail@example.com",
		"firstName": "Goo",
		"lastName":  "Gle",
		"avatarUrl": "https://example.com/a.png",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/auth/google", google, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "gmail@example.com").Error)
	assert.Equal(t, "g-12345", user.GoogleID)
	assert.Equal(t, "google", user.AuthProvider)

	// An email-provisioned account gets its google_id backfilled.
	emailUser := createUser(t, db, "mixed@example.com")
	google["googleId"] = "g-67890"
	google["email"] = "mixed@example.com"
	resp = doJSON(t, app, http.MethodPost, "/api/auth/google", google, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, db.First(&emailUser, "id = ?", emailUser.ID).Error)
	assert.Equal(t, "g-67890", emailUser.GoogleID)
	assert.Equal(t, "email", emailUser.AuthProvider)
}
