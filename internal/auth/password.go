package auth

import (
	"context"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/homecore/kernel/internal/kernelerr"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// ValidatePasswordPolicy enforces length 8..128 and at least one uppercase
// letter, one lowercase letter, and one digit. A special character is
// encouraged but not required.
func ValidatePasswordPolicy(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return kernelerr.NewInvalidInput("password", "must be between 8 and 128 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return kernelerr.NewInvalidInput("password", "must contain an uppercase letter, a lowercase letter, and a digit")
	}
	return nil
}

// HashPassword salts and hashes password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SetPassword validates, hashes, and stores a new password for userID,
// overwriting whatever was there (used on account creation and on
// administrative resets, where there is no prior password to verify).
func (b *Boundary) SetPassword(ctx context.Context, userID, password string) error {
	if err := ValidatePasswordPolicy(password); err != nil {
		return err
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	user, found, err := b.storage.Get(ctx, userNamespace, userID)
	if err != nil {
		return err
	}
	if !found {
		user = map[string]interface{}{}
	}
	user["password_hash"] = hashed
	if err := b.storage.Set(ctx, userNamespace, userID, user); err != nil {
		return err
	}
	b.audit(ctx, "password_set", userID, true, nil)
	return nil
}

// ChangePassword verifies oldPassword against the stored hash, enforces
// that newPassword differs from the old one, hashes and stores newPassword,
// then revokes every session belonging to userID — a changed password must
// invalidate every session issued under the old one.
func (b *Boundary) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, found, err := b.storage.Get(ctx, userNamespace, userID)
	if err != nil {
		return err
	}
	if !found {
		return kernelerr.NewNotFound("user", userID)
	}
	currentHash, _ := user["password_hash"].(string)
	if !VerifyPassword(currentHash, oldPassword) {
		b.audit(ctx, "password_change_denied", userID, false, nil)
		return kernelerr.NewUnauthenticated("current password does not match")
	}
	if oldPassword == newPassword {
		return kernelerr.NewInvalidInput("new_password", "must differ from the current password")
	}
	if err := ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}
	newHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user["password_hash"] = newHash
	if err := b.storage.Set(ctx, userNamespace, userID, user); err != nil {
		return err
	}

	b.revokeAllSessionsOf(ctx, userID)
	b.audit(ctx, "password_changed", userID, true, nil)
	return nil
}

// Login verifies password against userID's stored hash and, on success,
// mints a session the caller can hand back as the session_id cookie. It
// returns kernelerr.Unauthenticated for both an unknown user and a wrong
// password, never distinguishing the two in the error it returns.
func (b *Boundary) Login(ctx context.Context, userID, password string) (sessionID string, err error) {
	user, found, err := b.storage.Get(ctx, userNamespace, userID)
	if err != nil {
		return "", err
	}
	hash, _ := user["password_hash"].(string)
	if !found || !VerifyPassword(hash, password) {
		b.audit(ctx, "login_denied", userID, false, nil)
		return "", kernelerr.NewUnauthenticated("invalid credentials")
	}
	sessionID, err = b.CreateSession(ctx, userID, 0)
	if err != nil {
		return "", err
	}
	b.audit(ctx, "login_ok", userID, true, nil)
	return sessionID, nil
}

// Logout revokes sessionID, so it can no longer be used to authenticate.
func (b *Boundary) Logout(ctx context.Context, sessionID string) error {
	return b.Revoke(ctx, sessionID, KindSession)
}

// revokeAllSessionsOf walks every key in auth_sessions and revokes the ones
// bound to userID. Sessions are namespaced by session id, not by user, so
// this is a scan — acceptable because password changes are rare compared to
// the read-heavy validation path.
func (b *Boundary) revokeAllSessionsOf(ctx context.Context, userID string) {
	keys, err := b.storage.ListKeys(ctx, sessionNamespace)
	if err != nil {
		return
	}
	for _, sessionID := range keys {
		session, found, err := b.storage.Get(ctx, sessionNamespace, sessionID)
		if err != nil || !found {
			continue
		}
		if sessionUserID, _ := session["user_id"].(string); sessionUserID == userID {
			_ = b.Revoke(ctx, sessionID, KindSession)
		}
	}
}
