package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewJWTManagerRequiresSecrets(t *testing.T) {
	if _, err := NewJWTManager("", "r", time.Minute, time.Minute); err == nil {
		t.Error("empty access secret accepted")
	}
	if _, err := NewJWTManager("a", "", time.Minute, time.Minute); err == nil {
		t.Error("empty refresh secret accepted")
	}
}

func TestIssueAndValidatePair(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssuePair("user-42")
	if err != nil {
		t.Fatal(err)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d", pair.ExpiresIn)
	}

	access, err := m.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}
	if access.UserID != "user-42" || access.TokenType != TokenTypeAccess {
		t.Errorf("access claims = %+v", access)
	}

	refresh, err := m.ValidateRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if refresh.UserID != "user-42" || refresh.TokenType != TokenTypeRefresh {
		t.Errorf("refresh claims = %+v", refresh)
	}
}

func TestTokenTypesNotInterchangeable(t *testing.T) {
	m := newTestManager(t)
	pair, err := m.IssuePair("user-42")
	if err != nil {
		t.Fatal(err)
	}

	// Different secrets make cross-validation fail outright.
	if _, err := m.ValidateAccess(pair.RefreshToken); err == nil {
		t.Error("refresh token accepted as access token")
	}
	if _, err := m.ValidateRefresh(pair.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestTypeClaimCheckedEvenWithSharedSecret(t *testing.T) {
	m, err := NewJWTManager("same", "same", time.Minute, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	pair, err := m.IssuePair("user-42")
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.ValidateAccess(pair.RefreshToken)
	if !errors.Is(err, ErrWrongTokenUse) {
		t.Errorf("error = %v, want ErrWrongTokenUse", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m, err := NewJWTManager("a", "r", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	pair, err := m.IssuePair("user-42")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateAccess(pair.AccessToken); err == nil {
		t.Error("expired token accepted")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m := newTestManager(t)

	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := m.ValidateAccess(token); err == nil {
			t.Errorf("ValidateAccess(%q) accepted", token)
		}
	}
}
