package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		Secret:   testSecret,
		Issuer:   "agroscan-api",
		Audience: "agroscan-clients",
		TTL:      24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	return issuer
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)
	user := &domain.User{ID: 42, Email: "jane@example.com", Role: domain.RoleResearcher, FirstName: "Jane", LastName: "Doe"}

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if d := time.Until(expiresAt); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expiry %v is not ~24h away", d)
	}

	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != 42 || id.Email != user.Email || id.Role != domain.RoleResearcher {
		t.Errorf("Verify() = %+v, want identity of user 42", id)
	}
	if id.FirstName != "Jane" || id.LastName != "Doe" {
		t.Errorf("names not carried: %+v", id)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := newTestIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	token, _, err := issuer.Issue(&domain.User{ID: 1, Role: domain.RoleFarmer})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	other, _ := NewTokenIssuer(TokenConfig{Secret: "another-secret-that-is-long-enough-99", Issuer: "agroscan-api", Audience: "agroscan-clients"})
	foreign, _, _ := other.Issue(&domain.User{ID: 1})

	wrongAudience, _ := NewTokenIssuer(TokenConfig{Secret: testSecret, Issuer: "agroscan-api", Audience: "someone-else"})
	audToken, _, _ := wrongAudience.Issue(&domain.User{ID: 1})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"different secret", foreign},
		{"different audience", audToken},
		{"alg none", noneToken},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Verify(tt.token); err == nil {
				t.Error("Verify() succeeded, want error")
			}
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetIdentity(ctx) != nil {
		t.Error("GetIdentity on empty context should be nil")
	}

	ctx = SetIdentity(ctx, &domain.Identity{UserID: 9})
	if got := GetIdentity(ctx); got == nil || got.UserID != 9 {
		t.Errorf("GetIdentity() = %v, want user 9", got)
	}

	ctx = SetRequestMeta(ctx, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl"})
	if meta := GetRequestMeta(ctx); meta.IPAddress != "10.0.0.1" || meta.UserAgent != "curl" {
		t.Errorf("GetRequestMeta() = %+v", meta)
	}
}
