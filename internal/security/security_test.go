package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword("correct horse", hash) {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword("wrong horse", hash) {
		t.Error("CheckPassword() accepted the wrong password")
	}
	if CheckPassword("anything", "") {
		t.Error("CheckPassword() accepted an empty hash")
	}
}

func TestTokenIssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	token, expires, err := issuer.Issue(42, "student")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want future", expires)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 42 || claims.Role != "student" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	good, _, err := issuer.Issue(1, "parent")
	if err != nil {
		t.Fatal(err)
	}

	expired := NewTokenIssuer("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	old, _, err := expired.Issue(1, "parent")
	if err != nil {
		t.Fatal(err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		by    *TokenIssuer
	}{
		{name: "wrong secret", token: good, by: NewTokenIssuer("other", time.Hour)},
		{name: "expired", token: old, by: issuer},
		{name: "unsigned", token: unsigned, by: issuer},
		{name: "garbage", token: "not.a.token", by: issuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.by.Verify(tt.token); err == nil {
				t.Error("Verify() accepted an invalid token")
			}
		})
	}
}

func TestCSRFToken(t *testing.T) {
	g := NewCSRFGenerator("key")
	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatal(err)
	}
	if !g.ValidateToken("session-1", token) {
		t.Error("token did not validate for its session")
	}
	if g.ValidateToken("session-2", token) {
		t.Error("token validated for another session")
	}
	if g.ValidateToken("session-1", "") {
		t.Error("empty token validated")
	}
	if _, err := g.GenerateToken(""); !errors.Is(err, ErrNoSession) {
		t.Errorf("GenerateToken(\"\") error = %v, want ErrNoSession", err)
	}
	if g.ValidateToken("session-1", "not base64!") {
		t.Error("malformed token validated")
	}
}

func TestCSRFSecretRotation(t *testing.T) {
	old := NewCSRFGenerator("old-key")
	issued, err := old.GenerateToken("session-1")
	if err != nil {
		t.Fatal(err)
	}

	rotated := NewCSRFGenerator("new-key", "old-key", "")
	if !rotated.ValidateToken("session-1", issued) {
		t.Error("token from the previous secret rejected after rotation")
	}
	fresh, err := rotated.GenerateToken("session-1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh == issued {
		t.Error("rotated generator still signs with the old secret")
	}
	if !rotated.ValidateToken("session-1", fresh) {
		t.Error("fresh token rejected")
	}

	retired := NewCSRFGenerator("new-key")
	if retired.ValidateToken("session-1", issued) {
		t.Error("token from a retired secret validated")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d denied", i+1)
		}
	}
	ok, wait := rl.Allow("1.2.3.4")
	if ok || wait != time.Minute {
		t.Errorf("third request: ok=%v wait=%v", ok, wait)
	}
	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Error("other client should have its own bucket")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Error("bucket should refill after the window")
	}

	now = now.Add(5 * time.Minute)
	rl.prune()
	if len(rl.visitors) != 0 {
		t.Errorf("prune left %d visitors", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"}, remote: "127.0.0.1:5000", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.2"}, remote: "127.0.0.1:5000", want: "10.0.0.2"},
		{name: "remote addr", remote: "192.168.1.9:4000", want: "192.168.1.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := BearerToken(r); ok {
		t.Error("no header should yield no token")
	}
	r.Header.Set("Authorization", "bearer abc.def")
	if tok, ok := BearerToken(r); !ok || tok != "abc.def" {
		t.Errorf("BearerToken() = %q, %v", tok, ok)
	}
	r.Header.Set("Authorization", "Basic Zm9v")
	if _, ok := BearerToken(r); ok {
		t.Error("basic auth should not yield a bearer token")
	}
}

func TestSessionCookieSecureFollowsScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	c := CreateSessionCookie(r, "session_id", "abc", time.Now().Add(time.Hour))
	if c.Secure || !c.HttpOnly {
		t.Errorf("plain http cookie = %+v", c)
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if c := CreateSessionCookie(r, "session_id", "abc", time.Now()); !c.Secure {
		t.Error("proxied https should set Secure")
	}
	if del := CreateDeleteCookie(r, "session_id"); del.MaxAge >= 0 || !strings.EqualFold(del.Name, "session_id") {
		t.Errorf("delete cookie = %+v", del)
	}
}
