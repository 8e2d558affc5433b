package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, expiration time.Duration) *TokenService {
	t.Helper()
	ts, err := NewTokenService("stockchat-test", expiration)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestIssueAndVerifyToken(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	st := NewStore(time.Hour)
	sess, _ := st.Create("TSLA", testWindow())

	token, err := ts.IssueToken(sess)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ts.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.SessionID != sess.ID {
		t.Errorf("SessionID = %q; want %q", claims.SessionID, sess.ID)
	}
	if claims.Symbol != "TSLA" {
		t.Errorf("Symbol = %q; want TSLA", claims.Symbol)
	}
}

func TestVerifyToken_Invalid(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ts.VerifyToken(c.token); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestVerifyToken_OtherKey(t *testing.T) {
	// tokens from a previous process (different ephemeral key) are rejected
	old := newTestTokenService(t, time.Hour)
	current := newTestTokenService(t, time.Hour)

	st := NewStore(time.Hour)
	sess, _ := st.Create("AAPL", testWindow())
	token, err := old.IssueToken(sess)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := current.VerifyToken(token); err == nil {
		t.Error("token signed with a different key was accepted")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	ts := newTestTokenService(t, -time.Minute)
	st := NewStore(time.Hour)
	sess, _ := st.Create("AAPL", testWindow())

	token, err := ts.IssueToken(sess)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ts.VerifyToken(token); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestMiddleware(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	st := NewStore(time.Hour)
	sess, _ := st.Create("AAPL", testWindow())
	token, _ := ts.IssueToken(sess)

	var gotClaims *Claims
	handler := ts.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer junk", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest("GET", "/api/v1/session/history", nil)
			if c.authHeader != "" {
				req.Header.Set("Authorization", c.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != c.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, c.wantStatus)
			}
			if c.wantStatus == http.StatusOK && (gotClaims == nil || gotClaims.SessionID != sess.ID) {
				t.Errorf("claims = %+v; want session %s", gotClaims, sess.ID)
			}
		})
	}
}
