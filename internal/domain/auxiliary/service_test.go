package auxiliary

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/resource"
)

// -- Mock Repository --

type mockRepo struct {
	passwords map[int]string
	expiry    time.Time
	calls     int
}

func (m *mockRepo) Login(_ context.Context, id int, password string) (*Session, error) {
	m.calls++
	if pw, ok := m.passwords[id]; !ok || pw != password {
		return nil, fmt.Errorf("login %d: %w", id, resource.ErrUnauthorized)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprint(id),
		ExpiresAt: jwt.NewNumericDate(m.expiry),
	}).SignedString([]byte("test-key"))
	if err != nil {
		return nil, err
	}
	s, err := NewSession(LoginResponse{Auxiliary: Auxiliary{ID: id, Name: "Lucía"}, Token: tok})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type tokenRecorder struct{ tokens []string }

func (r *tokenRecorder) SetToken(tok string) { r.tokens = append(r.tokens, tok) }

func newTestService() (*Service, *mockRepo, *tokenRecorder) {
	repo := &mockRepo{
		passwords: map[int]string{42: "secret"},
		expiry:    time.Now().Add(time.Hour).Truncate(time.Second),
	}
	rec := &tokenRecorder{}
	return NewService(repo, resource.NewOrchestrator(zerolog.Nop()), rec, zerolog.Nop()), repo, rec
}

func TestService_LoginStartsIdle(t *testing.T) {
	svc, _, _ := newTestService()
	if svc.Login().Get().Kind() != resource.Idle {
		t.Errorf("expected idle, got %s", svc.Login().Get())
	}
}

func TestService_RejectedThenAccepted(t *testing.T) {
	svc, repo, rec := newTestService()

	st := svc.SignIn(context.Background(), 42, "wrong")
	if st.Kind() != resource.InvalidCredentials {
		t.Fatalf("expected invalid credentials, got %s", st)
	}
	if _, ok := svc.Session().Get(); ok {
		t.Fatal("no session expected after rejection")
	}
	if len(rec.tokens) != 0 {
		t.Fatal("no token expected after rejection")
	}

	st = svc.SignIn(context.Background(), 42, "secret")
	sess, ok := st.Payload()
	if !ok {
		t.Fatalf("expected success, got %s", st)
	}
	if sess.Auxiliary.ID != 42 {
		t.Errorf("expected auxiliary 42, got %d", sess.Auxiliary.ID)
	}
	if !sess.ExpiresAt.Equal(repo.expiry) {
		t.Errorf("expected expiry %s, got %s", repo.expiry, sess.ExpiresAt)
	}
	if got, ok := svc.Session().Get(); !ok || got.Token != sess.Token {
		t.Error("session not forwarded")
	}
	if len(rec.tokens) != 1 || rec.tokens[0] != sess.Token {
		t.Errorf("token not applied: %v", rec.tokens)
	}
}

func TestService_InvalidIDNeverCallsBackend(t *testing.T) {
	svc, repo, _ := newTestService()
	if st := svc.SignIn(context.Background(), 0, "x"); st.Kind() != resource.Error {
		t.Fatalf("expected error, got %s", st)
	}
	if repo.calls != 0 {
		t.Error("backend should not be called")
	}
}

func TestService_SignOut(t *testing.T) {
	svc, _, rec := newTestService()
	svc.SignIn(context.Background(), 42, "secret")
	svc.SignOut()

	if _, ok := svc.Session().Get(); ok {
		t.Error("session should be cleared")
	}
	if svc.Login().Get().Kind() != resource.Idle {
		t.Errorf("expected idle, got %s", svc.Login().Get())
	}
	if rec.tokens[len(rec.tokens)-1] != "" {
		t.Error("token should be cleared")
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	if (Session{}).Expired(now) {
		t.Error("session without expiry should not expire")
	}
	if !(Session{ExpiresAt: now.Add(-time.Second)}).Expired(now) {
		t.Error("expected expired")
	}
}

func TestNewSession_RejectsGarbage(t *testing.T) {
	if _, err := NewSession(LoginResponse{Token: "not-a-jwt"}); err == nil {
		t.Error("expected error for malformed token")
	}
}
