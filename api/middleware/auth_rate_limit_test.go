package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/taskrent-backend/pkg/auth"
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/google/uuid"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func verifyRequest(userID uuid.UUID, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/verify-password", strings.NewReader(`{"password":"123456"}`))
	req.RemoteAddr = ip + ":5678"
	return req.WithContext(WithActor(req.Context(), auth.Actor{UserID: userID, Role: enums.AccountRoleMember}))
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("verify_password", time.Minute, 2, 2), newFakeRateStore(), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, verifyRequest(uuid.New(), "1.2.3.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitUserLimitTriggers(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("verify_password", time.Minute, 0, 2), newFakeRateStore(), nil)(okHandler())
	user := uuid.New()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// different addresses, same user
		handler.ServeHTTP(rec, verifyRequest(user, "10.0.0."+string(rune('1'+i))))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("expected success before limit, got %d", rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestAuthRateLimitIPLimitTriggers(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("verify_password", time.Minute, 1, 0), newFakeRateStore(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, verifyRequest(uuid.New(), "5.6.7.8"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected success, got %d", first.Code)
	}
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, verifyRequest(uuid.New(), "5.6.7.8"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("off", 0, 1, 1), newFakeRateStore(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, verifyRequest(uuid.New(), "1.1.1.1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}
