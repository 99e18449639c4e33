package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub-kr/entitlement-engine/internal/cache"
	"github.com/creatorhub-kr/entitlement-engine/internal/http/middlewarectx"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/jwt"
	"github.com/creatorhub-kr/entitlement-engine/internal/models"
	tierservice "github.com/creatorhub-kr/entitlement-engine/internal/services/tier"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	logger := newNoopLogger()

	validToken, err := maker.GenerateToken("uid-1", "user", "session-abc")
	require.NoError(t, err)

	expiredMaker := jwt.NewJWTMaker("test-secret", -time.Hour)
	expiredToken, err := expiredMaker.GenerateToken("uid-1", "user", "session-abc")
	require.NoError(t, err)

	handlerCalled := false
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		assert.Equal(t, "uid-1", r.Context().Value(middlewarectx.AccountUID))
		assert.Equal(t, "user", r.Context().Value(middlewarectx.Role))
		assert.Equal(t, "session-abc", r.Context().Value(middlewarectx.SessionToken))
		w.WriteHeader(http.StatusOK)
	})

	mw := middlewarectx.JWTMiddleware(maker, logger)(nextHandler)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "malformed token",
			authHeader:     "Bearer not-a-jwt",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer " + expiredToken,
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer " + validToken,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
		})
	}
}

type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) Validate(ctx context.Context, accountUID, presentedToken string) (*models.Account, error) {
	args := m.Called(ctx, accountUID, presentedToken)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) Resolve(ctx context.Context, accountUID string, now time.Time) (tierservice.Resolution, error) {
	args := m.Called(ctx, accountUID, now)
	res, _ := args.Get(0).(tierservice.Resolution)
	return res, args.Error(1)
}

type FlagsCacheMock struct {
	mock.Mock
}

func (m *FlagsCacheMock) SetSessionFlags(ctx context.Context, sessionToken string, flags cache.SessionFlags) error {
	args := m.Called(ctx, sessionToken, flags)
	return args.Error(0)
}

func (m *FlagsCacheMock) DropSessionFlags(ctx context.Context, sessionToken string) error {
	args := m.Called(ctx, sessionToken)
	return args.Error(0)
}

func authedRequest(uid, role, sessionToken string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
	ctx := context.WithValue(req.Context(), middlewarectx.AccountUID, uid)
	ctx = context.WithValue(ctx, middlewarectx.Role, role)
	ctx = context.WithValue(ctx, middlewarectx.SessionToken, sessionToken)
	return req.WithContext(ctx)
}

func TestSessionGuardMiddleware_RefreshesFlags(t *testing.T) {
	validatorMock := new(ValidatorMock)
	resolverMock := new(ResolverMock)
	flagsMock := new(FlagsCacheMock)

	validatorMock.On("Validate", mock.Anything, "uid-1", "session-abc").
		Return(&models.Account{UID: "uid-1"}, nil)
	resolverMock.On("Resolve", mock.Anything, "uid-1", mock.Anything).
		Return(tierservice.Resolution{Tier: models.TierSubscriber, LinkRequestCeiling: 10, Subscriber: true}, nil)
	flagsMock.On("SetSessionFlags", mock.Anything, "session-abc",
		cache.SessionFlags{Tier: "SUBSCRIBER", Subscriber: true, IsTrial: false}).Return(nil)

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	mw := middlewarectx.SessionGuardMiddleware(validatorMock, resolverMock, flagsMock, newNoopLogger())(next)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, authedRequest("uid-1", "user", "session-abc"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handlerCalled)
	validatorMock.AssertExpectations(t)
	flagsMock.AssertExpectations(t)
}

func TestSessionGuardMiddleware_StaleSession(t *testing.T) {
	validatorMock := new(ValidatorMock)
	resolverMock := new(ResolverMock)
	flagsMock := new(FlagsCacheMock)

	validatorMock.On("Validate", mock.Anything, "uid-1", "old-session").
		Return(nil, models.ErrStaleSession)
	flagsMock.On("DropSessionFlags", mock.Anything, "old-session").Return(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not be called")
	})

	mw := middlewarectx.SessionGuardMiddleware(validatorMock, resolverMock, flagsMock, newNoopLogger())(next)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, authedRequest("uid-1", "user", "old-session"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session superseded")
	flagsMock.AssertExpectations(t)
	resolverMock.AssertNotCalled(t, "Resolve")
}

func TestSessionGuardMiddleware_MissingIdentity(t *testing.T) {
	mw := middlewarectx.SessionGuardMiddleware(new(ValidatorMock), new(ResolverMock), new(FlagsCacheMock), newNoopLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Fatal("next handler must not be called")
		}))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/somepath", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := middlewarectx.AdminOnlyMiddleware(newNoopLogger())(next)

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, authedRequest("uid-1", "admin", "s"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, authedRequest("uid-1", "user", "s"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
