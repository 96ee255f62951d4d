package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wingman/auth"
	"wingman/config"
	"wingman/models"
	"wingman/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	users         *service.MockUserService
	friends       *service.MockFriendService
	matches       *service.MockMatchService
	markets       *service.MockMarketService
	vouches       *service.MockVouchService
	notifications *service.MockNotificationService
	limiter       *mockLimiter
	handler       http.Handler
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func newTestServer(t *testing.T, verifier TokenVerifier, withLimiter bool) *testServer {
	t.Helper()

	ts := &testServer{
		users:         new(service.MockUserService),
		friends:       new(service.MockFriendService),
		matches:       new(service.MockMatchService),
		markets:       new(service.MockMarketService),
		vouches:       new(service.MockVouchService),
		notifications: new(service.MockNotificationService),
	}
	deps := Deps{
		Config:        config.NewTestConfig(),
		Users:         ts.users,
		Friends:       ts.friends,
		Matches:       ts.matches,
		Markets:       ts.markets,
		Vouches:       ts.vouches,
		Notifications: ts.notifications,
		Verifier:      verifier,
	}
	if withLimiter {
		ts.limiter = new(mockLimiter)
		deps.Limiter = ts.limiter
	}
	ts.handler = NewRouter(deps)
	return ts
}

// expectUser stubs the lazy user creation done by the auth middleware
func (ts *testServer) expectUser(userID uuid.UUID) {
	ts.users.On("GetOrCreateUser", mock.Anything, userID, mock.Anything).
		Return(&models.User{ID: userID}, nil)
}

func (ts *testServer) do(t *testing.T, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil, false)

	rec := ts.do(t, http.MethodGet, "/healthz", uuid.Nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthenticate_HeaderMode(t *testing.T) {
	t.Run("missing header is unauthorized", func(t *testing.T) {
		ts := newTestServer(t, nil, false)

		rec := ts.do(t, http.MethodGet, "/me", uuid.Nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		ts.users.AssertNotCalled(t, "GetOrCreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("header creates the user on first sight", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		userID := uuid.New()
		ts.users.On("GetOrCreateUser", mock.Anything, userID, "ana@example.com").
			Return(&models.User{ID: userID}, nil)
		ts.users.On("GetProfile", mock.Anything, userID).
			Return(&models.UserProfile{User: &models.User{ID: userID}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("X-User-ID", userID.String())
		req.Header.Set("X-User-Email", "ana@example.com")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		ts.users.AssertExpectations(t)
	})
}

type stubVerifier struct {
	identity *auth.Identity
}

func (v *stubVerifier) Verify(token string) (*auth.Identity, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return v.identity, nil
}

func TestAuthenticate_TokenMode(t *testing.T) {
	userID := uuid.New()
	verifier := &stubVerifier{identity: &auth.Identity{UserID: userID, Email: "ben@example.com"}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"good token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, verifier, false)
			ts.users.On("GetOrCreateUser", mock.Anything, userID, "ben@example.com").
				Return(&models.User{ID: userID}, nil).Maybe()
			ts.friends.On("ListFriends", mock.Anything, userID).Return([]*models.User{}, nil).Maybe()

			req := httptest.NewRequest(http.MethodGet, "/friends", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// Ignored when a verifier is configured
			req.Header.Set("X-User-ID", uuid.NewString())
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	userID := uuid.New()

	t.Run("rejects over the limit", func(t *testing.T) {
		ts := newTestServer(t, nil, true)
		ts.expectUser(userID)
		ts.limiter.On("Allow", mock.Anything, "api:"+userID.String(), 120, time.Minute).Return(false, nil)

		rec := ts.do(t, http.MethodGet, "/friends", userID, nil)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		ts.friends.AssertNotCalled(t, "ListFriends", mock.Anything, mock.Anything)
	})

	t.Run("fails open when the limiter errors", func(t *testing.T) {
		ts := newTestServer(t, nil, true)
		ts.expectUser(userID)
		ts.limiter.On("Allow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(false, errors.New("redis down"))
		ts.friends.On("ListFriends", mock.Anything, userID).Return([]*models.User{}, nil)

		rec := ts.do(t, http.MethodGet, "/friends", userID, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"invalid input", fmt.Errorf("%w: amount must be positive", service.ErrInvalidInput), http.StatusBadRequest, "invalid input: amount must be positive"},
		{"not friends", service.ErrNotFriends, http.StatusForbidden, "forbidden: users are not friends"},
		{"not found", fmt.Errorf("%w: market", service.ErrNotFound), http.StatusNotFound, "not found: market"},
		{"resolved", service.ErrMarketResolved, http.StatusConflict, "conflict: market already resolved"},
		{"lock held", service.ErrLockHeld, http.StatusConflict, "conflict: operation already in progress"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil, false)
			userID := uuid.New()
			marketID := uuid.New()
			ts.expectUser(userID)
			ts.markets.On("GetMarket", mock.Anything, marketID).Return(nil, tt.err)

			rec := ts.do(t, http.MethodGet, "/markets/"+marketID.String(), userID, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, errorBody(t, rec))
		})
	}
}

func TestMarketRoutes(t *testing.T) {
	userID := uuid.New()
	marketID := uuid.New()

	t.Run("place bet", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		amount := decimal.RequireFromString("12.5")
		ts.markets.On("PlaceBet", mock.Anything, marketID, userID, false,
			mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(amount) }),
			mock.MatchedBy(func(h *string) bool { return h != nil && *h == "0xabc" })).
			Return(&models.Bet{ID: uuid.New(), MarketID: marketID, BettorID: userID, Amount: amount}, nil)

		rec := ts.do(t, http.MethodPost, "/markets/"+marketID.String()+"/bets", userID,
			map[string]any{"position": false, "amount": "12.5", "txHash": "0xabc"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		ts.markets.AssertExpectations(t)
	})

	t.Run("bet without position is rejected", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodPost, "/markets/"+marketID.String()+"/bets", userID,
			map[string]any{"amount": "1"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ts.markets.AssertNotCalled(t, "PlaceBet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed market id", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodGet, "/markets/not-a-uuid", userID, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid id", errorBody(t, rec))
	})

	t.Run("list with state filter", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.markets.On("ListMarkets", mock.Anything,
			mock.MatchedBy(func(s *models.MarketState) bool { return s != nil && *s == models.MarketStateClosed }), 5).
			Return([]*models.Market{}, nil)

		rec := ts.do(t, http.MethodGet, "/markets?state=closed&limit=5", userID, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		ts.markets.AssertExpectations(t)
	})

	t.Run("list with unknown state", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodGet, "/markets?state=pending", userID, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("resolve on behalf of someone else", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodPost, "/markets/"+marketID.String()+"/resolve", userID,
			map[string]any{"outcome": true, "resolverId": uuid.NewString()})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		ts.markets.AssertNotCalled(t, "ResolveMarket", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolve returns the settlement", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		result := &models.MarketResult{
			Market: &models.Market{ID: marketID, State: models.MarketStateResolved},
			Settlement: &models.Settlement{
				Outcome:     true,
				TotalPool:   decimal.NewFromInt(150),
				WinningPool: decimal.NewFromInt(100),
				Remainder:   decimal.Zero,
			},
		}
		ts.markets.On("ResolveMarket", mock.Anything, marketID, userID, true, "photo").Return(result, nil)

		rec := ts.do(t, http.MethodPost, "/markets/"+marketID.String()+"/resolve", userID,
			map[string]any{"outcome": true, "resolverId": userID.String(), "evidence": "photo"})

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Settlement struct {
				Outcome   bool   `json:"outcome"`
				TotalPool string `json:"totalPool"`
			} `json:"settlement"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Settlement.Outcome)
		assert.Equal(t, "150", body.Settlement.TotalPool)
	})
}

func TestVouchRoutes(t *testing.T) {
	userID := uuid.New()
	friendID := uuid.New()

	t.Run("set vouch", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.vouches.On("SetVouch", mock.Anything, userID, friendID, 4).Return(&models.VouchResult{
			Vouch:     &models.Vouch{VoucherID: userID, VoucheeID: friendID, Points: 4},
			Budget:    decimal.NewFromInt(22),
			Allocated: decimal.NewFromInt(4),
		}, nil)

		rec := ts.do(t, http.MethodPost, "/vouches", userID,
			map[string]any{"userId": userID.String(), "vouchedForId": friendID.String(), "points": 4})

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Budget    string `json:"budget"`
			Allocated string `json:"allocated"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "22", body.Budget)
		assert.Equal(t, "4", body.Allocated)
	})

	t.Run("zero points withdraws", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.vouches.On("SetVouch", mock.Anything, userID, friendID, 0).Return(&models.VouchResult{
			Vouch: &models.Vouch{VoucherID: userID, VoucheeID: friendID},
		}, nil)

		rec := ts.do(t, http.MethodPost, "/vouches", userID,
			map[string]any{"vouchedForId": friendID.String(), "points": 0})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for _, points := range []int{-1, 6} {
		t.Run(fmt.Sprintf("points %d out of range", points), func(t *testing.T) {
			ts := newTestServer(t, nil, false)
			ts.expectUser(userID)

			rec := ts.do(t, http.MethodPost, "/vouches", userID,
				map[string]any{"vouchedForId": friendID.String(), "points": points})

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			ts.vouches.AssertNotCalled(t, "SetVouch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("vouch as someone else", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodPost, "/vouches", userID,
			map[string]any{"userId": uuid.NewString(), "vouchedForId": friendID.String(), "points": 1})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("insufficient budget is a conflict", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.vouches.On("SetVouch", mock.Anything, userID, friendID, 5).Return(nil, service.ErrInsufficientBudget)

		rec := ts.do(t, http.MethodPost, "/vouches", userID,
			map[string]any{"vouchedForId": friendID.String(), "points": 5})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestFriendAndMatchRoutes(t *testing.T) {
	userID := uuid.New()
	otherID := uuid.New()

	t.Run("respond requires accept", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodPost, "/friends/requests/"+uuid.NewString()+"/respond", userID, map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("decline is forwarded", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		friendshipID := uuid.New()
		ts.friends.On("RespondToRequest", mock.Anything, userID, friendshipID, false).
			Return(&models.Friendship{ID: friendshipID, Status: models.FriendshipStatusDeclined}, nil)

		rec := ts.do(t, http.MethodPost, "/friends/requests/"+friendshipID.String()+"/respond", userID,
			map[string]any{"accept": false})

		assert.Equal(t, http.StatusOK, rec.Code)
		ts.friends.AssertExpectations(t)
	})

	t.Run("send request", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.friends.On("SendRequest", mock.Anything, userID, otherID).
			Return(&models.Friendship{ID: uuid.New(), RequesterID: userID, AddresseeID: otherID}, nil)

		rec := ts.do(t, http.MethodPost, "/friends/requests", userID, map[string]any{"addresseeId": otherID.String()})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("propose match", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		thirdID := uuid.New()
		ts.matches.On("ProposeMatch", mock.Anything, userID, otherID, thirdID).
			Return(&models.Match{ID: uuid.New()}, nil)

		rec := ts.do(t, http.MethodPost, "/matches", userID,
			map[string]any{"userAId": otherID.String(), "userBId": thirdID.String()})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("report outcome", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		matchID := uuid.New()
		ts.matches.On("ReportDateOutcome", mock.Anything, userID, matchID, true).
			Return(&models.Match{ID: matchID}, nil)

		rec := ts.do(t, http.MethodPost, "/matches/"+matchID.String()+"/outcome", userID, map[string]any{"success": true})

		assert.Equal(t, http.StatusOK, rec.Code)
		ts.matches.AssertExpectations(t)
	})

	t.Run("negative limit", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)

		rec := ts.do(t, http.MethodGet, "/matches?limit=-1", userID, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNotificationRoutes(t *testing.T) {
	userID := uuid.New()

	t.Run("list unread", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		ts.notifications.On("ListNotifications", mock.Anything, userID, true, 0).Return([]*models.Notification{}, nil)

		rec := ts.do(t, http.MethodGet, "/notifications?unread=true", userID, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		ts.notifications.AssertExpectations(t)
	})

	t.Run("mark read", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		notificationID := uuid.New()
		ts.notifications.On("MarkRead", mock.Anything, userID, notificationID).Return(nil)

		rec := ts.do(t, http.MethodPost, "/notifications/"+notificationID.String()+"/read", userID, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("mark read on someone else's notification", func(t *testing.T) {
		ts := newTestServer(t, nil, false)
		ts.expectUser(userID)
		notificationID := uuid.New()
		ts.notifications.On("MarkRead", mock.Anything, userID, notificationID).
			Return(fmt.Errorf("%w: notification", service.ErrNotFound))

		rec := ts.do(t, http.MethodPost, "/notifications/"+notificationID.String()+"/read", userID, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
