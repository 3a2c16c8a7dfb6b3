package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"museum-stream-backend/config"
	"museum-stream-backend/internal/consumer"
	"museum-stream-backend/internal/lookup"
	"museum-stream-backend/internal/model"
	"museum-stream-backend/internal/store"
)

type staticState consumer.State

func (s staticState) State() consumer.State { return consumer.State(s) }

type testEnv struct {
	db     *gorm.DB
	store  store.Store
	router *gin.Engine
}

func setupRouter(t *testing.T, state consumer.State, opts *webpush.Options) testEnv {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, testDB.AutoMigrate(&model.Rating{}, &model.StaffSubscription{}))

	s := store.NewGormStore(testDB)
	cfg := &config.ServerConfig{RateLimitPerSec: 100, RateLimitBurst: 100}
	r := NewRouter(cfg, s, lookup.NewRatingCache(s, 0), staticState(state), opts)
	return testEnv{db: testDB, store: s, router: r}
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetHealth(t *testing.T) {
	testCases := []struct {
		state        consumer.State
		expectStatus int
	}{
		{consumer.StateStarting, http.StatusOK},
		{consumer.StateRunning, http.StatusOK},
		{consumer.StateDraining, http.StatusServiceUnavailable},
		{consumer.StateStopped, http.StatusServiceUnavailable},
		{consumer.StateCrashed, http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.state.String(), func(t *testing.T) {
			env := setupRouter(t, tc.state, nil)
			w := env.do(http.MethodGet, "/healthz", "")
			assert.Equal(t, tc.expectStatus, w.Code)
			assert.JSONEq(t, `{"state":"`+tc.state.String()+`"}`, w.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupRouter(t, consumer.StateRunning, nil)
	w := env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kiosk_messages_received_total")
}

func TestRatings(t *testing.T) {
	env := setupRouter(t, consumer.StateRunning, nil)
	_, err := env.store.SeedRatings(context.Background())
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/api/ratings/refresh", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ratings":5}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/ratings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"rating_id":1,"rating":0,"meaning":"Terrible"},
		{"rating_id":2,"rating":1,"meaning":"Bad"},
		{"rating_id":3,"rating":2,"meaning":"Neutral"},
		{"rating_id":4,"rating":3,"meaning":"Good"},
		{"rating_id":5,"rating":4,"meaning":"Amazing"}
	]`, w.Body.String())
}

func TestPutSubscription(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectStatus int
		expectKinds  string
	}{
		{
			name:         "Empty body",
			body:         "",
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "Unknown kind",
			body:         `{"endpoint":"https://push.example.com/a","p256dh":"k","auth":"a","kinds":["fire"]}`,
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "No kinds",
			body:         `{"endpoint":"https://push.example.com/a","p256dh":"k","auth":"a","kinds":[]}`,
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "Valid subscription",
			body:         `{"endpoint":"https://push.example.com/a","p256dh":"k","auth":"a","kinds":["emergency","assistance","emergency"]}`,
			expectStatus: http.StatusCreated,
			expectKinds:  "emergency,assistance",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupRouter(t, consumer.StateRunning, nil)
			w := env.do(http.MethodPut, "/api/subscriptions", tc.body)
			assert.Equal(t, tc.expectStatus, w.Code)

			if tc.expectKinds == "" {
				assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
				return
			}
			var sub model.StaffSubscription
			require.NoError(t, env.db.First(&sub, "endpoint = ?", "https://push.example.com/a").Error)
			assert.Equal(t, tc.expectKinds, sub.Kinds)
		})
	}
}

func TestDeleteSubscription(t *testing.T) {
	env := setupRouter(t, consumer.StateRunning, nil)
	require.NoError(t, env.store.PutStaffSubscription(context.Background(), &model.StaffSubscription{
		Endpoint: "https://push.example.com/a", P256DH: "k", Auth: "a", Kinds: "assistance",
	}))

	w := env.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"https://push.example.com/a"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&model.StaffSubscription{}).Count(&count).Error)
	assert.Zero(t, count)

	w = env.do(http.MethodDelete, "/api/subscriptions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := setupRouter(t, consumer.StateRunning, nil)
	w := env.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env = setupRouter(t, consumer.StateRunning, &webpush.Options{VAPIDPublicKey: "BPubKey"})
	w = env.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPubKey","kinds":["assistance","emergency"]}`, w.Body.String())
}
