package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway(url string) *HTTPGateway {
	g := NewHTTPGateway(url, "sk_test")
	g.retry.BackoffBase = time.Millisecond
	g.retry.MaxBackoff = 5 * time.Millisecond
	return g
}

func TestHTTPGatewayCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"pi_123","client_secret":"cs_abc","status":"requires_confirmation"}`))
	}))
	defer srv.Close()

	intent, err := testGateway(srv.URL).CreateIntent(context.Background(), IntentRequest{
		PaymentID:   "pay_1",
		OrderNumber: "202603140001",
		Amount:      decimal.NewFromInt(55),
		Currency:    "USD",
		Method:      "card",
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "cs_abc", intent.ClientSecret)
}

func TestHTTPGatewayRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`))
	}))
	defer srv.Close()

	result, err := testGateway(srv.URL).ConfirmIntent(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPGatewayDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := testGateway(srv.URL).ConfirmIntent(context.Background(), "pi_123")

	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestHTTPGatewayGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := testGateway(srv.URL).CancelIntent(context.Background(), "pi_123")

	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPGatewayDeclineIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pi_123","status":"declined","message":"insufficient funds"}`))
	}))
	defer srv.Close()

	result, err := testGateway(srv.URL).ConfirmIntent(context.Background(), "pi_123")

	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, "insufficient funds", result.Message)
}
