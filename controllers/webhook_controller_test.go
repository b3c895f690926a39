package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"commerce-backend/repository"
	"commerce-backend/services"
	"commerce-backend/webhooks"
)

func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemory()
	reconciler := services.NewWebhookReconciler(store, webhooks.NewMemoryStore(), services.NewStatusMachine())

	r := gin.New()
	r.POST("/payments/webhook", NewWebhookController(reconciler).Handle)
	return r
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookEndpointAcksUnmatchedPayment(t *testing.T) {
	r := newWebhookRouter()

	w := postWebhook(r, `{
		"id": "evt_1",
		"type": "payment.failed",
		"data": {"payment_id": "pi_unknown"}
	}`)

	assert.Equal(t, http.StatusOK, w.Code, "gateways retry on non-2xx; no-match must ack")
	assert.Contains(t, w.Body.String(), "received")
}

func TestWebhookEndpointAcksUnknownEventType(t *testing.T) {
	r := newWebhookRouter()

	w := postWebhook(r, `{
		"id": "evt_2",
		"type": "customer.updated",
		"data": {}
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookEndpointRejectsMalformedBody(t *testing.T) {
	r := newWebhookRouter()

	w := postWebhook(r, `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
