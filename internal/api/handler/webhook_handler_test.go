package handler

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/pkg/kafka"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	tasks []*kafka.SyncTask
	err   error
}

func (s *fakeProducer) EnqueueSyncTask(_ context.Context, task *kafka.SyncTask) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeProducer) Close() error { return nil }

func newWebhookRouter(producer kafka.SyncTaskProducer, cfg config.WhopConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/webhooks/whop", NewWebhookHandler(producer, cfg).HandleWhopEvent)
	return r
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whop", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("x-whop-signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelopeCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestWebhookEnqueuesSyncTask(t *testing.T) {
	producer := &fakeProducer{}
	r := newWebhookRouter(producer, config.WhopConfig{WebhookSecret: "secret"})

	body := []byte(`{"action":"membership.went_valid","data":{"company_id":"biz_1"}}`)
	w := postEvent(r, body, sign("secret", body))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 200, envelopeCode(t, w))
	require.Len(t, producer.tasks, 1)
	require.Equal(t, "biz_1", producer.tasks[0].CompanyID)
	require.Equal(t, "webhook:membership.went_valid", producer.tasks[0].Reason)
}

func TestWebhookCamelCaseCompanyID(t *testing.T) {
	producer := &fakeProducer{}
	r := newWebhookRouter(producer, config.WhopConfig{WebhookSecret: "secret"})

	body := []byte(`{"type":"payment.succeeded","data":{"companyId":"biz_2"}}`)
	w := postEvent(r, body, sign("secret", body))

	require.Equal(t, 200, envelopeCode(t, w))
	require.Len(t, producer.tasks, 1)
	require.Equal(t, "biz_2", producer.tasks[0].CompanyID)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	producer := &fakeProducer{}
	r := newWebhookRouter(producer, config.WhopConfig{WebhookSecret: "secret"})

	body := []byte(`{"action":"membership.went_valid","data":{"company_id":"biz_1"}}`)

	w := postEvent(r, body, sign("wrong-secret", body))
	require.Equal(t, 401, envelopeCode(t, w))
	require.Empty(t, producer.tasks)

	w = postEvent(r, body, "")
	require.Equal(t, 401, envelopeCode(t, w))
	require.Empty(t, producer.tasks)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	producer := &fakeProducer{}
	r := newWebhookRouter(producer, config.WhopConfig{WebhookSecret: "secret"})

	body := []byte(`{"action":"app.installed","data":{"company_id":"biz_1"}}`)
	w := postEvent(r, body, sign("secret", body))

	require.Equal(t, 200, envelopeCode(t, w))
	require.Empty(t, producer.tasks)
}

func TestWebhookDevModeSkipsSignature(t *testing.T) {
	producer := &fakeProducer{}
	r := newWebhookRouter(producer, config.WhopConfig{DevMode: true})

	body := []byte(`{"action":"membership.went_invalid","data":{"company_id":"biz_1"}}`)
	w := postEvent(r, body, "")

	require.Equal(t, 200, envelopeCode(t, w))
	require.Len(t, producer.tasks, 1)
}
