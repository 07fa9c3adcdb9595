package handler

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/api/dto"
	"Pulseboard/internal/pkg/kafka"
	"Pulseboard/internal/pkg/response"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

const signatureHeader = "x-whop-signature"

// 触发重新同步的事件前缀，其余事件确认即可
var syncEventPrefixes = []string{"membership.", "payment."}

type WebhookHandler struct {
	producer kafka.SyncTaskProducer
	whopCfg  config.WhopConfig
}

func NewWebhookHandler(producer kafka.SyncTaskProducer, whopCfg config.WhopConfig) *WebhookHandler {
	return &WebhookHandler{
		producer: producer,
		whopCfg:  whopCfg,
	}
}

// HandleWhopEvent 接收平台回调。验签失败直接拒绝，
// 合法事件只入队一个同步任务，重活都在消费者里干
func (s *WebhookHandler) HandleWhopEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Fail(c, response.BadRequest, "请求体读取失败")
		return
	}

	if !s.verifySignature(body, c.GetHeader(signatureHeader)) {
		response.Fail(c, response.Unauthorized, "签名校验失败")
		return
	}

	var event dto.WebhookEvent
	if err = json.Unmarshal(body, &event); err != nil {
		response.Fail(c, response.BadRequest, "事件格式错误")
		return
	}

	ctx := c.Request.Context()
	eventName := event.EventName()
	if !shouldSync(eventName) {
		log.InfoContext(ctx, "webhook event ignored", "event", eventName)
		response.Success(c, nil)
		return
	}

	var data dto.WebhookEventData
	if len(event.Data) > 0 {
		_ = json.Unmarshal(event.Data, &data)
	}
	companyID := data.Company()
	if companyID == "" {
		log.WarnContext(ctx, "webhook event carries no company id", "event", eventName)
		response.Success(c, nil)
		return
	}

	if err = s.producer.EnqueueSyncTask(ctx, kafka.NewSyncTask(companyID, "webhook:"+eventName)); err != nil {
		log.ErrorContext(ctx, "enqueue sync task failed", "company_id", companyID, "err", err)
		response.Fail(c, response.InternalServerError, "任务入队失败")
		return
	}

	log.InfoContext(ctx, "webhook sync task enqueued", "event", eventName, "company_id", companyID)
	response.Success(c, nil)
}

func (s *WebhookHandler) verifySignature(body []byte, signature string) bool {
	secret := s.whopCfg.WebhookSecret
	if secret == "" {
		// 未配置密钥时放行，仅限开发环境
		return s.whopCfg.DevMode
	}
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func shouldSync(eventName string) bool {
	for _, prefix := range syncEventPrefixes {
		if strings.HasPrefix(eventName, prefix) {
			return true
		}
	}
	return false
}
