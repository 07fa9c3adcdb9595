package middleware

import (
	"Pulseboard/internal/pkg/consts"
	"Pulseboard/internal/pkg/redis"
	"Pulseboard/internal/pkg/response"
	"Pulseboard/internal/service"
	"context"
	"crypto/sha256"
	"encoding/hex"
	log "log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

const (
	// IdentityKey Context 中存放租户身份的键
	IdentityKey = "identity"

	userTokenHeader  = "x-whop-user-token"
	identityCacheTTL = 5 * time.Minute
)

// AuthMiddleware 解析平台用户令牌、定位租户并将身份注入 Context。
// 同一令牌的解析结果短暂缓存，避免每个请求都打一次 who-am-I
func AuthMiddleware(identitySvc service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)

		identity, err := resolveCached(c.Request.Context(), identitySvc, token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Set("tenant_id", identity.TenantID)

		newCtx := context.WithValue(c.Request.Context(), "tenant_id", identity.TenantID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}

// Identity 从 Context 取出鉴权后的租户身份
func Identity(c *gin.Context) *service.TenantIdentity {
	value, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	identity, _ := value.(*service.TenantIdentity)
	return identity
}

// extractToken 嵌入式面板带 x-whop-user-token 头，API 调用方走 Bearer
func extractToken(c *gin.Context) string {
	if token := c.GetHeader(userTokenHeader); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func resolveCached(ctx context.Context, identitySvc service.IdentityService, token string) (*service.TenantIdentity, error) {
	if token == "" {
		// 开发模式下的空令牌不走缓存
		return identitySvc.Resolve(ctx, token)
	}

	digest := sha256.Sum256([]byte(token))
	cacheKey := consts.TenantIdentityKey + hex.EncodeToString(digest[:])

	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var identity service.TenantIdentity
		if err = json.Unmarshal([]byte(cached), &identity); err == nil {
			identity.Token = token
			return &identity, nil
		}
	}

	identity, err := identitySvc.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(identity); err == nil {
		if err = redis.SetWithExpiration(ctx, cacheKey, string(payload), identityCacheTTL); err != nil {
			log.WarnContext(ctx, "identity cache write failed", "err", err)
		}
	}
	return identity, nil
}
