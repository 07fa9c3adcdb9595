package whop

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoVerifierKey = errors.New("whop jwt public key not configured")
	ErrTokenInvalid  = errors.New("whop user token invalid")
)

// VerifyUserToken 本地校验平台签发的用户令牌（ES256），与官方 SDK 行为一致。
// 校验通过后返回平台用户 ID；company id 不在令牌里，需另行 who-am-I
func (s *restyClient) VerifyUserToken(tokenString string) (string, error) {
	if s.cfg.JWTPublicKey == "" {
		return "", ErrNoVerifierKey
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(s.cfg.JWTPublicKey))
	if err != nil {
		return "", fmt.Errorf("parse whop public key: %w", err)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"ES256"}),
	}
	if s.cfg.AppID != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.cfg.AppID))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrTokenInvalid
	}

	return sub, nil
}
