package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
	BadGateway          = 502
)

var (
	ErrParamInvalid      = errors.New("参数错误")
	ErrConfigMissing     = errors.New("缺少必要配置")
	ErrInvalidCredential = errors.New("凭证无效或已过期")
	ErrTenantNotFound    = errors.New("租户不存在")
	ErrRemoteUnavailable = errors.New("平台接口不可用")
	ErrSyncInProgress    = errors.New("同步任务进行中，请稍后重试")
	ErrConversation      = errors.New("会话异常")
	UnExpectedError      = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:      BadRequest,
	ErrConfigMissing:     InternalServerError,
	ErrInvalidCredential: Unauthorized,
	ErrTenantNotFound:    NotFound,
	ErrRemoteUnavailable: BadGateway,
	ErrSyncInProgress:    BadRequest,
	ErrConversation:      BadRequest,
	UnExpectedError:      InternalServerError,
}
