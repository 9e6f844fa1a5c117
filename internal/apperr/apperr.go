package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"        // 输入校验失败，未触达链上
	KindNotFound         Kind = "NOT_FOUND"               // 项目不存在
	KindChainRevert      Kind = "CHAIN_REVERT"            // 链上交易被回滚，记录未修改
	KindChainTimeout     Kind = "CHAIN_TIMEOUT"           // 等待确认超时，交易可能稍后落块
	KindAmbiguousAddress Kind = "AMBIGUOUS_ADDRESS"       // 地址发现协议未找到唯一候选
	KindConflict         Kind = "CONFLICT"                // 重复审批已部署的项目
	KindPartialFailure   Kind = "PARTIAL_FAILURE"         // 链上已成功但记录更新失败
	KindInternal         Kind = "INTERNAL_ERROR"
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	TxHash  string // 关联的链上交易哈希（部分失败时携带，供对账任务使用）
	Address string // 已发现的合约地址（部分失败时携带）
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建业务错误
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 提取错误类别，非业务错误归为 INTERNAL_ERROR
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus 错误类别到HTTP状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindChainTimeout:
		return http.StatusGatewayTimeout
	case KindChainRevert, KindAmbiguousAddress:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
