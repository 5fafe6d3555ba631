package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005
	ErrCanceled         ErrorCode = 1006
	ErrNotImplemented   ErrorCode = 1007

	// 大厅错误 (2000-2999)
	ErrAlreadyInGame    ErrorCode = 2000
	ErrLobbyFull        ErrorCode = 2001
	ErrLobbyClosed      ErrorCode = 2002
	ErrNotLobbyCreator  ErrorCode = 2003
	ErrCannotKickStaked ErrorCode = 2004
	ErrNotInLobby       ErrorCode = 2005
	ErrAlreadyStaked    ErrorCode = 2006
	ErrNotStaked        ErrorCode = 2007
	ErrInvalidLobbySize ErrorCode = 2008

	// 比赛错误 (3000-3999)
	ErrMatchNotActive      ErrorCode = 3000
	ErrInvalidRound        ErrorCode = 3001
	ErrAlreadyMoved        ErrorCode = 3002
	ErrInvalidMove         ErrorCode = 3003
	ErrNotMatchParticipant ErrorCode = 3004
	ErrMatchNotReady       ErrorCode = 3005

	// 锦标赛错误 (4000-4999)
	ErrTournamentNotReady   ErrorCode = 4000
	ErrRoundStillInFlight   ErrorCode = 4001
	ErrNotTournamentMember  ErrorCode = 4002
	ErrTournamentNotWaiting ErrorCode = 4003

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003
	ErrDatabaseDelete  ErrorCode = 5004
	ErrTransaction     ErrorCode = 5005
	ErrDataIntegrity   ErrorCode = 5006

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigParse    ErrorCode = 6001
	ErrConfigValidate ErrorCode = 6002
	ErrConfigMissing  ErrorCode = 6003

	// 认证错误 (7000-7999)
	ErrAuthentication    ErrorCode = 7000
	ErrAuthorization     ErrorCode = 7001
	ErrTokenExpired      ErrorCode = 7002
	ErrTokenInvalid      ErrorCode = 7003
	ErrRateLimitExceeded ErrorCode = 7004
	ErrInvalidSignature  ErrorCode = 7005
	ErrNonceExpired      ErrorCode = 7006

	// 链上账务错误 (8000-8999)
	ErrStakeVerificationFailed ErrorCode = 8000
	ErrLedgerTimeout           ErrorCode = 8001
	ErrPayoutFailed            ErrorCode = 8002
	ErrInvalidWalletAddress    ErrorCode = 8003
	ErrLedgerUnavailable       ErrorCode = 8004
	ErrStakeAmountMismatch     ErrorCode = 8005
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",
	ErrCanceled:         "操作已取消",
	ErrNotImplemented:   "功能未实现",

	// 大厅错误
	ErrAlreadyInGame:    "玩家已有进行中的对局",
	ErrLobbyFull:        "大厅已满员",
	ErrLobbyClosed:      "大厅已关闭",
	ErrNotLobbyCreator:  "仅大厅创建者可执行该操作",
	ErrCannotKickStaked: "不能踢出已质押的玩家",
	ErrNotInLobby:       "玩家不在该大厅中",
	ErrAlreadyStaked:    "玩家已完成质押",
	ErrNotStaked:        "玩家尚未质押",
	ErrInvalidLobbySize: "无效的大厅人数",

	// 比赛错误
	ErrMatchNotActive:      "比赛未在进行中",
	ErrInvalidRound:        "回合编号不是当前回合",
	ErrAlreadyMoved:        "该回合已出招",
	ErrInvalidMove:         "无效的出招",
	ErrNotMatchParticipant: "玩家不是该比赛的参与者",
	ErrMatchNotReady:       "比赛参与者尚未就位",

	// 锦标赛错误
	ErrTournamentNotReady:   "锦标赛尚未就绪",
	ErrRoundStillInFlight:   "本轮比赛尚未全部结束",
	ErrNotTournamentMember:  "玩家不是该锦标赛的参与者",
	ErrTournamentNotWaiting: "锦标赛不在等待状态",

	// 数据库错误
	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrDatabaseDelete:  "数据库删除失败",
	ErrTransaction:     "事务处理失败",
	ErrDataIntegrity:   "数据完整性错误",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",
	ErrConfigMissing:  "配置项缺失",

	// 认证错误
	ErrAuthentication:    "认证失败",
	ErrAuthorization:     "授权失败",
	ErrTokenExpired:      "令牌已过期",
	ErrTokenInvalid:      "无效的令牌",
	ErrRateLimitExceeded: "请求频率超限",
	ErrInvalidSignature:  "钱包签名验证失败",
	ErrNonceExpired:      "签名随机数已过期",

	// 链上账务错误
	ErrStakeVerificationFailed: "质押交易验证失败",
	ErrLedgerTimeout:           "链上查询超时",
	ErrPayoutFailed:            "奖金发放失败",
	ErrInvalidWalletAddress:    "无效的钱包地址",
	ErrLedgerUnavailable:       "链上服务不可用",
	ErrStakeAmountMismatch:     "质押金额不匹配",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`    // 错误码
	Message string       `json:"message"` // 错误消息
	Details string       `json:"details"` // 详细信息
	Cause   error        `json:"-"`       // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/degen-space-organization/solana-game-sub000/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code >= 1001 && e.Code <= 1003:
		return 400 // Bad Request
	case e.Code == ErrNotFound:
		return 404 // Not Found
	case e.Code == ErrPermissionDenied:
		return 403 // Forbidden
	case e.Code == ErrTimeout:
		return 408 // Request Timeout
	case e.Code == ErrAlreadyInGame,
		e.Code == ErrLobbyFull,
		e.Code == ErrLobbyClosed,
		e.Code == ErrCannotKickStaked,
		e.Code == ErrAlreadyStaked,
		e.Code == ErrAlreadyMoved:
		return 409 // Conflict
	case e.Code >= 2000 && e.Code <= 4999:
		return 422 // Unprocessable Entity
	case e.Code >= 7000 && e.Code <= 7003 || e.Code == ErrInvalidSignature || e.Code == ErrNonceExpired:
		return 401 // Unauthorized
	case e.Code == ErrRateLimitExceeded:
		return 429 // Too Many Requests
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	case e.Code >= 8000 && e.Code <= 8999:
		return 502 // Bad Gateway
	default:
		return 500 // Internal Server Error
	}
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrTimeout,
		ErrLedgerTimeout,
		ErrPayoutFailed,
		ErrStakeVerificationFailed,
		ErrDatabaseConnect:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrDatabaseConnect,
		ErrConfigLoad,
		ErrConfigMissing,
		ErrDataIntegrity:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
