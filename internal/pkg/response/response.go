package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodeQuotaExceeded    = 1004
	CodeDuplicateAction  = 1005
	CodeInvalidState     = 1006
	CodeServerError      = 5000
	// CodeVerificationIncomplete 审核事务回滚，凭证仍为 pending，可重试
	CodeVerificationIncomplete = 5001
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "参数错误",
	CodeAuthFailed:       "认证失败",
	CodePermissionDenied: "权限不足",
	CodeResourceNotFound: "资源不存在",
	CodeQuotaExceeded:    "配额不足",
	CodeDuplicateAction:  "重复操作",
	CodeInvalidState:     "状态不允许该操作",
	CodeServerError:      "服务器内部错误",

	CodeVerificationIncomplete: "审核未完成，请重试",
}

// Response 所有接口共用的 {code, message, data} 包装
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func write(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	write(c, CodeSuccess, codeMessages[CodeSuccess], data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, CodeSuccess, message, data)
}

// SuccessPage 列表接口统一的分页包装
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	write(c, CodeSuccess, codeMessages[CodeSuccess], PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 业务错误仍返回 HTTP 200，message 为空时取默认文案
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	write(c, code, message, nil)
}

// 按错误码预置的错误响应，message 为空时使用默认消息
var (
	ParamError             = withCode(CodeParamError)
	AuthError              = withCode(CodeAuthFailed)
	PermissionError        = withCode(CodePermissionDenied)
	NotFoundError          = withCode(CodeResourceNotFound)
	QuotaError             = withCode(CodeQuotaExceeded)
	DuplicateError         = withCode(CodeDuplicateAction)
	InvalidStateError      = withCode(CodeInvalidState)
	ServerError            = withCode(CodeServerError)
	VerificationIncomplete = withCode(CodeVerificationIncomplete)
)

func withCode(code int) func(c *gin.Context, message string) {
	return func(c *gin.Context, message string) {
		Error(c, code, message)
	}
}
