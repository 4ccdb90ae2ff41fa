package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

// respondError 把 service 层错误映射为业务错误码
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var serr *service.InvalidStateError
	var ierr *service.VerificationIncompleteError

	switch {
	case errors.As(err, &verr):
		response.ParamError(c, verr.Error())
	case errors.As(err, &serr):
		response.InvalidStateError(c, serr.Error())
	case errors.As(err, &ierr):
		response.VerificationIncomplete(c, "")
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrPackageNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound),
		errors.Is(err, service.ErrSubjectNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrDuplicateReference),
		errors.Is(err, service.ErrSweepInProgress):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrNotAnUpgrade):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrNoSubscription):
		response.InvalidStateError(c, err.Error())
	default:
		log.Printf("Handler: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}

// parseIDParam 解析路径中的正整数 ID
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的 "+name)
		return 0, false
	}
	return id, true
}
