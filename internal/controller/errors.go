package controller

import (
	"errors"
	"net/http"

	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnauthenticated):
		util.Unauthorized(c)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(c)
	case errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(c, "Course not found")
	case errors.Is(err, util.ErrProfileNotFound):
		util.NotFound(c, "User not found")
	case errors.Is(err, util.ErrAlreadyEnrolled):
		util.Error(c, http.StatusConflict, "Already enrolled in this course")
	case errors.Is(err, util.ErrInvalidInput):
		util.BadRequest(c, err.Error())
	default:
		util.LogInternalError(c, err)
	}
}
