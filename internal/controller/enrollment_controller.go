package controller

import (
	"context"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type enrollmentService interface {
	Enroll(ctx context.Context, in service.EnrollInput) (*service.EnrollResult, error)
	ListMyEnrollments(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type EnrollmentController struct {
	EnrollmentService enrollmentService
}

func NewEnrollmentController(enrollmentService enrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// EnrollRequest 报名请求
// swagger:model EnrollRequest
type EnrollRequest struct {
	CourseID         string               `json:"courseId" binding:"required"`
	UserDetails      *service.UserDetails `json:"userDetails"`
	DirectEnrollment bool                 `json:"directEnrollment"`
}

// AdminEnrollRequest 管理员为已有用户报名
type AdminEnrollRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

type EnrollResponse struct {
	Enrollment *model.Enrollment `json:"enrollment"`
	StudentID  string            `json:"studentId"`
	UserRole   model.UserRole    `json:"userRole"`
	Course     *model.Course     `json:"course"`
}

func toEnrollResponse(res *service.EnrollResult) EnrollResponse {
	return EnrollResponse{
		Enrollment: res.Enrollment,
		StudentID:  res.StudentID,
		UserRole:   res.Role,
		Course:     res.Course,
	}
}

// Enroll godoc
// @Summary 报名课程
// @Tags 报名
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EnrollRequest true "报名信息"
// @Success 201 {object} util.Response{data=EnrollResponse}
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 409 {object} util.Response "已报名"
// @Router /api/enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	identity := util.GetIdentity(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}

	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.EnrollmentService.Enroll(ctx.Request.Context(), service.EnrollInput{
		UserID:      identity.UserID,
		Email:       identity.Email,
		CourseID:    req.CourseID,
		UserDetails: req.UserDetails,
		Direct:      req.DirectEnrollment,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, "Successfully enrolled in course", toEnrollResponse(res))
}

// AdminEnroll godoc
// @Summary 管理员为学生报名课程（直接报名，使用已有资料）
// @Tags 报名
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param userId path string true "用户ID"
// @Param body body AdminEnrollRequest true "课程"
// @Success 201 {object} util.Response{data=EnrollResponse}
// @Router /api/admin/students/{userId}/enrollments [post]
func (c *EnrollmentController) AdminEnroll(ctx *gin.Context) {
	var req AdminEnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.EnrollmentService.Enroll(ctx.Request.Context(), service.EnrollInput{
		UserID:   ctx.Param("userId"),
		CourseID: req.CourseID,
		Direct:   true,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, "Student enrolled in course", toEnrollResponse(res))
}

// ListMine godoc
// @Summary 我的报名
// @Tags 报名
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListMine(ctx *gin.Context) {
	identity := util.GetIdentity(ctx)
	if identity == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.EnrollmentService.ListMyEnrollments(ctx.Request.Context(), identity.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}
