package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	CreateIfAbsent(ctx context.Context, profile *model.Profile) error
	UpdateDetails(ctx context.Context, id string, details model.Profile) error
	AssignStudentID(ctx context.Context, id, studentID string) (bool, error)
	NormalizeRole(ctx context.Context, id string, role model.UserRole) error
}

type EnrollmentStore interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *model.Enrollment) error
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type CourseStore interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

type Notifier interface {
	NotifyAdmin(ctx context.Context, notice EnrollmentNotice) error
	NotifyStudent(ctx context.Context, notice EnrollmentNotice) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// UserDetails 报名表单提交的资料，非直接报名时写回 profile
type UserDetails struct {
	FullName      string `json:"fullName" validate:"omitempty,max=150"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	Phone         string `json:"phone" validate:"omitempty,min=7,max=20"`
	Address       string `json:"address" validate:"omitempty,max=255"`
	City          string `json:"city" validate:"omitempty,max=100"`
	State         string `json:"state" validate:"omitempty,max=100"`
	Country       string `json:"country" validate:"omitempty,max=100"`
	Pincode       string `json:"pincode" validate:"omitempty,max=20"`
	Qualification string `json:"qualification" validate:"omitempty,max=255"`
}

type EnrollInput struct {
	UserID      string
	Email       string
	CourseID    string       `validate:"required,max=64"`
	UserDetails *UserDetails `validate:"omitempty"`
	// Direct 直接报名：沿用已有资料，忽略 UserDetails
	Direct bool
}

type EnrollResult struct {
	Enrollment *model.Enrollment
	StudentID  string
	Role       model.UserRole
	Course     *model.Course
	// 失败的后置任务，仅用于日志和测试
	FailedTasks []string `json:"-"`
}

// EnrollmentCreatedEvent 发布到 Kafka 的报名事件
type EnrollmentCreatedEvent struct {
	Type         string    `json:"type"`
	EnrollmentID string    `json:"enrollmentId"`
	UserID       string    `json:"userId"`
	CourseID     string    `json:"courseId"`
	StudentID    string    `json:"studentId"`
	Direct       bool      `json:"direct"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

const (
	taskUpdateProfile   = "update_profile"
	taskAssignStudentID = "assign_student_id"
	taskNormalizeRole   = "normalize_role"
	taskNotifyAdmin     = "notify_admin"
	taskNotifyStudent   = "notify_student"
	taskPublishEvent    = "publish_event"
)

type EnrollmentService struct {
	profiles      ProfileStore
	enrollments   EnrollmentStore
	courses       CourseStore
	studentIDs    *StudentIDGenerator
	notifier      Notifier
	publisher     EventPublisher
	notifyTimeout time.Duration
	validate      *validator.Validate
	now           func() time.Time
}

func NewEnrollmentService(
	profiles ProfileStore,
	enrollments EnrollmentStore,
	courses CourseStore,
	studentIDs *StudentIDGenerator,
	notifier Notifier,
	publisher EventPublisher,
	notifyTimeout time.Duration,
) *EnrollmentService {
	return &EnrollmentService{
		profiles:      profiles,
		enrollments:   enrollments,
		courses:       courses,
		studentIDs:    studentIDs,
		notifier:      notifier,
		publisher:     publisher,
		notifyTimeout: notifyTimeout,
		validate:      validator.New(),
		now:           time.Now,
	}
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, util.ErrStorageFailure, err)
}

func enrollOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, util.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, util.ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, util.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, util.ErrInvalidInput):
		return "invalid"
	default:
		return "storage_failure"
	}
}

// Enroll 报名流程。插入 enrollment 之前的错误会中止流程；插入之后的步骤全部为尽力而为
func (s *EnrollmentService) Enroll(ctx context.Context, in EnrollInput) (result *EnrollResult, err error) {
	ctx, span := tracing.Tracer.Start(ctx, "EnrollmentService.Enroll", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", in.UserID),
		attribute.String("course.id", in.CourseID),
		attribute.Bool("enrollment.direct", in.Direct),
	)
	defer func() {
		outcome := enrollOutcome(err)
		monitoring.EnrollmentsTotal.WithLabelValues(outcome).Inc()
		span.SetAttributes(attribute.String("enrollment.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	if strings.TrimSpace(in.UserID) == "" {
		return nil, util.ErrUnauthenticated
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}

	// 预检查只能缩小竞争窗口，唯一索引才是最终裁决
	exists, err := s.enrollments.Exists(ctx, in.UserID, in.CourseID)
	if err != nil {
		return nil, storageFailure("check enrollment", err)
	}
	if exists {
		return nil, util.ErrAlreadyEnrolled
	}

	course, err := s.courses.FindByID(ctx, in.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return nil, err
		}
		return nil, storageFailure("load course", err)
	}
	// 未发布课程对学生不可见
	if !course.Published {
		return nil, util.ErrCourseNotFound
	}

	profile, err := s.resolveProfile(ctx, in)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			return nil, err
		}
		return nil, storageFailure("load profile", err)
	}
	details := effectiveDetails(profile, in)

	studentID, generated := s.resolveStudentID(ctx, profile, details)

	enrollment := &model.Enrollment{
		UserID:     in.UserID,
		CourseID:   in.CourseID,
		Status:     model.EnrollmentActive,
		Progress:   0,
		EnrolledAt: s.now(),
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, util.ErrAlreadyEnrolled) {
			return nil, err
		}
		return nil, storageFailure("create enrollment", err)
	}
	enrollment.Course = course

	result = &EnrollResult{
		Enrollment: enrollment,
		StudentID:  studentID,
		Role:       model.RoleStudent,
		Course:     course,
	}
	if profile.Role.IsElevated() {
		result.Role = profile.Role
	}

	// 已提交，后续步骤不再受调用方取消影响
	result.FailedTasks = s.afterCommit(context.WithoutCancel(ctx), in, details, generated, result)
	span.SetAttributes(attribute.String("student.id", result.StudentID))

	logger.Log.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("user_id", in.UserID),
		zap.String("course_id", in.CourseID),
		zap.String("student_id", result.StudentID),
		zap.Bool("direct", in.Direct),
		zap.Strings("failed_tasks", result.FailedTasks),
	)
	return result, nil
}

// resolveProfile 学生本人报名时资料不存在则按调用方 id 创建；管理员直接报名只接受已有用户
func (s *EnrollmentService) resolveProfile(ctx context.Context, in EnrollInput) (*model.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, in.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, util.ErrProfileNotFound) || in.Direct {
		return nil, err
	}

	if err := s.profiles.CreateIfAbsent(ctx, &model.Profile{ID: in.UserID, Email: in.Email}); err != nil {
		return nil, err
	}
	return s.profiles.FindByID(ctx, in.UserID)
}

// effectiveDetails 本次报名使用的资料：直接报名原样使用 profile，否则用表单中的非空字段覆盖
func effectiveDetails(profile *model.Profile, in EnrollInput) model.Profile {
	details := *profile
	if details.Email == "" {
		details.Email = in.Email
	}
	if in.Direct || in.UserDetails == nil {
		return details
	}

	d := in.UserDetails
	override := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(&details.FullName, d.FullName)
	override(&details.Email, d.Email)
	override(&details.Phone, d.Phone)
	override(&details.Address, d.Address)
	override(&details.City, d.City)
	override(&details.State, d.State)
	override(&details.Country, d.Country)
	override(&details.Pincode, d.Pincode)
	override(&details.Qualification, d.Qualification)
	return details
}

// resolveStudentID 已有学号直接复用；第二个返回值表示本次新生成、需要持久化
func (s *EnrollmentService) resolveStudentID(ctx context.Context, profile *model.Profile, details model.Profile) (string, bool) {
	if profile.HasStudentID() {
		monitoring.StudentIDsTotal.WithLabelValues(sourceExisting).Inc()
		return *profile.StudentID, false
	}
	id, _ := s.studentIDs.generate(ctx, details.Country, details.State)
	return id, true
}

func (s *EnrollmentService) afterCommit(ctx context.Context, in EnrollInput, details model.Profile, generated bool, result *EnrollResult) []string {
	var tasks []bestEffortTask

	if !in.Direct && in.UserDetails != nil {
		tasks = append(tasks, bestEffortTask{name: taskUpdateProfile, run: func(ctx context.Context) error {
			return s.profiles.UpdateDetails(ctx, in.UserID, details)
		}})
	}

	if generated {
		tasks = append(tasks, bestEffortTask{name: taskAssignStudentID, run: func(ctx context.Context) error {
			return s.persistStudentID(ctx, in.UserID, details, result)
		}})
	}

	if !result.Role.IsElevated() {
		tasks = append(tasks, bestEffortTask{name: taskNormalizeRole, run: func(ctx context.Context) error {
			return s.profiles.NormalizeRole(ctx, in.UserID, model.RoleStudent)
		}})
	}

	// 通知内容在学号持久化之后生成，以便使用最终确定的学号
	notice := func() EnrollmentNotice {
		name := details.FullName
		if name == "" {
			name = details.Email
		}
		return EnrollmentNotice{
			StudentName:  name,
			StudentEmail: details.Email,
			Phone:        details.Phone,
			StudentID:    result.StudentID,
			CourseTitle:  result.Course.Title,
			CoursePrice:  result.Course.Price,
			Direct:       in.Direct,
			EnrolledAt:   result.Enrollment.EnrolledAt,
		}
	}
	tasks = append(tasks,
		bestEffortTask{name: taskNotifyAdmin, run: func(ctx context.Context) error {
			ctx, cancel := s.withNotifyTimeout(ctx)
			defer cancel()
			return s.notifier.NotifyAdmin(ctx, notice())
		}},
		bestEffortTask{name: taskNotifyStudent, run: func(ctx context.Context) error {
			ctx, cancel := s.withNotifyTimeout(ctx)
			defer cancel()
			return s.notifier.NotifyStudent(ctx, notice())
		}},
		bestEffortTask{name: taskPublishEvent, run: func(ctx context.Context) error {
			return s.publisher.Publish(ctx, in.UserID, EnrollmentCreatedEvent{
				Type:         "enrollment.created",
				EnrollmentID: result.Enrollment.ID,
				UserID:       in.UserID,
				CourseID:     in.CourseID,
				StudentID:    result.StudentID,
				Direct:       in.Direct,
				EnrolledAt:   result.Enrollment.EnrolledAt,
			})
		}},
	)

	// normalize_role 失败时 result.Role 仍为 student
	return runBestEffort(ctx, []zap.Field{
		zap.String("user_id", in.UserID),
		zap.String("course_id", in.CourseID),
	}, tasks)
}

// persistStudentID 条件更新；并发请求先写入时改用已存储的学号。
// 与其他学生的学号冲突时本地重新生成一次
func (s *EnrollmentService) persistStudentID(ctx context.Context, userID string, details model.Profile, result *EnrollResult) error {
	assigned, err := s.profiles.AssignStudentID(ctx, userID, result.StudentID)
	if errors.Is(err, util.ErrStudentIDTaken) {
		redrawn := s.studentIDs.redraw(ctx, details.Country, details.State)
		logger.Log.Warn("student id already taken, redrawing",
			zap.String("user_id", userID),
			zap.String("taken", result.StudentID),
			zap.String("redrawn", redrawn),
		)
		result.StudentID = redrawn
		assigned, err = s.profiles.AssignStudentID(ctx, userID, redrawn)
	}
	if err != nil {
		return err
	}
	if assigned {
		return nil
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("reload profile after lost student id update: %w", err)
	}
	if !profile.HasStudentID() {
		return fmt.Errorf("student id %s was not persisted", result.StudentID)
	}
	if *profile.StudentID != result.StudentID {
		logger.Log.Info("adopting concurrently assigned student id",
			zap.String("user_id", userID),
			zap.String("generated", result.StudentID),
			zap.String("stored", *profile.StudentID),
		)
		result.StudentID = *profile.StudentID
	}
	return nil
}

func (s *EnrollmentService) withNotifyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.notifyTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.notifyTimeout)
}

// ListMyEnrollments 学生面板使用，按报名时间倒序
func (s *EnrollmentService) ListMyEnrollments(ctx context.Context, userID string) ([]model.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, util.ErrUnauthenticated
	}
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageFailure("list enrollments", err)
	}
	return enrollments, nil
}
