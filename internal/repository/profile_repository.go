package repository

import (
	"context"
	"errors"
	"fmt"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateIfAbsent 插入资料行，已存在时不做任何修改
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, profile *model.Profile) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(profile).Error
}

// UpdateDetails 只写入非零值字段
func (r *ProfileRepository) UpdateDetails(ctx context.Context, id string, details model.Profile) error {
	result := r.DB.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(model.Profile{
			FullName:      details.FullName,
			Email:         details.Email,
			Phone:         details.Phone,
			Address:       details.Address,
			City:          details.City,
			State:         details.State,
			Country:       details.Country,
			Pincode:       details.Pincode,
			Qualification: details.Qualification,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrProfileNotFound
	}
	return nil
}

// AssignStudentID 仅当 student_id 为空时写入，返回是否由本次写入。
// 学号已属于其他资料时返回 util.ErrStudentIDTaken
func (r *ProfileRepository) AssignStudentID(ctx context.Context, id, studentID string) (bool, error) {
	result := r.DB.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ? AND (student_id IS NULL OR student_id = '')", id).
		Update("student_id", studentID)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return false, util.ErrStudentIDTaken
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// NormalizeRole 管理员和讲师保持原角色
func (r *ProfileRepository) NormalizeRole(ctx context.Context, id string, role model.UserRole) error {
	return r.DB.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ? AND (role IS NULL OR role NOT IN ?)", id, []model.UserRole{model.RoleAdmin, model.RoleInstructor}).
		Update("role", role).Error
}

// FindEnrolledWithoutStudentID 有报名记录但尚未分配学号的资料
func (r *ProfileRepository) FindEnrolledWithoutStudentID(ctx context.Context, limit int) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.DB.WithContext(ctx).
		Where("(student_id IS NULL OR student_id = '') AND id IN (?)",
			r.DB.Model(&model.Enrollment{}).Select("user_id")).
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("find profiles without student id: %w", err)
	}
	return profiles, nil
}
