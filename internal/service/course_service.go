package service

import (
	"context"
	"errors"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
)

const (
	defaultCoursePageSize = 20
	maxCoursePageSize     = 100
)

type CourseCatalog interface {
	ListPublished(ctx context.Context, page, limit int) ([]model.Course, int64, error)
}

type CourseService struct {
	courses CourseStore
	catalog CourseCatalog
}

func NewCourseService(courses CourseStore, catalog CourseCatalog) *CourseService {
	return &CourseService{courses: courses, catalog: catalog}
}

// List 已发布课程分页
func (s *CourseService) List(ctx context.Context, page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultCoursePageSize
	}
	if limit > maxCoursePageSize {
		limit = maxCoursePageSize
	}

	courses, total, err := s.catalog.ListPublished(ctx, page, limit)
	if err != nil {
		return nil, 0, storageFailure("list courses", err)
	}
	return courses, total, nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			return nil, err
		}
		return nil, storageFailure("load course", err)
	}
	if !course.Published {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}
