package controller

import (
	"context"
	"net/http"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCourseService struct {
	courses    map[string]*model.Course
	page, size int
}

func (s *stubCourseService) List(_ context.Context, page, limit int) ([]model.Course, int64, error) {
	s.page, s.size = page, limit
	var out []model.Course
	for _, c := range s.courses {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (s *stubCourseService) Get(_ context.Context, id string) (*model.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	return c, nil
}

func newCourseRouter(svc *stubCourseService) *gin.Engine {
	ctrl := NewCourseController(svc)
	r := gin.New()
	r.GET("/api/courses", ctrl.List)
	r.GET("/api/courses/:id", ctrl.Get)
	return r
}

func TestCourseList(t *testing.T) {
	svc := &stubCourseService{courses: map[string]*model.Course{
		"c1": {UUIDBase: model.UUIDBase{ID: "c1"}, Title: "Full Stack Web Development"},
	}}
	w := doJSON(newCourseRouter(svc), http.MethodGet, "/api/courses?page=2&limit=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, 5, svc.size)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), "Full Stack Web Development")
}

func TestCourseGet(t *testing.T) {
	svc := &stubCourseService{courses: map[string]*model.Course{
		"c1": {UUIDBase: model.UUIDBase{ID: "c1"}, Title: "Full Stack Web Development"},
	}}
	router := newCourseRouter(svc)

	w := doJSON(router, http.MethodGet, "/api/courses/c1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/courses/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Course not found")
}
