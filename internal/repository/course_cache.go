package repository

import (
	"context"
	"encoding/json"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseCachePrefix = "course:"

type courseSource interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

// CachedCourseRepository 课程读缓存，redis 故障时直接回源
type CachedCourseRepository struct {
	source courseSource
	client *redis.Client
	ttl    time.Duration
}

func NewCachedCourseRepository(source courseSource, client *redis.Client, ttl time.Duration) *CachedCourseRepository {
	return &CachedCourseRepository{source: source, client: client, ttl: ttl}
}

func (r *CachedCourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	key := courseCachePrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var course model.Course
		if err := json.Unmarshal(data, &course); err == nil {
			return &course, nil
		}
		logger.Log.Warn("discarding corrupt course cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		logger.Log.Warn("course cache read failed", zap.String("key", key), zap.Error(err))
	}

	course, err := r.source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(course); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			logger.Log.Warn("course cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return course, nil
}

func (r *CachedCourseRepository) Invalidate(ctx context.Context, id string) error {
	return r.client.Del(ctx, courseCachePrefix+id).Err()
}
