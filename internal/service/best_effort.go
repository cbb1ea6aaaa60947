package service

import (
	"context"
	"fmt"

	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// bestEffortTask 报名提交后执行的副作用，失败只记录日志
type bestEffortTask struct {
	name string
	run  func(ctx context.Context) error
}

// runBestEffort 按顺序执行，每个任务相互隔离（包括 panic），返回失败的任务名
func runBestEffort(ctx context.Context, fields []zap.Field, tasks []bestEffortTask) []string {
	var failed []string
	for _, task := range tasks {
		if err := runIsolated(ctx, task); err != nil {
			failed = append(failed, task.name)
			monitoring.BestEffortFailures.WithLabelValues(task.name).Inc()
			logger.Log.Warn("best-effort task failed",
				append([]zap.Field{zap.String("task", task.name), zap.Error(err)}, fields...)...,
			)
		}
	}
	return failed
}

func runIsolated(ctx context.Context, task bestEffortTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.run(ctx)
}
