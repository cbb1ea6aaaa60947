package service

import (
	"context"
	"fmt"

	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

type backfillStore interface {
	FindEnrolledWithoutStudentID(ctx context.Context, limit int) ([]model.Profile, error)
	AssignStudentID(ctx context.Context, id, studentID string) (bool, error)
}

// BackfillReport 补发学号的统计
type BackfillReport struct {
	Assigned int
	Skipped  int
	Failed   []string
}

// StudentIDBackfill 为已报名但没有学号的资料补发学号（例如持久化失败的历史数据）
type StudentIDBackfill struct {
	store     backfillStore
	generator *StudentIDGenerator
	batchSize int
	DryRun    bool
}

func NewStudentIDBackfill(store backfillStore, generator *StudentIDGenerator, batchSize int) *StudentIDBackfill {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &StudentIDBackfill{store: store, generator: generator, batchSize: batchSize}
}

func (b *StudentIDBackfill) Run(ctx context.Context) (*BackfillReport, error) {
	report := &BackfillReport{}
	skip := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		profiles, err := b.store.FindEnrolledWithoutStudentID(ctx, b.batchSize+len(skip))
		if err != nil {
			return report, fmt.Errorf("load batch: %w", err)
		}

		progressed := false
		for _, p := range profiles {
			if skip[p.ID] {
				continue
			}
			progressed = true

			id := b.generator.Generate(ctx, p.Country, p.State)
			if b.DryRun {
				logger.Log.Info("would assign student id", zap.String("user_id", p.ID), zap.String("student_id", id))
				report.Assigned++
				skip[p.ID] = true
				continue
			}

			assigned, err := b.store.AssignStudentID(ctx, p.ID, id)
			switch {
			case err != nil:
				logger.Log.Warn("student id backfill failed", zap.String("user_id", p.ID), zap.Error(err))
				report.Failed = append(report.Failed, p.ID)
				skip[p.ID] = true
			case assigned:
				report.Assigned++
			default:
				report.Skipped++
			}
		}

		if !progressed {
			return report, nil
		}
	}
}
