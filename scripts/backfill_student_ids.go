// 手动为已报名但没有学号的用户补发学号
//
// 报名流程中学号持久化是尽力而为的，写入失败时下次报名会重新生成。
// 此脚本用于集中修复这类数据。
//
// 用法: go run scripts/backfill_student_ids.go [-config configs] [-batch 100] [-dry-run]

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	batch := flag.Int("batch", 100, "每批处理的用户数")
	dryRun := flag.Bool("dry-run", false, "只打印将要分配的学号")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	codes := service.NewLocationCodes()
	if cfg.StudentID.LocationsFile != "" {
		if err := codes.ReloadFile(cfg.StudentID.LocationsFile); err != nil {
			log.Fatalf("读取地区编码覆盖文件失败: %v", err)
		}
	}

	local := service.NewLocalStrategy()
	var primary service.IDStrategy = local
	if cfg.Database.Driver == "postgres" && cfg.StudentID.GeneratorFunction != "" {
		primary = service.NewRemoteStrategy(repository.NewStudentIDFunctionRepository(db, cfg.StudentID.GeneratorFunction))
	}
	generator := service.NewStudentIDGenerator(codes, primary, local)

	backfill := service.NewStudentIDBackfill(repository.NewProfileRepository(db), generator, *batch)
	backfill.DryRun = *dryRun

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := backfill.Run(ctx)
	if err != nil {
		logger.Log.Error("补发中断", zap.Error(err))
	}
	logger.Log.Info("补发完成",
		zap.Int("assigned", report.Assigned),
		zap.Int("skipped", report.Skipped),
		zap.Strings("failed", report.Failed),
		zap.Bool("dry_run", *dryRun),
	)
}
