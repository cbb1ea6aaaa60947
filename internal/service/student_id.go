package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// StudentIDPattern {CC}-{SC}-{YYYY}-{MM}-{RRRR}
var StudentIDPattern = regexp.MustCompile(`^[A-Z]{2,3}-[A-Z]{2,3}-\d{4}-\d{2}-\d{4}$`)

const (
	sourceExisting = "existing"
	sourceRemote   = "remote"
	sourceLocal    = "local"
)

// IDStrategy 根据国家/省份编码生成学号
type IDStrategy interface {
	Generate(ctx context.Context, countryCode, stateCode string) (string, error)
	Name() string
}

// LocalStrategy 本地生成，不会失败；四位随机后缀是唯一的碰撞保护
type LocalStrategy struct {
	Now    func() time.Time
	Suffix func() int
}

func NewLocalStrategy() *LocalStrategy {
	return &LocalStrategy{
		Now:    time.Now,
		Suffix: func() int { return 1000 + rand.IntN(9000) },
	}
}

func (s *LocalStrategy) Name() string { return sourceLocal }

func (s *LocalStrategy) Generate(_ context.Context, countryCode, stateCode string) (string, error) {
	now := s.Now()
	return fmt.Sprintf("%s-%s-%04d-%02d-%04d",
		countryCode, stateCode, now.Year(), int(now.Month()), s.Suffix()%10000), nil
}

type studentIDCaller interface {
	Call(ctx context.Context, countryCode, stateCode string) (string, error)
}

// RemoteStrategy 调用数据库端函数，返回值格式不合法时视为失败
type RemoteStrategy struct {
	caller studentIDCaller
}

func NewRemoteStrategy(caller studentIDCaller) *RemoteStrategy {
	return &RemoteStrategy{caller: caller}
}

func (s *RemoteStrategy) Name() string { return sourceRemote }

func (s *RemoteStrategy) Generate(ctx context.Context, countryCode, stateCode string) (string, error) {
	id, err := s.caller.Call(ctx, countryCode, stateCode)
	if err != nil {
		return "", err
	}
	if !StudentIDPattern.MatchString(id) {
		return "", fmt.Errorf("remote generator returned malformed id %q", id)
	}
	return id, nil
}

// FallbackStrategy 先尝试 Primary，任何错误都交给 Fallback
type FallbackStrategy struct {
	Primary  IDStrategy
	Fallback IDStrategy
}

func (s *FallbackStrategy) Name() string {
	return s.Primary.Name() + "|" + s.Fallback.Name()
}

func (s *FallbackStrategy) Generate(ctx context.Context, countryCode, stateCode string) (string, error) {
	id, _, err := s.generate(ctx, countryCode, stateCode)
	return id, err
}

func (s *FallbackStrategy) generate(ctx context.Context, countryCode, stateCode string) (string, string, error) {
	id, err := s.Primary.Generate(ctx, countryCode, stateCode)
	if err == nil {
		return id, s.Primary.Name(), nil
	}
	logger.Log.Warn("student id generator failed, falling back",
		zap.String("strategy", s.Primary.Name()),
		zap.Error(err),
	)
	id, err = s.Fallback.Generate(ctx, countryCode, stateCode)
	return id, s.Fallback.Name(), err
}

// StudentIDGenerator 名称查表后生成学号，总能返回格式合法的结果
type StudentIDGenerator struct {
	codes    *LocationCodes
	strategy *FallbackStrategy
	local    *LocalStrategy
}

func NewStudentIDGenerator(codes *LocationCodes, remote IDStrategy, local *LocalStrategy) *StudentIDGenerator {
	return &StudentIDGenerator{
		codes:    codes,
		strategy: &FallbackStrategy{Primary: remote, Fallback: local},
		local:    local,
	}
}

func (g *StudentIDGenerator) Generate(ctx context.Context, countryName, stateName string) string {
	id, _ := g.generate(ctx, countryName, stateName)
	return id
}

func (g *StudentIDGenerator) generate(ctx context.Context, countryName, stateName string) (string, string) {
	countryCode := g.codes.CountryCode(countryName)
	stateCode := g.codes.StateCode(stateName)

	id, source, err := g.strategy.generate(ctx, countryCode, stateCode)
	if err != nil || !StudentIDPattern.MatchString(id) {
		id, _ = g.local.Generate(ctx, countryCode, stateCode)
		source = sourceLocal
	}

	monitoring.StudentIDsTotal.WithLabelValues(source).Inc()
	return id, source
}

// redraw 学号冲突后使用本地策略重新生成
func (g *StudentIDGenerator) redraw(ctx context.Context, countryName, stateName string) string {
	id, _ := g.local.Generate(ctx, g.codes.CountryCode(countryName), g.codes.StateCode(stateName))
	monitoring.StudentIDsTotal.WithLabelValues(sourceLocal).Inc()
	return id
}
