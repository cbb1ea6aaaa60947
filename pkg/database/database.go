package database

import (
	"fmt"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	zaplog "learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	zaplog.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// studentIDFunction 与本地生成器保持同一格式: CC-SC-YYYY-MM-RRRR
const studentIDFunction = `
CREATE OR REPLACE FUNCTION %s(country_code text, state_code text)
RETURNS text AS $$
BEGIN
	RETURN upper(country_code) || '-' || upper(state_code) || '-' ||
		to_char(now(), 'YYYY') || '-' || to_char(now(), 'MM') || '-' ||
		lpad((1000 + floor(random() * 9000))::int::text, 4, '0');
END;
$$ LANGUAGE plpgsql VOLATILE;`

func Migrate(db *gorm.DB, driver, generatorFunction string) error {
	if err := db.AutoMigrate(
		&model.Profile{},
		&model.Course{},
		&model.Enrollment{},
	); err != nil {
		return err
	}

	// MySQL 下不创建函数，生成时会回退到本地实现
	if driver == "postgres" && generatorFunction != "" {
		if err := db.Exec(fmt.Sprintf(studentIDFunction, generatorFunction)).Error; err != nil {
			return fmt.Errorf("create %s: %w", generatorFunction, err)
		}
	}

	zaplog.Log.Info("Database migration completed")
	return nil
}
