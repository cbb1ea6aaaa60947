package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
database:
  driver: mysql
  host: db.local
  port: 3306
  user: app
  dbname: learnhub
mail:
  driver: smtp
  from: noreply@learnhub.test
  admin_email: ops@learnhub.test
  smtp_host: smtp.learnhub.test
  timeout: 3s
kafka:
  brokers: ["k1:9092", "k2:9092"]
student_id:
  generator_function: ""
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "jwt", cfg.Auth.Provider)
	assert.Equal(t, "ops@learnhub.test", cfg.Mail.AdminEmail)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, 3*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "enrollments", cfg.Kafka.Topic)
	assert.Empty(t, cfg.StudentID.GeneratorFunction)
}

func TestLoadConfigWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "console", cfg.Mail.Driver)
	assert.Equal(t, "generate_student_id", cfg.StudentID.GeneratorFunction)
	assert.Equal(t, "logs/app.log", cfg.Log.File)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "postgres"},
			Auth:     AuthConfig{Provider: "jwt"},
			Mail:     MailConfig{Driver: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: true},
		{name: "short secret in release", mutate: func(c *Config) {
			c.Server.Mode = "release"
			c.JWT.Secret = "short"
		}, wantErr: true},
		{name: "casdoor without endpoint", mutate: func(c *Config) { c.Auth.Provider = "casdoor" }, wantErr: true},
		{name: "smtp without admin email", mutate: func(c *Config) {
			c.Mail.Driver = "smtp"
			c.Mail.From = "noreply@learnhub.test"
		}, wantErr: true},
		{name: "unknown mail driver", mutate: func(c *Config) { c.Mail.Driver = "pigeon" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
