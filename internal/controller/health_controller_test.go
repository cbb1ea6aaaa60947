package controller

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type healthBody struct {
	Data struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	} `json:"data"`
}

func newHealthRouter(t *testing.T, rdb *redis.Client) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "health.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := gin.New()
	r.GET("/api/health", NewHealthController(db, rdb).HealthCheck)
	return r, db
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	tests := []struct {
		name       string
		rdb        *redis.Client
		prepare    func(db *gorm.DB)
		wantCode   int
		wantRedis  string
		wantStatus string
	}{
		{name: "without redis", wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "redis up", rdb: rdb, wantCode: http.StatusOK, wantRedis: "up", wantStatus: "ok"},
		{
			name:       "redis down",
			rdb:        rdb,
			prepare:    func(*gorm.DB) { mr.Close() },
			wantCode:   http.StatusOK,
			wantRedis:  "down",
			wantStatus: "ok",
		},
		{
			name: "database down",
			prepare: func(db *gorm.DB) {
				sqlDB, err := db.DB()
				require.NoError(t, err)
				require.NoError(t, sqlDB.Close())
			},
			wantCode: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, db := newHealthRouter(t, tt.rdb)
			if tt.prepare != nil {
				tt.prepare(db)
			}

			w := doJSON(router, http.MethodGet, "/api/health", "")
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, w.Body.String(), "Database unavailable")
				return
			}

			var body healthBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Data.Status)
			assert.Equal(t, "up", body.Data.Components["database"])
			redisStatus, ok := body.Data.Components["redis"]
			if tt.wantRedis == "" {
				assert.False(t, ok)
			} else {
				assert.Equal(t, tt.wantRedis, redisStatus)
			}
		})
	}
}
