package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"learnhub_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader 文件变化后被调用，返回错误时保留旧配置
type Reloader func(path string) error

// Watch 监听单个文件，直到 ctx 结束。
// 监听的是所在目录，编辑器用 rename 方式保存时也能收到事件。
func Watch(ctx context.Context, path string, debounce time.Duration, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// 防抖处理
			timer.Reset(debounce)
		case <-timer.C:
			if err := reload(absPath); err != nil {
				logger.Log.Error("Failed to reload file", zap.String("path", absPath), zap.Error(err))
				continue
			}
			logger.Log.Info("File reloaded", zap.String("path", absPath))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("File watcher error", zap.Error(err))
		}
	}
}
