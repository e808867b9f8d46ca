package monitoring

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher 模型文件监控器
// 进程始终使用启动时加载的模型，文件变更只记录告警，重启后生效
type ArtifactWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	logger   *zap.Logger
	onChange func(path string)
	once     sync.Once
}

// NewArtifactWatcher 创建监控器，onChange可为nil
func NewArtifactWatcher(paths []string, logger *zap.Logger, onChange func(path string)) (*ArtifactWatcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no artifact paths to watch")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &ArtifactWatcher{
		watcher:  fw,
		files:    make(map[string]bool, len(paths)),
		logger:   logger,
		onChange: onChange,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	// 监控目录而不是文件，重命名替换也能被捕获
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run 阻塞运行直到ctx结束
func (w *ArtifactWatcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

// Close 停止监控，可重复调用
func (w *ArtifactWatcher) Close() error {
	var err error
	w.once.Do(func() { err = w.watcher.Close() })
	return err
}

func (w *ArtifactWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	name, err := filepath.Abs(event.Name)
	if err != nil || !w.files[name] {
		return
	}
	w.logger.Warn("artifact changed on disk; restart to load it",
		zap.String("path", name),
		zap.String("op", event.Op.String()))
	if w.onChange != nil {
		w.onChange(name)
	}
}
