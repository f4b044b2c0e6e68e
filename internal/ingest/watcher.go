package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/polifund/fundscan/internal/common"
)

// WatchConfig controls continuous intake of a folder.
type WatchConfig struct {
	Root        string
	InitialScan bool
	// Debounce coalesces the write bursts a slow scanner produces while
	// a file is still being copied in.
	Debounce time.Duration
}

// Watch emits paths of scan files appearing under cfg.Root until ctx is
// cancelled. New subdirectories are picked up as they are created.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(cfg.Root)
	if err != nil || !info.IsDir() {
		return nil, nil, common.NewAppError("INPUT_ERROR", fmt.Sprintf("input folder not found: %s", cfg.Root), common.ErrInvalidInput)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, common.WrapError(err, "create watcher")
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	addTree := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				select {
				case evCh <- path:
				default:
				}
			}
			return nil
		})
	}
	if err := addTree(cfg.Root); err != nil {
		_ = w.Close()
		return nil, nil, common.WrapError(err, "watch input folder")
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close_error", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerCh <-chan time.Time

		flush := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
					logger.Warn("watch.event_dropped", "path", p)
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timerCh:
				timerCh = nil
				flush()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if !IsHidden(e.Name) {
							if err := w.Add(e.Name); err != nil {
								logger.Warn("watch.add_dir_error", "path", e.Name, "error", err)
							}
						}
						continue
					}
				}
				if !AllowedExt(filepath.Ext(e.Name)) || IsHidden(e.Name) {
					continue
				}
				if !e.Op.Has(fsnotify.Create) && !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Rename) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(cfg.Debounce)
				}
				timerCh = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
