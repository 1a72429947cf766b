package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"grimm.is/routepin/internal/logging"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultLogFile      = "/var/log/wifi.log"
	DefaultKeyword      = "Gateway"
)

// PollSource ticks at a fixed interval.
type PollSource struct {
	Interval time.Duration
}

// Start implements Source.
func (p PollSource) Start(ctx context.Context) (<-chan struct{}, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				notify(out)
			}
		}
	}()
	return out, nil
}

// LogTailSource follows a log file from its end and ticks whenever a new line
// contains Keyword. Truncation rewinds to the start; replacement (rotation)
// reopens the new file from its start.
type LogTailSource struct {
	Path    string
	Keyword string
	// Fallback poll interval for filesystems without change notification.
	Interval time.Duration
	Logger   *logging.Logger
}

// Start implements Source.
func (s LogTailSource) Start(ctx context.Context) (<-chan struct{}, error) {
	t := &tailer{path: s.Path, keyword: s.Keyword}
	if t.path == "" {
		t.path = DefaultLogFile
	}
	if t.keyword == "" {
		t.keyword = DefaultKeyword
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.WithComponent("monitor")
	}

	if err := t.open(true); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.close()
		return nil, err
	}
	// Watch the directory so rotation and re-creation are seen.
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		logger.Warn("log watch unavailable, polling only", "path", t.path, "error", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		defer t.close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		check := func() {
			if t.poll() {
				notify(out)
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					watcher.Events = nil
					continue
				}
				if filepath.Clean(ev.Name) == filepath.Clean(t.path) {
					check()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					watcher.Errors = nil
					continue
				}
				logger.Warn("log watch error", "path", t.path, "error", err)
			case <-ticker.C:
				check()
			}
		}
	}()
	return out, nil
}

type tailer struct {
	path    string
	keyword string

	f       *os.File
	r       *bufio.Reader
	info    os.FileInfo
	offset  int64
	partial string
}

func (t *tailer) open(seekEnd bool) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	var offset int64
	if seekEnd {
		offset = info.Size()
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return err
	}
	t.f, t.r, t.info, t.offset, t.partial = f, bufio.NewReader(f), info, offset, ""
	return nil
}

func (t *tailer) close() {
	if t.f != nil {
		t.f.Close()
		t.f = nil
	}
}

// poll reads newly appended lines and reports whether any matched.
func (t *tailer) poll() bool {
	if t.f == nil {
		if err := t.open(false); err != nil {
			return false
		}
	}

	matched := t.drain()

	st, err := os.Stat(t.path)
	switch {
	case err != nil:
		// Rotated away and not yet re-created.
	case !os.SameFile(st, t.info):
		t.close()
		if t.open(false) == nil {
			matched = t.drain() || matched
		}
	case st.Size() < t.offset:
		if _, err := t.f.Seek(0, io.SeekStart); err == nil {
			t.r.Reset(t.f)
			t.offset, t.partial = 0, ""
			matched = t.drain() || matched
		}
	}
	return matched
}

func (t *tailer) drain() bool {
	matched := false
	for {
		line, err := t.r.ReadString('\n')
		t.offset += int64(len(line))
		if err != nil {
			t.partial += line
			return matched
		}
		if strings.Contains(t.partial+line, t.keyword) {
			matched = true
		}
		t.partial = ""
	}
}
