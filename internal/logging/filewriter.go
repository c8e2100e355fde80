package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
)

const (
	backupTimeFormat = "20060102-150405.000"
	cleanupInterval  = time.Hour
)

// FileWriter is an io.WriteCloser that appends to a log file and rotates it
// once it grows past maxSize. Rotated backups are pruned by age and count.
type FileWriter struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	maxAge      time.Duration
	compress    bool
	currentSize int64

	now       func() time.Time
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewFileWriter opens path for appending, creating its directory if needed.
// maxSizeMB <= 0 falls back to 100MB; maxBackups and maxAgeDays of 0 keep
// every backup.
func NewFileWriter(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (*FileWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fw := &FileWriter{
		path:       path,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		maxAge:     time.Duration(maxAgeDays) * 24 * time.Hour,
		compress:   compress,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if err := fw.openFile(); err != nil {
		return nil, err
	}

	fw.wg.Add(1)
	go fw.cleanupLoop()
	return fw, nil
}

// Write appends p, rotating first if p would push the file past maxSize.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.file == nil {
		return 0, os.ErrClosed
	}
	if fw.currentSize > 0 && fw.currentSize+int64(len(p)) > fw.maxSize {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := fw.file.Write(p)
	fw.currentSize += int64(n)
	return n, err
}

// Close stops the cleanup loop and closes the file. It is safe to call more
// than once.
func (fw *FileWriter) Close() error {
	fw.closeOnce.Do(func() { close(fw.done) })
	fw.wg.Wait()

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return nil
	}
	err := fw.file.Close()
	fw.file = nil
	return err
}

func (fw *FileWriter) openFile() error {
	info, err := os.Stat(fw.path)
	if err == nil && info.Size() >= fw.maxSize {
		return fw.rotate()
	}

	f, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	fw.file = f
	fw.currentSize = 0
	if info != nil {
		fw.currentSize = info.Size()
	}
	return nil
}

// rotate moves the current file aside and opens a fresh one. Caller holds mu
// or owns fw exclusively.
func (fw *FileWriter) rotate() error {
	if fw.file != nil {
		if err := fw.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		fw.file = nil
	}

	backup := fw.path + "." + fw.now().Format(backupTimeFormat)
	if err := os.Rename(fw.path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if fw.compress {
		if err := compressFile(backup); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	fw.file = f
	fw.currentSize = 0
	return nil
}

// compressFile gzips path into path.gz and removes the original.
func compressFile(path string) (err error) {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create compressed backup: %w", err)
	}
	defer func() { err = multierr.Append(err, dst.Close()) }()

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress backup: %w", err)
	}
	return os.Remove(path)
}

func (fw *FileWriter) cleanupLoop() {
	defer fw.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	_ = fw.performCleanup()
	for {
		select {
		case <-fw.done:
			return
		case <-ticker.C:
			_ = fw.performCleanup()
		}
	}
}

// performCleanup removes backups older than maxAge and all but the newest
// maxBackups.
func (fw *FileWriter) performCleanup() error {
	matches, err := filepath.Glob(fw.path + ".*")
	if err != nil {
		return err
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	backups := make([]backup, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		backups = append(backups, backup{path: m, modTime: info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})

	cutoff := fw.now().Add(-fw.maxAge)
	var errs error
	for i, b := range backups {
		expired := fw.maxAge > 0 && b.modTime.Before(cutoff)
		excess := fw.maxBackups > 0 && i >= fw.maxBackups
		if expired || excess {
			errs = multierr.Append(errs, os.Remove(b.path))
		}
	}
	return errs
}

// MultiWriter duplicates writes to every writer, stopping at the first error.
type MultiWriter struct {
	writers []io.Writer
}

func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (mw *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range mw.writers {
		n, err = w.Write(p)
		if err != nil {
			return n, err
		}
	}
	return len(p), nil
}
