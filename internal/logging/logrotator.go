// Package logging provides a daily-rotating, gzip-compressing file writer
// for BaseStation/SBS output, in the style of the teacher's flat logrotator.
package logging

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"
)

// filenamePattern drives the rotated log file's name; strftime keeps the
// format spec in one place instead of a scattered fmt.Sprintf.
const filenamePattern = "adsb_%Y-%m-%d.log"

// LogRotator writes to a date-stamped log file, rotating at local (or UTC)
// midnight and gzip-compressing the previous day's file.
type LogRotator struct {
	logDir string
	useUTC bool
	logger *logrus.Logger

	mutex       sync.RWMutex
	currentFile *os.File
	currentDate string
	closed      bool

	stop chan struct{}
	once sync.Once
}

// NewLogRotator creates the log directory (if needed) and opens today's
// log file.
func NewLogRotator(logDir string, useUTC bool, logger *logrus.Logger) (*LogRotator, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &LogRotator{
		logDir: logDir,
		useUTC: useUTC,
		logger: logger,
		stop:   make(chan struct{}),
	}

	if err := r.rotateLogFile(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return r, nil
}

func (r *LogRotator) now() time.Time {
	if r.useUTC {
		return time.Now().UTC()
	}
	return time.Now()
}

func (r *LogRotator) filename(t time.Time) string {
	name, err := strftime.Format(filenamePattern, t)
	if err != nil {
		// filenamePattern is a package constant exercised by
		// TestLogRotator_NewLogRotator; this branch is unreachable in
		// practice but falls back to a stdlib format rather than panicking.
		return fmt.Sprintf("adsb_%s.log", t.Format("2006-01-02"))
	}
	return name
}

// Start runs the rotation scheduler until ctx is canceled or Close is called.
func (r *LogRotator) Start(ctx context.Context) {
	r.logger.Info("Starting log rotator")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Log rotator stopping")
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.checkRotation()
		}
	}
}

func (r *LogRotator) checkRotation() {
	currentDate := r.filename(r.now())

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentDate != currentDate {
		r.logger.WithFields(logrus.Fields{
			"old_file": r.currentDate,
			"new_file": currentDate,
		}).Info("Rotating log file")

		if err := r.rotateLogFileLocked(); err != nil {
			r.logger.WithError(err).Error("Failed to rotate log file")
		}
	}
}

// rotateLogFile opens (or reopens) the log file for the current date,
// compressing whatever file was open before.
func (r *LogRotator) rotateLogFile() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.rotateLogFileLocked()
}

func (r *LogRotator) rotateLogFileLocked() error {
	newName := r.filename(r.now())

	if r.currentFile != nil && r.currentDate == newName {
		return nil
	}

	if r.currentFile != nil {
		oldFile := r.currentFile
		oldDate := r.dateFromFilename(r.currentDate)

		if err := oldFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}
		go r.compressLogFile(oldDate)
	}

	path := filepath.Join(r.logDir, newName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	r.currentFile = file
	r.currentDate = newName

	r.logger.WithField("file", path).Info("Created new log file")
	return nil
}

// dateFromFilename recovers the "2006-01-02" date used in compressLogFile's
// naming, since that helper predates the strftime pattern and is still
// exercised directly by tests with an explicit date string.
func (r *LogRotator) dateFromFilename(name string) string {
	base := name
	base = trimPrefixSuffix(base, "adsb_", ".log")
	return base
}

func trimPrefixSuffix(s, prefix, suffix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		s = s[len(prefix):]
	}
	if len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix {
		s = s[:len(s)-len(suffix)]
	}
	return s
}

// compressLogFile gzips logDir/adsb_<date>.log into adsb_<date>.log.gz and
// removes the original.
func (r *LogRotator) compressLogFile(date string) {
	logFile := filepath.Join(r.logDir, fmt.Sprintf("adsb_%s.log", date))
	gzipFile := filepath.Join(r.logDir, fmt.Sprintf("adsb_%s.log.gz", date))

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return
	}

	src, err := os.Open(logFile)
	if err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to open source file for compression")
		return
	}
	defer src.Close()

	dst, err := os.Create(gzipFile)
	if err != nil {
		r.logger.WithError(err).WithField("file", gzipFile).Error("Failed to create compressed file")
		return
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	gzWriter.Name = filepath.Base(logFile)
	gzWriter.ModTime = time.Now()

	if _, err := io.Copy(gzWriter, src); err != nil {
		r.logger.WithError(err).Error("Failed to compress log file")
		gzWriter.Close()
		return
	}
	if err := gzWriter.Close(); err != nil {
		r.logger.WithError(err).Error("Failed to close gzip writer")
		return
	}
	if err := dst.Close(); err != nil {
		r.logger.WithError(err).Error("Failed to close compressed file")
		return
	}
	if err := os.Remove(logFile); err != nil {
		r.logger.WithError(err).WithField("file", logFile).Error("Failed to remove original log file")
		return
	}

	r.logger.WithField("file", gzipFile).Info("Log file compressed successfully")
}

// GetWriter returns the currently open log file for writing.
func (r *LogRotator) GetWriter() (io.Writer, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentFile == nil {
		return nil, fmt.Errorf("no current log file")
	}
	return r.currentFile, nil
}

// Close stops the rotation scheduler and closes the current log file.
func (r *LogRotator) Close() error {
	r.logger.Info("Closing log rotator")

	r.once.Do(func() { close(r.stop) })

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.currentFile != nil {
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close current log file")
			return err
		}
		r.currentFile = nil
	}
	return nil
}

// GetCurrentLogFile returns the path of the log file currently being
// written to.
func (r *LogRotator) GetCurrentLogFile() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentDate == "" {
		return ""
	}
	return filepath.Join(r.logDir, r.currentDate)
}

// GetLogFiles lists every rotated (and compressed) log file in logDir.
func (r *LogRotator) GetLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.logDir, "adsb_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

// CleanupOldLogs removes rotated log files whose modification time is
// older than maxDays, leaving the currently open file untouched.
func (r *LogRotator) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.GetLogFiles()
	if err != nil {
		return fmt.Errorf("failed to get log files: %w", err)
	}

	var cutoff time.Time
	if r.useUTC {
		cutoff = time.Now().UTC().AddDate(0, 0, -maxDays)
	} else {
		cutoff = time.Now().AddDate(0, 0, -maxDays)
	}

	current := r.GetCurrentLogFile()
	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
			} else {
				removed++
			}
		}
	}

	r.logger.WithField("count", removed).Info("Cleaned up old log files")
	return nil
}
