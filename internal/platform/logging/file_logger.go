package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const logDirEnvVar = "GATEWAY_LOG_DIR"

// FileLogger writes structured, component-tagged lines to a log file under
// the directory named by GATEWAY_LOG_DIR (or the user's home directory).
// It is the gateway's default Logger: the corpus never reaches for a
// third-party logging library, so neither does this.
type FileLogger struct {
	mu        sync.Mutex
	file      *os.File
	logger    *log.Logger
	component string
}

// NewFileLogger opens (or creates) the gateway log file and scopes the
// returned logger to component.
func NewFileLogger(component string) *FileLogger {
	l := &FileLogger{component: component}
	dir, err := resolveLogDirectory()
	if err != nil {
		log.Printf("logging: resolve log dir: %v", err)
		return l
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logging: create log dir %s: %v", dir, err)
		return l
	}
	path := filepath.Join(dir, "gateway.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logging: open log file: %v", err)
		return l
	}
	l.file = f
	l.logger = log.New(f, "", 0)
	return l
}

func resolveLogDirectory() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	return os.UserHomeDir()
}

// Close releases the underlying log file.
func (l *FileLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// WithComponent returns a shallow copy of l scoped to a different component
// tag, sharing the same underlying file.
func (l *FileLogger) WithComponent(component string) *FileLogger {
	if l == nil {
		return nil
	}
	return &FileLogger{file: l.file, logger: l.logger, component: component}
}

func (l *FileLogger) write(level, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file, line = "???", 0
	}

	component := l.component
	if component == "" {
		component = "gateway"
	}
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("%s [%s] [%s] %s:%d - %s", ts, level, component, file, line, msg)
}

func (l *FileLogger) Debug(format string, args ...any) { l.write("DEBUG", format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.write("INFO", format, args...) }
func (l *FileLogger) Warn(format string, args ...any)  { l.write("WARN", format, args...) }
func (l *FileLogger) Error(format string, args ...any) { l.write("ERROR", format, args...) }

var _ Logger = (*FileLogger)(nil)
