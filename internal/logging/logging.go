package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce sync.Once
	logger    = log.New()
	fileOut   *lumberjack.Logger
)

// Formatter renders entries as "2006-01-02 15:04:05 [level] message".
// Matches the log format the rest of the pipeline's artifacts assume.
type Formatter struct{}

// Format renders a single log entry.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var buffer *bytes.Buffer
	if entry.Buffer != nil {
		buffer = entry.Buffer
	} else {
		buffer = &bytes.Buffer{}
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	message := strings.TrimRight(entry.Message, "\r\n")
	buffer.WriteString(fmt.Sprintf("%s [%s] %s",
		entry.Time.Format("2006-01-02 15:04:05"), level, message))

	for k, v := range entry.Data {
		buffer.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}
	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

// Setup initializes the shared logger writing to both the console and a
// rotating log file under dir. Safe to call multiple times; the first
// call wins.
func Setup(dir string, verbose bool) {
	setupOnce.Do(func() {
		logger.SetFormatter(&Formatter{})
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}

		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err == nil {
				fileOut = &lumberjack.Logger{
					Filename:   filepath.Join(dir, "pipeline.log"),
					MaxSize:    20, // MB
					MaxBackups: 3,
				}
				logger.SetOutput(io.MultiWriter(os.Stderr, fileOut))
				return
			}
		}
		logger.SetOutput(os.Stderr)
	})
}

// Close flushes and closes the log file, if one was opened.
func Close() {
	if fileOut != nil {
		_ = fileOut.Close()
	}
}

// L returns the shared pipeline logger.
func L() *log.Logger {
	return logger
}
