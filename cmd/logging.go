// file: cmd/logging.go
// version: 1.0.0
// guid: 61ec3111-66c2-4f3b-8556-733b5e2c9235

package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/jdfalk/anime-organizer/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var debugTag = []byte("[DEBUG]")

// levelFilter drops [DEBUG] lines unless debug output is enabled. The log
// package writes each message with a single Write call.
type levelFilter struct {
	out   io.Writer
	debug bool
}

func (f *levelFilter) Write(p []byte) (int, error) {
	if !f.debug && bytes.Contains(p, debugTag) {
		return len(p), nil
	}
	return f.out.Write(p)
}

// setupLogging points the standard logger at stderr and, when a log file is
// configured, a rotating file as well. The returned func restores the
// previous output and closes the file.
func setupLogging(cfg config.Config) (func(), error) {
	prevOut := log.Writer()
	prevFlags := log.Flags()

	var out io.Writer = os.Stderr
	var fileWriter *lumberjack.Logger
	if cfg.LogFile != "" {
		// Ensure log directory exists
		logDir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("[WARN] could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAge:     cfg.LogMaxAgeDays,
				Compress:   cfg.LogCompress,
			}
			out = io.MultiWriter(os.Stderr, fileWriter)
		}
	}

	log.SetOutput(&levelFilter{out: out, debug: cfg.Debug})
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if fileWriter != nil {
		log.Printf("[INFO] Logging to file: %s", cfg.LogFile)
	}

	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		if fileWriter != nil {
			fileWriter.Close()
		}
	}, nil
}
