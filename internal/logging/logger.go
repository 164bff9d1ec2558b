// Package logging owns the process logger. The TUI holds the terminal, so
// log output goes to a rotating file rather than stderr.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger
var Logger = logrus.New()

var once sync.Once

// Options configures the logger
type Options struct {
	File   string // rotating log file; empty keeps the current output
	Level  string // logrus level name, default "info"
	Source string // event source written on every line
}

// Formatter writes one line per entry with an event source and a fresh event ID
type Formatter struct {
	Source string
}

// Format renders an entry
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "%s %-5s source=%s event=%s msg=%q",
		entry.Time.Format("2006-01-02T15:04:05.000Z07:00"),
		strings.ToUpper(entry.Level.String()),
		f.Source,
		uuid.NewString(),
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Init configures Logger once; later calls are ignored
func Init(opts Options) error {
	var err error
	once.Do(func() {
		err = configure(Logger, opts)
	})
	return err
}

func configure(l *logrus.Logger, opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}

	source := opts.Source
	if source == "" {
		source = "taskhours"
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return fmt.Errorf("log dir: %w", err)
		}
		l.SetOutput(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	l.SetFormatter(&Formatter{Source: source})
	l.SetLevel(level)

	l.WithField("file", opts.File).Debug("logger initialized")
	return nil
}

// Discard silences Logger, for tests and one-shot commands
func Discard() {
	Logger.SetOutput(io.Discard)
}

// DefaultFile returns the log file path under the XDG state directory
func DefaultFile() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "taskhours.log")
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "taskhours", "taskhours.log")
}
