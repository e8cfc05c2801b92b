package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Options configures the session logger
type Options struct {
	Name    string    // Session name used in the file name
	Dir     string    // Log directory, defaults to "logs"
	Level   string    // zerolog level name
	Console io.Writer // Human readable mirror, nil disables it
	NoFile  bool      // Skip the JSON file sink
}

// Logger writes JSON lines to a per-session file and mirrors to the console
type Logger struct {
	zerolog.Logger

	mu      sync.Mutex
	logFile *os.File
	path    string
}

// New creates the session logger and writes the session start event
func New(opts Options) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	if opts.Name == "" {
		opts.Name = "executor"
	}
	if opts.Dir == "" {
		opts.Dir = "logs"
	}

	var writers []io.Writer
	l := &Logger{}

	if !opts.NoFile {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		filename := fmt.Sprintf("%s_%s.log", opts.Name, time.Now().Format("2006-01-02"))
		l.path = filepath.Join(opts.Dir, filename)

		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.logFile = file
		writers = append(writers, file)
	}
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05"})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("session", opts.Name).
		Logger()

	l.Info().Str("log_file", l.path).Msg("execution session started")
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Trade logs a terminal execution result
func (l *Logger) Trade(res types.ExecutionResult) {
	evt := l.Info()
	switch res.Status {
	case types.StatusRejected, types.StatusConflict:
		evt = l.Warn()
	case types.StatusError:
		evt = l.Error()
	}

	evt = evt.Str("kind", "trade").
		Str("signal_id", res.SignalID).
		Str("symbol", res.Symbol).
		Str("side", string(res.Side)).
		Int("position_idx", int(res.PositionIndex)).
		Str("status", string(res.Status)).
		Int("attempts", res.Attempts).
		Dur("duration", res.Duration())

	if res.ExchangeOrderID != "" {
		evt = evt.Str("order_id", res.ExchangeOrderID)
	}
	if req := res.Request; req != nil {
		evt = evt.Str("client_order_id", req.ClientOrderID).
			Str("qty", req.Quantity.String()).
			Str("entry", req.EntryPrice.String()).
			Str("tpsl_mode", string(req.TpslMode))
		if req.StopLoss != nil {
			evt = evt.Str("stop_loss", req.StopLoss.String())
		}
		if req.TakeProfit != nil {
			evt = evt.Str("take_profit", req.TakeProfit.String())
		}
	}
	if res.LeverageWarning != "" {
		evt = evt.Str("leverage_warning", res.LeverageWarning)
	}
	if len(res.Warnings) > 0 {
		evt = evt.Strs("warnings", res.Warnings)
	}
	if res.Err != nil {
		evt = evt.Err(res.Err)
	}
	evt.Msg(res.Reason)
}

// Path returns the current log file path
func (l *Logger) Path() string {
	return l.path
}

// Close writes the session end event and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Info().Msg("execution session ended")
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}
