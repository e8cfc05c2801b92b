// Package intake reads trading signals as JSON lines.
package intake

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// maxLineSize bounds a single signal line
const maxLineSize = 64 * 1024

// LineError describes a line that could not be decoded
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Decode parses one signal. Sides may use the exchange spelling Buy/Sell and
// a missing id gets a generated one.
func Decode(line []byte) (*types.TradingSignal, error) {
	var sig types.TradingSignal
	if err := json.Unmarshal(line, &sig); err != nil {
		return nil, err
	}
	side, err := types.ParseSide(string(sig.Side))
	if err != nil {
		return nil, err
	}
	sig.Side = side
	sig.Symbol = strings.ToUpper(strings.TrimSpace(sig.Symbol))
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	return &sig, nil
}

// Reader streams signals from r until EOF or ctx ends. Blank lines and lines
// starting with # are skipped. Undecodable lines are logged and skipped.
type Reader struct {
	log     zerolog.Logger
	skipped int
}

func NewReader(log zerolog.Logger) *Reader {
	return &Reader{log: log.With().Str("component", "intake").Logger()}
}

// Skipped returns how many lines were rejected
func (r *Reader) Skipped() int {
	return r.skipped
}

// Stream sends every decoded signal to out. It does not close out.
func (r *Reader) Stream(ctx context.Context, src io.Reader, out chan<- *types.TradingSignal) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		sig, err := Decode([]byte(text))
		if err != nil {
			r.skipped++
			r.log.Warn().Err(&LineError{Line: line, Err: err}).Msg("skipping signal")
			continue
		}

		select {
		case out <- sig:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
