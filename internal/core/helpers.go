package core

import (
	"context"
	"strings"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
)

// DropEmpty removes rows whose col cell is blank. For each dropped row the
// values of logCols are logged so the loss can be traced to its source.
func DropEmpty(ctx context.Context, f *frame.Frame, col string, logCols ...string) (*frame.Frame, error) {
	if _, err := f.Index(col); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	out := f.Filter(func(i int) bool {
		if strings.TrimSpace(f.Get(i, col)) != "" {
			return true
		}
		attrs := []any{"column", col, "row", i + 1}
		for _, c := range logCols {
			attrs = append(attrs, c, f.Get(i, c))
		}
		logger.Info("dropping row with empty value", attrs...)
		return false
	})

	if dropped := f.Len() - out.Len(); dropped > 0 {
		logger.Info("rows dropped", "column", col, "count", dropped)
	}
	return out, nil
}

// DropIncomplete removes rows with a blank cell in any column.
func DropIncomplete(f *frame.Frame) *frame.Frame {
	return f.Filter(func(i int) bool {
		for _, cell := range f.Row(i) {
			if strings.TrimSpace(cell) == "" {
				return false
			}
		}
		return true
	})
}
