package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Logger struct {
	*slog.Logger
}

// NewLogger creates a structured logger with dual output (file + stdout)
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logFile := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	// Dual output: the same JSON lines go to the file and to stdout
	multiWriter := io.MultiWriter(file, os.Stdout)

	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true, // Include file:line in logs
	})

	return &Logger{slog.New(handler)}, nil
}

// Usage example
func ExampleUsage() {
	logger, _ := NewLogger("./logs")

	// Structured logging
	logger.Info("simulating CLO",
		slog.String("deal_id", "CLO-2026-1"),
		slog.Time("cursor", time.Now()),
		slog.Float64("aggregate_collateral_balance", 412_000_000),
	)

	var err error
	err = errors.New("reinvestment maturity solve failed: WAL limit breached")

	logger.Error("reinvestment failed",
		slog.String("deal_id", "CLO-2026-1"),
		slog.Any("error", err),
	)
}
