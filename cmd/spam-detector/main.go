package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/spam-scorer/internal/di"
	"github.com/mikey/spam-scorer/internal/mailparse"
	"github.com/mikey/spam-scorer/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run reads one email, analyzes it and prints the report
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	remote *di.Remote,
) error {
	defer logger.Sync()
	defer remote.Close(logger)

	raw, err := readInput(flags.InputFile, logger)
	if err != nil {
		return err
	}

	email, err := mailparse.ParseMIME(bytes.NewReader(raw))
	if err != nil {
		logger.Debug("Failed to decode MIME message, using plain parser", zap.Error(err))
		email = mailparse.Parse(string(raw))
	}
	if err := email.Validate(); err != nil {
		return fmt.Errorf("failed to parse email: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := emailFilter.ProcessEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to analyze email: %w", err)
	}
	return nil
}

func readInput(path string, logger *zap.Logger) ([]byte, error) {
	if path == "" {
		logger.Info("Reading email from stdin")
		return io.ReadAll(os.Stdin)
	}

	if err := mailparse.ValidateFile(path, ""); err != nil {
		logger.Warn("Input file does not have an .eml extension", zap.String("file", path))
	}
	logger.Info("Reading email from file", zap.String("file", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}
