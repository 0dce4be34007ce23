package orchestration

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type workerRun func(context.Context) error

func panicSafeNamedWorker(name string, run func(context.Context) error) workerRun {
	return func(ctx context.Context) (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("%s worker panicked: %v", name, recovered)
			}
		}()

		if err = run(ctx); err != nil {
			return fmt.Errorf("%s worker failed: %w", name, err)
		}

		return nil
	}
}

// readRecording drains and closes the recording stream.
func readRecording(recording io.Reader) ([]byte, error) {
	if recording == nil {
		return nil, fmt.Errorf("recording stream is missing")
	}
	if closer, ok := recording.(io.Closer); ok {
		defer closer.Close()
	}

	audio, err := io.ReadAll(recording)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return audio, nil
}

func discardRecording(recording io.Reader) {
	if closer, ok := recording.(io.Closer); ok {
		_ = closer.Close()
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
