package service

import (
	"time"

	"go.uber.org/zap"
)

// ExternalCallRecorder receives timings for calls to the image and text collaborators.
type ExternalCallRecorder interface {
	RecordExternalCall(collaborator, operation string, duration time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordExternalCall(string, string, time.Duration, error) {}

func recorderOrNoop(r ExternalCallRecorder) ExternalCallRecorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
