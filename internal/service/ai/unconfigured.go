package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Unconfigured for every call.
var ErrNotConfigured = errors.New("no generation model is configured")

// Unconfigured stands in for a model when no credentials are set, so the
// server still starts and every send fails as a generation error.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Stream(context.Context, Request, func(string)) (string, error) {
	return "", ErrNotConfigured
}
