// Package llm adapts hosted text models to the TextGenerator port used by the
// wizard's assisted validation and evaluation.
package llm

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrUnavailable   = errors.New("text generator unavailable")
)

// TextGenerator turns a prompt into plain text. Parsing markers or JSON in
// the output is the caller's job.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is one completion call. An empty Model uses the
// generator's default.
type GenerateRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Temperature       float32
	MaxTokens         int
}

// GeneratorFunc adapts a function to TextGenerator
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
