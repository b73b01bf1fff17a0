// Package llm wraps the generative model providers behind one call shape and parses
// what they return.
package llm

import "context"

// Part is a binary attachment sent alongside the prompt.
type Part struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	System      string
	Prompt      string
	Parts       []Part
	JSON        bool
	Model       string
	Temperature *float32
}

type Generator interface {
	Generate(ctx context.Context, request Request) (string, error)
	Provider() string
}

func Temperature(value float32) *float32 {
	return &value
}
