package mocks

import (
	"context"
	"sync"

	"contextimage/internal/llm/client"
	"contextimage/internal/models"
)

// GeneratorMock records every request and returns a one-pixel PNG unless
// GenerateFunc says otherwise.
type GeneratorMock struct {
	GenerateFunc func(ctx context.Context, req client.Request) (models.GenerationResult, error)

	mu       sync.Mutex
	requests []client.Request
}

// PixelPNG is a base64 1x1 transparent PNG.
const PixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func (m *GeneratorMock) Generate(ctx context.Context, req client.Request) (models.GenerationResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.GenerationResult{ImageData: PixelPNG, MIMEType: "image/png"}, nil
}

func (m *GeneratorMock) Requests() []client.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]client.Request, len(m.requests))
	copy(out, m.requests)
	return out
}
