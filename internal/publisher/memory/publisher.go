// Package memory provides an in-process publisher for development/testing.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher records published payloads in memory.
type Publisher struct {
	mu       sync.Mutex
	payloads []any
}

// New constructs a Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish stores the payload and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("mem-%d", len(p.payloads)), nil
}

// Payloads returns a copy of everything published so far.
func (p *Publisher) Payloads() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}
