package service

import (
	"context"

	"pcstore/internal/resilience"
)

// GuardedExtractor runs an extractor behind a circuit breaker
type GuardedExtractor struct {
	inner   PreferenceExtractor
	breaker *resilience.Breaker
}

// NewGuardedExtractor wraps inner. A nil breaker calls inner directly.
func NewGuardedExtractor(inner PreferenceExtractor, breaker *resilience.Breaker) *GuardedExtractor {
	return &GuardedExtractor{inner: inner, breaker: breaker}
}

func (g *GuardedExtractor) Extract(ctx context.Context, message string) (string, error) {
	if g.breaker == nil {
		return g.inner.Extract(ctx, message)
	}
	var out string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Extract(ctx, message)
		return err
	})
	return out, err
}

// GuardedGenerator runs a generator behind a circuit breaker. Generators
// without streaming support are streamed as a single chunk.
type GuardedGenerator struct {
	inner   ResponseGenerator
	breaker *resilience.Breaker
}

// NewGuardedGenerator wraps inner. A nil breaker calls inner directly.
func NewGuardedGenerator(inner ResponseGenerator, breaker *resilience.Breaker) *GuardedGenerator {
	return &GuardedGenerator{inner: inner, breaker: breaker}
}

func (g *GuardedGenerator) Generate(ctx context.Context, message, productList string) (string, error) {
	var out string
	err := g.run(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Generate(ctx, message, productList)
		return err
	})
	return out, err
}

func (g *GuardedGenerator) GenerateStream(ctx context.Context, message, productList string, callback StreamCallback) (string, error) {
	streaming, ok := g.inner.(StreamingGenerator)
	if !ok {
		reply, err := g.Generate(ctx, message, productList)
		if err != nil {
			return "", err
		}
		return reply, callback(&StreamChunk{Content: reply, Role: "assistant", Done: true})
	}

	var out string
	err := g.run(ctx, func(ctx context.Context) error {
		var err error
		out, err = streaming.GenerateStream(ctx, message, productList, callback)
		return err
	})
	return out, err
}

func (g *GuardedGenerator) run(ctx context.Context, fn func(context.Context) error) error {
	if g.breaker == nil {
		return fn(ctx)
	}
	return g.breaker.Execute(ctx, fn)
}
