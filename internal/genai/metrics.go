package genai

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/statementhub/internal/observability"
)

// InstrumentedClient wraps a Client with the prometheus generation metrics.
// The workflow consumes it through its Generator interface, so the plain
// client stays usable in tests without a registry.
type InstrumentedClient struct {
	c    *Client
	prom *observability.Prom
}

func Instrument(c *Client, prom *observability.Prom) *InstrumentedClient {
	return &InstrumentedClient{
		c:    c,
		prom: prom,
	}
}

func (g *InstrumentedClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.prom.GenInFlight.Inc()
	defer g.prom.GenInFlight.Dec()

	start := time.Now()

	text, err := g.c.Generate(ctx, systemPrompt, userPrompt)

	g.prom.ObserveGeneration(g.c.Model(), resultLabel(err), time.Since(start))

	return text, err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "malformed"
	}
}
