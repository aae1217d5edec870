package prediction

import (
	"context"
	"sort"
	"time"
)

// DefaultDelay stands in for the round trip to a remote prediction service.
const DefaultDelay = 1500 * time.Millisecond

// Engine runs the three scoring passes against a knowledge base. All working
// state is per call, so one Engine can serve any number of goroutines.
type Engine struct {
	kb     *KnowledgeBase
	random RandomSource
	delay  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithKnowledgeBase swaps the embedded knowledge base for another one.
func WithKnowledgeBase(kb *KnowledgeBase) Option {
	return func(e *Engine) {
		if kb != nil {
			e.kb = kb
		}
	}
}

// WithRandomSource injects the jitter generator.
func WithRandomSource(r RandomSource) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithDelay sets the simulated latency. Zero or negative disables it.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// NewEngine creates an engine over the default knowledge base and random
// source with DefaultDelay, unless overridden by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		kb:     Default(),
		random: DefaultRandomSource(),
		delay:  DefaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KnowledgeBase returns the knowledge base the engine scores against.
func (e *Engine) KnowledgeBase() *KnowledgeBase {
	return e.kb
}

// Predict waits out the simulated latency, runs every scoring pass and returns
// exactly one result per pass ordered by descending confidence. Passes with
// equal confidence keep their canonical order. A cancelled context only cuts
// the wait short; Predict always returns a full result set.
func (e *Engine) Predict(ctx context.Context, symptoms []string) []Result {
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	results := make([]Result, 0, len(passes))
	for _, p := range passes {
		results = append(results, p.run(e.kb, e.random, symptoms))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// PredictAsync runs Predict in the background. The channel is buffered, so a
// caller that stops listening does not leak the goroutine.
func (e *Engine) PredictAsync(ctx context.Context, symptoms []string) <-chan []Result {
	out := make(chan []Result, 1)
	input := append([]string(nil), symptoms...)
	go func() {
		out <- e.Predict(ctx, input)
		close(out)
	}()
	return out
}

var defaultEngine = NewEngine()

// PredictDisease scores symptoms with the default engine.
func PredictDisease(ctx context.Context, symptoms []string) []Result {
	return defaultEngine.Predict(ctx, symptoms)
}
