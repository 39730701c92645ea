// Package analysis turns raw review text into structured sentiment records
// by calling an LLM classifier, repairing and validating its output, and
// degrading to a rating-derived fallback when the model fails. Batch runs
// use fixed concurrent windows with pacing between them.
package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewlens/reviews-cli/internal/model"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/pkg/anthropic"
)

// Mode selects an operating point for the engine.
type Mode string

const (
	// ModeStandard favors analysis quality: verbose prompt, larger token
	// budget, moderate concurrency.
	ModeStandard Mode = "standard"
	// ModeFast favors throughput: terse prompt, smaller token budget, higher
	// concurrency, shorter pacing between windows.
	ModeFast Mode = "fast"
)

// modeParams are the per-mode tunables.
type modeParams struct {
	Model       string
	MaxTokens   int64
	Concurrency int
	Pacing      time.Duration
	Terse       bool
}

func paramsFor(mode Mode) modeParams {
	if mode == ModeFast {
		return modeParams{
			Model:       "claude-haiku-4-5-20251001",
			MaxTokens:   512,
			Concurrency: 10,
			Pacing:      250 * time.Millisecond,
			Terse:       true,
		}
	}
	return modeParams{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   1024,
		Concurrency: 5,
		Pacing:      time.Second,
	}
}

// Item is one review to analyze. Rating 0 means the source had no rating.
type Item struct {
	ID     string
	Text   string
	Rating int
}

// ItemResult pairs an input id with its analysis.
type ItemResult struct {
	ID     string
	Result model.ReviewAnalysisResult
}

// BatchResult is the outcome of an AnalyzeBatch run.
type BatchResult struct {
	Results   []ItemResult
	Usage     model.TokenUsage
	Fallbacks int
}

// Engine is the review analysis engine. Safe for concurrent use.
type Engine struct {
	client anthropic.Client
	retry  resilience.RetryConfig

	// paramsOverride replaces the per-mode defaults when non-nil, used to
	// shrink pacing in tests.
	paramsOverride func(Mode) modeParams
}

// NewEngine creates an engine backed by the given LLM client.
func NewEngine(client anthropic.Client, retry resilience.RetryConfig) *Engine {
	return &Engine{client: client, retry: retry}
}

func (e *Engine) params(mode Mode) modeParams {
	if e.paramsOverride != nil {
		return e.paramsOverride(mode)
	}
	return paramsFor(mode)
}

// Analyze classifies one review. It never returns an error: any model or
// parse failure degrades to a deterministic rating-derived result, because
// downstream persistence must not be blocked by one bad record.
func (e *Engine) Analyze(ctx context.Context, text string, rating int, mode Mode) (model.ReviewAnalysisResult, model.TokenUsage) {
	p := e.params(mode)
	start := time.Now()

	if e.client == nil {
		return fallbackResult(text, rating, p.Model, time.Since(start)), model.TokenUsage{}
	}

	prompt := verbosePrompt(text, rating)
	if p.Terse {
		prompt = tersePrompt(text, rating)
	}

	temperature := 0.0
	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       p.Model,
			MaxTokens:   p.MaxTokens,
			System:      systemPrompt,
			Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
			Temperature: &temperature,
		})
	})
	if err != nil {
		zap.L().Warn("analysis call failed, using fallback",
			zap.String("model", p.Model),
			zap.Error(err),
		)
		return fallbackResult(text, rating, p.Model, time.Since(start)), model.TokenUsage{}
	}

	usage := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}

	result, strict := parseResponse(resp.Text(), text, rating)
	if !strict {
		zap.L().Debug("model output was not valid json, salvaged by extraction",
			zap.String("model", p.Model),
		)
	}
	result.Metadata = model.AnalysisMetadata{
		ModelUsed:      p.Model,
		AnalysisDate:   time.Now().UTC(),
		ProcessingTime: time.Since(start),
	}
	return result, usage
}

// AnalyzeBatch analyzes reviews in fixed-size concurrent windows. All
// requests in a window run concurrently and the whole window is awaited
// before the next starts, with a pacing delay between windows to stay under
// upstream rate limits. One review's failure degrades that review to its
// fallback without affecting siblings; every input id appears exactly once
// in the output.
func (e *Engine) AnalyzeBatch(ctx context.Context, items []Item, mode Mode) *BatchResult {
	p := e.params(mode)
	out := &BatchResult{Results: make([]ItemResult, 0, len(items))}

	var mu sync.Mutex
	for start := 0; start < len(items); start += p.Concurrency {
		end := start + p.Concurrency
		if end > len(items) {
			end = len(items)
		}
		window := items[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range window {
			item := item
			g.Go(func() error {
				result, usage := e.Analyze(gctx, item.Text, item.Rating, mode)

				mu.Lock()
				out.Results = append(out.Results, ItemResult{ID: item.ID, Result: result})
				out.Usage.Add(usage)
				if result.Metadata.Fallback {
					out.Fallbacks++
				}
				mu.Unlock()
				return nil
			})
		}
		// Analyze never fails, so Wait only collects completion.
		_ = g.Wait()

		zap.L().Debug("analysis window complete",
			zap.Int("done", end),
			zap.Int("total", len(items)),
		)

		if end < len(items) && p.Pacing > 0 {
			select {
			case <-ctx.Done():
				// Remaining reviews still get a result; the engine degrades
				// them to fallbacks without issuing model calls.
			case <-time.After(p.Pacing):
			}
		}
	}

	anthropic.TokenUsage{
		InputTokens:              int64(out.Usage.InputTokens),
		OutputTokens:             int64(out.Usage.OutputTokens),
		CacheCreationInputTokens: int64(out.Usage.CacheCreationTokens),
		CacheReadInputTokens:     int64(out.Usage.CacheReadTokens),
	}.LogCost(p.Model, "analysis")

	return out
}
