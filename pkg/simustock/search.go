package simustock

import (
	"context"
	"strings"
)

// Search runs one user-initiated lookup: validate the ticker, check the
// credential, issue a single upstream request, and normalize the answer.
// A newer search for the same session cancels this one and makes its
// result stale. Every attempt that reaches the upstream is recorded in
// the insight history.
func (c *Core) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	ticker, err := ValidateTicker(req.Ticker)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(c.credential())
	if apiKey == "" {
		c.logger.Error("search rejected: api key is not configured", "ticker", ticker)
		return nil, NewError(ErrCodeConfiguration, "api key is not configured")
	}

	trackedCtx, ticket := c.tracker.Begin(ctx, strings.TrimSpace(req.SessionID))
	defer c.tracker.End(ticket)

	callCtx, cancel := context.WithTimeout(trackedCtx, c.timeout)
	defer cancel()

	logger := c.logger.With("request_id", ticket.ID, "ticker", string(ticker))
	logger.Info("insight search started", "provider", c.provider, "model", c.model)

	raw, err := aiInsightCompletion(callCtx, InsightRequest{
		Provider: c.provider,
		BaseURL:  c.baseURL,
		APIKey:   apiKey,
		Model:    c.model,
		Ticker:   ticker,
		Prompt:   buildInsightPrompt(ticker, c.locale),
		Logger:   logger,
	})
	provider := raw.Provider
	if provider == "" {
		provider = resolveProvider(c.provider, c.baseURL, c.model)
	}
	model := raw.Model
	if model == "" {
		model = c.model
	}
	record := historyRecord{
		RequestID:   ticket.ID,
		Ticker:      ticker,
		Provider:    provider,
		Model:       model,
		RawResponse: raw.Text,
	}

	if !c.tracker.IsCurrent(ticket) {
		logger.Info("insight search superseded; result discarded")
		c.failHistory(ctx, record, ErrCodeStale)
		return nil, NewError(ErrCodeStale, "superseded by a newer search")
	}
	if err != nil {
		logger.Error("insight upstream request failed", "err", err)
		code := CodeOf(err)
		if code == ErrCodeInternal {
			err = WrapError(ErrCodeUpstream, "upstream request failed", err)
			code = ErrCodeUpstream
		}
		c.failHistory(ctx, record, code)
		return nil, err
	}

	insight := c.normalizer.Normalize(raw.Text)
	if insight == nil {
		logger.Warn("insight normalization failed", "raw_text", raw.Text)
		c.failHistory(ctx, record, ErrCodeNormalization)
		return nil, NewError(ErrCodeNormalization, "no usable price in upstream response")
	}

	sources := ExtractSources(raw.GroundingChunks, c.locale.DefaultSourceTitle)
	view := BuildStockView(ticker, insight, sources, c.locale, c.now())

	record.Status = HistoryStatusCompleted
	record.Insight = insight
	c.recordHistory(ctx, record)

	logger.Info("insight search completed",
		"provider", provider,
		"model", model,
		"current_price", insight.RealData.CurrentPrice,
		"recommendation", insight.Recommendation,
		"sources", len(sources),
	)
	return &SearchResult{
		RequestID: ticket.ID,
		Ticker:    ticker,
		Provider:  provider,
		Model:     model,
		Insight:   insight,
		Sources:   sources,
		View:      view,
	}, nil
}

func (c *Core) failHistory(ctx context.Context, rec historyRecord, code ErrorCode) {
	rec.Status = HistoryStatusFailed
	rec.ErrorCode = code
	c.recordHistory(ctx, rec)
}

// Normalize exposes the active normalizer for callers holding raw text.
func (c *Core) Normalize(raw string) *MarketInsight {
	return c.normalizer.Normalize(raw)
}
