package simustock

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200

	// historyTimeLayout matches SQLite's CURRENT_TIMESTAMP so stored values
	// sort lexically. Values are UTC.
	historyTimeLayout = "2006-01-02 15:04:05"
)

// historyRecord is what a search attempt leaves behind.
type historyRecord struct {
	RequestID   string
	Ticker      Ticker
	Provider    string
	Model       string
	Status      string
	ErrorCode   ErrorCode
	RawResponse string
	Insight     *MarketInsight
	CreatedAt   time.Time
}

func (c *Core) saveHistory(ctx context.Context, rec historyRecord) (int64, error) {
	var insightJSON any
	if rec.Insight != nil {
		payload, err := json.Marshal(rec.Insight)
		if err != nil {
			return 0, WrapError(ErrCodeInternal, "failed to encode insight", err)
		}
		insightJSON = string(payload)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.now()
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO insight_history (request_id, ticker, provider, model, status, error_code, raw_response, insight_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, string(rec.Ticker), nullableString(rec.Provider), nullableString(rec.Model), rec.Status,
		nullableString(string(rec.ErrorCode)), nullableString(rec.RawResponse), insightJSON,
		createdAt.UTC().Format(historyTimeLayout))
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "failed to save insight history", err)
	}
	return res.LastInsertId()
}

// recordHistory stores rec without letting a storage failure affect the
// search outcome.
func (c *Core) recordHistory(ctx context.Context, rec historyRecord) {
	if _, err := c.saveHistory(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("record insight history failed", "request_id", rec.RequestID, "ticker", rec.Ticker, "err", err)
	}
}

// GetInsightHistory returns recorded searches, newest first. An empty
// ticker lists every ticker. Raw responses are included only on request.
func (c *Core) GetInsightHistory(ctx context.Context, ticker string, limit int, includeRaw bool) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `
		SELECT id, request_id, ticker, provider, model, status, error_code, raw_response, insight_json, created_at
		FROM insight_history`
	args := []any{}
	if strings.TrimSpace(ticker) != "" {
		validated, err := ValidateTicker(ticker)
		if err != nil {
			return nil, err
		}
		query += " WHERE ticker = ?"
		args = append(args, string(validated))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to query insight history", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			entry                                      HistoryEntry
			tickerValue, createdAt                     string
			provider, model, errorCode, raw, insightJS sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.RequestID, &tickerValue, &provider, &model, &entry.Status,
			&errorCode, &raw, &insightJS, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "failed to scan insight history", err)
		}
		entry.Ticker = Ticker(tickerValue)
		entry.Provider = provider.String
		entry.Model = model.String
		entry.ErrorCode = errorCode.String
		if includeRaw {
			entry.RawResponse = raw.String
		}
		if insightJS.Valid && insightJS.String != "" {
			var insight MarketInsight
			if err := json.Unmarshal([]byte(insightJS.String), &insight); err == nil {
				entry.Insight = &insight
			}
		}
		entry.CreatedAt = formatHistoryTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to read insight history", err)
	}
	return entries, nil
}

// PruneInsightHistory deletes entries recorded before the given instant and
// returns how many were removed.
func (c *Core) PruneInsightHistory(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM insight_history WHERE created_at < ?", before.UTC().Format(historyTimeLayout))
		if err != nil {
			return WrapError(ErrCodeDatabase, "failed to prune insight history", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func formatHistoryTime(stored string) string {
	parsed, err := time.ParseInLocation(historyTimeLayout, stored, time.UTC)
	if err != nil {
		return stored
	}
	return parsed.In(saoPauloLocation).Format(time.RFC3339)
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
