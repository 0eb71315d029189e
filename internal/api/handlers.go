package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"simustock/pkg/simustock"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Provider: h.core.Provider()})
}

func (h *handler) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.core.Presets())
}

func (h *handler) getLocale(w http.ResponseWriter, r *http.Request) {
	locale := h.core.Locale()
	writeJSON(w, http.StatusOK, localeResponse{
		Name:                 locale.Name,
		CurrencyPrefix:       locale.CurrencyPrefix,
		DecimalComma:         locale.DecimalComma,
		DateLayout:           locale.DateLayout,
		RecommendationLabels: locale.RecommendationLabels,
		RiskLabels:           locale.RiskLabels,
		Messages:             locale.Messages,
	})
}

func (h *handler) searchInsight(w http.ResponseWriter, r *http.Request) {
	var payload searchPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, h.locale(), err)
		return
	}
	session := strings.TrimSpace(payload.SessionID)
	if session == "" {
		session = strings.TrimSpace(r.Header.Get(SessionHeader))
	}
	result, err := h.core.Search(r.Context(), simustock.SearchRequest{
		Ticker:    payload.Ticker,
		SessionID: session,
	})
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) getInsightHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseIntDefault(query.Get("limit"), 0)
	includeRaw := h.exposeRaw && parseBool(query.Get("include_raw"))
	entries, err := h.core.GetInsightHistory(r.Context(), query.Get("ticker"), limit, includeRaw)
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) getFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.core.ListFavorites(r.Context())
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (h *handler) setFavorites(w http.ResponseWriter, r *http.Request) {
	var payload favoritesPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, h.locale(), err)
		return
	}
	favorites, err := h.core.SetFavorites(r.Context(), payload.Tickers)
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (h *handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.core.AddFavorite(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (h *handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.core.RemoveFavorite(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeErrorResponse(w, r, h.locale(), err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}
