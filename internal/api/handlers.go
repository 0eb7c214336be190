package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"costbook/pkg/costbook"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Portfolios.

func (h *handler) getPortfolios(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetPortfolios()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) addPortfolio(w http.ResponseWriter, r *http.Request) {
	var payload portfolioPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.core.AddPortfolio(costbook.Portfolio{
		Code:     payload.Code,
		Name:     payload.Name,
		Currency: payload.Currency,
		Base:     payload.Base,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeCreated(w, p)
}

func (h *handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.core.GetPortfolio(chi.URLParam(r, "code"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, p)
}

func (h *handler) getPositions(w http.ResponseWriter, r *http.Request) {
	asAt, ok := queryDate(w, r, "as_at")
	if !ok {
		return
	}
	positions, err := h.core.GetPositionsContext(r.Context(), chi.URLParam(r, "code"), asAt)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, positions)
}

func (h *handler) getPerformance(w http.ResponseWriter, r *http.Request) {
	asAt, ok := queryDate(w, r, "as_at")
	if !ok {
		return
	}
	result, err := h.core.GetPerformance(chi.URLParam(r, "code"), asAt)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getValuations(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.GetValuationSnapshots(chi.URLParam(r, "code"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) recordValuation(w http.ResponseWriter, r *http.Request) {
	var payload valuationPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	snapshot, err := h.core.RecordValuation(costbook.RecordValuationRequest{
		PortfolioCode:    chi.URLParam(r, "code"),
		Date:             date,
		ExternalCashFlow: payload.ExternalCashFlow,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeCreated(w, snapshot)
}

func (h *handler) getSnapshotPositions(w http.ResponseWriter, r *http.Request) {
	date, err := costbook.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	positions, err := h.core.GetSnapshotPositions(chi.URLParam(r, "code"), date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, positions)
}

// Transactions.

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := normalizeLimitOffset(
		parseIntDefault(query.Get("limit"), 100),
		parseIntDefault(query.Get("offset"), 0),
	)
	result, err := h.core.GetTransactions(costbook.TransactionFilter{
		PortfolioCode: query.Get("portfolio"),
		AssetCode:     query.Get("asset_code"),
		Market:        query.Get("market"),
		Type:          query.Get("type"),
		StartDate:     query.Get("start_date"),
		EndDate:       query.Get("end_date"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, transactionsResponse{Items: result, Limit: limit, Offset: offset})
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var payload costbook.AddTransactionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.core.AddTransaction(payload)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeCreated(w, map[string]string{"id": id})
}

func (h *handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.core.DeleteTransaction(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "transaction not found")
		return
	}
	writeSuccessWithMessage(w, "deleted", nil)
}

// FX.

func (h *handler) getRateTable(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	table, err := h.core.GetRateTable(date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, table)
}

func (h *handler) setExchangeRate(w http.ResponseWriter, r *http.Request) {
	var payload exchangeRatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	if err := h.core.SetExchangeRate(date, payload.Currency, payload.Rate); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "updated", nil)
}

func (h *handler) getCrossRates(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	var pairs []costbook.CurrencyPair
	for _, raw := range strings.Split(r.URL.Query().Get("pairs"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pair, err := costbook.ParseCurrencyPair(raw)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err)
			return
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		writeError(w, r, http.StatusBadRequest, "pairs required")
		return
	}
	result, err := h.core.GetCrossRates(date, pairs)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

// Prices.

func (h *handler) setPrice(w http.ResponseWriter, r *http.Request) {
	var payload pricePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	err = h.core.SetPrice(costbook.MarketData{
		Asset:         costbook.Asset{Code: payload.AssetCode, Market: costbook.Market{Code: payload.Market}},
		Date:          date,
		Close:         payload.Close,
		PreviousClose: payload.PreviousClose,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "updated", nil)
}

func (h *handler) getLatestPrice(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryDate(w, r, "as_at")
	if !ok {
		return
	}
	asset := costbook.Asset{
		Code:   chi.URLParam(r, "code"),
		Market: costbook.Market{Code: chi.URLParam(r, "market")},
	}
	md, err := h.core.GetLatestPrice(asset, asOf)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if md == nil {
		writeError(w, r, http.StatusNotFound, "price not found")
		return
	}
	writeSuccess(w, md)
}

// Calculators.

func (h *handler) calculateIrr(w http.ResponseWriter, r *http.Request) {
	var payload irrPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	flows := costbook.NewPeriodicCashFlows()
	for _, f := range payload.Flows {
		date, err := costbook.ParseDate(f.Date)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err)
			return
		}
		flows.Add(costbook.CashFlow{Date: date, Amount: f.Amount})
	}
	calc := h.core.IrrCalculator()
	if payload.MinHoldingDays > 0 {
		calc = costbook.NewIrrCalculator(payload.MinHoldingDays, h.core.Logger())
	}
	writeSuccess(w, irrResponse{Irr: calc.Calculate(flows), Flows: flows.Flows()})
}

func (h *handler) calculateTwr(w http.ResponseWriter, r *http.Request) {
	var payload twrPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	snapshots := make([]costbook.ValuationSnapshot, 0, len(payload.Snapshots))
	for _, s := range payload.Snapshots {
		date, err := costbook.ParseDate(s.Date)
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, err)
			return
		}
		snapshots = append(snapshots, costbook.ValuationSnapshot{
			Date:             date,
			MarketValue:      s.MarketValue,
			ExternalCashFlow: s.ExternalCashFlow,
		})
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].Date.Before(snapshots[i-1].Date) {
			writeError(w, r, http.StatusBadRequest, "snapshots must be in date order")
			return
		}
	}
	calc := costbook.TwrCalculator{GrowthStart: payload.GrowthStart}
	writeSuccess(w, calc.Calculate(snapshots))
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	result, err := h.core.GetOperationLogs(limit, offset)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
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

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseOptionalDate parses a YYYY-MM-DD date, defaulting to today.
func parseOptionalDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return costbook.Today(), nil
	}
	return costbook.ParseDate(value)
}

// queryDate reads an optional date query parameter, writing a 400 on failure.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	date, err := parseOptionalDate(r.URL.Query().Get(name))
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return time.Time{}, false
	}
	return date, true
}
