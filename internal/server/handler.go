package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
	"chaingate/internal/history"
	"chaingate/internal/metrics"
	"chaingate/internal/query"
	"chaingate/internal/static"
	"chaingate/internal/txbuilder"
)

// Handler resolves inbound requests to gateway operations. Every operation
// parses and validates the chain path segment before any orchestration
// begins.
type Handler struct {
	builder  *txbuilder.Builder
	composer *query.Composer
	history  *history.Client
	stores   map[chain.Chain]*static.Store
	logger   zerolog.Logger
}

// NewHandler creates the request handler.
func NewHandler(builder *txbuilder.Builder, composer *query.Composer, hist *history.Client, stores map[chain.Chain]*static.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		builder:  builder,
		composer: composer,
		history:  hist,
		stores:   stores,
		logger:   logger.With().Str("component", "server").Logger(),
	}
}

// Routes builds the path/method table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{chain}/signing-request", h.operation("signing-request", h.handleSigningRequest))
	mux.HandleFunc("GET /{chain}/objects", h.operation("objects", h.handleObjects))
	mux.HandleFunc("GET /{chain}/account/{query}", h.operation("account", h.handleAccount))
	mux.HandleFunc("GET /{chain}/account/{id}/balances", h.operation("balances", h.handleBalances))
	mux.HandleFunc("GET /{chain}/account/{id}/orders", h.operation("open-orders", h.handleOpenOrders))
	mux.HandleFunc("GET /{chain}/account/{id}/portfolio", h.operation("portfolio", h.handlePortfolio))
	mux.HandleFunc("GET /{chain}/account/{id}/history", h.operation("history", h.handleHistory))
	mux.HandleFunc("GET /{chain}/orderbook", h.operation("orderbook", h.handleOrderBook))
	mux.HandleFunc("GET /{chain}/orders", h.operation("limit-orders", h.handleLimitOrders))
	mux.HandleFunc("GET /{chain}/asset/{id}", h.operation("asset", h.handleAsset))
	mux.HandleFunc("GET /{chain}/pool/{id}", h.operation("pool", h.handlePool))
	mux.HandleFunc("GET /{chain}/fees", h.operation("fees", h.handleFees))
	mux.HandleFunc("GET /{chain}/bitassets", h.operation("bitassets", h.handleBitassets))
	mux.HandleFunc("GET /{chain}/markets", h.operation("markets", h.handleMarkets))

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// operationFunc handles one gateway operation for a validated chain.
type operationFunc func(w http.ResponseWriter, r *http.Request, ch chain.Chain) error

func (h *Handler) operation(name string, fn operationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := chain.Parse(r.PathValue("chain"))
		if err != nil {
			metrics.Requests.WithLabelValues(name, "invalid", "failure").Inc()
			h.writeFailure(w, r, err)
			return
		}
		if err := fn(w, r, ch); err != nil {
			metrics.Requests.WithLabelValues(name, ch.String(), "failure").Inc()
			h.writeFailure(w, r, err)
			return
		}
		metrics.Requests.WithLabelValues(name, ch.String(), "success").Inc()
	}
}

type signingRequestBody struct {
	OperationType string            `json:"operationType"`
	Payloads      []json.RawMessage `json:"payloads"`
}

func (h *Handler) handleSigningRequest(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	var body signingRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return &failure.ValidationError{Field: "body", Reason: "malformed JSON"}
	}

	envelope, err := h.builder.BuildSigningRequest(r.Context(), ch, body.OperationType, body.Payloads)
	if err != nil {
		return err
	}
	encoded, err := envelope.Encode()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{
		"id":             envelope.ID,
		"signingRequest": encoded,
	})
}

func (h *Handler) handleObjects(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		return &failure.ValidationError{Field: "ids", Reason: "query parameter is required"}
	}
	objects, err := h.composer.Objects(r.Context(), ch, strings.Split(idsParam, ","))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, objects)
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	account, err := h.composer.Account(r.Context(), ch, r.PathValue("query"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, account)
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	balances, err := h.composer.Balances(r.Context(), ch, r.PathValue("id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) handleOpenOrders(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	orders, err := h.composer.OpenOrders(r.Context(), ch, r.PathValue("id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	portfolio, err := h.composer.Portfolio(r.Context(), ch, r.PathValue("id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, portfolio)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	opts, err := historyOptions(r)
	if err != nil {
		return err
	}
	doc, err := h.history.AccountHistory(r.Context(), ch, r.PathValue("id"), opts)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleOrderBook(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	q := r.URL.Query()
	book, err := h.composer.OrderBook(r.Context(), ch, q.Get("base"), q.Get("quote"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleLimitOrders(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	q := r.URL.Query()
	orders, err := h.composer.LimitOrders(r.Context(), ch, q.Get("base"), q.Get("quote"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) store(ch chain.Chain) (*static.Store, error) {
	store, ok := h.stores[ch]
	if !ok {
		return nil, &failure.ConfigError{Reason: fmt.Sprintf("chain %s is not configured", ch)}
	}
	return store, nil
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	store, err := h.store(ch)
	if err != nil {
		return err
	}
	asset, ok := store.Asset(r.PathValue("id"))
	if !ok {
		return failure.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, asset)
}

func (h *Handler) handlePool(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	store, err := h.store(ch)
	if err != nil {
		return err
	}
	pool, ok := store.Pool(r.PathValue("id"))
	if !ok {
		return failure.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, pool)
}

func (h *Handler) handleFees(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	store, err := h.store(ch)
	if err != nil {
		return err
	}
	fees, ok := store.FeeSchedule()
	if !ok {
		return failure.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, fees)
}

func (h *Handler) handleBitassets(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	store, err := h.store(ch)
	if err != nil {
		return err
	}
	bitassets, ok := store.Bitassets()
	if !ok {
		return failure.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, bitassets)
}

func (h *Handler) handleMarkets(w http.ResponseWriter, r *http.Request, ch chain.Chain) error {
	store, err := h.store(ch)
	if err != nil {
		return err
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		return &failure.ValidationError{Field: "q", Reason: "query parameter is required"}
	}
	return writeJSON(w, http.StatusOK, store.SearchMarkets(q))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func historyOptions(r *http.Request) (history.Options, error) {
	q := r.URL.Query()
	opts := history.Options{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Sort:   q.Get("sort"),
		Agg:    q.Get("agg"),
	}
	for _, p := range []struct {
		name string
		dest *int
	}{
		{"from", &opts.From},
		{"size", &opts.Size},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return history.Options{}, &failure.ValidationError{Field: p.name, Reason: "must be a non-negative integer"}
		}
		*p.dest = n
	}
	return opts, nil
}
