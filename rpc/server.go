package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coreerrors "musicchain/core/errors"
	"musicchain/native/orchestrator"
	"musicchain/native/splits"
)

const shutdownTimeout = 10 * time.Second

// Options configure the API server.
type Options struct {
	Logger    *slog.Logger
	RateLimit RateLimit
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server exposes the read side of the marketplace over HTTP.
type Server struct {
	engine  *orchestrator.Engine
	logger  *slog.Logger
	limiter *RateLimiter
	router  chi.Router
}

// NewServer builds the router over engine.
func NewServer(engine *orchestrator.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		engine:  engine,
		logger:  logger.With("component", "rpc"),
		limiter: NewRateLimiter(opts.RateLimit),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)
		v1.Get("/fees", s.handleFee)
		v1.Get("/fees/quote", s.handleQuote)
		v1.Get("/stablecoin", s.handleStablecoin)
		v1.Get("/stores", s.handleStores)
		v1.Get("/version", s.handleVersion)
		v1.Get("/orchestrator/successor", s.handleSuccessor)
		v1.Get("/users/{id}", s.handleUser)
		v1.Get("/users/by-address/{address}", s.handleUserByAddress)
		v1.Get("/songs/{id}", s.handleSong)
		v1.Get("/albums/{id}", s.handleAlbum)
		v1.Get("/splits/{kind}/{id}", s.handleSplit)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	bps, err := s.engine.GetPercentageFee()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FeeResponse{FeeBps: bps})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	net, err := uint256.FromDecimal(strings.TrimSpace(r.URL.Query().Get("net")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "net must be a decimal amount")
		return
	}
	total, fee, err := s.engine.GetPriceWithFee(net)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{Net: net.Dec(), Fee: amount(fee), Total: amount(total)})
}

func (s *Server) handleStablecoin(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.GetStablecoinInfo()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StablecoinResponse{
		Address:  info.Address.Hex(),
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
		Pending:  proposalView(info.Pending),
	})
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	binding, err := s.engine.GetDatabaseAddresses()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StoresResponse{
		Bound:  binding != nil,
		Users:  s.engine.GetUserDatabaseAddress().Hex(),
		Songs:  s.engine.GetSongDatabaseAddress().Hex(),
		Albums: s.engine.GetAlbumDatabaseAddress().Hex(),
		Splits: s.engine.GetSplitterDatabaseAddress().Hex(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.engine.Version()})
}

func (s *Server) handleSuccessor(w http.ResponseWriter, r *http.Request) {
	next, err := s.engine.GetNewOrchestratorAddress()
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := SuccessorResponse{}
	if next != (ethcommon.Address{}) {
		resp.Migrated = true
		resp.NewOrchestrator = next.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := s.engine.GetUser(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserView(user))
}

func (s *Server) handleUserByAddress(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !ethcommon.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	id, err := s.engine.GetUserIDByAddress(ethcommon.HexToAddress(raw))
	if err != nil {
		s.fail(w, err)
		return
	}
	if id == 0 {
		writeError(w, http.StatusNotFound, "no user registered at address")
		return
	}
	user, err := s.engine.GetUser(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserView(user))
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	song, err := s.engine.GetSong(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SongView(song))
}

func (s *Server) handleAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	album, err := s.engine.GetAlbum(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AlbumView(album))
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	kind, err := splits.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	shares, err := s.engine.GetSplit(kind, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(shares) == 0 {
		writeError(w, http.StatusNotFound, "no split configured")
		return
	}
	writeJSON(w, http.StatusOK, SplitView(kind, id, shares))
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := coreerrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case coreerrors.KindExistence:
		status = http.StatusNotFound
	case coreerrors.KindValidation:
		status = http.StatusBadRequest
	case coreerrors.KindAuthorization:
		status = http.StatusForbidden
	case coreerrors.KindState, coreerrors.KindTimelock:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("query failed", slog.Any("error", err))
		writeError(w, status, "internal error")
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
