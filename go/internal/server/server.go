package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Server exposes the auction store over the REST surface the watcher
// client consumes. Error bodies keep the {"error": "..."} envelope the
// client's classifier parses; the one structured rejection is
// amount_too_low, which additionally carries the authoritative price
// and required minimum.
type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Router builds the chi router with CORS and request logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/users", s.handleListUsers)
	r.Post("/user", s.handleCreateUser)
	r.Get("/auctions", s.handleListAuctions)
	r.Post("/auction", s.handleCreateAuction)
	r.Get("/auction/{id}", s.handleGetAuction)
	r.Post("/auction/{id}/close", s.handleCloseAuction)
	r.Get("/bids/{id}", s.handleListBids)
	r.Post("/bid", s.handlePlaceBid)

	return cors.AllowAll().Handler(r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name required")
		return
	}

	id, err := s.store.CreateUser(r.Context(), req.Name)
	if err != nil {
		log.Error().Err(err).Msg("create user failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user_id": id, "name": req.Name})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list users failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemName        string   `json:"item_name"`
		StartPrice      float64  `json:"start_price"`
		MinIncrement    *float64 `json:"min_increment"`
		DurationSeconds *int64   `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "item_name required")
		return
	}

	minIncrement := 1.0
	if req.MinIncrement != nil {
		minIncrement = *req.MinIncrement
	}
	durationSeconds := int64(60)
	if req.DurationSeconds != nil {
		durationSeconds = *req.DurationSeconds
	}
	if req.StartPrice < 0 || minIncrement <= 0 || durationSeconds <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid auction fields")
		return
	}

	id, endTime, err := s.store.CreateAuction(r.Context(), req.ItemName, req.StartPrice, minIncrement, durationSeconds)
	if err != nil {
		log.Error().Err(err).Msg("create auction failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"auction_id": id,
		"item_name":  req.ItemName,
		"end_time":   endTime,
	})
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid auction id")
		return
	}

	detail, err := s.store.GetAuction(r.Context(), id)
	if errors.Is(err, ErrAuctionNotFound) {
		writeErrorMessage(w, http.StatusNotFound, "auction not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get auction failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ExpireAuctions(r.Context()); err != nil {
		log.Error().Err(err).Msg("expiring auctions failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}

	all := r.URL.Query().Get("all") == "1"
	auctions, err := s.store.ListAuctions(r.Context(), all)
	if err != nil {
		log.Error().Err(err).Msg("list auctions failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, auctions)
}

func (s *Server) handleCloseAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid auction id")
		return
	}
	if err := s.store.CloseAuction(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("close auction failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"closed": id})
}

func (s *Server) handleListBids(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid auction id")
		return
	}
	bids, err := s.store.ListBids(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("list bids failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuctionID *int64   `json:"auction_id"`
		UserID    *int64   `json:"user_id"`
		Amount    *float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.AuctionID == nil || req.UserID == nil || req.Amount == nil {
		writeErrorMessage(w, http.StatusBadRequest, "auction_id, user_id, amount required and must be numeric")
		return
	}

	price, err := s.store.PlaceBid(r.Context(), *req.AuctionID, *req.UserID, *req.Amount)
	if err != nil {
		var tooLow *AmountTooLowError
		switch {
		case errors.As(err, &tooLow):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":          false,
				"reason":           "amount_too_low",
				"current_price":    tooLow.CurrentPrice,
				"required_minimum": tooLow.RequiredMinimum,
			})
		case errors.Is(err, ErrAuctionNotFound):
			writeErrorMessage(w, http.StatusNotFound, "auction not found")
		case errors.Is(err, ErrUserNotFound):
			writeErrorMessage(w, http.StatusNotFound, "user not found")
		case errors.Is(err, ErrUserInactive):
			writeErrorMessage(w, http.StatusBadRequest, "user not active")
		case errors.Is(err, ErrAuctionClosed):
			writeErrorMessage(w, http.StatusBadRequest, "auction closed")
		default:
			log.Error().Err(err).Msg("place bid failed")
			writeErrorMessage(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"auction_id":    *req.AuctionID,
		"user_id":       *req.UserID,
		"amount":        *req.Amount,
		"current_price": price,
	})
}
