package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/crowdship/internal/config"
	"github.com/example/crowdship/internal/dispatch"
	"github.com/example/crowdship/internal/ingest"
	"github.com/example/crowdship/internal/marketplace"
	"github.com/example/crowdship/internal/models"
	"github.com/example/crowdship/internal/observability"
	"github.com/example/crowdship/internal/stats"
	"github.com/example/crowdship/internal/storage"
)

// Server is the JSON API over the marketplace access layer. Kafka, Redis
// and the live feed are optional collaborators; the access layer itself
// only ever sees the injected store.
type Server struct {
	Svc   *marketplace.Service
	Kafka *ingest.KafkaProducer
	WSReg *dispatch.WSRegistry
	Stats *stats.RedisStats

	logger    *slog.Logger
	jwtSecret string
	mux       *mux.Router
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var store storage.Store
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Warn("postgres unavailable, falling back to memory store", "error", err)
		} else {
			store = ps
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var st *stats.RedisStats
	if cfg.RedisAddr != "" {
		st = stats.NewRedisStats(cfg.RedisAddr, cfg.RedisPassword)
	}

	s := &Server{
		Svc:       marketplace.NewService(store, logger),
		Kafka:     kp,
		WSReg:     dispatch.NewWSRegistry(),
		Stats:     st,
		logger:    logger,
		jwtSecret: cfg.JWTSecret,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/requests", s.handleCreateRequest).Methods("POST")
	api.HandleFunc("/requests", s.handleListRequests).Methods("GET")
	api.HandleFunc("/requests/available", s.handleAvailableRequests).Methods("GET")
	api.HandleFunc("/requests/{id}/status", s.handleSetRequestStatus).Methods("POST")
	api.HandleFunc("/requesters/{requester_id}/requests", s.handleRequesterRequests).Methods("GET")
	api.HandleFunc("/travelers", s.handleCreateTraveler).Methods("POST")
	api.HandleFunc("/travelers/active", s.handleActiveTravelers).Methods("GET")
	api.HandleFunc("/travelers/by-user/{user_id}", s.handleTravelerByUser).Methods("GET")
	api.HandleFunc("/travelers/{traveler_id}/requests", s.handleTravelerRequests).Methods("GET")
	api.HandleFunc("/travelers/{id}", s.handleUpdateTraveler).Methods("PATCH")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{traveler_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		if req.RequesterID == "" {
			req.RequesterID = claims.Subject
		}
		if req.RequesterName == "" {
			req.RequesterName = claims.Name
		}
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	res := s.Svc.CreateRequest(r.Context(), req)
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	observability.RequestsCreated.Inc()
	s.publishEvent(models.RequestEvent{
		Type:      models.EventRequestCreated,
		RequestID: res.Data,
		Status:    req.Status,
		At:        time.Now(),
	})
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.ListRequests(r.Context(), r.URL.Query().Get("requester_id")))
}

func (s *Server) handleAvailableRequests(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.ListAvailableRequests(r.Context()))
}

func (s *Server) handleRequesterRequests(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.ListRequestsForRequester(r.Context(), mux.Vars(r)["requester_id"]))
}

func (s *Server) handleTravelerRequests(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.ListRequestsForTraveler(r.Context(), mux.Vars(r)["traveler_id"]))
}

func (s *Server) handleSetRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Status       models.RequestStatus `json:"status"`
		TravelerID   string               `json:"traveler_id"`
		TravelerName string               `json:"traveler_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res := s.Svc.SetRequestStatus(r.Context(), id, body.Status, body.TravelerID, body.TravelerName)
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	observability.StatusTransitions.WithLabelValues(string(body.Status)).Inc()
	s.publishEvent(models.RequestEvent{
		Type:       models.EventRequestStatusChanged,
		RequestID:  id,
		Status:     body.Status,
		TravelerID: body.TravelerID,
		At:         time.Now(),
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateTraveler(w http.ResponseWriter, r *http.Request) {
	var t models.Traveler
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		if t.UserID == "" {
			t.UserID = claims.Subject
		}
		if t.Name == "" {
			t.Name = claims.Name
		}
		if t.Email == "" {
			t.Email = claims.Email
		}
	}
	if t.Status == "" {
		t.Status = models.TravelerActive
	}
	res := s.Svc.CreateTraveler(r.Context(), t)
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	observability.TravelersRegistered.Inc()
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleActiveTravelers(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.ListActiveTravelers(r.Context()))
}

func (s *Server) handleTravelerByUser(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.Svc.FindTravelerByUserID(r.Context(), mux.Vars(r)["user_id"]))
}

// travelerPatch mirrors storage.TravelerUpdate: absent JSON fields stay nil
// and are left untouched by the store.
type travelerPatch struct {
	Name           *string                `json:"name"`
	Email          *string                `json:"email"`
	Phone          *string                `json:"phone"`
	TravelDate     *string                `json:"travel_date"`
	DepartureCity  *string                `json:"departure_city"`
	ArrivalAirport *string                `json:"arrival_airport"`
	PassportNumber *string                `json:"passport_number"`
	MaxItems       *int                   `json:"max_items"`
	ServiceFee     *float64               `json:"service_fee"`
	Status         *models.TravelerStatus `json:"status"`
}

func (s *Server) handleUpdateTraveler(w http.ResponseWriter, r *http.Request) {
	var p travelerPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	upd := storage.TravelerUpdate{
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		TravelDate:     p.TravelDate,
		DepartureCity:  p.DepartureCity,
		ArrivalAirport: p.ArrivalAirport,
		PassportNumber: p.PassportNumber,
		MaxItems:       p.MaxItems,
		ServiceFee:     p.ServiceFee,
		Status:         p.Status,
	}
	writeResult(w, s.Svc.UpdateTraveler(r.Context(), mux.Vars(r)["id"], upd))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, marketplace.Fail[map[string]int64]("stats view not configured"))
		return
	}
	counts, err := s.Stats.StatusCounts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, marketplace.Fail[map[string]int64](err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, marketplace.Ok(counts))
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["traveler_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
	observability.FeedConnections.Inc()
	go func() {
		defer func() {
			s.WSReg.Remove(id)
			observability.FeedConnections.Dec()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// publishEvent fans a lifecycle event out to Kafka and the live feed.
// Best-effort on both legs: a lost event never fails the write that
// produced it.
func (s *Server) publishEvent(ev models.RequestEvent) {
	if s.Kafka != nil {
		if err := s.Kafka.PublishRequestEvent(ev); err != nil {
			observability.EventPublishErrors.Inc()
			s.logger.Warn("event publish failed", "type", ev.Type, "request_id", ev.RequestID, "error", err)
		} else {
			observability.EventsPublished.Inc()
		}
	}
	if s.WSReg != nil {
		s.WSReg.Broadcast(ev)
	}
}

// writeResult encodes a success as 200 and any store failure as 503; the
// envelope itself carries the caller-facing message either way.
func writeResult[T any](w http.ResponseWriter, res marketplace.Result[T]) {
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
