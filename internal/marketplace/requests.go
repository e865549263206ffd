package marketplace

import (
	"context"
	"log/slog"

	"github.com/example/crowdship/internal/models"
	"github.com/example/crowdship/internal/storage"
)

// Service exposes the marketplace access functions over an injected store.
// It holds no state of its own; every call is an independent round trip.
type Service struct {
	Store  storage.Store
	Logger *slog.Logger
}

func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

// CreateRequest persists a new carry request. The store assigns the
// identifier and both audit timestamps; whatever the caller put in those
// fields is discarded. Returns the new identifier.
func (s *Service) CreateRequest(ctx context.Context, req models.Request) Result[string] {
	req.ID = ""
	id, err := s.Store.InsertRequest(ctx, req)
	if err != nil {
		s.logFault("create request", err)
		return Fail[string](failureMessage(err))
	}
	return Ok(id)
}

// ListRequests returns every request, newest first. A non-empty requesterID
// restricts the listing to that requester. The ordering is a contract:
// callers render the slice without re-sorting.
func (s *Service) ListRequests(ctx context.Context, requesterID string) Result[[]models.Request] {
	rs, err := s.Store.QueryRequests(ctx, storage.RequestFilter{RequesterID: requesterID})
	if err != nil {
		s.logFault("list requests", err)
		return Fail[[]models.Request](failureMessage(err))
	}
	return Ok(rs)
}

// ListAvailableRequests returns requests still open for acceptance, i.e.
// status pending, newest first.
func (s *Service) ListAvailableRequests(ctx context.Context) Result[[]models.Request] {
	rs, err := s.Store.QueryRequests(ctx, storage.RequestFilter{Status: models.RequestPending})
	if err != nil {
		s.logFault("list available requests", err)
		return Fail[[]models.Request](failureMessage(err))
	}
	return Ok(rs)
}

// ListRequestsForRequester returns one requester's requests, newest first.
func (s *Service) ListRequestsForRequester(ctx context.Context, requesterID string) Result[[]models.Request] {
	rs, err := s.Store.QueryRequests(ctx, storage.RequestFilter{RequesterID: requesterID})
	if err != nil {
		s.logFault("list requester requests", err)
		return Fail[[]models.Request](failureMessage(err))
	}
	return Ok(rs)
}

// ListRequestsForTraveler returns the requests bound to a traveler, newest
// first.
func (s *Service) ListRequestsForTraveler(ctx context.Context, travelerID string) Result[[]models.Request] {
	rs, err := s.Store.QueryRequests(ctx, storage.RequestFilter{TravelerID: travelerID})
	if err != nil {
		s.logFault("list traveler requests", err)
		return Fail[[]models.Request](failureMessage(err))
	}
	return Ok(rs)
}

// SetRequestStatus moves a request to the given status and refreshes its
// update timestamp. Traveler identity is bound only when supplied.
//
// The transition is deliberately unguarded: no transition-table check and no
// conditional write, so two concurrent accepts both succeed and the second
// write wins on the status and traveler fields.
func (s *Service) SetRequestStatus(ctx context.Context, requestID string, status models.RequestStatus, travelerID, travelerName string) Result[struct{}] {
	err := s.Store.UpdateRequestStatus(ctx, requestID, storage.RequestStatusUpdate{
		Status:       status,
		TravelerID:   travelerID,
		TravelerName: travelerName,
	})
	if err != nil {
		s.logFault("update request status", err)
		return Fail[struct{}](failureMessage(err))
	}
	return Ok(struct{}{})
}
