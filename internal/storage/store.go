package storage

import (
	"context"
	"errors"

	"github.com/example/crowdship/internal/models"
)

// Fault categories surfaced by store implementations. The access layer maps
// these onto user-facing failure messages; callers test with errors.Is.
var (
	ErrUnavailable      = errors.New("store unavailable")
	ErrPermissionDenied = errors.New("store permission denied")
	ErrNotFound         = errors.New("store not found")
)

// RequestFilter narrows a request query. Zero values mean "no filter".
// Results are always ordered by creation time, newest first.
type RequestFilter struct {
	RequesterID string
	TravelerID  string
	Status      models.RequestStatus
}

// RequestStatusUpdate carries the fields touched by a status transition.
// TravelerID/TravelerName are written only when non-empty.
type RequestStatusUpdate struct {
	Status       models.RequestStatus
	TravelerID   string
	TravelerName string
}

// TravelerFilter narrows a traveler query. Zero values mean "no filter".
// Limit bounds the number of rows returned; 0 means unbounded.
type TravelerFilter struct {
	UserID string
	Status models.TravelerStatus
	Limit  int
}

// TravelerUpdate is a partial traveler record. Nil fields are left
// untouched; the store merges field by field, never overwriting the
// whole document.
type TravelerUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	TravelDate     *string
	DepartureCity  *string
	ArrivalAirport *string
	PassportNumber *string
	MaxItems       *int
	ServiceFee     *float64
	Status         *models.TravelerStatus
}

// Store is the document-store collaborator behind the access layer. Two
// collections: requests and travelers. Implementations assign identifiers
// on insert and own both audit timestamps.
type Store interface {
	InsertRequest(ctx context.Context, req models.Request) (string, error)
	QueryRequests(ctx context.Context, f RequestFilter) ([]models.Request, error)
	UpdateRequestStatus(ctx context.Context, id string, upd RequestStatusUpdate) error

	InsertTraveler(ctx context.Context, t models.Traveler) (string, error)
	QueryTravelers(ctx context.Context, f TravelerFilter) ([]models.Traveler, error)
	UpdateTraveler(ctx context.Context, id string, upd TravelerUpdate) error
}
