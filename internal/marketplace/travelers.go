package marketplace

import (
	"context"

	"github.com/example/crowdship/internal/models"
	"github.com/example/crowdship/internal/storage"
)

// CreateTraveler persists a new traveler profile; the store assigns the
// identifier and both timestamps. Returns the new identifier.
func (s *Service) CreateTraveler(ctx context.Context, t models.Traveler) Result[string] {
	t.ID = ""
	id, err := s.Store.InsertTraveler(ctx, t)
	if err != nil {
		s.logFault("create traveler", err)
		return Fail[string](failureMessage(err))
	}
	return Ok(id)
}

// ListActiveTravelers returns travelers with status active, newest first.
func (s *Service) ListActiveTravelers(ctx context.Context) Result[[]models.Traveler] {
	ts, err := s.Store.QueryTravelers(ctx, storage.TravelerFilter{Status: models.TravelerActive})
	if err != nil {
		s.logFault("list active travelers", err)
		return Fail[[]models.Traveler](failureMessage(err))
	}
	return Ok(ts)
}

// FindTravelerByUserID looks up the traveler profile for an external auth
// subject. A miss is a success carrying nil, not a failure. At most one
// profile is expected per subject; if the store holds more, only the newest
// is consumed.
func (s *Service) FindTravelerByUserID(ctx context.Context, userID string) Result[*models.Traveler] {
	ts, err := s.Store.QueryTravelers(ctx, storage.TravelerFilter{UserID: userID, Limit: 1})
	if err != nil {
		s.logFault("find traveler by user id", err)
		return Fail[*models.Traveler](failureMessage(err))
	}
	if len(ts) == 0 {
		return Ok[*models.Traveler](nil)
	}
	return Ok(&ts[0])
}

// UpdateTraveler merges the supplied fields into the stored profile and
// refreshes the update timestamp. Nil fields are left untouched.
func (s *Service) UpdateTraveler(ctx context.Context, travelerID string, upd storage.TravelerUpdate) Result[struct{}] {
	if err := s.Store.UpdateTraveler(ctx, travelerID, upd); err != nil {
		s.logFault("update traveler", err)
		return Fail[struct{}](failureMessage(err))
	}
	return Ok(struct{}{})
}
