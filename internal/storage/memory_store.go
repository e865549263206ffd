package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/crowdship/internal/models"
)

// MemoryStore keeps both collections in process memory. Used by tests and
// as the fallback when no PG_DSN is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[string]models.Request
	travelers map[string]models.Traveler
	seq       map[string]int64 // insertion order, breaks created-at ties
	nextSeq   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]models.Request),
		travelers: make(map[string]models.Traveler),
		seq:       make(map[string]int64),
	}
}

func (m *MemoryStore) InsertRequest(ctx context.Context, req models.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	req.ID = uuid.NewString()
	req.CreatedAt = now
	req.UpdatedAt = now
	m.requests[req.ID] = req
	m.nextSeq++
	m.seq[req.ID] = m.nextSeq
	return req.ID, nil
}

func (m *MemoryStore) QueryRequests(ctx context.Context, f RequestFilter) ([]models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Request, 0, len(m.requests))
	for _, r := range m.requests {
		if f.RequesterID != "" && r.RequesterID != f.RequesterID {
			continue
		}
		if f.TravelerID != "" && r.TravelerID != f.TravelerID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	m.sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) UpdateRequestStatus(ctx context.Context, id string, upd RequestStatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	r.Status = upd.Status
	if upd.TravelerID != "" {
		r.TravelerID = upd.TravelerID
	}
	if upd.TravelerName != "" {
		r.TravelerName = upd.TravelerName
	}
	r.UpdatedAt = time.Now()
	m.requests[id] = r
	return nil
}

func (m *MemoryStore) InsertTraveler(ctx context.Context, t models.Traveler) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.travelers[t.ID] = t
	m.nextSeq++
	m.seq[t.ID] = m.nextSeq
	return t.ID, nil
}

func (m *MemoryStore) QueryTravelers(ctx context.Context, f TravelerFilter) ([]models.Traveler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Traveler, 0, len(m.travelers))
	for _, t := range m.travelers {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return m.seq[out[i].ID] > m.seq[out[j].ID]
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateTraveler(ctx context.Context, id string, upd TravelerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.travelers[id]
	if !ok {
		return fmt.Errorf("%w: traveler %s", ErrNotFound, id)
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Email != nil {
		t.Email = *upd.Email
	}
	if upd.Phone != nil {
		t.Phone = *upd.Phone
	}
	if upd.TravelDate != nil {
		t.TravelDate = *upd.TravelDate
	}
	if upd.DepartureCity != nil {
		t.DepartureCity = *upd.DepartureCity
	}
	if upd.ArrivalAirport != nil {
		t.ArrivalAirport = *upd.ArrivalAirport
	}
	if upd.PassportNumber != nil {
		t.PassportNumber = *upd.PassportNumber
	}
	if upd.MaxItems != nil {
		t.MaxItems = *upd.MaxItems
	}
	if upd.ServiceFee != nil {
		t.ServiceFee = *upd.ServiceFee
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	t.UpdatedAt = time.Now()
	m.travelers[id] = t
	return nil
}

// GetRequest is a test convenience, not part of the Store contract.
func (m *MemoryStore) GetRequest(id string) (models.Request, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok
}

// GetTraveler is a test convenience, not part of the Store contract.
func (m *MemoryStore) GetTraveler(id string) (models.Traveler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.travelers[id]
	return t, ok
}

func (m *MemoryStore) sortNewestFirst(rs []models.Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return m.seq[rs[i].ID] > m.seq[rs[j].ID]
	})
}
