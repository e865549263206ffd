package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/crowdship/internal/models"
	"github.com/example/crowdship/internal/storage"
)

func newTestService() (*Service, *storage.MemoryStore) {
	mem := storage.NewMemoryStore()
	return NewService(mem, nil), mem
}

func pendingRequest(requesterID, item string) models.Request {
	return models.Request{
		ItemName:          item,
		Description:       "bring from abroad",
		Budget:            40,
		Urgency:           models.UrgencyNormal,
		Quantity:          1,
		RequesterID:       requesterID,
		RequesterName:     "Rita",
		RequesterLocation: "Colombo",
		Status:            models.RequestPending,
	}
}

func TestCreateRequestRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := pendingRequest("req-1", "matcha powder")
	in.PreferredBrand = "Ippodo"
	res := svc.CreateRequest(ctx, in)
	if !res.Success {
		t.Fatalf("create failed: %s", res.Error)
	}
	if res.Data == "" {
		t.Fatal("expected assigned id")
	}

	list := svc.ListRequestsForRequester(ctx, "req-1")
	if !list.Success {
		t.Fatalf("list failed: %s", list.Error)
	}
	if len(list.Data) != 1 {
		t.Fatalf("expected 1 request, got %d", len(list.Data))
	}
	got := list.Data[0]
	if got.ID != res.Data {
		t.Fatalf("id mismatch: %s vs %s", got.ID, res.Data)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected store-assigned timestamps")
	}
	if got.ItemName != in.ItemName || got.Budget != in.Budget || got.PreferredBrand != in.PreferredBrand ||
		got.Quantity != in.Quantity || got.RequesterLocation != in.RequesterLocation || got.Status != in.Status {
		t.Fatalf("stored fields do not match input: %+v", got)
	}
}

func TestListRequestsNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		res := svc.CreateRequest(ctx, pendingRequest("req-1", fmt.Sprintf("item-%d", i)))
		if !res.Success {
			t.Fatalf("create failed: %s", res.Error)
		}
		ids = append(ids, res.Data)
	}

	list := svc.ListRequests(ctx, "")
	if !list.Success {
		t.Fatalf("list failed: %s", list.Error)
	}
	if len(list.Data) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(list.Data))
	}
	for i, r := range list.Data {
		if want := ids[len(ids)-1-i]; r.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, r.ID)
		}
		if i > 0 && list.Data[i-1].CreatedAt.Before(r.CreatedAt) {
			t.Fatalf("creation times not non-increasing at position %d", i)
		}
	}
}

func TestListRequestsFiltersByRequester(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.CreateRequest(ctx, pendingRequest("req-1", "coffee"))
	svc.CreateRequest(ctx, pendingRequest("req-2", "tea"))

	list := svc.ListRequests(ctx, "req-2")
	if !list.Success || len(list.Data) != 1 || list.Data[0].RequesterID != "req-2" {
		t.Fatalf("expected only req-2's requests, got %+v", list.Data)
	}
}

func TestListAvailableRequestsOnlyPending(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pending := svc.CreateRequest(ctx, pendingRequest("req-1", "chocolate"))
	accepted := pendingRequest("req-1", "perfume")
	accepted.Status = models.RequestAccepted
	svc.CreateRequest(ctx, accepted)

	avail := svc.ListAvailableRequests(ctx)
	if !avail.Success {
		t.Fatalf("list failed: %s", avail.Error)
	}
	if len(avail.Data) != 1 || avail.Data[0].ID != pending.Data {
		t.Fatalf("expected only the pending request, got %+v", avail.Data)
	}
	for _, r := range avail.Data {
		if r.Status != models.RequestPending {
			t.Fatalf("non-pending request in available list: %+v", r)
		}
	}
}

func TestSetRequestStatusBindsTraveler(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	id := svc.CreateRequest(ctx, pendingRequest("req-1", "vitamins")).Data

	res := svc.SetRequestStatus(ctx, id, models.RequestAccepted, "trav-1", "Asha")
	if !res.Success {
		t.Fatalf("transition failed: %s", res.Error)
	}
	got, ok := mem.GetRequest(id)
	if !ok {
		t.Fatal("request vanished")
	}
	if got.Status != models.RequestAccepted || got.TravelerID != "trav-1" || got.TravelerName != "Asha" {
		t.Fatalf("accept did not bind traveler: %+v", got)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatal("update timestamp not refreshed")
	}
}

func TestSetRequestStatusWithoutTravelerLeavesFieldsUnset(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	id := svc.CreateRequest(ctx, pendingRequest("req-1", "snacks")).Data
	if res := svc.SetRequestStatus(ctx, id, models.RequestAccepted, "", ""); !res.Success {
		t.Fatalf("transition failed: %s", res.Error)
	}
	got, _ := mem.GetRequest(id)
	if got.TravelerID != "" || got.TravelerName != "" {
		t.Fatalf("traveler fields should stay unset: %+v", got)
	}
}

func TestAvailableListScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.CreateRequest(ctx, pendingRequest("req-0", "older item"))

	req := pendingRequest("req-1", "headphones")
	req.Budget = 25
	req.Quantity = 2
	id := svc.CreateRequest(ctx, req).Data

	avail := svc.ListAvailableRequests(ctx)
	if !avail.Success || len(avail.Data) == 0 || avail.Data[0].ID != id {
		t.Fatalf("new request should appear first in available list: %+v", avail.Data)
	}

	if res := svc.SetRequestStatus(ctx, id, models.RequestAccepted, "trav1", "Asha"); !res.Success {
		t.Fatalf("accept failed: %s", res.Error)
	}
	avail = svc.ListAvailableRequests(ctx)
	for _, r := range avail.Data {
		if r.ID == id {
			t.Fatal("accepted request still listed as available")
		}
	}
}

// Two concurrent accepts on the same pending request are not serialized by
// anything; both succeed and the second write wins. This pins the observed
// behavior, it does not endorse it.
func TestSetRequestStatusLastWriteWins(t *testing.T) {
	svc, mem := newTestService()
	ctx := context.Background()

	id := svc.CreateRequest(ctx, pendingRequest("req-1", "camera lens")).Data

	var wg sync.WaitGroup
	results := make([]Result[struct{}], 2)
	travelers := []struct{ id, name string }{{"trav-1", "Asha"}, {"trav-2", "Ben"}}
	for i := range travelers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.SetRequestStatus(ctx, id, models.RequestAccepted, travelers[i].id, travelers[i].name)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !r.Success {
			t.Fatalf("accept %d failed: %s", i, r.Error)
		}
	}
	got, _ := mem.GetRequest(id)
	if got.Status != models.RequestAccepted {
		t.Fatalf("expected accepted, got %s", got.Status)
	}
	if got.TravelerID != "trav-1" && got.TravelerID != "trav-2" {
		t.Fatalf("traveler should be one of the two writers, got %q", got.TravelerID)
	}
}

// faultStore fails every operation with a fixed error.
type faultStore struct{ err error }

func (f *faultStore) InsertRequest(ctx context.Context, req models.Request) (string, error) {
	return "", f.err
}
func (f *faultStore) QueryRequests(ctx context.Context, _ storage.RequestFilter) ([]models.Request, error) {
	return nil, f.err
}
func (f *faultStore) UpdateRequestStatus(ctx context.Context, id string, _ storage.RequestStatusUpdate) error {
	return f.err
}
func (f *faultStore) InsertTraveler(ctx context.Context, t models.Traveler) (string, error) {
	return "", f.err
}
func (f *faultStore) QueryTravelers(ctx context.Context, _ storage.TravelerFilter) ([]models.Traveler, error) {
	return nil, f.err
}
func (f *faultStore) UpdateTraveler(ctx context.Context, id string, _ storage.TravelerUpdate) error {
	return f.err
}

func TestFailureMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: dial tcp refused", storage.ErrUnavailable), "Database temporarily unavailable. Please try again in a few moments."},
		{fmt.Errorf("%w: role denied", storage.ErrPermissionDenied), "Access denied. Please check your authentication."},
		{fmt.Errorf("%w: relation missing", storage.ErrNotFound), "Database not found. Please check your configuration."},
		{errors.New("split brain"), "Database error: split brain"},
	}
	ctx := context.Background()
	for _, c := range cases {
		svc := NewService(&faultStore{err: c.err}, nil)
		res := svc.CreateRequest(ctx, pendingRequest("req-1", "x"))
		if res.Success {
			t.Fatalf("expected failure for %v", c.err)
		}
		if res.Error != c.want {
			t.Fatalf("message mismatch for %v:\n got  %q\n want %q", c.err, res.Error, c.want)
		}
		if list := svc.ListAvailableRequests(ctx); list.Success || list.Error != c.want {
			t.Fatalf("query path message mismatch for %v: %q", c.err, list.Error)
		}
	}
}
