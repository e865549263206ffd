package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/crowdship/internal/models"
)

// PostgresStore persists both collections in Postgres. Identifiers are
// generated client-side; audit timestamps come from the database clock so
// ordering holds across application instances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, classify(err)
	}
	return &PostgresStore{db: db}, nil
}

const requestColumns = `id, item_name, description, budget, urgency, quantity,
	preferred_brand, special_instructions, requester_id, requester_name,
	requester_location, status, traveler_id, traveler_name, travel_date,
	service_fee, total_cost, created_at, updated_at`

func (p *PostgresStore) InsertRequest(ctx context.Context, req models.Request) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `INSERT INTO requests(id, item_name, description, budget, urgency, quantity,
		preferred_brand, special_instructions, requester_id, requester_name, requester_location, status,
		traveler_id, traveler_name, travel_date, service_fee, total_cost, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())`,
		id, req.ItemName, req.Description, req.Budget, req.Urgency, req.Quantity,
		req.PreferredBrand, req.SpecialInstructions, req.RequesterID, req.RequesterName,
		req.RequesterLocation, req.Status, req.TravelerID, req.TravelerName, req.TravelDate,
		req.ServiceFee, req.TotalCost)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

func (p *PostgresStore) QueryRequests(ctx context.Context, f RequestFilter) ([]models.Request, error) {
	where := []string{}
	args := []any{}
	if f.RequesterID != "" {
		args = append(args, f.RequesterID)
		where = append(where, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if f.TravelerID != "" {
		args = append(args, f.TravelerID)
		where = append(where, fmt.Sprintf("traveler_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := "SELECT " + requestColumns + " FROM requests"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []models.Request{}
	for rows.Next() {
		var r models.Request
		var brand, instr, travID, travName, travDate sql.NullString
		if err := rows.Scan(&r.ID, &r.ItemName, &r.Description, &r.Budget, &r.Urgency, &r.Quantity,
			&brand, &instr, &r.RequesterID, &r.RequesterName, &r.RequesterLocation, &r.Status,
			&travID, &travName, &travDate, &r.ServiceFee, &r.TotalCost, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, classify(err)
		}
		r.PreferredBrand = brand.String
		r.SpecialInstructions = instr.String
		r.TravelerID = travID.String
		r.TravelerName = travName.String
		r.TravelDate = travDate.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (p *PostgresStore) UpdateRequestStatus(ctx context.Context, id string, upd RequestStatusUpdate) error {
	set := []string{"status=$1", "updated_at=now()"}
	args := []any{upd.Status}
	if upd.TravelerID != "" {
		args = append(args, upd.TravelerID)
		set = append(set, fmt.Sprintf("traveler_id=$%d", len(args)))
	}
	if upd.TravelerName != "" {
		args = append(args, upd.TravelerName)
		set = append(set, fmt.Sprintf("traveler_name=$%d", len(args)))
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE requests SET %s WHERE id=$%d", strings.Join(set, ", "), len(args))
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return nil
}

func (p *PostgresStore) InsertTraveler(ctx context.Context, t models.Traveler) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `INSERT INTO travelers(id, name, email, phone, travel_date, departure_city,
		arrival_airport, passport_number, max_items, service_fee, user_id, status, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())`,
		id, t.Name, t.Email, t.Phone, t.TravelDate, t.DepartureCity,
		t.ArrivalAirport, t.PassportNumber, t.MaxItems, t.ServiceFee, t.UserID, t.Status)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

func (p *PostgresStore) QueryTravelers(ctx context.Context, f TravelerFilter) ([]models.Traveler, error) {
	where := []string{}
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := `SELECT id, name, email, phone, travel_date, departure_city, arrival_airport,
		passport_number, max_items, service_fee, user_id, status, created_at, updated_at FROM travelers`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []models.Traveler{}
	for rows.Next() {
		var t models.Traveler
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.TravelDate, &t.DepartureCity,
			&t.ArrivalAirport, &t.PassportNumber, &t.MaxItems, &t.ServiceFee, &t.UserID, &t.Status,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, classify(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (p *PostgresStore) UpdateTraveler(ctx context.Context, id string, upd TravelerUpdate) error {
	set := []string{"updated_at=now()"}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.TravelDate != nil {
		add("travel_date", *upd.TravelDate)
	}
	if upd.DepartureCity != nil {
		add("departure_city", *upd.DepartureCity)
	}
	if upd.ArrivalAirport != nil {
		add("arrival_airport", *upd.ArrivalAirport)
	}
	if upd.PassportNumber != nil {
		add("passport_number", *upd.PassportNumber)
	}
	if upd.MaxItems != nil {
		add("max_items", *upd.MaxItems)
	}
	if upd.ServiceFee != nil {
		add("service_fee", *upd.ServiceFee)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE travelers SET %s WHERE id=$%d", strings.Join(set, ", "), len(args))
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: traveler %s", ErrNotFound, id)
	}
	return nil
}

// classify maps driver faults onto the store error taxonomy while keeping
// the underlying detail in the message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "28" || pqErr.Code == "42501":
			// invalid_authorization_specification / insufficient_privilege
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		case pqErr.Code == "42P01" || pqErr.Code.Class() == "3D":
			// undefined_table / invalid_catalog_name
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57":
			// connection_exception / operator_intervention
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}
