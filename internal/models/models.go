package models

import "time"

// RequestStatus is the lifecycle stage of a carry request.
// pending -> accepted -> in-progress -> completed by convention;
// the store does not police transitions.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestAccepted   RequestStatus = "accepted"
	RequestInProgress RequestStatus = "in-progress"
	RequestCompleted  RequestStatus = "completed"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

type TravelerStatus string

const (
	TravelerActive   TravelerStatus = "active"
	TravelerInactive TravelerStatus = "inactive"
)

// Request is one item a requester wants carried from abroad.
// Traveler fields stay empty until a traveler accepts.
type Request struct {
	ID                  string        `json:"id,omitempty"`
	ItemName            string        `json:"item_name"`
	Description         string        `json:"description"`
	Budget              float64       `json:"budget"`
	Urgency             Urgency       `json:"urgency"`
	Quantity            int           `json:"quantity"`
	PreferredBrand      string        `json:"preferred_brand,omitempty"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`
	RequesterID         string        `json:"requester_id"`
	RequesterName       string        `json:"requester_name"`
	RequesterLocation   string        `json:"requester_location"`
	Status              RequestStatus `json:"status"`
	TravelerID          string        `json:"traveler_id,omitempty"`
	TravelerName        string        `json:"traveler_name,omitempty"`
	TravelDate          string        `json:"travel_date,omitempty"`
	ServiceFee          *float64      `json:"service_fee,omitempty"`
	TotalCost           *float64      `json:"total_cost,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Traveler is one person offering carry capacity on a given trip.
type Traveler struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	TravelDate     string         `json:"travel_date"`
	DepartureCity  string         `json:"departure_city"`
	ArrivalAirport string         `json:"arrival_airport"`
	PassportNumber string         `json:"passport_number"`
	MaxItems       int            `json:"max_items"`
	ServiceFee     float64        `json:"service_fee"`
	UserID         string         `json:"user_id"`
	Status         TravelerStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Event types published to the lifecycle topic.
const (
	EventRequestCreated       = "request.created"
	EventRequestStatusChanged = "request.status_changed"
)

// RequestEvent describes one lifecycle change on a request. Consumed by the
// materialized-view consumer and broadcast on the live feed.
type RequestEvent struct {
	Type       string        `json:"type"`
	RequestID  string        `json:"request_id"`
	Status     RequestStatus `json:"status"`
	TravelerID string        `json:"traveler_id,omitempty"`
	At         time.Time     `json:"at"`
}
