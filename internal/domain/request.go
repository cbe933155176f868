package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
)

// Terminal reports whether no further transitions are permitted.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type HistoryAction string

const (
	ActionSubmitted   HistoryAction = "submitted"
	ActionConfirmed   HistoryAction = "confirmed"
	ActionApproved    HistoryAction = "approved"
	ActionRejected    HistoryAction = "rejected"
	ActionTransferred HistoryAction = "transferred"
)

// HistoryEntry is one immutable line of a request's audit trail.
type HistoryEntry struct {
	ActorID   uuid.UUID     `json:"actor_id"`
	Action    HistoryAction `json:"action"`
	Comment   string        `json:"comment,omitempty"`
	ServiceID uuid.UUID     `json:"service_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// Request is the central workflow entity. Workflow is the service-id
// sequence snapshotted from the request type at creation time; History is
// append-only and never edited or truncated.
type Request struct {
	ID          uuid.UUID             `json:"id"`
	TypeID      uuid.UUID             `json:"type_id"`
	RequesterID uuid.UUID             `json:"requester_id"`
	FormData    map[string]FieldValue `json:"form_data"`
	Attachments []string              `json:"attachments,omitempty"`
	Status      RequestStatus         `json:"status"`
	Workflow    []uuid.UUID           `json:"workflow"`
	CurrentStep int                   `json:"current_step"`
	History     []HistoryEntry        `json:"history"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Archived    bool                  `json:"archived"`
}

// CurrentServiceID returns the service whose turn it is. Only meaningful
// while the request is non-terminal.
func (r *Request) CurrentServiceID() uuid.UUID {
	if r.CurrentStep < 0 || r.CurrentStep >= len(r.Workflow) {
		return uuid.Nil
	}
	return r.Workflow[r.CurrentStep]
}

// FinalStep reports whether the request sits at the last workflow entry.
func (r *Request) FinalStep() bool {
	return r.CurrentStep == len(r.Workflow)-1
}

// InWorkflow reports whether serviceID appears in the frozen workflow.
func (r *Request) InWorkflow(serviceID uuid.UUID) bool {
	for _, id := range r.Workflow {
		if id == serviceID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores can hand out snapshots that callers
// cannot use to mutate shared state.
func (r *Request) Clone() *Request {
	cp := *r
	cp.FormData = make(map[string]FieldValue, len(r.FormData))
	for k, v := range r.FormData {
		cp.FormData[k] = v
	}
	cp.Attachments = append([]string(nil), r.Attachments...)
	cp.Workflow = append([]uuid.UUID(nil), r.Workflow...)
	cp.History = append([]HistoryEntry(nil), r.History...)
	return &cp
}
