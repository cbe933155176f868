package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a deploy-time enumerated tag. The role set is fixed; there are
// no per-user permission overrides.
type Role string

const (
	RoleSuperadmin    Role = "superadmin"
	RoleAdmin         Role = "admin"
	RoleServiceHead   Role = "service_head"
	RoleServiceMember Role = "service_member"
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
)

// User is owned by the identity subsystem; everything else references it
// by id only.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        Role       `json:"role"`
	ServiceID   *uuid.UUID `json:"service_id,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// Service is an organizational unit. Services are the nodes a request
// workflow routes through; membership is recorded on the user side.
type Service struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	HeadID   uuid.UUID `json:"head_id"`
	IsActive bool      `json:"is_active"`
}

// FieldType tags a form field value. Form data is a typed mapping, not an
// open dictionary.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldEnum   FieldType = "enum"
)

// FieldSpec declares one required form field on a request type.
type FieldSpec struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"` // enum only
}

// FieldValue is a tagged value; exactly the member matching Type is set.
type FieldValue struct {
	Type   FieldType `json:"type"`
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
	Date   time.Time `json:"date,omitempty"`
	Option string    `json:"option,omitempty"`
}

// Empty reports whether the value carries no content for its type.
func (v FieldValue) Empty() bool {
	switch v.Type {
	case FieldString:
		return v.Text == ""
	case FieldDate:
		return v.Date.IsZero()
	case FieldEnum:
		return v.Option == ""
	case FieldNumber:
		return false
	}
	return true
}

// RequestType is a catalog template. Once a live request references it,
// the copy frozen into the request is what governs that request; edits
// here never reach in-flight requests.
type RequestType struct {
	ID                   uuid.UUID     `json:"id"`
	Title                string        `json:"title"`
	Category             string        `json:"category"`
	Workflow             []uuid.UUID   `json:"workflow"`
	RequiredFields       []FieldSpec   `json:"required_fields"`
	AttachmentsRequired  bool          `json:"attachments_required"`
	AttachmentKinds      []string      `json:"attachment_kinds,omitempty"`
	EstimatedProcessTime time.Duration `json:"estimated_process_time"`
	IsActive             bool          `json:"is_active"`
}
