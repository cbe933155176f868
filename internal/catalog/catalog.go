package catalog

import (
	"context"
	"sort"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
)

// Catalog serves request type templates and validates submitted form data
// against a template's declared field schema.
type Catalog struct {
	types store.RequestTypeStore
}

func New(types store.RequestTypeStore) *Catalog {
	return &Catalog{types: types}
}

// ActiveType returns the template if it exists and is active.
func (c *Catalog) ActiveType(ctx context.Context, id uuid.UUID) (*domain.RequestType, error) {
	rt, err := c.types.GetRequestType(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rt.IsActive {
		return nil, domain.ValidationError("request type %q is not active", rt.Title)
	}
	return rt, nil
}

// List returns active templates sorted by category then title.
func (c *Catalog) List(ctx context.Context) ([]*domain.RequestType, error) {
	all, err := c.types.ListRequestTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.RequestType, 0, len(all))
	for _, rt := range all {
		if rt.IsActive {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// ValidateForm checks form against the template's required fields. Every
// declared field must be present, non-empty, type-matched, and enum
// values must be one of the declared options. The returned error lists
// all offending fields at once.
func ValidateForm(rt *domain.RequestType, form map[string]domain.FieldValue) error {
	var missing []string
	for _, spec := range rt.RequiredFields {
		val, ok := form[spec.Name]
		if !ok || val.Empty() {
			missing = append(missing, spec.Name)
			continue
		}
		if val.Type != spec.Type {
			missing = append(missing, spec.Name)
			continue
		}
		if spec.Type == domain.FieldEnum && !validOption(spec.Options, val.Option) {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return &domain.Error{
			Kind:          domain.KindValidation,
			Message:       "required fields missing or invalid",
			MissingFields: missing,
		}
	}
	return nil
}

// ValidateAttachments enforces the template's attachment requirement.
func ValidateAttachments(rt *domain.RequestType, attachments []string) error {
	if rt.AttachmentsRequired && len(attachments) == 0 {
		return domain.ValidationError("request type %q requires at least one attachment", rt.Title)
	}
	return nil
}

func validOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
