package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reimbursementType() *domain.RequestType {
	return &domain.RequestType{
		ID:       uuid.New(),
		Title:    "Expense Reimbursement",
		Category: "finance",
		Workflow: []uuid.UUID{uuid.New(), uuid.New()},
		RequiredFields: []domain.FieldSpec{
			{Name: "amount", Label: "Amount", Type: domain.FieldNumber},
			{Name: "reason", Label: "Reason", Type: domain.FieldString},
			{Name: "cost_center", Label: "Cost center", Type: domain.FieldEnum, Options: []string{"events", "operations"}},
		},
		AttachmentsRequired: true,
		AttachmentKinds:     []string{"receipt"},
		IsActive:            true,
	}
}

func TestValidateForm(t *testing.T) {
	rt := reimbursementType()

	valid := map[string]domain.FieldValue{
		"amount":      {Type: domain.FieldNumber, Number: 120.50},
		"reason":      {Type: domain.FieldString, Text: "conference travel"},
		"cost_center": {Type: domain.FieldEnum, Option: "events"},
	}

	t.Run("accepts complete form", func(t *testing.T) {
		assert.NoError(t, ValidateForm(rt, valid))
	})

	t.Run("lists every missing field", func(t *testing.T) {
		err := ValidateForm(rt, map[string]domain.FieldValue{
			"amount": {Type: domain.FieldNumber, Number: 10},
		})
		require.True(t, domain.IsKind(err, domain.KindValidation))

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.ElementsMatch(t, []string{"reason", "cost_center"}, de.MissingFields)
	})

	t.Run("rejects empty string value", func(t *testing.T) {
		form := cloneForm(valid)
		form["reason"] = domain.FieldValue{Type: domain.FieldString, Text: ""}
		err := ValidateForm(rt, form)
		require.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("rejects type mismatch", func(t *testing.T) {
		form := cloneForm(valid)
		form["amount"] = domain.FieldValue{Type: domain.FieldString, Text: "a lot"}
		err := ValidateForm(rt, form)
		require.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("rejects unknown enum option", func(t *testing.T) {
		form := cloneForm(valid)
		form["cost_center"] = domain.FieldValue{Type: domain.FieldEnum, Option: "slush_fund"}
		err := ValidateForm(rt, form)
		require.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("zero number is a value", func(t *testing.T) {
		form := cloneForm(valid)
		form["amount"] = domain.FieldValue{Type: domain.FieldNumber, Number: 0}
		assert.NoError(t, ValidateForm(rt, form))
	})

	t.Run("date fields must be set", func(t *testing.T) {
		dated := &domain.RequestType{
			ID:       uuid.New(),
			Title:    "Room Change",
			IsActive: true,
			RequiredFields: []domain.FieldSpec{
				{Name: "move_date", Type: domain.FieldDate},
			},
		}
		err := ValidateForm(dated, map[string]domain.FieldValue{
			"move_date": {Type: domain.FieldDate},
		})
		require.True(t, domain.IsKind(err, domain.KindValidation))

		assert.NoError(t, ValidateForm(dated, map[string]domain.FieldValue{
			"move_date": {Type: domain.FieldDate, Date: time.Now()},
		}))
	})
}

func TestValidateAttachments(t *testing.T) {
	rt := reimbursementType()

	err := ValidateAttachments(rt, nil)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	assert.NoError(t, ValidateAttachments(rt, []string{"blob://receipt-1"}))

	rt.AttachmentsRequired = false
	assert.NoError(t, ValidateAttachments(rt, nil))
}

func TestCatalog_ActiveType(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := New(mem)

	active := reimbursementType()
	require.NoError(t, mem.CreateRequestType(ctx, active))

	retired := reimbursementType()
	retired.ID = uuid.New()
	retired.IsActive = false
	require.NoError(t, mem.CreateRequestType(ctx, retired))

	got, err := c.ActiveType(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.Title, got.Title)

	_, err = c.ActiveType(ctx, retired.ID)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = c.ActiveType(ctx, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCatalog_ListSortsAndFilters(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := New(mem)

	a := reimbursementType()
	a.Category = "facilities"
	a.Title = "Key Request"
	require.NoError(t, mem.CreateRequestType(ctx, a))

	b := reimbursementType()
	b.ID = uuid.New()
	require.NoError(t, mem.CreateRequestType(ctx, b))

	inactive := reimbursementType()
	inactive.ID = uuid.New()
	inactive.IsActive = false
	require.NoError(t, mem.CreateRequestType(ctx, inactive))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Key Request", list[0].Title)
	assert.Equal(t, "Expense Reimbursement", list[1].Title)
}

func cloneForm(form map[string]domain.FieldValue) map[string]domain.FieldValue {
	cp := make(map[string]domain.FieldValue, len(form))
	for k, v := range form {
		cp[k] = v
	}
	return cp
}
