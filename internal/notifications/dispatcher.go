package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/queue"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// subset of TaskQueue.
type queueService interface {
	Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error)
}

// Dispatcher turns domain events into rendered emails. It runs in the
// worker process: events arrive through the task queue, get resolved to
// recipients here, and the rendered mail goes back on the queue for SES
// delivery. Per-recipient failures are logged, not returned, so a bad
// address cannot poison the whole event.
type Dispatcher struct {
	store     store.Store
	queue     queueService
	templates *template.Template
}

func NewDispatcher(s store.Store, q queueService, tmpl *template.Template) *Dispatcher {
	return &Dispatcher{
		store:     s,
		queue:     q,
		templates: tmpl,
	}
}

// HandleEvent is the queue.EventHandler for dequeued domain events.
func (d *Dispatcher) HandleEvent(ctx context.Context, eventType string, data json.RawMessage) error {
	switch eventType {
	case events.TypeRequestCreated:
		var e events.RequestCreated
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return d.requestCreated(ctx, e)
	case events.TypeRequestTransitioned:
		var e events.RequestTransitioned
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return d.requestTransitioned(ctx, e)
	case events.TypeRequestResolved:
		var e events.RequestResolved
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return d.requestResolved(ctx, e)
	case events.TypeBookingCreated:
		var e events.BookingCreated
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return d.bookingEvent(ctx, "booking_created", e.Booking)
	case events.TypeBookingCancelled:
		var e events.BookingCancelled
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal %s: %w", eventType, err)
		}
		return d.bookingEvent(ctx, "booking_cancelled", e.Booking)
	default:
		logging.Warn("unknown event type, dropping", "type", eventType)
		return nil
	}
}

// the head of the first workflow service hears about new arrivals
func (d *Dispatcher) requestCreated(ctx context.Context, e events.RequestCreated) error {
	head, err := d.serviceHead(ctx, e.Request.CurrentServiceID())
	if err != nil {
		return err
	}
	d.send(ctx, head, "request_created", d.requestData(ctx, e.Request, head, ""))
	return nil
}

// the incoming service head and the requester both hear about moves
func (d *Dispatcher) requestTransitioned(ctx context.Context, e events.RequestTransitioned) error {
	requester, err := d.store.GetUser(ctx, e.Request.RequesterID)
	if err != nil {
		return err
	}
	d.send(ctx, requester, "request_transitioned", d.requestData(ctx, e.Request, requester, string(e.Action)))

	head, err := d.serviceHead(ctx, e.Request.CurrentServiceID())
	if err != nil {
		logging.Error("failed to resolve incoming service head", "request_id", e.Request.ID, "error", err)
		return nil
	}
	if head.ID != requester.ID {
		d.send(ctx, head, "request_transitioned", d.requestData(ctx, e.Request, head, string(e.Action)))
	}
	return nil
}

func (d *Dispatcher) requestResolved(ctx context.Context, e events.RequestResolved) error {
	requester, err := d.store.GetUser(ctx, e.Request.RequesterID)
	if err != nil {
		return err
	}
	data := d.requestData(ctx, e.Request, requester, "")
	data["Status"] = string(e.Status)
	d.send(ctx, requester, "request_resolved", data)
	return nil
}

func (d *Dispatcher) bookingEvent(ctx context.Context, tmpl string, b domain.Booking) error {
	// the requester's own cancellation needs no email
	if tmpl == "booking_cancelled" && b.CancelledBy != nil && *b.CancelledBy == b.RequesterID {
		return nil
	}

	requester, err := d.store.GetUser(ctx, b.RequesterID)
	if err != nil {
		return err
	}
	resource, err := d.store.GetResource(ctx, b.ResourceID)
	if err != nil {
		return err
	}

	d.send(ctx, requester, tmpl, map[string]interface{}{
		"RecipientName": requester.DisplayName,
		"ResourceName":  resource.Name,
		"Start":         b.StartTime.Format(time.RFC1123),
		"End":           b.EndTime.Format(time.RFC1123),
	})
	return nil
}

func (d *Dispatcher) requestData(ctx context.Context, r *domain.Request, recipient *domain.User, action string) map[string]interface{} {
	title := "service"
	if rt, err := d.store.GetRequestType(ctx, r.TypeID); err == nil {
		title = rt.Title
	}
	return map[string]interface{}{
		"RecipientName": recipient.DisplayName,
		"TypeTitle":     title,
		"RequestID":     r.ID.String(),
		"Action":        action,
	}
}

func (d *Dispatcher) serviceHead(ctx context.Context, serviceID uuid.UUID) (*domain.User, error) {
	svc, err := d.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service %s: %w", serviceID, err)
	}
	return d.store.GetUser(ctx, svc.HeadID)
}

func (d *Dispatcher) send(ctx context.Context, to *domain.User, tmpl string, data map[string]interface{}) {
	if !to.IsActive || to.Email == "" {
		return
	}

	subject, body, err := d.renderTemplate(tmpl, data)
	if err != nil {
		logging.Error("failed to render notification template", "template", tmpl, "error", err)
		return
	}

	if _, err := d.queue.Enqueue(queue.TypeEmailDelivery, queue.EmailDeliveryPayload{
		To:      to.Email,
		Subject: subject,
		Body:    body,
	}); err != nil {
		logging.Error("failed to enqueue notification email", "to", to.Email, "template", tmpl, "error", err)
	}
}

// {{define "name:subject"}} and {{define "name:body"}}
func (d *Dispatcher) renderTemplate(name string, data map[string]interface{}) (subject, body string, err error) {
	var subjectBuf bytes.Buffer
	if err = d.templates.ExecuteTemplate(&subjectBuf, name+":subject", data); err != nil {
		return "", "", fmt.Errorf("render subject for %q: %w", name, err)
	}

	var bodyBuf bytes.Buffer
	if err = d.templates.ExecuteTemplate(&bodyBuf, name+":body", data); err != nil {
		return "", "", fmt.Errorf("render body for %q: %w", name, err)
	}

	return subjectBuf.String(), bodyBuf.String(), nil
}
