package workflow

import (
	"context"
	"time"

	"github.com/campusdesk/cd-backend/internal/catalog"
	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/rbac"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
)

// Action is a workflow transition requested by a caller.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionTransfer Action = "transfer"
)

// actionPermissions maps each transition to the permission it requires.
var actionPermissions = map[Action]string{
	ActionConfirm:  rbac.ConfirmRequests,
	ActionApprove:  rbac.ApproveRequests,
	ActionReject:   rbac.RejectRequests,
	ActionTransfer: rbac.TransferRequests,
}

// Engine owns the request lifecycle. Every transition runs inside the
// store's per-request lock, so two concurrent calls on the same request
// cannot both succeed from the same pre-transition state.
type Engine struct {
	store     store.Store
	catalog   *catalog.Catalog
	publisher events.Publisher
	now       func() time.Time
}

func New(s store.Store, c *catalog.Catalog, p events.Publisher) *Engine {
	return &Engine{store: s, catalog: c, publisher: p, now: time.Now}
}

// CreateRequest validates form data against the request type, snapshots
// the type's workflow into the new request and records the submission in
// its history.
func (e *Engine) CreateRequest(ctx context.Context, requesterID, typeID uuid.UUID, form map[string]domain.FieldValue, attachments []string) (*domain.Request, error) {
	requester, err := e.store.GetUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !rbac.HasPermission(requester, rbac.CreateRequests) {
		return nil, domain.UnauthorizedError("user may not create requests")
	}

	rt, err := e.catalog.ActiveType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if len(rt.Workflow) == 0 {
		return nil, domain.ValidationError("request type %q has an empty workflow", rt.Title)
	}
	if err := catalog.ValidateForm(rt, form); err != nil {
		return nil, err
	}
	if err := catalog.ValidateAttachments(rt, attachments); err != nil {
		return nil, err
	}

	now := e.now()
	req := &domain.Request{
		ID:          uuid.New(),
		TypeID:      rt.ID,
		RequesterID: requesterID,
		FormData:    form,
		Attachments: attachments,
		Status:      domain.StatusPending,
		Workflow:    append([]uuid.UUID(nil), rt.Workflow...),
		CurrentStep: 0,
		History: []domain.HistoryEntry{{
			ActorID:   requesterID,
			Action:    domain.ActionSubmitted,
			ServiceID: rt.Workflow[0],
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	logging.Info("request created",
		"request_id", req.ID,
		"type", rt.Title,
		"requester_id", requesterID)
	e.publisher.Publish(ctx, events.RequestCreated{Request: req})
	return req, nil
}

// ProcessRequest applies one transition on behalf of actorID. The whole
// check-and-transition, including the history append, happens under the
// request's entity lock; a violated precondition leaves state untouched.
func (e *Engine) ProcessRequest(ctx context.Context, actorID, requestID uuid.UUID, action Action, comment string) (*domain.Request, error) {
	actor, err := e.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	required, ok := actionPermissions[action]
	if !ok {
		return nil, domain.ValidationError("unknown action %q", action)
	}

	var fromStep, toStep int
	var resolved bool

	updated, err := e.store.UpdateRequest(ctx, requestID, func(r *domain.Request) error {
		if r.Status.Terminal() {
			return domain.InvalidStateError("request is already %s", r.Status)
		}
		if err := e.authorizeActor(actor, r, required); err != nil {
			return err
		}

		fromStep = r.CurrentStep
		serviceID := r.CurrentServiceID()

		switch action {
		case ActionConfirm, ActionTransfer:
			if r.FinalStep() {
				return domain.InvalidStateError("final step must be approved or rejected, not passed on")
			}
			r.CurrentStep++
			r.Status = domain.StatusInProgress
		case ActionApprove:
			if !r.FinalStep() {
				return domain.InvalidStateError("only the final service may approve (step %d of %d)", r.CurrentStep+1, len(r.Workflow))
			}
			r.Status = domain.StatusApproved
			resolved = true
		case ActionReject:
			// any service currently holding the request may reject,
			// short-circuiting the remaining steps
			r.Status = domain.StatusRejected
			resolved = true
		}

		toStep = r.CurrentStep
		r.History = append(r.History, domain.HistoryEntry{
			ActorID:   actorID,
			Action:    historyAction(action),
			Comment:   comment,
			ServiceID: serviceID,
			Timestamp: e.now(),
		})
		r.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("request processed",
		"request_id", requestID,
		"action", action,
		"actor_id", actorID,
		"status", updated.Status)

	if resolved {
		e.publisher.Publish(ctx, events.RequestResolved{Request: updated, Status: updated.Status})
	} else {
		e.publisher.Publish(ctx, events.RequestTransitioned{
			Request:  updated,
			FromStep: fromStep,
			ToStep:   toStep,
			Action:   historyAction(action),
		})
	}
	return updated, nil
}

// TransferRequest reroutes a request to another service in its frozen
// workflow. Targets outside the pre-declared pipeline are refused; ad-hoc
// routing is deliberately unsupported.
func (e *Engine) TransferRequest(ctx context.Context, actorID, requestID, targetServiceID uuid.UUID) (*domain.Request, error) {
	actor, err := e.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var fromStep, toStep int

	updated, err := e.store.UpdateRequest(ctx, requestID, func(r *domain.Request) error {
		if r.Status.Terminal() {
			return domain.InvalidStateError("request is already %s", r.Status)
		}
		if err := e.authorizeActor(actor, r, rbac.TransferRequests); err != nil {
			return err
		}

		target := -1
		for i, id := range r.Workflow {
			if id == targetServiceID {
				target = i
				break
			}
		}
		if target == -1 {
			return domain.NewError(domain.KindInvalidTarget, "service %s is not in this request's workflow", targetServiceID)
		}
		if target == r.CurrentStep {
			return domain.InvalidStateError("request is already at service %s", targetServiceID)
		}

		fromStep = r.CurrentStep
		serviceID := r.CurrentServiceID()
		r.CurrentStep = target
		toStep = target
		r.Status = domain.StatusInProgress
		r.History = append(r.History, domain.HistoryEntry{
			ActorID:   actorID,
			Action:    domain.ActionTransferred,
			ServiceID: serviceID,
			Timestamp: e.now(),
		})
		r.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("request transferred",
		"request_id", requestID,
		"target_service_id", targetServiceID,
		"actor_id", actorID)
	e.publisher.Publish(ctx, events.RequestTransitioned{
		Request:  updated,
		FromStep: fromStep,
		ToStep:   toStep,
		Action:   domain.ActionTransferred,
	})
	return updated, nil
}

// GetRequest returns a single request if the user may see it under the
// same visibility rule as GetRequestsVisibleTo.
func (e *Engine) GetRequest(ctx context.Context, userID, requestID uuid.UUID) (*domain.Request, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rbac.HasPermission(user, rbac.ViewAllRequests) {
		return r, nil
	}
	if r.RequesterID == userID {
		return r, nil
	}
	if user.ServiceID != nil && rbac.HasPermission(user, rbac.ViewServiceRequests) && r.CurrentServiceID() == *user.ServiceID {
		return r, nil
	}
	// existence is not leaked to users outside the visibility boundary
	return nil, domain.NotFoundError("request")
}

// GetRequestsVisibleTo enforces the server-side read authorization
// boundary: admins see everything, service roles see their service's
// queue plus their own submissions, everyone else sees only their own.
func (e *Engine) GetRequestsVisibleTo(ctx context.Context, userID uuid.UUID) ([]*domain.Request, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if rbac.HasPermission(user, rbac.ViewAllRequests) {
		return e.store.ListRequests(ctx, store.RequestFilter{})
	}

	own, err := e.store.ListRequests(ctx, store.RequestFilter{RequesterID: &user.ID})
	if err != nil {
		return nil, err
	}

	if user.ServiceID == nil || !rbac.HasPermission(user, rbac.ViewServiceRequests) {
		return own, nil
	}

	queue, err := e.store.ListRequests(ctx, store.RequestFilter{CurrentServiceID: user.ServiceID})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(own))
	for _, r := range own {
		seen[r.ID] = true
	}
	for _, r := range queue {
		if !seen[r.ID] {
			own = append(own, r)
		}
	}
	return own, nil
}

// authorizeActor checks that the actor is the service-in-turn (or holds
// the global override) and has the permission the transition requires.
func (e *Engine) authorizeActor(actor *domain.User, r *domain.Request, permission string) error {
	inTurn := actor.ServiceID != nil && *actor.ServiceID == r.CurrentServiceID()
	if !inTurn && !rbac.HasPermission(actor, rbac.ManageAllRequests) {
		return domain.UnauthorizedError("actor's service is not the one currently holding this request")
	}
	if !rbac.HasPermission(actor, permission) {
		return domain.UnauthorizedError("actor lacks the %s permission", permission)
	}
	return nil
}

func historyAction(a Action) domain.HistoryAction {
	switch a {
	case ActionConfirm:
		return domain.ActionConfirmed
	case ActionApprove:
		return domain.ActionApproved
	case ActionReject:
		return domain.ActionRejected
	case ActionTransfer:
		return domain.ActionTransferred
	}
	return domain.HistoryAction(a)
}
