package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool. The Update* entity
// lock is a SELECT ... FOR UPDATE inside a transaction: fn runs against
// the locked row's current state and either the whole mutation commits
// or the transaction rolls back untouched.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- requests ---

const requestColumns = `id, type_id, requester_id, form_data, attachments, status, workflow, current_step, history, archived, created_at, updated_at`

func (p *Postgres) CreateRequest(ctx context.Context, r *domain.Request) error {
	formData, err := json.Marshal(r.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	workflow, err := json.Marshal(r.Workflow)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	attachments, err := json.Marshal(r.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO requests (id, type_id, requester_id, form_data, attachments, status, workflow, current_step, history, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.TypeID, r.RequesterID, formData, attachments, r.Status, workflow, r.CurrentStep, history, r.Archived, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		r           domain.Request
		formData    []byte
		attachments []byte
		workflow    []byte
		history     []byte
	)
	err := row.Scan(&r.ID, &r.TypeID, &r.RequesterID, &formData, &attachments, &r.Status, &workflow, &r.CurrentStep, &history, &r.Archived, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("request")
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	if err := json.Unmarshal(formData, &r.FormData); err != nil {
		return nil, fmt.Errorf("unmarshal form data: %w", err)
	}
	if err := json.Unmarshal(attachments, &r.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if err := json.Unmarshal(workflow, &r.Workflow); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}
	if err := json.Unmarshal(history, &r.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &r, nil
}

func (p *Postgres) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (p *Postgres) UpdateRequest(ctx context.Context, id uuid.UUID, fn func(*domain.Request) error) (*domain.Request, error) {
	var updated *domain.Request
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
		r, err := scanRequest(row)
		if err != nil {
			return err
		}

		if err := fn(r); err != nil {
			return err
		}

		formData, err := json.Marshal(r.FormData)
		if err != nil {
			return fmt.Errorf("marshal form data: %w", err)
		}
		history, err := json.Marshal(r.History)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE requests
			SET form_data = $2, status = $3, current_step = $4, history = $5, archived = $6, updated_at = $7
			WHERE id = $1`,
			r.ID, formData, r.Status, r.CurrentStep, history, r.Archived, r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Postgres) ListRequests(ctx context.Context, filter RequestFilter) ([]*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE archived = false`
	var args []any
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		query += fmt.Sprintf(" AND requester_id = $%d", len(args))
	}
	if filter.CurrentServiceID != nil {
		// the service-in-turn is the workflow entry at current_step
		args = append(args, *filter.CurrentServiceID)
		query += fmt.Sprintf(" AND workflow->current_step = to_jsonb($%d::uuid)", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- resources and bookings ---

func (p *Postgres) CreateResource(ctx context.Context, r *domain.Resource) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO resources (id, name, category, capacity, location, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Name, r.Category, r.Capacity, r.Location, r.Status, r.IsActive, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func scanResourceRow(row pgx.Row) (*domain.Resource, error) {
	var r domain.Resource
	err := row.Scan(&r.ID, &r.Name, &r.Category, &r.Capacity, &r.Location, &r.Status, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("resource")
	}
	if err != nil {
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	return &r, nil
}

func loadBookings(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, resourceID uuid.UUID) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT id, resource_id, requester_id, start_time, end_time, purpose, status, created_at, cancelled_at, cancelled_by
		FROM bookings WHERE resource_id = $1 ORDER BY seq`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ResourceID, &b.RequesterID, &b.StartTime, &b.EndTime, &b.Purpose, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.CancelledBy); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const resourceColumns = `id, name, category, capacity, location, status, is_active, created_at, updated_at`

func (p *Postgres) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	r, err := scanResourceRow(p.pool.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	r.Bookings, err = loadBookings(ctx, p.pool, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Postgres) UpdateResource(ctx context.Context, id uuid.UUID, fn func(*domain.Resource) error) (*domain.Resource, error) {
	var updated *domain.Resource
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		r, err := scanResourceRow(tx.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		r.Bookings, err = loadBookings(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := fn(r); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE resources SET name = $2, category = $3, capacity = $4, location = $5, status = $6, is_active = $7, updated_at = $8
			WHERE id = $1`,
			r.ID, r.Name, r.Category, r.Capacity, r.Location, r.Status, r.IsActive, r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update resource: %w", err)
		}

		// bookings are append-only with in-place status flips, so an
		// upsert of the current list keeps the table in step
		for _, b := range r.Bookings {
			_, err = tx.Exec(ctx, `
				INSERT INTO bookings (id, resource_id, requester_id, start_time, end_time, purpose, status, created_at, cancelled_at, cancelled_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, cancelled_at = EXCLUDED.cancelled_at, cancelled_by = EXCLUDED.cancelled_by`,
				b.ID, b.ResourceID, b.RequesterID, b.StartTime, b.EndTime, b.Purpose, b.Status, b.CreatedAt, b.CancelledAt, b.CancelledBy)
			if err != nil {
				return fmt.Errorf("upsert booking: %w", err)
			}
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (p *Postgres) ListResources(ctx context.Context) ([]*domain.Resource, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []*domain.Resource
	for rows.Next() {
		r, err := scanResourceRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range out {
		if r.Bookings, err = loadBookings(ctx, p.pool, r.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Postgres) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := p.pool.QueryRow(ctx, `
		SELECT id, resource_id, requester_id, start_time, end_time, purpose, status, created_at, cancelled_at, cancelled_by
		FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.ResourceID, &b.RequesterID, &b.StartTime, &b.EndTime, &b.Purpose, &b.Status, &b.CreatedAt, &b.CancelledAt, &b.CancelledBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.NotFoundError("booking")
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// --- users ---

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, role, service_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, u.Role, u.ServiceID, u.IsActive)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return p.getUser(ctx, `SELECT id, email, display_name, role, service_id, is_active FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return p.getUser(ctx, `SELECT id, email, display_name, role, service_id, is_active FROM users WHERE email = $1`, email)
}

func (p *Postgres) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := p.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.ServiceID, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- services ---

func (p *Postgres) CreateService(ctx context.Context, s *domain.Service) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO services (id, name, head_id, is_active)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.HeadID, s.IsActive)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

func (p *Postgres) GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	var s domain.Service
	err := p.pool.QueryRow(ctx, `SELECT id, name, head_id, is_active FROM services WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.HeadID, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("service")
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &s, nil
}

func (p *Postgres) ListServices(ctx context.Context) ([]*domain.Service, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, head_id, is_active FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []*domain.Service
	for rows.Next() {
		var s domain.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.HeadID, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// --- request types ---

func (p *Postgres) CreateRequestType(ctx context.Context, rt *domain.RequestType) error {
	workflow, err := json.Marshal(rt.Workflow)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}
	fields, err := json.Marshal(rt.RequiredFields)
	if err != nil {
		return fmt.Errorf("marshal required fields: %w", err)
	}
	kinds, err := json.Marshal(rt.AttachmentKinds)
	if err != nil {
		return fmt.Errorf("marshal attachment kinds: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO request_types (id, title, category, workflow, required_fields, attachments_required, attachment_kinds, estimated_process_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rt.ID, rt.Title, rt.Category, workflow, fields, rt.AttachmentsRequired, kinds, rt.EstimatedProcessTime.Nanoseconds(), rt.IsActive)
	if err != nil {
		return fmt.Errorf("insert request type: %w", err)
	}
	return nil
}

func scanRequestType(row pgx.Row) (*domain.RequestType, error) {
	var (
		rt       domain.RequestType
		workflow []byte
		fields   []byte
		kinds    []byte
		estimate int64
	)
	err := row.Scan(&rt.ID, &rt.Title, &rt.Category, &workflow, &fields, &rt.AttachmentsRequired, &kinds, &estimate, &rt.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundError("request type")
	}
	if err != nil {
		return nil, fmt.Errorf("scan request type: %w", err)
	}
	if err := json.Unmarshal(workflow, &rt.Workflow); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}
	if err := json.Unmarshal(fields, &rt.RequiredFields); err != nil {
		return nil, fmt.Errorf("unmarshal required fields: %w", err)
	}
	if err := json.Unmarshal(kinds, &rt.AttachmentKinds); err != nil {
		return nil, fmt.Errorf("unmarshal attachment kinds: %w", err)
	}
	rt.EstimatedProcessTime = time.Duration(estimate)
	return &rt, nil
}

const requestTypeColumns = `id, title, category, workflow, required_fields, attachments_required, attachment_kinds, estimated_process_time, is_active`

func (p *Postgres) GetRequestType(ctx context.Context, id uuid.UUID) (*domain.RequestType, error) {
	return scanRequestType(p.pool.QueryRow(ctx, `SELECT `+requestTypeColumns+` FROM request_types WHERE id = $1`, id))
}

func (p *Postgres) ListRequestTypes(ctx context.Context) ([]*domain.RequestType, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+requestTypeColumns+` FROM request_types ORDER BY category, title`)
	if err != nil {
		return nil, fmt.Errorf("list request types: %w", err)
	}
	defer rows.Close()

	var out []*domain.RequestType
	for rows.Next() {
		rt, err := scanRequestType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
