package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// ScheduleRequestRepository implements persistence.ScheduleRequestRepository using SQLite
type ScheduleRequestRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewScheduleRequestRepository creates a new SQLite schedule request repository
func NewScheduleRequestRepository(pool *ConnectionPool) *ScheduleRequestRepository {
	return &ScheduleRequestRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const requestColumns = `id, requester_id, target_user_id, event_draft, notes, status, decided_at, created_at`

// CreateRequest inserts a schedule request
func (r *ScheduleRequestRepository) CreateRequest(ctx context.Context, request persistence.ScheduleRequest) error {
	if request.ID == "" {
		return persistence.ErrConstraintViolation
	}
	draft, err := encodeJSONObject(request.EventDraft)
	if err != nil {
		return fmt.Errorf("encode event_draft: %w", err)
	}
	_, err = r.helper.Exec(ctx, `
		INSERT INTO schedule_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		request.ID,
		request.RequesterID,
		request.TargetUserID,
		draft,
		nullString(request.Notes),
		string(request.Status),
		formatNullTime(request.DecidedAt),
		formatTime(request.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetRequest retrieves a schedule request by ID
func (r *ScheduleRequestRepository) GetRequest(ctx context.Context, id string) (persistence.ScheduleRequest, error) {
	if id == "" {
		return persistence.ScheduleRequest{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+requestColumns+` FROM schedule_requests WHERE id = ?`, id)
	return r.scanRequest(row)
}

// UpdateRequestStatus records the decision on a request
func (r *ScheduleRequestRepository) UpdateRequestStatus(ctx context.Context, id string, status persistence.RequestStatus, decidedAt time.Time) error {
	return r.helper.ExecAffectingOne(ctx, r.mapper,
		`UPDATE schedule_requests SET status = ?, decided_at = ? WHERE id = ?`,
		string(status), formatTime(decidedAt), id,
	)
}

// ListRequests returns requests matching filter, newest first
func (r *ScheduleRequestRepository) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.ScheduleRequest, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RequesterID != "" {
		clauses = append(clauses, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.TargetUserID != "" {
		clauses = append(clauses, "target_user_id = ?")
		args = append(args, filter.TargetUserID)
	}
	query := `SELECT ` + requestColumns + ` FROM schedule_requests`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	requests := []persistence.ScheduleRequest{}
	for rows.Next() {
		request, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, r.mapper.MapError(rows.Err())
}

func (r *ScheduleRequestRepository) scanRequest(row rowScanner) (persistence.ScheduleRequest, error) {
	var (
		request          persistence.ScheduleRequest
		draft, status    string
		createdAt        string
		notes, decidedAt sql.NullString
	)
	err := row.Scan(
		&request.ID,
		&request.RequesterID,
		&request.TargetUserID,
		&draft,
		&notes,
		&status,
		&decidedAt,
		&createdAt,
	)
	if err != nil {
		return persistence.ScheduleRequest{}, r.mapper.MapError(err)
	}
	fields, err := decodeJSONObject(draft)
	if err != nil {
		return persistence.ScheduleRequest{}, fmt.Errorf("decode event_draft: %w", err)
	}
	request.EventDraft = persistence.EventDraft(fields)
	request.Notes = stringPtr(notes)
	request.Status = persistence.RequestStatus(status)
	if request.DecidedAt, err = parseNullTime("decided_at", decidedAt); err != nil {
		return persistence.ScheduleRequest{}, err
	}
	if request.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.ScheduleRequest{}, err
	}
	return request, nil
}

func encodeJSONObject[M ~map[string]any](value M) (string, error) {
	if value == nil {
		return "{}", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSONObject(data string) (map[string]any, error) {
	fields := map[string]any{}
	if strings.TrimSpace(data) == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
