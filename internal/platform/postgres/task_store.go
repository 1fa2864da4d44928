package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/phrazzld/tasklane-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row selected with taskColumns. The pgtype map decodes
// text[] columns, which database/sql cannot scan into a slice on its own.
func scanTask(m *pgtype.Map, row rowScanner) (domain.Task, error) {
	var (
		t                       domain.Task
		startDate, dueDate, upd sql.NullTime
		statusID                sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		m.SQLScanner(&t.AssigneeIDs),
		&startDate,
		&dueDate,
		&statusID,
		&t.Done,
		&t.Priority,
		&t.Cover,
		&t.CreatedAt,
		&t.CreatedBy,
		&upd,
		&t.UpdatedBy,
	)
	if err != nil {
		return domain.Task{}, err
	}

	t.StartDate = nullTimePtr(startDate)
	t.DueDate = nullTimePtr(dueDate)
	t.UpdatedAt = nullTimePtr(upd)
	t.TaskStatusID = statusID.String
	t.CreatedAt = t.CreatedAt.UTC()
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	return t, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// QueryTasks implements store.TaskStore.
func (s *PostgresTaskStore) QueryTasks(ctx context.Context, filter store.TaskFilter) ([]domain.Task, error) {
	log := logger.FromContext(ctx)
	query, args := selectTasksSQL(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", "error", err)
		return nil, store.NewStoreError("task", "query", "failed to query tasks", MapError(err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close task rows", "error", cerr)
		}
	}()

	m := pgtype.NewMap()
	tasks := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(m, rows)
		if err != nil {
			log.Error("failed to scan task row", "error", err)
			return nil, store.NewStoreError("task", "query", "failed to scan task", MapError(err))
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", "error", err)
		return nil, store.NewStoreError("task", "query", "failed to read tasks", MapError(err))
	}

	return tasks, nil
}

// CountTasks implements store.TaskStore.
func (s *PostgresTaskStore) CountTasks(ctx context.Context, filter store.TaskFilter) (int, error) {
	query, args := countTasksSQL(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		logger.FromContext(ctx).Error("failed to count tasks", "error", err)
		return 0, store.NewStoreError("task", "count", "failed to count tasks", MapError(err))
	}
	return total, nil
}

// UpdateTask implements store.TaskStore.
func (s *PostgresTaskStore) UpdateTask(ctx context.Context, update store.TaskUpdate) (*domain.Task, error) {
	log := logger.FromContext(ctx)
	if update.ID == "" {
		return nil, domain.ErrTaskIDEmpty
	}

	var cover sql.NullString
	if update.Cover != nil {
		cover = sql.NullString{String: *update.Cover, Valid: true}
	}

	query := `
		UPDATE tasks
		SET cover = COALESCE($2, cover), updated_at = $3, updated_by = $4
		WHERE id = $1
		RETURNING ` + taskColumns

	row := s.db.QueryRowContext(ctx, query, update.ID, cover, update.UpdatedAt.UTC(), update.UpdatedBy)
	t, err := scanTask(pgtype.NewMap(), row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for update", "task_id", update.ID)
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task", "task_id", update.ID, "error", err)
		return nil, store.NewStoreError("task", "update",
			fmt.Sprintf("failed to update task %s", update.ID), MapError(err))
	}

	return &t, nil
}

// QueryTaskStatuses implements store.TaskStore.
func (s *PostgresTaskStore) QueryTaskStatuses(ctx context.Context, filter store.StatusFilter) ([]domain.TaskStatus, error) {
	log := logger.FromContext(ctx)
	query, args := selectStatusesSQL(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task statuses", "error", err)
		return nil, store.NewStoreError("task_status", "query", "failed to query task statuses", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	statuses := make([]domain.TaskStatus, 0)
	for rows.Next() {
		var st domain.TaskStatus
		if err := rows.Scan(&st.ID, &st.ProjectID, &st.Name, &st.Color, &st.Order); err != nil {
			return nil, store.NewStoreError("task_status", "query", "failed to scan task status", MapError(err))
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task_status", "query", "failed to read task statuses", MapError(err))
	}

	return statuses, nil
}

// QueryMembership implements store.TaskStore.
func (s *PostgresTaskStore) QueryMembership(ctx context.Context, userID string) ([]domain.Membership, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, project_id FROM members WHERE user_id = $1 ORDER BY project_id`, userID)
	if err != nil {
		log.Error("failed to query membership", "user_id", userID, "error", err)
		return nil, store.NewStoreError("membership", "query", "failed to query membership", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	members := make([]domain.Membership, 0)
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.ProjectID); err != nil {
			return nil, store.NewStoreError("membership", "query", "failed to scan membership", MapError(err))
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("membership", "query", "failed to read membership", MapError(err))
	}

	return members, nil
}
