// Package postgres stores activity records and their outbox events in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/goaltracker/internal/domain"
	"example.com/goaltracker/internal/observability"
	platformevents "example.com/goaltracker/internal/platform/events"
)

const recordColumns = `record_id, tenant_id, user_id, activity_date, goals_completed, tasks_completed, habits_completed, last_login_at, created_at, updated_at`

// Repository provides Postgres-backed persistence for activity records and outbox events.
// Every statement runs in a transaction scoped to the caller's tenant so row-level security applies.
type Repository struct {
	pool *pgxpool.Pool
	sql  sq.StatementBuilderType
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
		sql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Ping verifies the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ListByUser returns every record for the user, most recent first.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string) ([]domain.ActivityRecord, error) {
	query := r.sql.Select(recordColumns).
		From("user_activity").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID}).
		OrderBy("activity_date DESC")

	var records []domain.ActivityRecord
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		records, err = queryRecords(ctx, tx, query)
		return err
	})
	return records, err
}

// ListRange returns records dated within [start, end], oldest first.
func (r *Repository) ListRange(ctx context.Context, tenantID, userID string, start, end civil.Date) ([]domain.ActivityRecord, error) {
	query := r.sql.Select(recordColumns).
		From("user_activity").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID}).
		Where(sq.GtOrEq{"activity_date": dateParam(start)}).
		Where(sq.LtOrEq{"activity_date": dateParam(end)}).
		OrderBy("activity_date ASC")

	var records []domain.ActivityRecord
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		records, err = queryRecords(ctx, tx, query)
		return err
	})
	return records, err
}

// ListPage returns up to limit records ordered by (activity_date, record_id) descending, starting after cursor.
func (r *Repository) ListPage(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	query := r.sql.Select(recordColumns).
		From("user_activity").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID})
	if cursor != nil {
		query = query.Where(sq.Expr("(activity_date, record_id) < (?, ?)", dateParam(cursor.ActivityDate), cursor.ID))
	}
	query = query.OrderBy("activity_date DESC", "record_id DESC").Limit(uint64(limit))

	var records []domain.ActivityRecord
	err := r.withTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		records, err = queryRecords(ctx, tx, query)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(records) == limit {
		last := records[len(records)-1]
		nextCursor = &domain.Cursor{ActivityDate: last.ActivityDate, ID: last.ID}
	}
	return records, nextCursor, nil
}

// Increment upserts the day's record, adds the amount to the category counter and records the
// matching outbox events inside a single transaction.
func (r *Repository) Increment(ctx context.Context, cmd domain.IncrementCommand) (*domain.ActivityRecord, error) {
	var goals, tasks, habits int
	switch cmd.Category {
	case domain.CategoryGoals:
		goals = cmd.Amount
	case domain.CategoryTasks:
		tasks = cmd.Amount
	case domain.CategoryHabits:
		habits = cmd.Amount
	default:
		return nil, domain.ErrInvalidCategory
	}

	const upsert = `INSERT INTO user_activity (record_id, tenant_id, user_id, activity_date, goals_completed, tasks_completed, habits_completed, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
        ON CONFLICT (tenant_id, user_id, activity_date) DO UPDATE SET
            goals_completed = user_activity.goals_completed + EXCLUDED.goals_completed,
            tasks_completed = user_activity.tasks_completed + EXCLUDED.tasks_completed,
            habits_completed = user_activity.habits_completed + EXCLUDED.habits_completed,
            updated_at = EXCLUDED.updated_at
        RETURNING ` + recordColumns + `, (xmax = 0)`

	var rec domain.ActivityRecord
	err := r.withTenant(ctx, cmd.TenantID, func(tx pgx.Tx) error {
		created, err := scanUpsert(tx.QueryRow(ctx, upsert,
			cmd.ID, cmd.TenantID, cmd.UserID, dateParam(cmd.Date), goals, tasks, habits, cmd.At,
		), &rec)
		if err != nil {
			return err
		}

		if created {
			if err := insertOutbox(ctx, tx, rec, platformevents.TypeDayStarted, cmd.ID, dayStarted(rec, cmd.At)); err != nil {
				return err
			}
		}
		return insertOutbox(ctx, tx, rec, platformevents.TypeCounterIncremented, cmd.ID, platformevents.ActivityCounterIncremented{
			RecordID:     rec.ID,
			TenantID:     rec.TenantID,
			UserID:       rec.UserID,
			ActivityDate: rec.ActivityDate.String(),
			Category:     string(cmd.Category),
			Amount:       cmd.Amount,
			Total:        rec.Count(cmd.Category),
			OccurredAt:   cmd.At,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivityPersisted(rec.UpdatedAt)
	return &rec, nil
}

// TouchLogin upserts the day's record and stamps last_login_at.
func (r *Repository) TouchLogin(ctx context.Context, cmd domain.LoginCommand) (*domain.ActivityRecord, error) {
	const upsert = `INSERT INTO user_activity (record_id, tenant_id, user_id, activity_date, last_login_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5,$5)
        ON CONFLICT (tenant_id, user_id, activity_date) DO UPDATE SET
            last_login_at = EXCLUDED.last_login_at,
            updated_at = EXCLUDED.updated_at
        RETURNING ` + recordColumns + `, (xmax = 0)`

	var rec domain.ActivityRecord
	err := r.withTenant(ctx, cmd.TenantID, func(tx pgx.Tx) error {
		created, err := scanUpsert(tx.QueryRow(ctx, upsert,
			cmd.ID, cmd.TenantID, cmd.UserID, dateParam(cmd.Date), cmd.At,
		), &rec)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return insertOutbox(ctx, tx, rec, platformevents.TypeDayStarted, cmd.ID, dayStarted(rec, cmd.At))
	})
	if err != nil {
		return nil, err
	}

	observability.RecordActivityPersisted(rec.UpdatedAt)
	return &rec, nil
}

func (r *Repository) withTenant(ctx context.Context, tenantID string, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func queryRecords(ctx context.Context, tx pgx.Tx, query sq.SelectBuilder) ([]domain.ActivityRecord, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := tx.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func scanRecord(row pgx.Row, rec *domain.ActivityRecord, extra ...any) error {
	var activityDate time.Time
	dest := append([]any{
		&rec.ID, &rec.TenantID, &rec.UserID, &activityDate,
		&rec.GoalsCompleted, &rec.TasksCompleted, &rec.HabitsCompleted,
		&rec.LastLoginAt, &rec.CreatedAt, &rec.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	rec.ActivityDate = civil.DateOf(activityDate)
	return nil
}

func scanUpsert(row pgx.Row, rec *domain.ActivityRecord) (bool, error) {
	var created bool
	if err := scanRecord(row, rec, &created); err != nil {
		return false, fmt.Errorf("upsert activity record: %w", err)
	}
	return created, nil
}

func dayStarted(rec domain.ActivityRecord, at time.Time) platformevents.ActivityDayStarted {
	return platformevents.ActivityDayStarted{
		RecordID:     rec.ID,
		TenantID:     rec.TenantID,
		UserID:       rec.UserID,
		ActivityDate: rec.ActivityDate.String(),
		OccurredAt:   at,
	}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, rec domain.ActivityRecord, eventType, commandID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		rec.TenantID,
		"user_activity",
		rec.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(rec),
		body,
		fmt.Sprintf("%s:%s", commandID, eventType),
	)
	return err
}

// dateParam converts a calendar day to the midnight UTC instant pgx encodes as a DATE.
func dateParam(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.ActivityRecord) string
}

// ActivityTopic carries every activity event so per-user ordering holds across event types.
// Subjects follow the topic-record naming strategy since the topic mixes payload shapes.
const ActivityTopic = "user_activity_events"

func userPartitionKey(rec domain.ActivityRecord) string {
	return fmt.Sprintf("%s:%s", rec.TenantID, rec.UserID)
}

var eventCatalog = map[string]EventMetadata{
	platformevents.TypeDayStarted: {
		Topic:          ActivityTopic,
		SchemaSubject:  ActivityTopic + "-" + platformevents.TypeDayStarted,
		PartitionKeyFn: userPartitionKey,
	},
	platformevents.TypeCounterIncremented: {
		Topic:          ActivityTopic,
		SchemaSubject:  ActivityTopic + "-" + platformevents.TypeCounterIncremented,
		PartitionKeyFn: userPartitionKey,
	},
}
