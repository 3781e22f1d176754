// internal/circles/postgres.go

package circles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/imadgeboyega/kiekky-circles/internal/clock"
)

// PostgresRepository persists circles with sqlx on lib/pq. Schema lives in
// internal/common/database/migrations.go.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type circleRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Tags           pq.StringArray `db:"tags"`
	MaxMembers     int            `db:"max_members"`
	CurrentMembers int            `db:"current_members"`
	IsPublic       bool           `db:"is_public"`
	AIEnabled      bool           `db:"ai_enabled"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (row *circleRow) toCircle() *Circle {
	return &Circle{
		ID:             row.ID,
		Name:           row.Name,
		Tags:           []string(row.Tags),
		MaxMembers:     row.MaxMembers,
		CurrentMembers: row.CurrentMembers,
		IsPublic:       row.IsPublic,
		AIEnabled:      row.AIEnabled,
		CreatedAt:      row.CreatedAt,
	}
}

type messageRow struct {
	ID                string    `db:"id"`
	CircleID          string    `db:"circle_id"`
	SenderID          string    `db:"sender_id"`
	SenderDisplayName string    `db:"sender_display_name"`
	IsAutomated       bool      `db:"is_automated"`
	Content           string    `db:"content"`
	SentAt            time.Time `db:"sent_at"`
	Seq               int64     `db:"seq"`
	Reactions         []byte    `db:"reactions"`
}

func (row *messageRow) toMessage() (*Message, error) {
	msg := &Message{
		ID:                row.ID,
		CircleID:          row.CircleID,
		SenderID:          row.SenderID,
		SenderDisplayName: row.SenderDisplayName,
		IsAutomated:       row.IsAutomated,
		Content:           row.Content,
		SentAt:            row.SentAt,
		Seq:               row.Seq,
	}
	if len(row.Reactions) > 0 {
		if err := json.Unmarshal(row.Reactions, &msg.Reactions); err != nil {
			return nil, fmt.Errorf("failed to decode reactions of message %s: %w", row.ID, err)
		}
	}
	return msg, nil
}

const messageColumns = `id, circle_id, sender_id, sender_display_name, is_automated, content, sent_at, seq, reactions`

func (r *PostgresRepository) GetCircle(ctx context.Context, id string) (*Circle, error) {
	var row circleRow
	query := `
		SELECT id, name, tags, max_members, current_members, is_public, ai_enabled, created_at
		FROM circles
		WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCircleNotFound
		}
		return nil, err
	}
	return row.toCircle(), nil
}

func (r *PostgresRepository) ListCircles(ctx context.Context) ([]*Circle, error) {
	var rows []circleRow
	query := `
		SELECT id, name, tags, max_members, current_members, is_public, ai_enabled, created_at
		FROM circles
		ORDER BY created_at, id`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]*Circle, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toCircle())
	}
	return out, nil
}

func (r *PostgresRepository) SaveCircle(ctx context.Context, circle *Circle) error {
	query := `
		INSERT INTO circles (id, name, tags, max_members, current_members, is_public, ai_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tags = EXCLUDED.tags,
			max_members = EXCLUDED.max_members,
			current_members = EXCLUDED.current_members,
			is_public = EXCLUDED.is_public,
			ai_enabled = EXCLUDED.ai_enabled`

	_, err := r.db.ExecContext(ctx, query,
		circle.ID, circle.Name, pq.Array(circle.Tags), circle.MaxMembers,
		circle.CurrentMembers, circle.IsPublic, circle.AIEnabled, circle.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) GetMembership(ctx context.Context, userID, circleID string) (*Membership, error) {
	var m Membership
	query := `
		SELECT user_id, circle_id, role, is_active, joined_at, last_active_at
		FROM circle_memberships
		WHERE user_id = $1 AND circle_id = $2`

	if err := r.db.GetContext(ctx, &m, query, userID, circleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) SaveMembership(ctx context.Context, membership *Membership) error {
	query := `
		INSERT INTO circle_memberships (user_id, circle_id, role, is_active, joined_at, last_active_at)
		VALUES (:user_id, :circle_id, :role, :is_active, :joined_at, :last_active_at)
		ON CONFLICT (user_id, circle_id) DO UPDATE SET
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			joined_at = EXCLUDED.joined_at,
			last_active_at = EXCLUDED.last_active_at`

	_, err := r.db.NamedExecContext(ctx, query, membership)
	return err
}

func (r *PostgresRepository) ListActiveMemberships(ctx context.Context, userID string) ([]*Membership, error) {
	var out []*Membership
	query := `
		SELECT user_id, circle_id, role, is_active, joined_at, last_active_at
		FROM circle_memberships
		WHERE user_id = $1 AND is_active = true
		ORDER BY circle_id`

	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveMessage inserts the message or, when it already exists, rewrites its
// reactions. Seq comes from the BIGSERIAL column.
func (r *PostgresRepository) SaveMessage(ctx context.Context, message *Message) error {
	reactions, err := json.Marshal(message.Reactions)
	if err != nil {
		return fmt.Errorf("failed to encode reactions: %w", err)
	}

	query := `
		INSERT INTO circle_messages (id, circle_id, sender_id, sender_display_name, is_automated, content, sent_at, reactions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET reactions = EXCLUDED.reactions
		RETURNING seq`

	return r.db.QueryRowContext(ctx, query,
		message.ID, message.CircleID, message.SenderID, message.SenderDisplayName,
		message.IsAutomated, message.Content, message.SentAt, reactions,
	).Scan(&message.Seq)
}

func (r *PostgresRepository) GetMessage(ctx context.Context, id string) (*Message, error) {
	var row messageRow
	query := `SELECT ` + messageColumns + ` FROM circle_messages WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return row.toMessage()
}

func (r *PostgresRepository) GetMessagesSince(ctx context.Context, circleID string, since time.Time) ([]*Message, error) {
	var rows []messageRow
	query := `
		SELECT ` + messageColumns + `
		FROM circle_messages
		WHERE circle_id = $1 AND sent_at >= $2
		ORDER BY sent_at, seq`

	if err := r.db.SelectContext(ctx, &rows, query, circleID, since); err != nil {
		return nil, err
	}

	out := make([]*Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toMessage()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *PostgresRepository) GetGoal(ctx context.Context, id string) (*Goal, error) {
	var g Goal
	query := `
		SELECT id, circle_id, owner_user_id, title, target_date, created_at, status, progress, is_private
		FROM circle_goals
		WHERE id = $1`

	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *PostgresRepository) SaveGoal(ctx context.Context, goal *Goal) error {
	query := `
		INSERT INTO circle_goals (id, circle_id, owner_user_id, title, target_date, created_at, status, progress, is_private)
		VALUES (:id, :circle_id, :owner_user_id, :title, :target_date, :created_at, :status, :progress, :is_private)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			target_date = EXCLUDED.target_date,
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			is_private = EXCLUDED.is_private`

	_, err := r.db.NamedExecContext(ctx, query, goal)
	return err
}

func (r *PostgresRepository) UpdateGoalProgress(ctx context.Context, goalID string, progress int, status GoalStatus) error {
	query := `UPDATE circle_goals SET progress = $1, status = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, progress, status, goalID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// SaveCheckIn upserts on (goal_id, user_id, date) and reads back the stored
// ID and CreatedAt.
func (r *PostgresRepository) SaveCheckIn(ctx context.Context, checkIn *CheckIn) error {
	checkIn.Date = clock.Day(checkIn.Date)
	query := `
		INSERT INTO circle_check_ins (id, goal_id, user_id, date, is_completed, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (goal_id, user_id, date) DO UPDATE SET
			is_completed = EXCLUDED.is_completed,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		checkIn.ID, checkIn.GoalID, checkIn.UserID, checkIn.Date,
		checkIn.IsCompleted, checkIn.Notes, checkIn.CreatedAt, checkIn.UpdatedAt,
	).Scan(&checkIn.ID, &checkIn.CreatedAt)
}

func (r *PostgresRepository) ListCheckIns(ctx context.Context, goalID string) ([]*CheckIn, error) {
	var out []*CheckIn
	query := `
		SELECT id, goal_id, user_id, date, is_completed, notes, created_at, updated_at
		FROM circle_check_ins
		WHERE goal_id = $1
		ORDER BY date, user_id`

	if err := r.db.SelectContext(ctx, &out, query, goalID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) GetPromptForDay(ctx context.Context, circleID string, day time.Time) (*Prompt, error) {
	var p Prompt
	query := `
		SELECT id, circle_id, content, scheduled_for, is_consumed
		FROM circle_prompts
		WHERE circle_id = $1 AND scheduled_for = $2`

	if err := r.db.GetContext(ctx, &p, query, circleID, clock.Day(day)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SavePrompt never replaces an existing prompt for the same day
func (r *PostgresRepository) SavePrompt(ctx context.Context, prompt *Prompt) error {
	prompt.ScheduledFor = clock.Day(prompt.ScheduledFor)
	query := `
		INSERT INTO circle_prompts (id, circle_id, content, scheduled_for, is_consumed)
		VALUES (:id, :circle_id, :content, :scheduled_for, :is_consumed)
		ON CONFLICT (circle_id, scheduled_for) DO UPDATE SET is_consumed = EXCLUDED.is_consumed`

	_, err := r.db.NamedExecContext(ctx, query, prompt)
	return err
}
