package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

const postgresHabitColumns = `id::text, user_id::text, name, icon, color, kind, daily_goal, unit, progression,
	initial_goal, goal_increment, goal_increment_interval_days, last_goal_adjustment, goal_adjustment_offset,
	rest_days, archived, utc_offset, created_at, updated_at`

const postgresCompletionColumns = `c.id::text, c.habit_id::text, c.completed_at, c.utc_offset, c.value, c.auto_synced, c.recorded_at`

// PostgresHabitRepository implements domain.Repository using PostgreSQL.
// TIMESTAMPTZ drops the offset, so each time is stored with its UTC offset in seconds.
type PostgresHabitRepository struct {
	conn database.Connection
}

// NewPostgresHabitRepository creates a new PostgreSQL habit repository.
func NewPostgresHabitRepository(conn database.Connection) *PostgresHabitRepository {
	return &PostgresHabitRepository{conn: conn}
}

// Save upserts the habit and its completions in one transaction.
func (r *PostgresHabitRepository) Save(ctx context.Context, habit *domain.Habit) error {
	row := toHabitRow(habit)

	var adjustmentOffset *int64
	if row.LastGoalAdjustment != nil {
		v := utcOffset(*row.LastGoalAdjustment)
		adjustmentOffset = &v
	}

	return database.InTx(ctx, r.conn, func(ex database.Executor) error {
		_, err := ex.Exec(ctx, `
			INSERT INTO habits (id, user_id, name, icon, color, kind, daily_goal, unit, progression,
				initial_goal, goal_increment, goal_increment_interval_days, last_goal_adjustment, goal_adjustment_offset,
				rest_days, archived, utc_offset, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				icon = EXCLUDED.icon,
				color = EXCLUDED.color,
				kind = EXCLUDED.kind,
				daily_goal = EXCLUDED.daily_goal,
				unit = EXCLUDED.unit,
				progression = EXCLUDED.progression,
				initial_goal = EXCLUDED.initial_goal,
				goal_increment = EXCLUDED.goal_increment,
				goal_increment_interval_days = EXCLUDED.goal_increment_interval_days,
				last_goal_adjustment = EXCLUDED.last_goal_adjustment,
				goal_adjustment_offset = EXCLUDED.goal_adjustment_offset,
				rest_days = EXCLUDED.rest_days,
				archived = EXCLUDED.archived,
				updated_at = EXCLUDED.updated_at`,
			row.ID, row.UserID, row.Name, row.Icon, row.Color, row.Kind,
			row.DailyGoal, row.Unit, row.Progression,
			row.InitialGoal, row.Increment, row.IntervalDays, row.LastGoalAdjustment, adjustmentOffset,
			row.RestDays, row.Archived, utcOffset(row.CreatedAt), row.CreatedAt, row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save habit: %w", err)
		}

		for _, c := range habit.Completions() {
			cr := toCompletionRow(c)
			_, err := ex.Exec(ctx, `
				INSERT INTO habit_completions (id, habit_id, day, completed_at, utc_offset, value, auto_synced, recorded_at)
				VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
				ON CONFLICT (habit_id, day) DO UPDATE SET
					completed_at = EXCLUDED.completed_at,
					utc_offset = EXCLUDED.utc_offset,
					value = EXCLUDED.value,
					auto_synced = EXCLUDED.auto_synced,
					recorded_at = EXCLUDED.recorded_at
				WHERE EXCLUDED.recorded_at > habit_completions.recorded_at`,
				cr.ID, cr.HabitID, c.Day().String(), cr.CompletedAt, utcOffset(cr.CompletedAt),
				cr.Value, cr.AutoSynced, cr.RecordedAt,
			)
			if err != nil {
				return fmt.Errorf("save completion for %s: %w", c.Day(), err)
			}
		}

		if _, err := ex.Exec(ctx, `DELETE FROM habit_goal_changes WHERE habit_id = $1`, row.ID); err != nil {
			return fmt.Errorf("clear goal changes: %w", err)
		}
		for _, gc := range toGoalChangeRows(habit) {
			_, err := ex.Exec(ctx, `
				INSERT INTO habit_goal_changes (habit_id, day, effective_from, utc_offset, previous_goal, goal)
				VALUES ($1, $2::date, $3, $4, $5, $6)`,
				gc.HabitID, domain.DayOf(gc.EffectiveFrom).String(), gc.EffectiveFrom, utcOffset(gc.EffectiveFrom),
				gc.Previous, gc.Goal,
			)
			if err != nil {
				return fmt.Errorf("save goal change: %w", err)
			}
		}
		return nil
	})
}

// FindByID finds a habit by its ID.
func (r *PostgresHabitRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	habits, err := r.find(ctx, postgresByID, id.String())
	if err != nil || len(habits) == 0 {
		return nil, err
	}
	return habits[0], nil
}

// FindByUserID finds all habits for a user.
func (r *PostgresHabitRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	return r.find(ctx, postgresByUser, userID.String())
}

// FindActiveByUserID finds all non-archived habits for a user.
func (r *PostgresHabitRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	return r.find(ctx, postgresActiveByUser, userID.String())
}

// FindCompletions returns a habit's completions with from <= date < to, oldest first.
func (r *PostgresHabitRepository) FindCompletions(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]*domain.Completion, error) {
	rows, err := r.queryCompletions(ctx,
		`WHERE c.habit_id = $1 AND c.completed_at >= $2 AND c.completed_at < $3`,
		habitID.String(), from, to)
	if err != nil {
		return nil, err
	}
	byHabit, err := groupCompletions(rows)
	if err != nil {
		return nil, err
	}
	completions := byHabit[habitID.String()]
	if completions == nil {
		completions = []*domain.Completion{}
	}
	return completions, nil
}

// Delete removes a habit and its completions.
func (r *PostgresHabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ex := database.ExecutorFromContext(ctx, r.conn)
	if _, err := ex.Exec(ctx, `DELETE FROM habits WHERE id = $1`, id.String()); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

type postgresFilter struct {
	habits      string
	completions string
}

var (
	postgresByID = postgresFilter{
		habits:      `WHERE id = $1`,
		completions: `WHERE c.habit_id = $1`,
	}
	postgresByUser = postgresFilter{
		habits:      `WHERE user_id = $1`,
		completions: `JOIN habits h ON h.id = c.habit_id WHERE h.user_id = $1`,
	}
	postgresActiveByUser = postgresFilter{
		habits:      `WHERE user_id = $1 AND NOT archived`,
		completions: `JOIN habits h ON h.id = c.habit_id WHERE h.user_id = $1 AND NOT h.archived`,
	}
)

func (r *PostgresHabitRepository) find(ctx context.Context, filter postgresFilter, args ...any) ([]*domain.Habit, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT `+postgresHabitColumns+` FROM habits `+filter.habits+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	var habits []habitRow
	for rows.Next() {
		row, err := scanPostgresHabit(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		habits = append(habits, row)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(habits) == 0 {
		return []*domain.Habit{}, nil
	}

	completions, err := r.queryCompletions(ctx, filter.completions, args...)
	if err != nil {
		return nil, err
	}
	changes, err := r.queryGoalChanges(ctx, filter.completions, args...)
	if err != nil {
		return nil, err
	}
	return assemble(habits, completions, changes)
}

func (r *PostgresHabitRepository) queryGoalChanges(ctx context.Context, where string, args ...any) ([]goalChangeRow, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT c.habit_id::text, c.effective_from, c.utc_offset, c.previous_goal, c.goal FROM habit_goal_changes c `+where+` ORDER BY c.day`, args...)
	if err != nil {
		return nil, fmt.Errorf("query goal changes: %w", err)
	}
	defer rows.Close()

	var result []goalChangeRow
	for rows.Next() {
		var (
			row    goalChangeRow
			offset int64
		)
		if err := rows.Scan(&row.HabitID, &row.EffectiveFrom, &offset, &row.Previous, &row.Goal); err != nil {
			return nil, fmt.Errorf("scan goal change: %w", err)
		}
		row.EffectiveFrom = withOffset(row.EffectiveFrom, offset)
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *PostgresHabitRepository) queryCompletions(ctx context.Context, where string, args ...any) ([]completionRow, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT `+postgresCompletionColumns+` FROM habit_completions c `+where+` ORDER BY c.day`, args...)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var result []completionRow
	for rows.Next() {
		var (
			row    completionRow
			offset int64
		)
		if err := rows.Scan(&row.ID, &row.HabitID, &row.CompletedAt, &offset, &row.Value, &row.AutoSynced, &row.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		row.CompletedAt = withOffset(row.CompletedAt, offset)
		row.RecordedAt = row.RecordedAt.UTC()
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanPostgresHabit(rows database.Rows) (habitRow, error) {
	var (
		row              habitRow
		adjustmentOffset *int64
		offset           int64
	)
	err := rows.Scan(
		&row.ID, &row.UserID, &row.Name, &row.Icon, &row.Color, &row.Kind,
		&row.DailyGoal, &row.Unit, &row.Progression,
		&row.InitialGoal, &row.Increment, &row.IntervalDays, &row.LastGoalAdjustment, &adjustmentOffset,
		&row.RestDays, &row.Archived, &offset, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return habitRow{}, fmt.Errorf("scan habit: %w", err)
	}

	row.CreatedAt = withOffset(row.CreatedAt, offset)
	row.UpdatedAt = withOffset(row.UpdatedAt, offset)
	if row.LastGoalAdjustment != nil {
		at := offset
		if adjustmentOffset != nil {
			at = *adjustmentOffset
		}
		t := withOffset(*row.LastGoalAdjustment, at)
		row.LastGoalAdjustment = &t
	}
	return row, nil
}

func utcOffset(t time.Time) int64 {
	_, offset := t.Zone()
	return int64(offset)
}

// withOffset restores the wall clock the time was recorded in.
func withOffset(t time.Time, offset int64) time.Time {
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", int(offset)))
}
