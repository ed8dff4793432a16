package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// sqliteTimeLayout keeps the local offset and sorts lexically for a fixed offset.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteHabitColumns = `id, user_id, name, icon, color, kind, daily_goal, unit, progression,
	initial_goal, goal_increment, goal_increment_interval_days, last_goal_adjustment,
	rest_days, archived, created_at, updated_at`

const sqliteCompletionColumns = `c.id, c.habit_id, c.completed_at, c.value, c.auto_synced, c.recorded_at`

// SQLiteHabitRepository implements domain.Repository using SQLite.
// Times are stored as text with their offset so calendar days survive a round trip.
type SQLiteHabitRepository struct {
	conn database.Connection
}

// NewSQLiteHabitRepository creates a new SQLite habit repository.
func NewSQLiteHabitRepository(conn database.Connection) *SQLiteHabitRepository {
	return &SQLiteHabitRepository{conn: conn}
}

// Save upserts the habit and its completions in one transaction.
func (r *SQLiteHabitRepository) Save(ctx context.Context, habit *domain.Habit) error {
	row := toHabitRow(habit)
	return database.InTx(ctx, r.conn, func(ex database.Executor) error {
		_, err := ex.Exec(ctx, `
			INSERT INTO habits (`+sqliteHabitColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				icon = excluded.icon,
				color = excluded.color,
				kind = excluded.kind,
				daily_goal = excluded.daily_goal,
				unit = excluded.unit,
				progression = excluded.progression,
				initial_goal = excluded.initial_goal,
				goal_increment = excluded.goal_increment,
				goal_increment_interval_days = excluded.goal_increment_interval_days,
				last_goal_adjustment = excluded.last_goal_adjustment,
				rest_days = excluded.rest_days,
				archived = excluded.archived,
				updated_at = excluded.updated_at`,
			row.ID, row.UserID, row.Name, row.Icon, row.Color, row.Kind,
			row.DailyGoal, row.Unit, row.Progression,
			row.InitialGoal, row.Increment, row.IntervalDays, formatSQLiteTimePtr(row.LastGoalAdjustment),
			row.RestDays, boolToInt64(row.Archived),
			formatSQLiteTime(row.CreatedAt), formatSQLiteTime(row.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("save habit: %w", err)
		}

		for _, c := range habit.Completions() {
			cr := toCompletionRow(c)
			_, err := ex.Exec(ctx, `
				INSERT INTO habit_completions (id, habit_id, day, completed_at, value, auto_synced, recorded_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (habit_id, day) DO UPDATE SET
					completed_at = excluded.completed_at,
					value = excluded.value,
					auto_synced = excluded.auto_synced,
					recorded_at = excluded.recorded_at
				WHERE excluded.recorded_at > habit_completions.recorded_at`,
				cr.ID, cr.HabitID, c.Day().String(), formatSQLiteTime(cr.CompletedAt),
				cr.Value, boolToInt64(cr.AutoSynced), formatSQLiteTime(cr.RecordedAt.UTC()),
			)
			if err != nil {
				return fmt.Errorf("save completion for %s: %w", c.Day(), err)
			}
		}

		if _, err := ex.Exec(ctx, `DELETE FROM habit_goal_changes WHERE habit_id = ?`, row.ID); err != nil {
			return fmt.Errorf("clear goal changes: %w", err)
		}
		for _, gc := range toGoalChangeRows(habit) {
			_, err := ex.Exec(ctx, `
				INSERT INTO habit_goal_changes (habit_id, day, effective_from, previous_goal, goal)
				VALUES (?, ?, ?, ?, ?)`,
				gc.HabitID, domain.DayOf(gc.EffectiveFrom).String(), formatSQLiteTime(gc.EffectiveFrom),
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
func (r *SQLiteHabitRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Habit, error) {
	habits, err := r.find(ctx, sqliteByID, id.String())
	if err != nil || len(habits) == 0 {
		return nil, err
	}
	return habits[0], nil
}

// FindByUserID finds all habits for a user.
func (r *SQLiteHabitRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	return r.find(ctx, sqliteByUser, userID.String())
}

// FindActiveByUserID finds all non-archived habits for a user.
func (r *SQLiteHabitRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Habit, error) {
	return r.find(ctx, sqliteActiveByUser, userID.String())
}

// FindCompletions returns a habit's completions with from <= date < to, oldest first.
func (r *SQLiteHabitRepository) FindCompletions(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]*domain.Completion, error) {
	// Day bounds are widened by one so offsets other than from's cannot drop rows; inRange is exact.
	rows, err := r.queryCompletions(ctx, `WHERE c.habit_id = ? AND c.day >= ? AND c.day <= ?`,
		habitID.String(), domain.DayOf(from).AddDays(-1).String(), domain.DayOf(to).AddDays(1).String())
	if err != nil {
		return nil, err
	}
	byHabit, err := groupCompletions(rows)
	if err != nil {
		return nil, err
	}
	return inRange(byHabit[habitID.String()], from, to), nil
}

// Delete removes a habit and its completions.
func (r *SQLiteHabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.InTx(ctx, r.conn, func(ex database.Executor) error {
		if _, err := ex.Exec(ctx, `DELETE FROM habit_completions WHERE habit_id = ?`, id.String()); err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		if _, err := ex.Exec(ctx, `DELETE FROM habit_goal_changes WHERE habit_id = ?`, id.String()); err != nil {
			return fmt.Errorf("delete goal changes: %w", err)
		}
		if _, err := ex.Exec(ctx, `DELETE FROM habits WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

// sqliteFilter selects habits and, with the same arguments, their completions.
// The completions clause aliases its table as c and also selects goal changes.
type sqliteFilter struct {
	habits      string
	completions string
}

var (
	sqliteByID = sqliteFilter{
		habits:      `WHERE id = ?`,
		completions: `WHERE c.habit_id = ?`,
	}
	sqliteByUser = sqliteFilter{
		habits:      `WHERE user_id = ?`,
		completions: `JOIN habits h ON h.id = c.habit_id WHERE h.user_id = ?`,
	}
	sqliteActiveByUser = sqliteFilter{
		habits:      `WHERE user_id = ? AND archived = 0`,
		completions: `JOIN habits h ON h.id = c.habit_id WHERE h.user_id = ? AND h.archived = 0`,
	}
)

func (r *SQLiteHabitRepository) find(ctx context.Context, filter sqliteFilter, args ...any) ([]*domain.Habit, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT `+sqliteHabitColumns+` FROM habits `+filter.habits+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	var habits []habitRow
	for rows.Next() {
		row, err := scanSQLiteHabit(rows)
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
	// The single SQLite connection must be released before the next query.
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

func (r *SQLiteHabitRepository) queryGoalChanges(ctx context.Context, where string, args ...any) ([]goalChangeRow, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT c.habit_id, c.effective_from, c.previous_goal, c.goal FROM habit_goal_changes c `+where+` ORDER BY c.day`, args...)
	if err != nil {
		return nil, fmt.Errorf("query goal changes: %w", err)
	}
	defer rows.Close()

	var result []goalChangeRow
	for rows.Next() {
		var (
			row           goalChangeRow
			effectiveFrom string
		)
		if err := rows.Scan(&row.HabitID, &effectiveFrom, &row.Previous, &row.Goal); err != nil {
			return nil, fmt.Errorf("scan goal change: %w", err)
		}
		if row.EffectiveFrom, err = parseSQLiteTime(effectiveFrom); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *SQLiteHabitRepository) queryCompletions(ctx context.Context, where string, args ...any) ([]completionRow, error) {
	ex := database.ExecutorFromContext(ctx, r.conn)

	rows, err := ex.Query(ctx, `SELECT `+sqliteCompletionColumns+` FROM habit_completions c `+where+` ORDER BY c.day`, args...)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var result []completionRow
	for rows.Next() {
		var (
			row                     completionRow
			completedAt, recordedAt string
			autoSynced              int64
		)
		if err := rows.Scan(&row.ID, &row.HabitID, &completedAt, &row.Value, &autoSynced, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if row.CompletedAt, err = parseSQLiteTime(completedAt); err != nil {
			return nil, err
		}
		if row.RecordedAt, err = parseSQLiteTime(recordedAt); err != nil {
			return nil, err
		}
		row.AutoSynced = autoSynced != 0
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanSQLiteHabit(rows database.Rows) (habitRow, error) {
	var (
		row                  habitRow
		lastAdjustment       *string
		archived             int64
		createdAt, updatedAt string
	)
	err := rows.Scan(
		&row.ID, &row.UserID, &row.Name, &row.Icon, &row.Color, &row.Kind,
		&row.DailyGoal, &row.Unit, &row.Progression,
		&row.InitialGoal, &row.Increment, &row.IntervalDays, &lastAdjustment,
		&row.RestDays, &archived, &createdAt, &updatedAt,
	)
	if err != nil {
		return habitRow{}, fmt.Errorf("scan habit: %w", err)
	}

	row.Archived = archived != 0
	if row.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return habitRow{}, err
	}
	if row.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return habitRow{}, err
	}
	if lastAdjustment != nil {
		t, err := parseSQLiteTime(*lastAdjustment)
		if err != nil {
			return habitRow{}, err
		}
		row.LastGoalAdjustment = &t
	}
	return row, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.Format(sqliteTimeLayout)
}

func formatSQLiteTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatSQLiteTime(*t)
	return &s
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
