package domain

import (
	"time"

	"github.com/google/uuid"
)

// Completion is one entry of habit activity on a calendar day.
type Completion struct {
	id         uuid.UUID
	habitID    uuid.UUID
	date       time.Time
	value      *float64
	autoSynced bool
	recordedAt time.Time
}

// RehydrateCompletion recreates a completion from persisted state.
func RehydrateCompletion(id, habitID uuid.UUID, date time.Time, value *float64, autoSynced bool, recordedAt time.Time) *Completion {
	return &Completion{
		id:         id,
		habitID:    habitID,
		date:       date,
		value:      cloneFloat(value),
		autoSynced: autoSynced,
		recordedAt: recordedAt,
	}
}

// Getters
func (c *Completion) ID() uuid.UUID         { return c.id }
func (c *Completion) HabitID() uuid.UUID    { return c.habitID }
func (c *Completion) Date() time.Time       { return c.date }
func (c *Completion) Day() CalendarDay      { return DayOf(c.date) }
func (c *Completion) IsAutoSynced() bool    { return c.autoSynced }
func (c *Completion) RecordedAt() time.Time { return c.recordedAt }
func (c *Completion) ValuePtr() *float64    { return cloneFloat(c.value) }

// Value returns the recorded amount and whether one was recorded.
func (c *Completion) Value() (float64, bool) {
	if c.value == nil {
		return 0, false
	}
	return *c.value, true
}
