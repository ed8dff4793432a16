package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Type is the rule family an insight came from.
type Type string

const (
	TypeStreak      Type = "streak"
	TypePattern     Type = "pattern"
	TypeMilestone   Type = "milestone"
	TypeImprovement Type = "improvement"
	TypeCorrelation Type = "correlation"
	TypeMotivation  Type = "motivation"
)

// precedence breaks ties between insights of equal priority; lower comes first.
var precedence = map[Type]int{
	TypeMilestone:   0,
	TypeStreak:      1,
	TypeCorrelation: 2,
	TypePattern:     3,
	TypeImprovement: 4,
	TypeMotivation:  5,
}

// Precedence returns the type's rank among equal-priority insights.
func (t Type) Precedence() int {
	if p, ok := precedence[t]; ok {
		return p
	}
	return len(precedence)
}

// IsValid reports whether t is a known insight type.
func (t Type) IsValid() bool {
	_, ok := precedence[t]
	return ok
}

// Priority orders insights. Higher values are more important.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = [...]string{"low", "medium", "high", "urgent"}

// ErrUnknownPriority is returned when parsing an unknown priority name.
var ErrUnknownPriority = errors.New("unknown insight priority")

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityUrgent {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority parses a priority name such as "high".
func ParsePriority(s string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return Priority(i), nil
		}
	}
	return PriorityLow, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Insight is a generated observation about a user's habits. Insights carry no
// identity and are rebuilt on every generation.
type Insight struct {
	Type             Type       `json:"type"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Detail           string     `json:"detail,omitempty"`
	Priority         Priority   `json:"priority"`
	RelatedHabitID   *uuid.UUID `json:"related_habit_id,omitempty"`
	RelatedHabitName string     `json:"related_habit_name,omitempty"`
	Value            *float64   `json:"value,omitempty"`
	IsPositive       bool       `json:"is_positive"`
	Actionable       bool       `json:"actionable"`
}

// IsAbout reports whether the insight is tied to the given habit.
func (i Insight) IsAbout(habitID uuid.UUID) bool {
	return i.RelatedHabitID != nil && *i.RelatedHabitID == habitID
}

// Less orders a before b: higher priority first, then type precedence.
func Less(a, b Insight) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Type.Precedence() < b.Type.Precedence()
}

// Sort orders insights in place for display. Equal insights keep their order.
func Sort(insights []Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		return Less(insights[i], insights[j])
	})
}
