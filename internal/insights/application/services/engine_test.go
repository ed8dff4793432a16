package services

import (
	"sort"
	"strings"
	"testing"
	"time"

	habitDomain "github.com/felixgeelhaar/habitpulse/internal/habits/domain"
	"github.com/felixgeelhaar/habitpulse/internal/insights/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// start is a Monday morning.
var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

var userID = uuid.New()

// day returns noon n days after start.
func day(n int) time.Time {
	return start.AddDate(0, 0, n).Add(4 * time.Hour)
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

func binaryHabit(t *testing.T, name string, done []int) *habitDomain.Habit {
	t.Helper()
	habit, err := habitDomain.NewHabitAt(userID, name, habitDomain.KindManual, start)
	require.NoError(t, err)
	for _, n := range done {
		_, err := habit.LogCompletion(day(n), nil, false)
		require.NoError(t, err)
	}
	return habit
}

func waterHabit(t *testing.T, settings habitDomain.GoalSettings, values map[int]float64) *habitDomain.Habit {
	t.Helper()
	habit, err := habitDomain.NewHabitAt(userID, "Water", habitDomain.KindWater, start)
	require.NoError(t, err)
	require.NoError(t, habit.SetGoal(settings))
	for n, v := range values {
		value := v
		_, err := habit.LogCompletion(day(n), &value, true)
		require.NoError(t, err)
	}
	return habit
}

func ofType(insights []domain.Insight, typ domain.Type) []domain.Insight {
	var out []domain.Insight
	for _, in := range insights {
		if in.Type == typ {
			out = append(out, in)
		}
	}
	return out
}

func about(insights []domain.Insight, habit *habitDomain.Habit) []domain.Insight {
	var out []domain.Insight
	for _, in := range insights {
		if in.IsAbout(habit.ID()) {
			out = append(out, in)
		}
	}
	return out
}

func generate(t *testing.T, asOf time.Time, habits ...*habitDomain.Habit) []domain.Insight {
	t.Helper()
	insights, err := NewEngine(nil, DefaultThresholds()).Generate(habits, asOf)
	require.NoError(t, err)
	return insights
}

func TestEngine_NoHabits(t *testing.T) {
	assert.Empty(t, generate(t, day(0)))
}

func TestEngine_Streaks(t *testing.T) {
	t.Run("three days is a medium streak", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 2))

		insights := generate(t, day(2), habit)

		require.Len(t, insights, 1)
		in := insights[0]
		assert.Equal(t, domain.TypeStreak, in.Type)
		assert.Equal(t, domain.PriorityMedium, in.Priority)
		assert.Equal(t, "3-day streak", in.Title)
		assert.True(t, in.IsPositive)
		assert.False(t, in.Actionable)
		assert.Equal(t, "Read", in.RelatedHabitName)
		require.NotNil(t, in.Value)
		assert.Equal(t, 3.0, *in.Value)
	})

	t.Run("an open day makes the streak actionable", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 3))

		streaks := ofType(generate(t, day(4), habit), domain.TypeStreak)

		require.Len(t, streaks, 1)
		assert.True(t, streaks[0].Actionable)
		assert.Contains(t, streaks[0].Message, "today")
	})

	t.Run("longer streaks are high priority", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 8))

		streaks := ofType(generate(t, day(8), habit), domain.TypeStreak)

		require.Len(t, streaks, 1)
		assert.Equal(t, domain.PriorityHigh, streaks[0].Priority)
	})

	t.Run("streaks past the urgent milestone are urgent", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 44))

		streaks := ofType(generate(t, day(44), habit), domain.TypeStreak)

		require.Len(t, streaks, 1)
		require.NotNil(t, streaks[0].Value)
		assert.Equal(t, 45.0, *streaks[0].Value)
		assert.Equal(t, domain.PriorityUrgent, streaks[0].Priority)
	})

	t.Run("no streak insight below the minimum", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 1))
		assert.Empty(t, ofType(generate(t, day(1), habit), domain.TypeStreak))
	})
}

func TestEngine_Milestones(t *testing.T) {
	t.Run("fires on the day the streak reaches the milestone", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 6))

		insights := generate(t, day(6), habit)

		milestones := ofType(insights, domain.TypeMilestone)
		require.Len(t, milestones, 1)
		assert.Equal(t, "7-day milestone", milestones[0].Title)
		assert.Equal(t, domain.PriorityHigh, milestones[0].Priority)
		assert.Empty(t, ofType(insights, domain.TypeStreak), "the milestone replaces the streak insight")
	})

	t.Run("streak held at seven fires once", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 6))
		// days 7 and 8 fall on rest days, so the streak stays at 7
		habit.SetRestDays(habitDomain.NewWeekdaySet(day(7).Weekday(), day(8).Weekday()))

		fired := 0
		for _, asOf := range []time.Time{day(6), day(7), day(8)} {
			insights := generate(t, asOf, habit)
			streak := 0
			for _, in := range append(ofType(insights, domain.TypeStreak), ofType(insights, domain.TypeMilestone)...) {
				streak = int(*in.Value)
			}
			assert.Equal(t, 7, streak)
			fired += len(ofType(insights, domain.TypeMilestone))
		}
		assert.Equal(t, 1, fired)
	})

	t.Run("thirty days is urgent", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 29))

		milestones := ofType(generate(t, day(29), habit), domain.TypeMilestone)

		require.Len(t, milestones, 1)
		assert.Equal(t, domain.PriorityUrgent, milestones[0].Priority)
	})
}

func TestEngine_Patterns(t *testing.T) {
	t.Run("flags a weak weekday", func(t *testing.T) {
		var done []int
		for n := 0; n < 28; n++ {
			if day(n).Weekday() != time.Sunday {
				done = append(done, n)
			}
		}
		habit := binaryHabit(t, "Stretch", done)

		patterns := ofType(generate(t, day(28), habit), domain.TypePattern)

		require.Len(t, patterns, 1)
		assert.Equal(t, "Sundays need attention", patterns[0].Title)
		assert.False(t, patterns[0].IsPositive)
		assert.True(t, patterns[0].Actionable)
		assert.Equal(t, domain.PriorityMedium, patterns[0].Priority)
	})

	t.Run("names the best day and breaks ties by weekday index", func(t *testing.T) {
		var done []int
		for n := 0; n < 28; n++ {
			if wd := day(n).Weekday(); wd == time.Monday || wd == time.Tuesday {
				done = append(done, n)
			}
		}
		habit := binaryHabit(t, "Gym", done)

		patterns := ofType(generate(t, day(28), habit), domain.TypePattern)

		require.Len(t, patterns, 2)
		titles := []string{patterns[0].Title, patterns[1].Title}
		assert.Contains(t, titles, "Mondays are your strongest day")
		assert.Contains(t, titles, "Sundays need attention")
	})

	t.Run("needs two weeks of history", func(t *testing.T) {
		habit := binaryHabit(t, "Gym", []int{0, 7})
		assert.Empty(t, ofType(generate(t, day(10), habit), domain.TypePattern))
	})
}

func TestEngine_WeekOverWeek(t *testing.T) {
	weekly := func(insights []domain.Insight) []domain.Insight {
		var out []domain.Insight
		for _, in := range ofType(insights, domain.TypeImprovement) {
			if in.RelatedHabitID == nil {
				out = append(out, in)
			}
		}
		return out
	}

	t.Run("improvement", func(t *testing.T) {
		habit := binaryHabit(t, "Read", []int{0, 1, 7, 8, 9, 10})

		improvements := weekly(generate(t, day(13), habit))

		require.Len(t, improvements, 1)
		assert.Equal(t, "Up 100% on last week", improvements[0].Title)
		assert.Equal(t, domain.PriorityMedium, improvements[0].Priority)
		assert.True(t, improvements[0].IsPositive)
	})

	t.Run("material decline", func(t *testing.T) {
		habit := binaryHabit(t, "Read", []int{0, 1, 2, 3, 4, 7, 8})

		improvements := weekly(generate(t, day(13), habit))

		require.Len(t, improvements, 1)
		assert.Equal(t, "Down 60% on last week", improvements[0].Title)
		assert.False(t, improvements[0].IsPositive)
		require.NotNil(t, improvements[0].Value)
		assert.Equal(t, -60.0, *improvements[0].Value)
	})

	t.Run("single-completion dip is not reported", func(t *testing.T) {
		habit := binaryHabit(t, "Read", []int{0, 1, 2, 3, 7, 8, 9})
		assert.Empty(t, weekly(generate(t, day(13), habit)))
	})

	t.Run("no previous activity", func(t *testing.T) {
		habit := binaryHabit(t, "Read", []int{10, 11, 12})
		assert.Empty(t, weekly(generate(t, day(13), habit)))
	})
}

func TestEngine_Overshoot(t *testing.T) {
	values := map[int]float64{}
	for n := 0; n <= 6; n++ {
		values[n] = 2600
	}

	t.Run("fixed goal consistently beaten", func(t *testing.T) {
		habit := waterHabit(t, habitDomain.FixedGoal(2000, "ml"), values)

		var found []domain.Insight
		for _, in := range about(generate(t, day(6), habit), habit) {
			if in.Type == domain.TypeImprovement {
				found = append(found, in)
			}
		}

		require.Len(t, found, 1)
		assert.Equal(t, "Ready for a bigger goal", found[0].Title)
		assert.Contains(t, found[0].Message, "130%")
		assert.Contains(t, found[0].Message, "2000 ml")
		assert.True(t, found[0].Actionable)
	})

	t.Run("progressing goals adjust themselves", func(t *testing.T) {
		habit := waterHabit(t, habitDomain.RampUpGoal(2000, 250, 7, "ml"), values)

		for _, in := range about(generate(t, day(6), habit), habit) {
			assert.NotEqual(t, domain.TypeImprovement, in.Type)
		}
	})
}

func TestEngine_Correlation(t *testing.T) {
	t.Run("ten of twelve shared days", func(t *testing.T) {
		meditate := binaryHabit(t, "Meditate", span(0, 9))
		journal := binaryHabit(t, "Journal", span(0, 9))

		correlations := ofType(generate(t, day(11), meditate, journal), domain.TypeCorrelation)

		require.Len(t, correlations, 1)
		in := correlations[0]
		assert.Equal(t, "Meditate and Journal go together", in.Title)
		assert.True(t, in.IsAbout(meditate.ID()))
		require.NotNil(t, in.Value)
		assert.Equal(t, 100.0, *in.Value)
	})

	t.Run("five of twelve is not enough", func(t *testing.T) {
		meditate := binaryHabit(t, "Meditate", span(0, 9))
		journal := binaryHabit(t, "Journal", span(0, 4))

		assert.Empty(t, ofType(generate(t, day(11), meditate, journal), domain.TypeCorrelation))
	})

	t.Run("too few shared days", func(t *testing.T) {
		meditate := binaryHabit(t, "Meditate", span(0, 7))
		journal := binaryHabit(t, "Journal", span(0, 7))

		assert.Empty(t, ofType(generate(t, day(7), meditate, journal), domain.TypeCorrelation))
	})
}

func TestEngine_Motivation(t *testing.T) {
	t.Run("lapsed streak", func(t *testing.T) {
		habit := binaryHabit(t, "Run", span(0, 4))

		motivation := ofType(generate(t, day(8), habit), domain.TypeMotivation)

		require.Len(t, motivation, 1)
		assert.Equal(t, "Get back to Run", motivation[0].Title)
		assert.Equal(t, domain.PriorityHigh, motivation[0].Priority)
		assert.False(t, motivation[0].IsPositive)
		assert.Equal(t, 5.0, *motivation[0].Value)
	})

	t.Run("nudge when nothing else fires", func(t *testing.T) {
		habit := binaryHabit(t, "Floss", nil)

		insights := generate(t, day(1), habit)

		require.Len(t, insights, 1)
		assert.Equal(t, domain.TypeMotivation, insights[0].Type)
		assert.Equal(t, "Time for Floss", insights[0].Title)
		assert.True(t, insights[0].Actionable)
	})

	t.Run("no nudge for a habit already mentioned", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 3))
		assert.Empty(t, ofType(generate(t, day(3), habit), domain.TypeMotivation))
	})

	t.Run("at most one per habit", func(t *testing.T) {
		habits := []*habitDomain.Habit{
			binaryHabit(t, "Run", span(0, 4)),
			binaryHabit(t, "Floss", nil),
			binaryHabit(t, "Read", []int{8}),
		}

		insights := generate(t, day(8), habits...)

		for _, habit := range habits {
			assert.LessOrEqual(t, len(ofType(about(insights, habit), domain.TypeMotivation)), 1, habit.Name())
		}
	})
}

func TestEngine_Generate(t *testing.T) {
	sampleHabits := func(t *testing.T) []*habitDomain.Habit {
		var sundaysOff []int
		for n := 0; n < 30; n++ {
			if day(n).Weekday() != time.Sunday {
				sundaysOff = append(sundaysOff, n)
			}
		}
		return []*habitDomain.Habit{
			binaryHabit(t, "Read", span(0, 29)),
			binaryHabit(t, "Stretch", sundaysOff),
			binaryHabit(t, "Meditate", span(15, 29)),
			binaryHabit(t, "Journal", span(15, 29)),
			binaryHabit(t, "Run", span(0, 20)),
			binaryHabit(t, "Floss", nil),
		}
	}

	t.Run("ordered by priority then type", func(t *testing.T) {
		insights := generate(t, day(29), sampleHabits(t)...)

		require.NotEmpty(t, insights)
		assert.True(t, sort.SliceIsSorted(insights, func(i, j int) bool {
			return domain.Less(insights[i], insights[j])
		}))
		assert.Equal(t, domain.TypeMilestone, insights[0].Type)
		assert.Equal(t, domain.PriorityUrgent, insights[0].Priority)
	})

	t.Run("idempotent", func(t *testing.T) {
		habits := sampleHabits(t)
		engine := NewEngine(nil, DefaultThresholds())

		first, err := engine.Generate(habits, day(29))
		require.NoError(t, err)
		second, err := engine.Generate(habits, day(29))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("archived habits are ignored", func(t *testing.T) {
		habit := binaryHabit(t, "Read", span(0, 6))
		habit.Archive()

		assert.Empty(t, generate(t, day(6), habit))
	})

	t.Run("invalid goal settings abort the generation", func(t *testing.T) {
		broken := habitDomain.RehydrateHabit(habitDomain.HabitSnapshot{
			ID:        uuid.New(),
			UserID:    userID,
			Name:      "Broken",
			Kind:      habitDomain.KindSteps,
			Goal:      habitDomain.GoalSettings{Progression: habitDomain.ProgressionRampUp},
			CreatedAt: start,
			UpdatedAt: start,
		})

		insights, err := NewEngine(nil, DefaultThresholds()).Generate(
			[]*habitDomain.Habit{binaryHabit(t, "Read", span(0, 6)), broken}, day(6))

		assert.Nil(t, insights)
		assert.ErrorIs(t, err, habitDomain.ErrInvalidConfiguration)
		var cfgErr *habitDomain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, broken.ID(), cfgErr.HabitID)
	})
}

func TestNewEngine_Thresholds(t *testing.T) {
	engine := NewEngine(nil, Thresholds{MinStreak: 2, CorrelationMinRatio: 0.8})

	th := engine.Thresholds()
	assert.Equal(t, 2, th.MinStreak)
	assert.Equal(t, 0.8, th.CorrelationMinRatio)
	assert.Equal(t, DefaultThresholds().Milestones, th.Milestones)
	assert.Equal(t, 84, th.PatternWindowDays)

	habit := binaryHabit(t, "Read", span(0, 1))
	insights, err := engine.Generate([]*habitDomain.Habit{habit}, day(1))
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.True(t, strings.HasPrefix(insights[0].Title, "2-day"))
}
