// Package progression defines the experience-to-level curve and level-up
// arithmetic. Everything here is pure; persistence happens elsewhere.
package progression

// MaxLevel caps the level curve. Experience keeps accumulating past the cap
// but no further levels are awarded.
const MaxLevel = 50

// xpPerLevelStep scales the quadratic curve: reaching level n from level 1
// costs 100 * n * (n-1) / 2 total experience.
const xpPerLevelStep = 100

// ExperienceForLevel returns the total experience required to reach the given
// level. Level 1 costs nothing.
//
// Precondition: level must be >= 1.
// Postcondition: Strictly increasing in level.
func ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return xpPerLevelStep * level * (level - 1) / 2
}

// LevelForExperience returns the level a player with the given total
// experience holds.
//
// Precondition: experience must be >= 0.
// Postcondition: Returns a value in [1, MaxLevel];
// ExperienceForLevel(result) <= experience < ExperienceForLevel(result+1)
// for results below the cap.
func LevelForExperience(experience int) int {
	level := 1
	for level < MaxLevel && experience >= ExperienceForLevel(level+1) {
		level++
	}
	return level
}

// Result describes the outcome of an experience grant.
type Result struct {
	// Experience is the new experience total.
	Experience int
	// Level is the level implied by the new total.
	Level int
	// LeveledUp reports whether the grant crossed at least one threshold.
	LeveledUp bool
	// LevelsGained is the number of thresholds crossed (0 when LeveledUp is false).
	LevelsGained int
}

// Grant applies an experience gain to an existing total.
//
// Precondition: current must be >= 0; amount must be >= 0.
// Postcondition: Result.Level == LevelForExperience(Result.Experience).
func Grant(current, amount int) Result {
	before := LevelForExperience(current)
	total := current + amount
	after := LevelForExperience(total)
	return Result{
		Experience:   total,
		Level:        after,
		LeveledUp:    after > before,
		LevelsGained: after - before,
	}
}
