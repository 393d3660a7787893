package services

import (
	"math"
	"time"

	"habit-league-system/models"
)

// Morning bonus window, half-open, UTC.
const (
	morningWindowStartHour = 6
	morningWindowEndHour   = 9
	morningBonusFactor     = 1.5
)

// bonusBreakdown reports how a base amount was transformed by the bonus
// pipeline.
type bonusBreakdown struct {
	Final             int64
	MorningApplied    bool
	StreakApplied     bool
	BoosterMultiplier int // 0 when no booster was live
}

// applyBonuses runs the bonus pipeline over base and mutates u's one-shot
// flags as bonuses are consumed. The order is fixed and load-bearing:
// bonuses compound multiplicatively, and the floor lands only at the
// morning step.
//
//  1. morning bonus ×1.5 (floored), once per UTC day
//  2. streak bonus ×2, single-use flag cleared on consumption
//  3. active booster ×2 or ×3 (latest expiry already selected by caller)
func applyBonuses(u *models.UserProgression, booster *models.Booster, now time.Time, base int64) bonusBreakdown {
	out := bonusBreakdown{Final: base}

	if inMorningWindow(now) && !u.MorningBonusUsed(now) {
		out.Final = int64(math.Floor(float64(out.Final) * morningBonusFactor))
		granted := now.UTC()
		u.LastMorningBonusAt = &granted
		out.MorningApplied = true
	}

	if u.HasStreakBonus {
		out.Final *= 2
		u.HasStreakBonus = false
		out.StreakApplied = true
	}

	if booster != nil {
		out.Final *= int64(booster.Multiplier)
		out.BoosterMultiplier = booster.Multiplier
	}

	return out
}

func inMorningWindow(now time.Time) bool {
	h := now.UTC().Hour()
	return h >= morningWindowStartHour && h < morningWindowEndHour
}
