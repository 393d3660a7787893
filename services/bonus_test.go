package services

import (
	"testing"
	"time"

	"habit-league-system/models"
)

var (
	morning = time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC)  // inside 06:00-09:00
	evening = time.Date(2025, 3, 12, 20, 0, 0, 0, time.UTC) // outside window
)

func TestApplyBonuses_FullCompounding(t *testing.T) {
	u := &models.UserProgression{HasStreakBonus: true}
	booster := &models.Booster{Multiplier: 2, ExpiresAt: morning.Add(time.Hour)}

	out := applyBonuses(u, booster, morning, 100)

	// 100 * 1.5 -> 150, * 2 streak -> 300, * 2 booster -> 600
	if out.Final != 600 {
		t.Errorf("Final = %d, want 600", out.Final)
	}
	if !out.MorningApplied || !out.StreakApplied || out.BoosterMultiplier != 2 {
		t.Errorf("breakdown = %+v, want all three bonuses applied", out)
	}
}

func TestApplyBonuses_FloorOnlyAtMorningStep(t *testing.T) {
	u := &models.UserProgression{HasStreakBonus: true}
	booster := &models.Booster{Multiplier: 3, ExpiresAt: morning.Add(time.Hour)}

	out := applyBonuses(u, booster, morning, 101)

	// floor(101*1.5)=151, then *2=302, then *3=906. Flooring after the
	// multipliers would give floor(909.0)=909 instead.
	if out.Final != 906 {
		t.Errorf("Final = %d, want 906 (floor applied at the morning step)", out.Final)
	}
}

func TestApplyBonuses_OutsideMorningWindow(t *testing.T) {
	u := &models.UserProgression{}
	out := applyBonuses(u, nil, evening, 100)
	if out.Final != 100 {
		t.Errorf("Final = %d, want 100", out.Final)
	}
	if out.MorningApplied {
		t.Error("MorningApplied = true at 20:00 UTC")
	}
	if u.LastMorningBonusAt != nil {
		t.Error("LastMorningBonusAt set outside the window")
	}
}

func TestApplyBonuses_MorningWindowBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		want bool
	}{
		{5, false},
		{6, true},
		{8, true},
		{9, false}, // half-open: 09:00 is out
	}
	for _, tc := range cases {
		at := time.Date(2025, 3, 12, tc.hour, 0, 0, 0, time.UTC)
		u := &models.UserProgression{}
		out := applyBonuses(u, nil, at, 100)
		if out.MorningApplied != tc.want {
			t.Errorf("hour %02d: MorningApplied = %v, want %v", tc.hour, out.MorningApplied, tc.want)
		}
	}
}

func TestApplyBonuses_MorningOncePerDay(t *testing.T) {
	u := &models.UserProgression{}

	first := applyBonuses(u, nil, morning, 100)
	if first.Final != 150 || !first.MorningApplied {
		t.Fatalf("first award = %+v, want 150 with morning bonus", first)
	}

	second := applyBonuses(u, nil, morning.Add(time.Hour), 100)
	if second.Final != 100 || second.MorningApplied {
		t.Errorf("second award same day = %+v, want plain 100", second)
	}

	// Next UTC day the permit is fresh again.
	third := applyBonuses(u, nil, morning.AddDate(0, 0, 1), 100)
	if third.Final != 150 || !third.MorningApplied {
		t.Errorf("next-day award = %+v, want 150 with morning bonus", third)
	}
}

func TestApplyBonuses_StreakFlagIsOneShot(t *testing.T) {
	u := &models.UserProgression{HasStreakBonus: true}

	out := applyBonuses(u, nil, evening, 100)
	if out.Final != 200 || !out.StreakApplied {
		t.Fatalf("first award = %+v, want doubled", out)
	}
	if u.HasStreakBonus {
		t.Error("HasStreakBonus still set after consumption")
	}

	out = applyBonuses(u, nil, evening, 100)
	if out.Final != 100 || out.StreakApplied {
		t.Errorf("second award = %+v, want plain 100", out)
	}
}

func TestApplyBonuses_StreakConsumedEvenWithMorningBonus(t *testing.T) {
	u := &models.UserProgression{HasStreakBonus: true}
	out := applyBonuses(u, nil, morning, 100)
	if out.Final != 300 {
		t.Errorf("Final = %d, want 300 (150 morning, doubled by streak)", out.Final)
	}
	if u.HasStreakBonus {
		t.Error("HasStreakBonus survived a combined morning+streak award")
	}
}

func TestApplyBonuses_ZeroBase(t *testing.T) {
	u := &models.UserProgression{HasStreakBonus: true}
	booster := &models.Booster{Multiplier: 3, ExpiresAt: morning.Add(time.Hour)}
	out := applyBonuses(u, booster, morning, 0)
	if out.Final != 0 {
		t.Errorf("Final = %d, want 0", out.Final)
	}
}
