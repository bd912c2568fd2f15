package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"certshield/coi-backend/internal/compliance"
)

var sweepTime = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func daysAgo(days int) *time.Time {
	t := sweepTime.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestDecideNoActionForCompliantStatuses(t *testing.T) {
	hist := History{}
	for _, status := range []compliance.Status{compliance.StatusCompliant, compliance.StatusException} {
		decision := DecideNextAction(status, nil, hist, sweepTime, 2)
		assert.Equal(t, ActionNone, decision.Kind, "status %s", status)
	}
}

func TestDecideStageZeroImmediately(t *testing.T) {
	decision := DecideNextAction(compliance.StatusNonCompliant, nil, History{}, sweepTime, 2)

	assert.Equal(t, ActionSendStage, decision.Kind)
	assert.Equal(t, 0, decision.Stage)
}

func TestDecideStageAdvancesAfterWaiting(t *testing.T) {
	hist := History{LastSentAt: daysAgo(2), MaxStage: 0, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, nil, hist, sweepTime, 2)

	assert.Equal(t, ActionSendStage, decision.Kind)
	assert.Equal(t, 1, decision.Stage)
	assert.Equal(t, 2, decision.DaysWaiting)
	assert.False(t, decision.Urgent)
}

func TestDecideHoldsBeforeMinimumWait(t *testing.T) {
	// 47 hours is still one whole day, not two.
	lastSent := sweepTime.Add(-47 * time.Hour)
	hist := History{LastSentAt: &lastSent, MaxStage: 0, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, nil, hist, sweepTime, 2)

	assert.Equal(t, ActionNone, decision.Kind)
	assert.Equal(t, 1, decision.DaysWaiting)
}

func TestDecideStagesAreMonotonic(t *testing.T) {
	// Even with a huge wait, the sequence advances one stage at a time.
	hist := History{LastSentAt: daysAgo(30), MaxStage: 0, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, nil, hist, sweepTime, 2)

	assert.Equal(t, ActionSendStage, decision.Kind)
	assert.Equal(t, 1, decision.Stage)
	assert.True(t, decision.Urgent)
}

func TestDecideStopsAfterFinalStage(t *testing.T) {
	hist := History{LastSentAt: daysAgo(10), MaxStage: FinalStage, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, nil, hist, sweepTime, 2)

	assert.Equal(t, ActionNone, decision.Kind)
}

func TestDecideUrgentAtSevenDays(t *testing.T) {
	hist := History{LastSentAt: daysAgo(7), MaxStage: 1, HasStage: true}

	decision := DecideNextAction(compliance.StatusPending, nil, hist, sweepTime, 2)

	assert.Equal(t, ActionSendStage, decision.Kind)
	assert.Equal(t, 2, decision.Stage)
	assert.True(t, decision.Urgent)
}

func TestDecideCriticalAlertWhenOnSiteToday(t *testing.T) {
	onSite := sweepTime
	hist := History{LastSentAt: daysAgo(1), MaxStage: 1, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, &onSite, hist, sweepTime, 2)

	assert.Equal(t, ActionCriticalAlert, decision.Kind)
}

func TestDecideCriticalAlertOutranksStageSequence(t *testing.T) {
	// On-site date passed; even though the stage sequence would also fire,
	// the critical path wins.
	onSite := sweepTime.Add(-3 * 24 * time.Hour)
	hist := History{LastSentAt: daysAgo(4), MaxStage: 0, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, &onSite, hist, sweepTime, 2)

	assert.Equal(t, ActionCriticalAlert, decision.Kind)
}

func TestDecideCriticalAlertFiresOnce(t *testing.T) {
	onSite := sweepTime
	hist := History{LastSentAt: daysAgo(4), MaxStage: 0, HasStage: true, CriticalAlertSent: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, &onSite, hist, sweepTime, 2)

	// With the alert already out, the staged sequence continues as usual.
	assert.Equal(t, ActionSendStage, decision.Kind)
	assert.Equal(t, 1, decision.Stage)
}

func TestDecideNoCriticalAlertBeforeOnSiteDate(t *testing.T) {
	onSite := sweepTime.Add(5 * 24 * time.Hour)
	hist := History{LastSentAt: daysAgo(2), MaxStage: 0, HasStage: true}

	decision := DecideNextAction(compliance.StatusNonCompliant, &onSite, hist, sweepTime, 2)

	assert.Equal(t, ActionSendStage, decision.Kind)
}

func TestDecideFullSequenceOverTime(t *testing.T) {
	// Day 0: deficiency notice. Day 2: reminder 1. Day 4: reminder 2.
	// Day 6: final notice. Day 8: silence.
	hist := History{}
	day := func(n int) time.Time { return sweepTime.Add(time.Duration(n) * 24 * time.Hour) }

	d0 := DecideNextAction(compliance.StatusNonCompliant, nil, hist, day(0), 2)
	assert.Equal(t, 0, d0.Stage)
	sent0 := day(0)
	hist = History{LastSentAt: &sent0, MaxStage: 0, HasStage: true}

	d1 := DecideNextAction(compliance.StatusNonCompliant, nil, hist, day(2), 2)
	assert.Equal(t, ActionSendStage, d1.Kind)
	assert.Equal(t, 1, d1.Stage)
	sent1 := day(2)
	hist = History{LastSentAt: &sent1, MaxStage: 1, HasStage: true}

	d2 := DecideNextAction(compliance.StatusNonCompliant, nil, hist, day(4), 2)
	assert.Equal(t, 2, d2.Stage)
	sent2 := day(4)
	hist = History{LastSentAt: &sent2, MaxStage: 2, HasStage: true}

	d3 := DecideNextAction(compliance.StatusNonCompliant, nil, hist, day(6), 2)
	assert.Equal(t, FinalStage, d3.Stage)
	sent3 := day(6)
	hist = History{LastSentAt: &sent3, MaxStage: 3, HasStage: true}

	d4 := DecideNextAction(compliance.StatusNonCompliant, nil, hist, day(8), 2)
	assert.Equal(t, ActionNone, d4.Kind)
}
