package dungeon

import (
	"context"
	"sync"
	"time"

	logginglifecycle "shadow-dungeon/engine/logging/lifecycle"
)

// taskSet groups every scheduled task owned by one encounter so teardown
// cancels them as a unit. Once cancel fires and wait returns, no timer
// belonging to the encounter can fire again.
type taskSet struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTaskSet() *taskSet {
	ctx, cancel := context.WithCancel(context.Background())
	return &taskSet{ctx: ctx, cancel: cancel}
}

func (t *taskSet) stop() {
	if t == nil {
		return
	}
	t.cancel()
}

func (t *taskSet) wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}

// tickOutcome tells the run loop which one-shot timers to arm after a
// combat tick.
type tickOutcome struct {
	armFlush   bool
	startGrace bool
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (e *Encounter) combatInterval(participating bool) time.Duration {
	if participating {
		return msToDuration(e.cfg.Combat.ForegroundTickMs)
	}
	return msToDuration(e.cfg.Combat.BackgroundTickMs)
}

// start launches the encounter's run loop. One goroutine serves all of the
// encounter's named tasks, so per-encounter work is serialized by
// construction and batch items never interleave mid-pass.
func (e *Encounter) start() {
	e.tasks = newTaskSet()
	e.tasks.wg.Add(1)
	go e.run()
}

func (e *Encounter) run() {
	defer e.tasks.wg.Done()

	combat := time.NewTicker(e.combatInterval(e.Participating()))
	defer combat.Stop()
	population := time.NewTicker(msToDuration(e.cfg.Population.TickMs))
	defer population.Stop()
	retry := time.NewTicker(msToDuration(e.cfg.Extraction.RetryIntervalMs))
	defer retry.Stop()

	flush := time.NewTimer(time.Hour)
	flush.Stop()
	defer flush.Stop()
	grace := time.NewTimer(time.Hour)
	grace.Stop()
	defer grace.Stop()

	for {
		select {
		case <-e.tasks.ctx.Done():
			return
		case participating := <-e.participationCh:
			combat.Reset(e.combatInterval(participating))
		case now := <-combat.C:
			outcome := e.runCombatTick(now)
			if outcome.armFlush {
				flush.Reset(msToDuration(e.cfg.Extraction.AccumulationWindowMs))
			}
			if outcome.startGrace {
				grace.Reset(msToDuration(e.cfg.Lifecycle.GraceWindowMs))
			}
		case now := <-population.C:
			e.runPopulationTick(now)
		case now := <-retry.C:
			e.drainRetryQueue(now)
		case now := <-flush.C:
			if e.flushAccumulator(now) {
				flush.Reset(msToDuration(e.cfg.Extraction.AccumulationWindowMs))
			}
		case now := <-grace.C:
			e.completeGrace(now)
		}
	}
}

// completeGrace finishes the encounter when the boss grace window elapses.
func (e *Encounter) completeGrace(now time.Time) {
	e.mu.Lock()
	if e.state != StateBossGraceWindow {
		e.mu.Unlock()
		return
	}
	grant, err := e.finalizeLocked(now, StateCompleted, "")
	e.mu.Unlock()
	if err == nil {
		e.rewards.GrantRewards(e.ID, grant)
	}
}

// halt fails the encounter from outside the run loop.
func (e *Encounter) halt(reason string) error {
	e.mu.Lock()
	grant, err := e.finalizeLocked(time.Now(), StateFailed, reason)
	e.mu.Unlock()
	if err == nil {
		e.rewards.GrantRewards(e.ID, grant)
	}
	return err
}

// finalizeLocked performs the terminal transition: per-encounter
// collections cleared, the task group cancelled, and the record detached
// from the registry. The caller reports the returned grant to the reward
// sink after releasing e.mu, since sinks may call back into the encounter.
// A second terminal transition for the same encounter is a structural
// violation and returns ErrAlreadyTerminal.
func (e *Encounter) finalizeLocked(now time.Time, to EncounterState, reason string) (RewardGrant, error) {
	if e.state.Terminal() {
		return RewardGrant{}, ErrAlreadyTerminal
	}
	e.state = to

	grant := e.rewardGrantLocked(now)
	e.hostiles = nil
	e.boss = nil
	e.queue = nil
	e.accumulator = nil
	e.roster = nil

	ctx := context.Background()
	if to == StateCompleted {
		e.counters.encountersCompleted.Add(1)
		logginglifecycle.EncounterCompleted(ctx, e.publisher, e.ID, e.tick, logginglifecycle.EncounterCompletedPayload{
			UserXP:             grant.UserXP,
			RosterXPShare:      grant.RosterXPShare,
			CombatTimeCreditMs: grant.CombatTimeCreditMs,
			HostilesDefeated:   e.hostilesDefeated,
			ShadowsExtracted:   e.shadowsExtracted,
		})
	} else {
		e.counters.encountersFailed.Add(1)
		logginglifecycle.EncounterFailed(ctx, e.publisher, e.ID, e.tick, reason)
	}

	e.tasks.stop()
	if e.registry != nil {
		e.registry.detach(e.ID)
	}
	return grant, nil
}

// rewardGrantLocked aggregates the payout. Rewards scale down when the
// user never observed the encounter.
func (e *Encounter) rewardGrantLocked(now time.Time) RewardGrant {
	userXP := e.xpEarned
	if !e.participating {
		userXP = int64(float64(userXP) * e.cfg.Lifecycle.UnobservedRewardFraction)
	}
	rosterShare := int64(float64(userXP) * e.cfg.Lifecycle.RosterShareFraction)
	combatTime := int64(0)
	if !e.activeSince.IsZero() && now.After(e.activeSince) {
		combatTime = now.Sub(e.activeSince).Milliseconds()
	}
	return RewardGrant{
		UserXP:             userXP,
		RosterXPShare:      rosterShare,
		CombatTimeCreditMs: combatTime,
	}
}
