package dungeon

import (
	"context"
	"fmt"
	"time"

	"shadow-dungeon/engine/logging"
	loggingcombat "shadow-dungeon/engine/logging/combat"
	logginglifecycle "shadow-dungeon/engine/logging/lifecycle"
	"shadow-dungeon/engine/stats"
)

// runCombatTick advances every combatant's timer in one synchronous pass.
// All cooldown math uses the single now snapshot taken at entry, so no
// combatant observes a partially updated world mid-tick.
func (e *Encounter) runCombatTick(now time.Time) tickOutcome {
	outcome, grant, wiped := e.advanceCombat(now)
	if wiped {
		e.rewards.GrantRewards(e.ID, grant)
	}
	return outcome
}

// advanceCombat holds e.mu for the whole pass. A friendly wipe finalizes
// the encounter and hands the grant back for emission outside the lock.
func (e *Encounter) advanceCombat(now time.Time) (tickOutcome, RewardGrant, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var outcome tickOutcome
	if e.state != StateActive && e.state != StateBossGraceWindow {
		return outcome, RewardGrant{}, false
	}
	e.tick++
	e.counters.ticks.Add(1)

	// Start-of-tick target pools. Deaths within the pass do not reshape
	// targeting until the next tick; overkill damage is simply absorbed.
	aliveHostiles := make([]*HostileEntity, 0, len(e.hostiles))
	for _, hostile := range e.hostiles {
		if hostile.Alive() {
			aliveHostiles = append(aliveHostiles, hostile)
		}
	}
	aliveRoster := make([]*shadowCombatant, 0, len(e.roster))
	for _, shadow := range e.roster {
		if shadow.Alive() {
			aliveRoster = append(aliveRoster, shadow)
		}
	}
	bossAlive := e.boss.Alive()

	for _, shadow := range aliveRoster {
		actor := logging.EntityRef{ID: shadow.ShadowID, Kind: logging.EntityKindShadow}
		e.resolveIsolated(actor, func() {
			e.resolveShadowAttacksLocked(shadow, now, aliveHostiles, bossAlive)
		})
	}

	for _, hostile := range aliveHostiles {
		actor := logging.EntityRef{ID: hostile.ID, Kind: logging.EntityKindHostile}
		e.resolveIsolated(actor, func() {
			e.resolveHostileAttacksLocked(hostile, now, aliveRoster)
		})
	}
	if bossAlive {
		actor := logging.EntityRef{ID: e.boss.ID, Kind: logging.EntityKindBoss}
		e.resolveIsolated(actor, func() {
			e.resolveHostileAttacksLocked(e.boss, now, aliveRoster)
		})
	}

	if e.sweepDefeatedHostilesLocked(now) {
		outcome.armFlush = true
	}

	if bossAlive && !e.boss.Alive() {
		e.enterGraceLocked()
		outcome.startGrace = true
	}

	e.processResurrectionsLocked(now)
	e.checkRosterHealthLocked()

	if e.rosterWipedLocked() && e.avatar.Health <= 0 {
		grant, err := e.finalizeLocked(now, StateFailed, "friendly wipe")
		return tickOutcome{}, grant, err == nil
	}

	return outcome, RewardGrant{}, false
}

// resolveIsolated runs one combatant's attack resolution with panic
// isolation: a fault is counted, logged once, and skipped without
// aborting the rest of the batch.
func (e *Encounter) resolveIsolated(actor logging.EntityRef, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.counters.attackFaults.Add(1)
			loggingcombat.AttackFault(context.Background(), e.publisher, e.ID, e.tick, actor, fmt.Sprint(r))
		}
	}()
	fn()
}

// availableAttacks computes how many discrete attacks fit in the time
// since the combatant's last swing. The boolean reports whether the
// catch-up cap truncated the backlog.
func (e *Encounter) availableAttacks(now, last time.Time, cooldown time.Duration) (int, bool) {
	if cooldown <= 0 {
		return 0, false
	}
	elapsed := now.Sub(last)
	if elapsed < cooldown {
		return 0, false
	}
	attacks := int(elapsed / cooldown)
	if attacks > e.cfg.Combat.MaxAttacksPerTick {
		return e.cfg.Combat.MaxAttacksPerTick, true
	}
	return attacks, false
}

// consumeCooldown advances lastAttackAt by one varied cooldown so time
// not yet consumed carries into the next tick.
func (e *Encounter) consumeCooldown(last time.Time, cooldown time.Duration) time.Time {
	return last.Add(time.Duration(float64(cooldown) * e.vary(1, e.cfg.Combat.CooldownVariancePct)))
}

func (e *Encounter) resolveShadowAttacksLocked(shadow *shadowCombatant, now time.Time, hostiles []*HostileEntity, bossAlive bool) {
	attacks, capped := e.availableAttacks(now, shadow.lastAttackAt, shadow.Cooldown)
	for i := 0; i < attacks; i++ {
		target := e.pickHostileTargetLocked(hostiles, bossAlive)
		if target == nil {
			break
		}
		target.Health -= e.vary(shadow.Damage, e.cfg.Combat.DamageVariancePct)
		e.counters.attacksResolved.Add(1)
		shadow.lastAttackAt = e.consumeCooldown(shadow.lastAttackAt, shadow.Cooldown)
	}
	if capped {
		shadow.lastAttackAt = now
	}
}

// pickHostileTargetLocked applies the friendly targeting policy: mobs with
// high probability, the boss with low probability, so the roster cannot
// rush the boss down while trash remains.
func (e *Encounter) pickHostileTargetLocked(hostiles []*HostileEntity, bossAlive bool) *HostileEntity {
	wantBoss := e.rollChance(e.cfg.Combat.BossTargetChance)
	if wantBoss && bossAlive {
		return e.boss
	}
	if len(hostiles) > 0 {
		return hostiles[e.randomIndex(len(hostiles))]
	}
	if bossAlive {
		return e.boss
	}
	return nil
}

// resolveHostileAttacksLocked resolves one hostile's (or the boss's)
// backlog. Each attack splashes several roster targets at once; the user
// avatar is reachable only once the whole roster is down.
func (e *Encounter) resolveHostileAttacksLocked(hostile *HostileEntity, now time.Time, roster []*shadowCombatant) {
	cooldown := hostile.AttackCooldown()
	damage := hostile.Derived[stats.DerivedAttackDamage]
	attacks, capped := e.availableAttacks(now, hostile.lastAttackAt, cooldown)
	for i := 0; i < attacks; i++ {
		if len(roster) > 0 {
			for _, target := range e.pickSplashTargetsLocked(roster) {
				target.Health -= e.vary(damage, e.cfg.Combat.DamageVariancePct)
			}
		} else {
			e.avatar.Health -= e.vary(damage, e.cfg.Combat.DamageVariancePct)
		}
		e.counters.attacksResolved.Add(1)
		hostile.lastAttackAt = e.consumeCooldown(hostile.lastAttackAt, cooldown)
	}
	if capped {
		hostile.lastAttackAt = now
	}
}

// pickSplashTargetsLocked samples up to SplashTargets distinct roster
// members for one area attack.
func (e *Encounter) pickSplashTargetsLocked(roster []*shadowCombatant) []*shadowCombatant {
	count := e.cfg.Combat.SplashTargets
	if count >= len(roster) {
		return roster
	}
	picked := make([]*shadowCombatant, 0, count)
	used := make(map[int]struct{}, count)
	for len(picked) < count {
		idx := e.randomIndex(len(roster))
		if _, dup := used[idx]; dup {
			continue
		}
		used[idx] = struct{}{}
		picked = append(picked, roster[idx])
	}
	return picked
}

// sweepDefeatedHostilesLocked hands newly dead hostiles to the extraction
// accumulator, or prunes them immediately when the user is absent.
// Returns true when the accumulation window should be armed.
func (e *Encounter) sweepDefeatedHostilesLocked(now time.Time) bool {
	enqueued := false
	kept := e.hostiles[:0]
	for _, hostile := range e.hostiles {
		if hostile.Alive() || hostile.awaitingExtraction {
			kept = append(kept, hostile)
			continue
		}
		e.hostilesDefeated++
		e.counters.hostilesDefeated.Add(1)
		e.xpEarned += e.xpForRankLocked(hostile)
		if !e.participating {
			continue
		}
		hostile.awaitingExtraction = true
		e.accumulator = append(e.accumulator, &ExtractionTicket{
			HostileID:  hostile.ID,
			Status:     TicketPending,
			EnqueuedAt: now,
			target:     hostile.Snapshot(),
		})
		kept = append(kept, hostile)
		enqueued = true
	}
	for i := len(kept); i < len(e.hostiles); i++ {
		e.hostiles[i] = nil
	}
	e.hostiles = kept
	return enqueued
}

func (e *Encounter) xpForRankLocked(hostile *HostileEntity) int64 {
	xp := e.cfg.Lifecycle.XPPerRank[hostile.Rank]
	if hostile.Boss {
		xp = int64(float64(xp) * e.cfg.Lifecycle.BossStatMultiplier)
	}
	return xp
}

// enterGraceLocked freezes the population and opens the bonus boss
// extraction window.
func (e *Encounter) enterGraceLocked() {
	e.state = StateBossGraceWindow
	e.hostilesDefeated++
	e.counters.hostilesDefeated.Add(1)
	e.xpEarned += e.xpForRankLocked(e.boss)
	if !e.participating {
		e.pruneDefeatedLocked()
	}
	logginglifecycle.BossDefeated(context.Background(), e.publisher, e.ID, e.tick, e.boss.ID, logginglifecycle.BossDefeatedPayload{
		Rank:          e.Rank.String(),
		GraceWindowMs: int64(e.cfg.Lifecycle.GraceWindowMs),
	})
}

func (e *Encounter) rosterWipedLocked() bool {
	for _, shadow := range e.roster {
		if shadow.Alive() {
			return false
		}
	}
	return true
}

// checkRosterHealthLocked emits the critical-health warning once per
// episode; the latch resets when the roster recovers above the threshold.
func (e *Encounter) checkRosterHealthLocked() {
	if len(e.roster) == 0 {
		return
	}
	total, max, alive := 0.0, 0.0, 0
	for _, shadow := range e.roster {
		if shadow.Health > 0 {
			total += shadow.Health
			alive++
		}
		max += shadow.MaxHealth
	}
	if max <= 0 {
		return
	}
	fraction := total / max
	if fraction >= e.cfg.Combat.CriticalRosterFraction {
		e.rosterCritical = false
		return
	}
	if e.rosterCritical {
		return
	}
	e.rosterCritical = true
	loggingcombat.CriticalRosterHealth(context.Background(), e.publisher, e.ID, e.tick, loggingcombat.CriticalRosterHealthPayload{
		HealthFraction: fraction,
		AliveShadows:   alive,
		RosterSize:     len(e.roster),
	})
}
