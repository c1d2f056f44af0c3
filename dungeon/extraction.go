package dungeon

import (
	"context"
	"fmt"
	"math"
	"time"

	"shadow-dungeon/engine/logging"
	loggingextraction "shadow-dungeon/engine/logging/extraction"
	"shadow-dungeon/engine/stats"
)

// CalculateExtractionChance computes the per-attempt conversion chance.
// The formula's structure is the contract; every coefficient is supplied
// by config. The chance is re-rolled independently on every attempt, and
// a target more than MaxRankGap tiers above the user is never extractable
// regardless of stats.
func CalculateExtractionChance(cfg ExtractionConfig, user stats.UserStats, userRank stats.Rank, target HostileSnapshot) float64 {
	rankDiff := target.Rank.Index() - userRank.Index()
	if rankDiff > cfg.MaxRankGap {
		return 0
	}

	base := user.Intelligence * cfg.IntelligenceBase
	statsMult := 1 +
		user.Intelligence*cfg.IntelligenceWeight +
		user.Perception*cfg.PerceptionWeight +
		user.Strength*cfg.StrengthWeight +
		user.Total()/1000*cfg.TotalStatsWeight

	rankMult := 0.0
	if idx := target.Rank.Index(); idx >= 0 && idx < len(cfg.RankMultipliers) {
		rankMult = cfg.RankMultipliers[idx]
	}

	penalty := 1.0
	if rankDiff > 0 {
		penalty = math.Pow(cfg.RankPenaltyBase, float64(rankDiff))
	}

	resistance := cfg.ResistanceCap
	if user.Strength > 0 {
		resistance = math.Min(cfg.ResistanceCap, target.Strength/(user.Strength*2))
	}

	chance := base * statsMult * rankMult * penalty * (1 - resistance)
	if chance < 0 {
		return 0
	}
	if chance > 1 {
		return 1
	}
	return chance
}

// flushAccumulator drains one immediate-stage batch: deaths coalesced in
// the accumulation window get their first attempt together. Returns true
// when more deaths are still waiting, so the run loop re-arms the window.
func (e *Encounter) flushAccumulator(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Terminal() {
		return false
	}

	batch := e.takeBatchLocked(&e.accumulator)
	for _, ticket := range batch {
		e.attemptTicketLocked(ticket)
	}
	e.routeBatchLocked(batch, now)
	return len(e.accumulator) > 0
}

// drainRetryQueue runs one retry-stage batch for attempts two and three.
func (e *Encounter) drainRetryQueue(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Terminal() {
		return
	}

	batch := e.takeBatchLocked(&e.queue)
	for _, ticket := range batch {
		e.attemptTicketLocked(ticket)
	}
	e.routeBatchLocked(batch, now)
}

// takeBatchLocked removes up to BatchSize tickets FIFO from a stage.
func (e *Encounter) takeBatchLocked(stage *[]*ExtractionTicket) []*ExtractionTicket {
	n := e.cfg.Extraction.BatchSize
	if n > len(*stage) {
		n = len(*stage)
	}
	batch := (*stage)[:n:n]
	*stage = (*stage)[n:]
	return batch
}

// routeBatchLocked settles every ticket of a processed batch: terminal
// tickets purge their hostile from the population in the same batch,
// pending ones move to the retry queue.
func (e *Encounter) routeBatchLocked(batch []*ExtractionTicket, now time.Time) {
	for _, ticket := range batch {
		switch ticket.Status {
		case TicketSuccess, TicketFailed:
			e.removeHostileLocked(ticket.HostileID)
		default:
			ticket.EnqueuedAt = now
			e.queue = append(e.queue, ticket)
		}
	}
}

// attemptTicketLocked performs exactly one probabilistic attempt. The
// attempt itself runs with panic isolation, but the terminal check always
// executes afterwards: a fault consumes the attempt, and a fault on the
// final attempt still fails the ticket so it leaves the pipeline.
func (e *Encounter) attemptTicketLocked(ticket *ExtractionTicket) {
	ticket.Attempts++
	e.counters.extractionAttempts.Add(1)
	ref := logging.EntityRef{ID: ticket.HostileID, Kind: logging.EntityKindHostile}

	chance := e.rollTicketLocked(ticket, ref)

	if ticket.Status == TicketPending && ticket.Attempts >= e.cfg.Extraction.MaxAttempts {
		ticket.Status = TicketFailed
		e.counters.extractionFailures.Add(1)
		loggingextraction.Failed(context.Background(), e.publisher, e.ID, e.tick, ref, loggingextraction.OutcomePayload{
			Rank:    ticket.target.Rank.String(),
			Attempt: ticket.Attempts,
			Chance:  chance,
		})
	}
}

// rollTicketLocked runs the roll and the conversion call for one attempt,
// isolating a panic so the batch continues with its siblings.
func (e *Encounter) rollTicketLocked(ticket *ExtractionTicket, ref logging.EntityRef) (chance float64) {
	defer func() {
		if r := recover(); r != nil {
			e.counters.attackFaults.Add(1)
			loggingextraction.Fault(context.Background(), e.publisher, e.ID, e.tick, ref, fmt.Sprint(r))
		}
	}()

	chance = CalculateExtractionChance(e.cfg.Extraction, e.user.Stats, e.user.Rank, ticket.target)
	if chance > 0 && e.rollChance(chance) {
		converted, collectibleID := e.convertAndVerify(ticket.target)
		if converted {
			ticket.Status = TicketSuccess
			e.shadowsExtracted++
			e.counters.extractionSuccesses.Add(1)
			loggingextraction.Succeeded(context.Background(), e.publisher, e.ID, e.tick, ref, loggingextraction.OutcomePayload{
				Rank:          ticket.target.Rank.String(),
				Attempt:       ticket.Attempts,
				Chance:        chance,
				CollectibleID: collectibleID,
			})
		}
	}
	return chance
}

// convertAndVerify runs the conversion call and confirms it through two
// independent signals: the call's own result and the before/after count
// delta on the collectible store. On disagreement the delta wins and a
// consistency warning is published, guarding against a swallowed failure
// inside the conversion call.
func (e *Encounter) convertAndVerify(target HostileSnapshot) (bool, string) {
	ctx := context.Background()
	if e.convertMu != nil {
		e.convertMu.Lock()
		defer e.convertMu.Unlock()
	}

	before, beforeErr := e.store.Count(ctx)
	result, convertErr := e.store.Convert(ctx, target, e.user)
	after, afterErr := e.store.Count(ctx)

	eventSignal := convertErr == nil && result.Success
	if beforeErr != nil || afterErr != nil {
		// Count unavailable; the explicit signal is all that is left.
		return eventSignal, result.CollectibleID
	}

	converted := after-before > 0
	if converted != eventSignal {
		ref := logging.EntityRef{ID: target.ID, Kind: logging.EntityKindHostile}
		loggingextraction.ConsistencyWarning(ctx, e.publisher, e.ID, e.tick, ref, loggingextraction.ConsistencyWarningPayload{
			EventSignal: eventSignal,
			CountDelta:  after - before,
		})
	}
	return converted, result.CollectibleID
}

// AttemptBossExtraction runs one try of the bonus boss track. It is only
// open during the grace window, only while the user participates, and is
// limited to BossAttempts tries, independent of the regular pipeline.
func (e *Encounter) AttemptBossExtraction(ctx context.Context) (bool, float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Terminal() {
		return false, 0, ErrAlreadyTerminal
	}
	if e.state != StateBossGraceWindow || !e.participating {
		return false, 0, ErrNotAccepting
	}
	if e.bossAttemptsUsed >= e.cfg.Extraction.BossAttempts {
		return false, 0, ErrBossAttemptsExhausted
	}
	e.bossAttemptsUsed++
	e.counters.extractionAttempts.Add(1)

	target := e.boss.Snapshot()
	chance := CalculateExtractionChance(e.cfg.Extraction, e.user.Stats, e.user.Rank, target)
	success := false
	if chance > 0 && e.rollChance(chance) {
		success, _ = e.convertAndVerify(target)
	}
	if success {
		e.shadowsExtracted++
		e.counters.extractionSuccesses.Add(1)
	}

	loggingextraction.BossAttempt(ctx, e.publisher, e.ID, e.tick, logging.EntityRef{ID: target.ID, Kind: logging.EntityKindBoss}, loggingextraction.BossAttemptPayload{
		Attempt:   e.bossAttemptsUsed,
		Remaining: e.cfg.Extraction.BossAttempts - e.bossAttemptsUsed,
		Chance:    chance,
		Success:   success,
	})
	return success, chance, nil
}
