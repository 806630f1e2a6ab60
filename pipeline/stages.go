package pipeline

import (
	"github.com/alphaev6/coresim/grain"
	"github.com/alphaev6/coresim/state"
)

// stageWB processes the oldest slot (ring position 5). It returns a
// StepResult and true when the tick must terminate immediately (a
// fault or CALL_PAL transfer), or a zero StepResult and false to let
// the remaining stages run this tick.
func (p *Pipeline) stageWB() (StepResult, bool) {
	slot := p.slotAt(int(StageWB))
	if !slot.Valid {
		return StepResult{}, false
	}

	// 1. Commit pending. Applies this instruction's own deferred write,
	// computed two ticks ago in its own EX, before anything younger can
	// be mistaken for ready.
	if slot.Pending.IntValid {
		p.view.WriteInt(slot.Pending.IntReg, slot.Pending.IntValue)
		if slot.Pending.IntClearScoreboard {
			p.intScoreboard[slot.Pending.IntReg] = false
		}
	}
	if slot.Pending.FPValid {
		p.view.WriteFP(slot.Pending.FPReg, slot.Pending.FPValue)
		if slot.Pending.FPClearScoreboard {
			p.fpScoreboard[slot.Pending.FPReg] = false
		}
	}

	// 2. Fault check.
	if slot.FaultPending {
		res := StepResult{Kind: FaultResult, TrapCode: slot.TrapCode, FaultVA: slot.FaultVA, FaultPC: slot.pc}
		p.Flush()
		return res, true
	}

	// 3. CALL_PAL check.
	if slot.IsCallPal {
		vector := p.computeCallPalVector(slot.CallPalFunc)
		res := StepResult{Kind: PalCall, CallPalFunc: slot.CallPalFunc, CallPC: slot.pc, Vector: vector}
		p.Flush()
		return res, true
	}

	// 4. Store commit.
	if slot.Store.Valid {
		p.commitStore(slot.Store)
		if p.reservations != nil {
			p.reservations.BreakOnCacheLine(slot.Store.PA)
		}
	}

	// 5. Branch predictor update.
	if slot.BranchTaken {
		p.predictor.Update(slot.pc, true, slot.BranchTarget)
	}

	// 6. Retire.
	p.stats.Retired++
	slot.reset()

	return StepResult{}, false
}

func (p *Pipeline) commitStore(store StorePending) {
	switch store.Width {
	case 1:
		p.mem.Write8(store.PA, store.Value)
	case 2:
		p.mem.Write16(store.PA, store.Value)
	case 4:
		p.mem.Write32(store.PA, store.Value)
	default:
		p.mem.Write64(store.PA, store.Value)
	}
}

// Drainer reports outstanding posted MMIO writes, consulted by stageMEM
// for barrier/drain stalls. *mmio.Registry satisfies this.
type Drainer interface {
	PendingCount(cpu int) uint64
}

// stageMEM processes ring position 4. Returns true if the tick must
// stall (barrier or write-buffer drain not yet satisfied).
func (p *Pipeline) stageMEM() bool {
	slot := p.slotAt(int(StageMEM))
	if !slot.Valid || slot.FaultPending {
		return false
	}
	if (slot.RequiresBarrier || slot.RequiresDrain) && p.drainer != nil {
		if p.drainer.PendingCount(p.cpu) > 0 {
			return true
		}
	}
	return false
}

// stageEX processes ring position 3: dispatches through the Grain's
// Execute method, resolves LL/SC against the reservation manager,
// resolves branch mispredictions, and defers the register writeback.
func (p *Pipeline) stageEX() bool {
	slot := p.slotAt(int(StageEX))
	if !slot.Valid || slot.Stalled || slot.FaultPending {
		return false
	}
	if slot.Decoded == nil {
		slot.FaultPending = true
		slot.TrapCode = TrapIllegalOpcode
		return false
	}

	slot.bind(slot.pc, p.registerView(), p.mem)
	slot.Decoded.Execute(slot)

	if slot.FaultPending {
		return false
	}

	ops := slot.Decoded.Operands()

	if ops.IsLoadLinked && p.reservations != nil {
		p.reservations.SetReservation(p.cpu, slot.VA)
		if ops.Dest == 31 {
			p.r31.LoadLinkedToR31++
		}
	}
	if ops.IsStoreConditional {
		success := p.reservations != nil && p.reservations.TryClear(p.cpu, slot.Store.PA)
		if !success {
			slot.Store.Valid = false
		}
		if success {
			slot.Payload = 1
		} else {
			slot.Payload = 0
		}
		if ops.Dest == 31 {
			p.r31.StoreConditionalToR31++
		}
	}
	if ops.IsPrefetchLoad && ops.Dest == 31 {
		p.r31.PrefetchLoadsToR31++
	}
	if ops.ConstraintViolation {
		p.r31.ConstraintViolations++
	}

	p.deferWriteback(slot, ops)

	// Marks this slot executed so a later tick that re-evaluates EX
	// without a ring rotation (held back by an unrelated stall elsewhere)
	// does not repeat side effects such as LL/SC reservation bookkeeping.
	slot.Stalled = true

	if slot.Decoded.Branch() != grain.NotBranch {
		return p.resolveBranch(slot)
	}
	return false
}

func (p *Pipeline) deferWriteback(slot *Slot, ops grain.Operands) {
	if ops.Dest == 31 && !ops.DestIsFP {
		p.r31.DiscardedIntWrites++
		if ops.IsLinkWrite {
			p.r31.DiscardedLinkWrites++
		}
		return
	}
	if ops.Dest == 31 && ops.DestIsFP {
		return
	}

	value := slot.Payload
	if ops.IsLinkWrite {
		value = slot.pc + 4
	}

	if ops.DestIsFP {
		slot.Pending.FPValid = true
		slot.Pending.FPReg = ops.Dest
		slot.Pending.FPValue = value
		slot.Pending.FPClearScoreboard = true
		p.fpScoreboard[ops.Dest] = true
	} else {
		slot.Pending.IntValid = true
		slot.Pending.IntReg = ops.Dest
		slot.Pending.IntValue = value
		slot.Pending.IntClearScoreboard = true
		p.intScoreboard[ops.Dest] = true
	}
}

// resolveBranch compares the grain's resolved outcome against the
// prediction IF copied into the slot; on mismatch it flushes the three
// younger slots and redirects the architectural PC. Reports whether a
// misprediction occurred.
func (p *Pipeline) resolveBranch(slot *Slot) bool {
	mispredicted := slot.BranchTaken != slot.PredictedTaken ||
		(slot.BranchTaken && slot.BranchTarget != slot.PredictedTarget)
	if !mispredicted {
		return false
	}

	p.flushYounger()
	if slot.BranchTaken {
		p.nextPC = slot.BranchTarget
	} else {
		p.nextPC = slot.pc + 4
	}
	p.fetchHeld = false
	return true
}

// flushYounger invalidates the IF/DE/IS slots (ring positions 0,1,2),
// the three stages younger than EX.
func (p *Pipeline) flushYounger() {
	for _, n := range [...]int{int(StageIF), int(StageDE), int(StageIS)} {
		p.slotAt(n).reset()
	}
	p.stats.Flushes++
}

// stageIS processes ring position 2. RAW hazards against in-flight
// destinations are resolved by pendingInt/pendingFP on the register
// read path (see Pipeline.registerView), not by stalling here: a
// hazard stall would have to hold this slot in place while everything
// behind it keeps draining toward WB, which the single head-pointer
// ring has no way to express without deadlocking (the producer could
// never reach WB if the ring never rotates). IS has no stall condition
// of its own; the intScoreboard/fpScoreboard dirty bits are maintained
// purely as diagnostic state (IsIntPending/IsFPPending).
func (p *Pipeline) stageIS() bool {
	return false
}

// stageDE processes ring position 1: a pass-through that tags the slot
// with its execution-unit class and CALL_PAL disposition.
func (p *Pipeline) stageDE() {
	slot := p.slotAt(int(StageDE))
	if !slot.Valid || slot.Decoded == nil {
		return
	}
	slot.Class = slot.Decoded.Class()
	ops := slot.Decoded.Operands()
	slot.IsCallPal = ops.IsCallPal
	slot.CallPalFunc = ops.CallPalFn
}

// stageIF processes ring position 0: drains the 1-deep fetch buffer
// supplied by the external I-box, or leaves the slot invalid (bubble)
// when empty. When the pipeline is stalled this tick it leaves the slot
// and the fetch buffer untouched.
func (p *Pipeline) stageIF(stalled bool) {
	slot := p.slotAt(int(StageIF))
	if stalled {
		p.frontendStalled = p.fetchHeld
		return
	}
	if !p.fetchHeld {
		slot.reset()
		p.frontendStalled = false
		return
	}

	fr := p.pendingFetch
	slot.reset()
	slot.Valid = true
	slot.Decoded = fr.Decoded
	slot.Seq = p.seq
	p.seq++
	slot.PredictedValid = fr.PredictedValid
	slot.PredictedTaken = fr.PredictedTaken
	slot.PredictedTarget = fr.PredictedTarget
	slot.bind(fr.PC, p.registerView(), p.mem)

	if fr.PredictedTaken {
		p.nextPC = fr.PredictedTarget
	} else {
		p.nextPC = fr.PC + 4
	}

	p.fetchHeld = false
	p.frontendStalled = false
}

func (p *Pipeline) computeCallPalVector(fn uint32) uint64 {
	if p.view == nil {
		return 0
	}
	return state.ComputeCallPalEntry(p.view.Pal.PalBase, fn, p.view.HWPCB.CM())
}
