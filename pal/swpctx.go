package pal

import "github.com/alphaev6/coresim/state"

// ContextStore loads and saves the context SWPCTX swaps, keyed by PCB
// base address. SwapContext exchanges a whole state.Snapshot: both
// register files and every HWPCB field, not only the fields of a PCB
// image in guest memory (state.View.Swpctx does that subset). A real
// implementation backs this with guest RAM; tests can use a map.
type ContextStore interface {
	Save(pcbb uint64, snap state.Snapshot)
	Load(pcbb uint64) (state.Snapshot, bool)
}

// SwapContext implements CALL_PAL SWPCTX: save the running process's
// context to its old PCB address, then load the incoming process's
// context from pcbb. PCBB must be 128-byte aligned (low 7 bits zero);
// misaligned requests are rejected without modifying any state, matching
// spec.md §8's boundary behavior.
func (o *Orchestrator) SwapContext(store ContextStore, oldPCBB, pcbb uint64) bool {
	if pcbb&0x7F != 0 {
		return false
	}

	incoming, ok := store.Load(pcbb)
	if !ok {
		return false
	}

	o.view.SaveContext()
	store.Save(oldPCBB, *o.view.Snapshot())
	o.view.LoadSnapshot(incoming)
	return true
}
