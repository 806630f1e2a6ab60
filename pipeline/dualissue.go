package pipeline

import "github.com/alphaev6/coresim/grain"

// DualIssueGate decides whether two same-quadword candidates may issue
// together. Per spec.md §9 (open question), dual issue is not the
// primary correctness path; SPEC_FULL.md keeps the gate, but Tick never
// calls CanCoIssue and does not read Config.DualIssueEnabled, so every
// run single-issues.
//
// Grounded on the teacher's HazardUnit (timing/pipeline/hazard.go):
// same RAW-hazard-detection shape, re-targeted at the spec's four
// conditions for co-issue instead of EX/MEM forwarding.
type DualIssueGate struct{}

// NewDualIssueGate returns a stateless gate.
func NewDualIssueGate() *DualIssueGate { return &DualIssueGate{} }

// CanCoIssue reports whether the second candidate may issue alongside
// the first, per spec.md §4.5:
//
//	(a) different execution-unit resource classes (PAL/misc is its own
//	    class; integer/branch, memory, and float are the other three);
//	(b) the second unit is available (caller's responsibility, assumed
//	    true when this is called);
//	(c) no RAW hazard: di1.dest ∉ {di2.srcA, di2.srcB};
//	(d) no WAW hazard: di1.dest != di2.dest, or either dest is reg 31.
func (g *DualIssueGate) CanCoIssue(first, second grain.Grain) bool {
	if first == nil || second == nil {
		return false
	}
	if first.Class() == second.Class() {
		return false
	}

	op1 := first.Operands()
	op2 := second.Operands()

	if op1.DestIsFP == op2.DestIsFP && op1.Dest != 31 {
		if op1.Dest == op2.SrcA || op1.Dest == op2.SrcB {
			return false // RAW
		}
		if op1.Dest == op2.Dest {
			return false // WAW
		}
	}

	return true
}
