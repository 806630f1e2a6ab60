package state

// ASTReason names a mode whose AST is deliverable, in preemption order
// (Kernel preempts Executive preempts Supervisor preempts User).
type ASTReason struct {
	Mode Mode
}

// ASTEligibility reports whether an AST is deliverable and, if so, to
// which mode.
type ASTEligibility struct {
	Eligible bool
	Target   Mode
	Reasons  []ASTReason
}

// modePreemptionOrder lists modes from Kernel outward, the scan order
// spec.md §4.1 requires.
var modePreemptionOrder = [4]Mode{Kernel, Executive, Supervisor, User}

// ASTEligible computes AST eligibility given the current ASTEN/ASTSR
// nibbles, current mode, and current IPL. Delivery does not modify
// astSummary; the caller must clear the selected bit after delivery.
func ASTEligible(astEnable, astSummary uint8, cm Mode, ipl uint8) ASTEligibility {
	result := ASTEligibility{}
	if ipl > 2 {
		return result
	}

	for _, m := range modePreemptionOrder {
		bit := uint8(1) << uint(m)
		if astSummary&bit != 0 && astEnable&bit != 0 && cm >= m {
			result.Reasons = append(result.Reasons, ASTReason{Mode: m})
			if !result.Eligible {
				result.Eligible = true
				result.Target = m
			}
		}
	}
	return result
}

// StackForDisposition decodes the low 2 bits of an SCB entry into a
// StackDisposition and the handler PC (the entry with its low 2 bits
// cleared).
func StackForDisposition(scbEntry uint64) (pc uint64, disposition StackDisposition) {
	return scbEntry &^ 3, StackDisposition(scbEntry & 3)
}
