package state

// View binds once per CPU thread and caches direct references to every
// sub-record, avoiding repeated index lookups on the hot path. It is the
// intended accessor for the pipeline engine and the PAL orchestrator.
type View struct {
	CPU    int
	Int    *IntRegs
	Float  *FloatRegs
	Shadow *PalShadow
	HWPCB  *HWPCB
	Run    *RunLoopIPRs
	Pal    *PalIPRs
	OSF    *OSFPersonalityIPRs
	snap   *Snapshot
}

// Bind constructs a View for cpu, caching pointers into Master's storage.
func (m *Master) Bind(cpu int) *View {
	s := m.at(cpu)
	return &View{
		CPU:    idx(cpu),
		Int:    &s.Int,
		Float:  &s.Float,
		Shadow: &s.Shadow,
		HWPCB:  &s.HWPCB,
		Run:    &s.Run,
		Pal:    &s.Pal,
		OSF:    &s.OSF,
		snap:   &s.Snap,
	}
}

// ReadInt, WriteInt, ReadFP, and WriteFP give the pipeline direct,
// index-checked access without going through Master by CPU id again.
func (v *View) ReadInt(reg uint8) uint64     { return v.Int.Read(reg) }
func (v *View) WriteInt(reg uint8, val uint64) { v.Int.Write(reg, val) }
func (v *View) ReadFP(reg uint8) uint64      { return v.Float.Read(reg) }
func (v *View) WriteFP(reg uint8, val uint64) { v.Float.Write(reg, val) }

// SaveContext copies IntRegs, FloatRegs, and HWPCB into the bound
// snapshot pair.
func (v *View) SaveContext() {
	v.snap.Int = *v.Int
	v.snap.Float = *v.Float
	v.snap.HWPCB = *v.HWPCB
}

// RestoreContext reverses SaveContext.
func (v *View) RestoreContext() {
	*v.Int = v.snap.Int
	*v.Float = v.snap.Float
	*v.HWPCB = v.snap.HWPCB
}

// Snapshot exposes the bound snapshot pair for read-only inspection (e.g.
// EXC_ADDR population by the PAL orchestrator).
func (v *View) Snapshot() *Snapshot { return v.snap }

// LoadSnapshot overwrites IntRegs, FloatRegs, and HWPCB from an
// externally supplied Snapshot — the SWPCTX path, which loads a
// different process's context rather than this CPU's own saved pair.
func (v *View) LoadSnapshot(s Snapshot) {
	*v.Int = s.Int
	*v.Float = s.Float
	*v.HWPCB = s.HWPCB
}
