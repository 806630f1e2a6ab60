package state

// cpuState is the complete cache-line-partitioned record for one CPU.
type cpuState struct {
	Int    IntRegs
	Float  FloatRegs
	Shadow PalShadow
	HWPCB  HWPCB
	Run    RunLoopIPRs
	Pal    PalIPRs
	OSF    OSFPersonalityIPRs
	Snap   Snapshot
}

// Master owns the exclusive per-CPU architectural state for every CPU id
// in [0, MaxCPUs). It is constructed once at emulator startup and
// destroyed at shutdown; callers obtain a View bound to one CPU id rather
// than repeatedly indexing by id on the hot path.
type Master struct {
	cpus [MaxCPUs]cpuState
}

// NewMaster allocates a zeroed Master.
func NewMaster() *Master {
	return &Master{}
}

// idx folds a CPU id into the allocated range. Callers must not rely on
// the folding; it exists only so an out-of-range id cannot index out of
// bounds.
func idx(cpu int) int {
	if cpu < 0 {
		cpu = -cpu
	}
	return cpu % MaxCPUs
}

func (m *Master) at(cpu int) *cpuState { return &m.cpus[idx(cpu)] }

// ReadInt, WriteInt, ReadFP, WriteFP, ReadFPCR, WriteFPCR, ReadShadow, and
// WriteShadow give index-checked access without a bound View; View is the
// hot-path-preferred accessor (see view.go).

func (m *Master) ReadInt(cpu int, reg uint8) uint64       { return m.at(cpu).Int.Read(reg) }
func (m *Master) WriteInt(cpu int, reg uint8, v uint64)   { m.at(cpu).Int.Write(reg, v) }
func (m *Master) ReadFP(cpu int, reg uint8) uint64        { return m.at(cpu).Float.Read(reg) }
func (m *Master) WriteFP(cpu int, reg uint8, v uint64)    { m.at(cpu).Float.Write(reg, v) }
func (m *Master) ReadFPCR(cpu int) uint64                 { return m.at(cpu).Float.FPCR }
func (m *Master) WriteFPCR(cpu int, v uint64)             { m.at(cpu).Float.FPCR = v }
func (m *Master) ReadShadow(cpu int, bank ShadowBank, idx uint8) uint64 {
	return m.at(cpu).Shadow.Read(bank, idx)
}
func (m *Master) WriteShadow(cpu int, bank ShadowBank, idx uint8, v uint64) {
	m.at(cpu).Shadow.Write(bank, idx, v)
}

// SaveContext atomically (from the CPU thread's perspective) copies
// IntRegs, FloatRegs, and HWPCB into the snapshot pair.
func (m *Master) SaveContext(cpu int) {
	s := m.at(cpu)
	s.Snap.Int = s.Int
	s.Snap.Float = s.Float
	s.Snap.HWPCB = s.HWPCB
}

// RestoreContext reverses SaveContext.
func (m *Master) RestoreContext(cpu int) {
	s := m.at(cpu)
	s.Int = s.Snap.Int
	s.Float = s.Snap.Float
	s.HWPCB = s.Snap.HWPCB
}

// ResetCPU zeroes all records and the snapshot pair for cpu.
func (m *Master) ResetCPU(cpu int) {
	*m.at(cpu) = cpuState{}
}

// HWPCB, Run, Pal, and OSF expose direct pointers to the remaining
// sub-records for callers that have not bound a View.
func (m *Master) HWPCB(cpu int) *HWPCB                     { return &m.at(cpu).HWPCB }
func (m *Master) RunLoop(cpu int) *RunLoopIPRs              { return &m.at(cpu).Run }
func (m *Master) Pal(cpu int) *PalIPRs                       { return &m.at(cpu).Pal }
func (m *Master) OSF(cpu int) *OSFPersonalityIPRs            { return &m.at(cpu).OSF }
func (m *Master) Shadow(cpu int) *PalShadow                  { return &m.at(cpu).Shadow }
