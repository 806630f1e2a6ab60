// Package core wires the per-CPU architectural state, interrupt pending
// state, MMIO registry, reservation manager, pipeline engine, and PAL
// orchestrator into one runnable CPU core, plus the flat guest-RAM-and-
// MMIO bus the pipeline's narrow Memory interface is bound to.
//
// Grounded on the teacher's timing/core.Core (core.go): the thin
// wrapper-with-Stats-passthrough shape is kept, generalized from driving
// a single 5-stage pipeline to driving the tick/StepResult/PAL-entry loop
// spec.md §6 describes.
package core

import (
	"encoding/binary"

	"github.com/alphaev6/coresim/mmio"
)

// Bus is the flat physical address space a Core's pipeline reads and
// writes through: a contiguous RAM region backed by a byte slice, with
// every other address routed to the MMIO registry. It satisfies
// pipeline.Memory, pipeline.Drainer (its PendingCount forwards to the
// *mmio.Registry it holds), and coherency.RAMChecker.
type Bus struct {
	ram     []byte
	ramBase uint64
	mmio    *mmio.Registry
}

// NewBus returns a Bus with ramSize bytes of guest RAM at ramBase,
// dispatching every other physical address through reg.
func NewBus(ramBase uint64, ramSize int, reg *mmio.Registry) *Bus {
	return &Bus{ram: make([]byte, ramSize), ramBase: ramBase, mmio: reg}
}

// IsRAM reports whether [pa, pa+size) lies entirely within the RAM
// region, satisfying coherency.RAMChecker for DMA target validation.
func (b *Bus) IsRAM(pa, size uint64) bool {
	if pa < b.ramBase {
		return false
	}
	off := pa - b.ramBase
	return off+size <= uint64(len(b.ram)) && off+size >= off
}

func (b *Bus) ramRead(pa uint64, width int) (uint64, bool) {
	if !b.IsRAM(pa, uint64(width)) {
		return 0, false
	}
	off := pa - b.ramBase
	switch width {
	case 1:
		return uint64(b.ram[off]), true
	case 2:
		return uint64(binary.LittleEndian.Uint16(b.ram[off:])), true
	case 4:
		return uint64(binary.LittleEndian.Uint32(b.ram[off:])), true
	default:
		return binary.LittleEndian.Uint64(b.ram[off:]), true
	}
}

func (b *Bus) ramWrite(pa uint64, width int, v uint64) bool {
	if !b.IsRAM(pa, uint64(width)) {
		return false
	}
	off := pa - b.ramBase
	switch width {
	case 1:
		b.ram[off] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b.ram[off:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b.ram[off:], uint32(v))
	default:
		binary.LittleEndian.PutUint64(b.ram[off:], v)
	}
	return true
}

// read performs one read of width bytes at pa, falling back to MMIO
// dispatch outside the RAM range. A rejected MMIO access (out of range,
// misaligned, access-violating) reads as zero: the pipeline's Memory
// interface carries no error channel (translation/access-fault detection
// is a TLB/decode-level concern spec.md §1 keeps out of scope), matching
// spec.md §7's "handler-level device errors... typically returning zero".
func (b *Bus) read(pa uint64, width int) uint64 {
	if v, ok := b.ramRead(pa, width); ok {
		return v
	}
	var out uint64
	b.mmio.HandleRead(pa, width, &out)
	return out
}

func (b *Bus) write(pa uint64, width int, v uint64) {
	if b.ramWrite(pa, width, v) {
		return
	}
	b.mmio.HandleWrite(pa, width, v)
}

func (b *Bus) Read8(pa uint64) uint64  { return b.read(pa, 1) }
func (b *Bus) Read16(pa uint64) uint64 { return b.read(pa, 2) }
func (b *Bus) Read32(pa uint64) uint64 { return b.read(pa, 4) }
func (b *Bus) Read64(pa uint64) uint64 { return b.read(pa, 8) }

func (b *Bus) Write8(pa uint64, v uint64)  { b.write(pa, 1, v) }
func (b *Bus) Write16(pa uint64, v uint64) { b.write(pa, 2, v) }
func (b *Bus) Write32(pa uint64, v uint64) { b.write(pa, 4, v) }
func (b *Bus) Write64(pa uint64, v uint64) { b.write(pa, 8, v) }

// PendingCount satisfies pipeline.Drainer by delegating to the MMIO
// registry's posted-write counter.
func (b *Bus) PendingCount(cpu int) uint64 { return b.mmio.PendingCount(cpu) }
