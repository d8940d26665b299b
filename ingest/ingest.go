// Package ingest exposes the begin/write/end surface an external byte
// stream source drives to program a new image into a slot's inactive app
// region. The transport feeding it — however bytes physically arrive — is
// out of scope; this package only owns the wordline-aligned accumulation
// and programming of whatever bytes it is handed.
package ingest

import (
	"errors"

	"openenterprise/dualbank/flash"
)

var (
	ErrOutOfRange   = errors.New("ingest: destination range outside inactive slot")
	ErrSizeMismatch = errors.New("ingest: final cursor does not match declared size")
)

// Writer accumulates incoming bytes into a wordline-aligned scratch buffer
// and programs one flash.WordLine each time the scratch fills.
type Writer struct {
	dev      flash.Device
	base     uint32
	size     uint32
	cursor   uint32
	scratch  []byte
	scratchN int
}

// Begin validates that [dstBase, dstBase+dstSize) lies within the slot
// described by (slotBase, slotAppSize) and returns a Writer with a
// scratch buffer prefilled with 0xFF.
func Begin(dev flash.Device, slotBase, slotAppSize, dstBase, dstSize uint32) (*Writer, error) {
	if dstBase < slotBase || dstBase+dstSize > slotBase+slotAppSize {
		return nil, ErrOutOfRange
	}
	w := &Writer{
		dev:     dev,
		base:    dstBase,
		size:    dstSize,
		scratch: make([]byte, flash.WordLine),
	}
	resetScratch(w.scratch)
	return w, nil
}

func resetScratch(buf []byte) {
	for i := range buf {
		buf[i] = 0xFF
	}
}

// Write accumulates bytes into the scratch buffer, programming a wordline
// and advancing the cursor each time the scratch fills.
func (w *Writer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := copy(w.scratch[w.scratchN:], p)
		w.scratchN += n
		p = p[n:]
		written += n

		if w.scratchN == len(w.scratch) {
			if err := w.dev.ProgramWord(w.base+w.cursor, w.scratch); err != nil {
				return written, err
			}
			w.cursor += uint32(len(w.scratch))
			w.scratchN = 0
			resetScratch(w.scratch)
		}
	}
	return written, nil
}

// End flushes any partial trailing wordline, padded with 0xFF, and
// sanity-checks that the total bytes written match the declared size.
func (w *Writer) End() error {
	total := w.cursor + uint32(w.scratchN)
	if w.scratchN > 0 {
		if err := w.dev.ProgramWord(w.base+w.cursor, w.scratch); err != nil {
			return err
		}
		w.cursor += uint32(len(w.scratch))
		w.scratchN = 0
	}
	if total != w.size {
		return ErrSizeMismatch
	}
	return nil
}

// EraseRange erases every sector overlapping [base, base+size). The
// caller is responsible for calling this (or otherwise guaranteeing the
// destination is erased) before Begin; erasing is exposed separately
// because the caller may only learn the final size once the incoming
// stream is fully received.
func EraseRange(dev flash.Device, base, size uint32) error {
	sector := dev.SectorSize()
	start := base - base%sector
	for addr := start; addr < base+size; addr += sector {
		if err := dev.EraseSector(addr); err != nil {
			return err
		}
	}
	return nil
}

// EraseTracker wraps a flash.Device so that EraseSector is only actually
// issued once per sector, letting a caller erase lazily as bytes arrive
// (rather than calling EraseRange up front) without re-erasing a sector it
// already cleared for an earlier chunk.
type EraseTracker struct {
	flash.Device
	erased map[uint32]bool
}

// NewEraseTracker wraps dev with on-demand, once-per-sector erase
// tracking.
func NewEraseTracker(dev flash.Device) *EraseTracker {
	return &EraseTracker{Device: dev, erased: make(map[uint32]bool)}
}

// EnsureErased erases the sector containing addr if it has not already
// been erased through this tracker.
func (t *EraseTracker) EnsureErased(addr uint32) error {
	sector := t.Device.SectorSize()
	base := addr - addr%sector
	if t.erased[base] {
		return nil
	}
	if err := t.Device.EraseSector(base); err != nil {
		return err
	}
	t.erased[base] = true
	return nil
}
