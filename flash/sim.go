package flash

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Sim is a host-side Device backed by a byte slice, for use by tests and
// cmd/bootctl against a flat image file standing in for a real device's
// non-volatile storage. It enforces the same alignment and erased-before-
// program preconditions the hardware backend enforces, so logic exercised
// against Sim behaves the same against flash_stm32.go.
type Sim struct {
	buf        []byte
	sectorSize uint32
}

// NewSim creates a Sim of size bytes, wholly erased (all 0xFF), with the
// given physical sector size.
func NewSim(size int, sectorSize uint32) *Sim {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &Sim{buf: buf, sectorSize: sectorSize}
}

// LoadSim reads a flat image file previously written by Snapshot.
func LoadSim(path string, sectorSize uint32) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Sim{buf: data, sectorSize: sectorSize}, nil
}

// Snapshot durably persists the simulated device contents to path, via an
// atomic rename so a crash mid-write never leaves a torn image file on
// disk for the next invocation to load.
func (s *Sim) Snapshot(path string) error {
	return atomic.WriteFile(path, bytes.NewReader(s.buf))
}

func (s *Sim) SectorSize() uint32 { return s.sectorSize }

func (s *Sim) Read(addr uint32, n int) ([]byte, error) {
	if int(addr)+n > len(s.buf) {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, n)
	copy(out, s.buf[addr:int(addr)+n])
	return out, nil
}

func (s *Sim) ProgramWord(addr uint32, src []byte) error {
	if addr%WordLine != 0 {
		return ErrMisaligned
	}
	if len(src) != WordLine {
		return fmt.Errorf("%w: src must be %d bytes, got %d", ErrProgram, WordLine, len(src))
	}
	if int(addr)+WordLine > len(s.buf) {
		return ErrOutOfBounds
	}
	for i := 0; i < WordLine; i++ {
		if s.buf[int(addr)+i] != 0xFF {
			return ErrNotErased
		}
	}
	copy(s.buf[addr:int(addr)+WordLine], src)
	return nil
}

func (s *Sim) EraseSector(addr uint32) error {
	sectorBase := addr - addr%s.sectorSize
	if int(sectorBase)+int(s.sectorSize) > len(s.buf) {
		return ErrOutOfBounds
	}
	for i := uint32(0); i < s.sectorSize; i++ {
		s.buf[sectorBase+i] = 0xFF
	}
	return nil
}

// WriteRaw directly overwrites a range without the erased-before-program
// precondition, for test fixtures and cmd/bootctl's `init` subcommand that
// need to seed a slot with a complete image in one shot rather than
// replaying the wordline-by-wordline program path.
func (s *Sim) WriteRaw(addr uint32, data []byte) error {
	if int(addr)+len(data) > len(s.buf) {
		return ErrOutOfBounds
	}
	copy(s.buf[addr:], data)
	return nil
}

// Len reports the total simulated device size in bytes.
func (s *Sim) Len() int { return len(s.buf) }
