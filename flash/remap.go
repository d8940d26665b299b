package flash

import "errors"

// ErrCrossesBank is returned when a single operation would span both
// halves of a Remap's address space — something no caller in this
// repository ever does, since every slot lies wholly within one bank
// window, but worth guarding against rather than silently misreading.
var ErrCrossesBank = errors.New("flash: operation crosses bank boundary")

// SwapReader is the narrow surface Remap needs from a bank-swap driver.
// bankswap.Driver satisfies it.
type SwapReader interface {
	ReadSwap() (bool, error)
}

// Remap wraps a physically-contiguous Device (two banks, each BankSize
// bytes, back to back) and presents the logical address space the rest of
// this module programs against: the low window [0, BankSize) and the high
// window [BankSize, 2*BankSize). Which physical bank backs which logical
// window depends on the swap bit — this is the Go realization of "the MCU
// hardware itself remaps banks" that spec.md §4.2 describes: slot.Geometry
// always hands out the same two logical bases, and Remap is what makes a
// bank swap actually move which physical bytes those bases see.
type Remap struct {
	Dev      Device
	BankSize uint32
	Swap     SwapReader
}

func (r *Remap) physical(addr uint32, n int) (uint32, error) {
	swapped, err := r.Swap.ReadSwap()
	if err != nil {
		return 0, err
	}
	low := addr < r.BankSize
	if low && addr+uint32(n) > r.BankSize {
		return 0, ErrCrossesBank
	}
	if !low && addr+uint32(n) > 2*r.BankSize {
		return 0, ErrCrossesBank
	}
	if !swapped {
		return addr, nil
	}
	if low {
		return addr + r.BankSize, nil
	}
	return addr - r.BankSize, nil
}

func (r *Remap) SectorSize() uint32 { return r.Dev.SectorSize() }

func (r *Remap) Read(addr uint32, n int) ([]byte, error) {
	p, err := r.physical(addr, n)
	if err != nil {
		return nil, err
	}
	return r.Dev.Read(p, n)
}

func (r *Remap) ProgramWord(addr uint32, src []byte) error {
	p, err := r.physical(addr, len(src))
	if err != nil {
		return err
	}
	return r.Dev.ProgramWord(p, src)
}

func (r *Remap) EraseSector(addr uint32) error {
	p, err := r.physical(addr, 1)
	if err != nil {
		return err
	}
	return r.Dev.EraseSector(p)
}
