// Package slot maps the two logical slot windows — active and inactive —
// to fixed addresses, and, when a caller genuinely needs bank identity
// rather than address, to the physical bank currently backing each.
package slot

import "openenterprise/dualbank/imagehdr"

// Geometry describes the fixed layout shared by both slots: slot size,
// trailer size, and the two logical slot bases. Both bases are constants
// independent of the swap bit; the MCU itself remaps banks underneath
// them.
type Geometry struct {
	SlotTotalSize uint32
	TrailerSize   uint32
	SlotABase     uint32
	SlotBBase     uint32
}

// AppSize is the size of a slot's app region (header + body).
func (g Geometry) AppSize() uint32 { return g.SlotTotalSize - g.TrailerSize }

// Slot is one logical slot window: its base, trailer base, app size, and
// the size of its trailer region (one sector).
type Slot struct {
	Base             uint32
	TrailerBase      uint32
	AppSize          uint32
	TrailerRegionSize uint32
}

// Entry is the address of the image's first instruction: the slot base
// plus the fixed header size.
func (s Slot) Entry() uint32 { return s.Base + imagehdr.Size }

// TrailerSize is the size of this slot's trailer region, one physical
// erase sector.
func (s Slot) TrailerSize() uint32 { return s.TrailerRegionSize }

func (g Geometry) slotAt(base uint32) Slot {
	return Slot{
		Base:              base,
		TrailerBase:       base + g.AppSize(),
		AppSize:           g.AppSize(),
		TrailerRegionSize: g.TrailerSize,
	}
}

// SwapReader is the narrow surface Geometry needs from the bank-swap
// driver: bankswap.Driver satisfies it.
type SwapReader interface {
	ReadSwap() (bool, error)
}

// ActiveSlot returns the logical slot the CPU currently executes from.
// It is always the slot at SlotABase, whatever the swap bit: flipping the
// bit changes which physical bank backs that window, not the window
// itself. This mapping is fixed by construction and never consults the
// swap driver — only PhysicalBankOf does, for callers who need bank
// identity rather than logical address.
func (g Geometry) ActiveSlot() Slot { return g.slotAt(g.SlotABase) }

// InactiveSlot returns the logical slot the CPU does not execute from —
// the update target.
func (g Geometry) InactiveSlot() Slot { return g.slotAt(g.SlotBBase) }

// PhysicalBankOf reports which physical bank (0 or 1) currently backs the
// requested logical slot, by consulting the swap driver. Most callers never
// need this: addresses through ActiveSlot/InactiveSlot already resolve
// correctly because the MCU remaps banks in hardware. It exists for
// operations that depend on bank identity itself, such as bank-specific
// option-byte programming.
func PhysicalBankOf(r SwapReader, active bool) (int, error) {
	swapped, err := r.ReadSwap()
	if err != nil {
		return 0, err
	}
	bank := 0
	if active == swapped {
		bank = 1
	}
	return bank, nil
}
