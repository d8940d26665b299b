// device.go owns the on-disk representation of a simulated two-bank
// device: a flat flash image file plus a one-byte sidecar recording the
// swap bit, so a bootctl session can be driven one subcommand invocation
// at a time and still see the state the previous invocation left behind
// (the same role flash.Sim.Snapshot plays for a single process, extended
// across process boundaries).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"openenterprise/dualbank/bankswap"
	"openenterprise/dualbank/config"
	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/slot"
)

const (
	flashImageName = "flash.img"
	swapStateName  = "swap.state"
)

// Device bundles everything one bootctl invocation needs to act on a
// simulated device directory: the physical flash, the logical (remapped)
// view every other package programs against, the swap driver, and the
// slot geometry.
type Device struct {
	Dir     string
	Profile config.Profile

	Phys    *flash.Sim
	Logical *flash.Remap
	Swap    *bankswap.Sim
	Geo     slot.Geometry
}

// OpenDevice loads a previously-initialized device directory. The logical
// slot bases are always 0 and Profile.SlotTotalSize: flash.Remap is the
// simulator's stand-in for "the MCU itself remaps banks" (spec.md §4.2),
// so the profile's documented hardware addresses (0x08000000 etc.) never
// appear as addresses in the simulated device — they describe the real
// part this profile models, not the host process's flat image file.
func OpenDevice(dir string, profile config.Profile) (*Device, error) {
	imgPath := filepath.Join(dir, flashImageName)
	phys, err := flash.LoadSim(imgPath, profile.SectorSize)
	if err != nil {
		return nil, fmt.Errorf("bootctl: opening %s (did you run `init`?): %w", imgPath, err)
	}

	wantSize := int(2 * profile.SlotTotalSize)
	if phys.Len() != wantSize {
		return nil, fmt.Errorf("bootctl: %s is %d bytes, profile expects %d (profile mismatch?)", imgPath, phys.Len(), wantSize)
	}

	swapped, err := readSwapState(filepath.Join(dir, swapStateName))
	if err != nil {
		return nil, err
	}

	swap := bankswap.NewSimWithState(swapped)
	logical := &flash.Remap{Dev: phys, BankSize: profile.SlotTotalSize, Swap: swap}
	geo := slot.Geometry{
		SlotTotalSize: profile.SlotTotalSize,
		TrailerSize:   profile.TrailerSize,
		SlotABase:     0,
		SlotBBase:     profile.SlotTotalSize,
	}

	return &Device{Dir: dir, Profile: profile, Phys: phys, Logical: logical, Swap: swap, Geo: geo}, nil
}

// InitDevice creates a fresh device directory: a wholly-erased two-bank
// flash image plus swap bit false (bank 0 active).
func InitDevice(dir string, profile config.Profile) (*Device, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bootctl: creating %s: %w", dir, err)
	}
	phys := flash.NewSim(int(2*profile.SlotTotalSize), profile.SectorSize)
	swap := bankswap.NewSim()
	logical := &flash.Remap{Dev: phys, BankSize: profile.SlotTotalSize, Swap: swap}
	geo := slot.Geometry{
		SlotTotalSize: profile.SlotTotalSize,
		TrailerSize:   profile.TrailerSize,
		SlotABase:     0,
		SlotBBase:     profile.SlotTotalSize,
	}
	d := &Device{Dir: dir, Profile: profile, Phys: phys, Logical: logical, Swap: swap, Geo: geo}
	return d, d.Save()
}

// Save persists the flash image (atomically) and the swap bit.
func (d *Device) Save() error {
	if err := d.Phys.Snapshot(filepath.Join(d.Dir, flashImageName)); err != nil {
		return fmt.Errorf("bootctl: snapshotting flash image: %w", err)
	}
	return writeSwapState(filepath.Join(d.Dir, swapStateName), d.Swap.Swapped())
}

func readSwapState(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("bootctl: reading swap state %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)) == "1", nil
}

func writeSwapState(path string, swapped bool) error {
	v := "0"
	if swapped {
		v = "1"
	}
	return os.WriteFile(path, []byte(v), 0o644)
}
