// Package config exposes the platform/board geometry parameters the
// spec's data model leaves as platform parameters: slot and sector sizes
// and the vector-sanity address windows. MAX_ATTEMPTS is a spec-fixed
// wire constant (trailer.MaxAttempts), not a platform parameter, so it is
// not carried here. Defaults ship embedded in the binary, the way the
// teacher's config package embeds its network defaults; an operator
// overrides them with a human-editable profile file read at startup.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

//go:embed profile.default.yaml
var defaultProfileYAML []byte

// Profile carries every geometry/behavior constant the rest of this
// module treats as platform parameters rather than spec-fixed constants.
type Profile struct {
	SlotTotalSize uint32 `yaml:"slot_total_size"`
	TrailerSize   uint32 `yaml:"trailer_size"`
	SectorSize    uint32 `yaml:"sector_size"`
	SlotABase     uint32 `yaml:"slot_a_base"`
	SlotBBase     uint32 `yaml:"slot_b_base"`

	VectorRAMLo   uint32 `yaml:"vector_ram_lo"`
	VectorRAMHi   uint32 `yaml:"vector_ram_hi"`
	VectorFlashLo uint32 `yaml:"vector_flash_lo"`
	VectorFlashHi uint32 `yaml:"vector_flash_hi"`
}

// Default returns the embedded reference profile: 896 KiB slots, 128 KiB
// trailer/sector, and the STM32H7 RAM/flash windows named in
// original_source/.
func Default() (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(defaultProfileYAML, &p); err != nil {
		return Profile{}, fmt.Errorf("config: embedded default profile: %w", err)
	}
	return p, nil
}

// Load reads an operator-supplied board profile from path. The file is
// parsed as JWCC (JSON-with-comments) via hujson so a board profile can
// carry inline documentation of each geometry constant — unlike the
// teacher's bare override .text files, these values benefit from comments
// explaining units and hardware provenance. Any field left at its zero
// value falls back to the embedded default.
func Load(path string) (Profile, error) {
	def, err := Default()
	if err != nil {
		return Profile{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: reading profile %s: %w", path, err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return Profile{}, fmt.Errorf("config: profile %s is not valid JWCC: %w", path, err)
	}

	var override Profile
	if err := yaml.Unmarshal(std, &override); err != nil {
		return Profile{}, fmt.Errorf("config: parsing profile %s: %w", path, err)
	}

	return mergeDefaults(def, override), nil
}

func mergeDefaults(def, override Profile) Profile {
	merged := def
	if override.SlotTotalSize != 0 {
		merged.SlotTotalSize = override.SlotTotalSize
	}
	if override.TrailerSize != 0 {
		merged.TrailerSize = override.TrailerSize
	}
	if override.SectorSize != 0 {
		merged.SectorSize = override.SectorSize
	}
	if override.SlotABase != 0 {
		merged.SlotABase = override.SlotABase
	}
	if override.SlotBBase != 0 {
		merged.SlotBBase = override.SlotBBase
	}
	if override.VectorRAMLo != 0 {
		merged.VectorRAMLo = override.VectorRAMLo
	}
	if override.VectorRAMHi != 0 {
		merged.VectorRAMHi = override.VectorRAMHi
	}
	if override.VectorFlashLo != 0 {
		merged.VectorFlashLo = override.VectorFlashLo
	}
	if override.VectorFlashHi != 0 {
		merged.VectorFlashHi = override.VectorFlashHi
	}
	return merged
}
