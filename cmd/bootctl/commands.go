package main

import (
	"fmt"
	"log/slog"
	"os"

	"openenterprise/dualbank/boot"
	"openenterprise/dualbank/config"
	"openenterprise/dualbank/confirm"
	"openenterprise/dualbank/imagehdr"
	"openenterprise/dualbank/ingest"
	"openenterprise/dualbank/slot"
	"openenterprise/dualbank/trailer"
)

func vectorWindow(p config.Profile) imagehdr.VectorWindow {
	return imagehdr.VectorWindow{
		RAMLo:   p.VectorRAMLo,
		RAMHi:   p.VectorRAMHi,
		FlashLo: p.VectorFlashLo,
		FlashHi: p.VectorFlashHi,
	}
}

// cmdMakeImage builds a synthetic test image file and writes it to out.
// This is a test-fixture convenience, not the out-of-scope host tool
// spec.md §1 names as a collaborator for stamping img_size/img_crc32 on
// a real linked binary.
func cmdMakeImage(out string, major, minor, patch uint16, bodySize int, vw imagehdr.VectorWindow) error {
	body := make([]byte, bodySize)
	for i := range body {
		body[i] = byte(0xE0 + i%16)
	}
	seed := VectorSeed{StackPointer: vw.RAMLo + 0x1000, ResetHandler: vw.FlashLo + uint32(imagehdr.Size) + 1}
	img := buildImage(imagehdr.SemVer{Major: major, Minor: minor, Patch: patch}, body, seed)
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return fmt.Errorf("bootctl: writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s: v%d.%d.%d, %d bytes (header+body), crc32=0x%08x\n",
		out, major, minor, patch, len(img), imagehdr.CRC32(img[imagehdr.Size:]))
	return nil
}

// cmdInspect parses and validates a raw image file in isolation, with no
// device directory involved.
func cmdInspect(path string, vw imagehdr.VectorWindow) error {
	data, err := readImageFile(path)
	if err != nil {
		return err
	}
	appSize := uint32(len(data))
	view := imagehdr.Inspect(byteReader(data), 0, appSize, vw)

	fmt.Printf("file:        %s (%d bytes)\n", path, len(data))
	fmt.Printf("magic:       0x%08X (want 0x%08X)\n", view.Hdr.Magic, imagehdr.Magic)
	fmt.Printf("hdr_version: %d\n", view.Hdr.HdrVersion)
	fmt.Printf("version:     %d.%d.%d (build %d)\n", view.Hdr.Ver.Major, view.Hdr.Ver.Minor, view.Hdr.Ver.Patch, view.Hdr.Ver.Build)
	fmt.Printf("img_size:    %d\n", view.Hdr.ImgSize)
	fmt.Printf("img_crc32:   0x%08X\n", view.Hdr.ImgCRC32)
	fmt.Printf("flags:       0x%04X (reserved, unused by the boot decision)\n", view.Hdr.Flags)
	fmt.Printf("valid:       %v\n", view.Valid)
	if !view.Valid {
		fmt.Printf("error:       %v\n", view.Err)
	}
	return nil
}

// cmdInit creates a fresh device directory and programs slot A (the
// initially-active slot, swap bit false) with a factory image.
func cmdInit(dir, imagePath string, d *Device) error {
	data, err := readImageFile(imagePath)
	if err != nil {
		return err
	}
	active := d.Geo.ActiveSlot()
	if uint32(len(data)) > active.AppSize {
		return fmt.Errorf("bootctl: factory image (%d bytes) exceeds app region (%d bytes)", len(data), active.AppSize)
	}
	// Factory programming is not the wordline-by-wordline OTA write
	// path: it is the one-shot act of stamping initial flash contents,
	// so it uses WriteRaw directly (see flash.Sim.WriteRaw's doc
	// comment).
	if err := d.Phys.WriteRaw(d.physicalOffset(active.Base), data); err != nil {
		return fmt.Errorf("bootctl: programming factory image: %w", err)
	}
	if err := d.Save(); err != nil {
		return err
	}
	fmt.Printf("initialized %s: slot A holds factory image (%d bytes), trailer empty, swap=false\n", dir, len(data))
	return nil
}

// physicalOffset maps a logical slot base to its current physical offset
// in the flat flash image, honoring the swap bit the same way
// flash.Remap does. cmdInit uses it to bypass Remap's wordline-aligned
// ProgramWord path: it needs a single raw, possibly-unaligned write.
func (d *Device) physicalOffset(logicalBase uint32) uint32 {
	swapped := d.Swap.Swapped()
	low := logicalBase < d.Profile.SlotTotalSize
	if !swapped {
		return logicalBase
	}
	if low {
		return logicalBase + d.Profile.SlotTotalSize
	}
	return logicalBase - d.Profile.SlotTotalSize
}

// cmdIngest erases the inactive slot's app region and streams imagePath
// into it through ingest.Writer, leaving trailers untouched.
func cmdIngest(d *Device, imagePath string) error {
	data, err := readImageFile(imagePath)
	if err != nil {
		return err
	}
	target := d.Geo.InactiveSlot()
	if uint32(len(data)) > target.AppSize {
		return fmt.Errorf("bootctl: image (%d bytes) exceeds app region (%d bytes)", len(data), target.AppSize)
	}

	if err := ingest.EraseRange(d.Logical, target.Base, target.AppSize); err != nil {
		return fmt.Errorf("bootctl: erasing inactive slot: %w", err)
	}
	w, err := ingest.Begin(d.Logical, target.Base, target.AppSize, target.Base, uint32(len(data)))
	if err != nil {
		return fmt.Errorf("bootctl: ingest.Begin: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("bootctl: ingest.Write: %w", err)
	}
	if err := w.End(); err != nil {
		return fmt.Errorf("bootctl: ingest.End: %w", err)
	}
	if err := d.Save(); err != nil {
		return err
	}
	fmt.Printf("ingested %s (%d bytes) into inactive slot at 0x%08X; trailer untouched\n", imagePath, len(data), target.Base)
	return nil
}

// cliJumper is boot.Jumper for a host-side bootctl session: it cannot
// literally jump to machine code or halt the process, so it just records
// what the real bootloader would have done.
type cliJumper struct {
	jumped bool
	halted bool
	entry  uint32
}

func (j *cliJumper) Jump(entry uint32) { j.jumped = true; j.entry = entry }
func (j *cliJumper) Halt()             { j.halted = true }

// cmdBoot runs exactly one boot.Engine decision cycle and reports the
// outcome, persisting any trailer writes and swap-bit flip.
func cmdBoot(d *Device, vw imagehdr.VectorWindow, logger *slog.Logger) error {
	eng := &boot.Engine{
		Flash:    d.Logical,
		Swap:     d.Swap,
		Geometry: d.Geo,
		VecWin:   vw,
		Log:      logger,
	}
	j := &cliJumper{}
	outcome := eng.Run(j)
	if err := d.Save(); err != nil {
		return err
	}

	fmt.Printf("decision: %s\n", outcome)
	switch {
	case j.jumped:
		fmt.Printf("  -> jump to entry 0x%08X\n", j.entry)
	case j.halted:
		fmt.Println("  -> halted (recovery): device is unbootable without reprogramming")
	default:
		fmt.Printf("  -> swap requested; new swap bit = %v\n", d.Swap.Swapped())
	}
	return nil
}

// cmdConfirm marks the currently-active image CONFIRMED.
func cmdConfirm(d *Device) error {
	active := d.Geo.ActiveSlot()
	j := &trailer.Journal{Dev: d.Logical, Base: active.TrailerBase, Size: active.TrailerSize()}
	c, err := confirm.NewConfirmer(j, d.Logical, active.Base)
	if err != nil {
		return fmt.Errorf("bootctl: reading active image header: %w", err)
	}
	if err := c.ConfirmSelf(); err != nil {
		return fmt.Errorf("bootctl: confirm: %w", err)
	}
	if err := d.Save(); err != nil {
		return err
	}
	fmt.Printf("confirmed active image (crc32=0x%08X)\n", c.RunningCRC32)
	return nil
}

// cmdReject is a test-only escape hatch: it forces a REJECTED record onto
// the active trailer without three real boot cycles. Unlike confirm.
// Confirmer, which never writes REJECTED, this is bootctl standing in for
// the bootloader's own prerogative, for exercising rollback paths quickly.
func cmdReject(d *Device) error {
	active := d.Geo.ActiveSlot()
	j := &trailer.Journal{Dev: d.Logical, Base: active.TrailerBase, Size: active.TrailerSize()}

	raw, err := d.Logical.Read(active.Base, imagehdr.Size)
	if err != nil {
		return err
	}
	var hdr imagehdr.Header
	if err := hdr.UnmarshalBinary(raw); err != nil {
		return err
	}
	seq, err := j.NextSeq()
	if err != nil {
		return err
	}
	rec := trailer.Record{Magic: trailer.Magic, Seq: seq, State: trailer.StateRejected, Attempt: 0, ImgCRC32: hdr.ImgCRC32}
	if err := j.AppendRetryingFull(rec); err != nil {
		return fmt.Errorf("bootctl: forcing rejection: %w", err)
	}
	if err := d.Save(); err != nil {
		return err
	}
	fmt.Printf("forced REJECTED on active trailer (crc32=0x%08X) — test-only; a real bootloader reaches this only via %d exhausted attempts\n", hdr.ImgCRC32, trailer.MaxAttempts)
	return nil
}

// cmdStatus dumps both slots' header and last trailer record, and the
// current swap bit.
func cmdStatus(d *Device) error {
	fmt.Printf("swap bit: %v (physical bank %d currently active)\n\n", d.Swap.Swapped(), boolToBank(d.Swap.Swapped()))
	printSlot("ACTIVE", d.Geo.ActiveSlot(), d)
	fmt.Println()
	printSlot("INACTIVE", d.Geo.InactiveSlot(), d)
	return nil
}

func boolToBank(swapped bool) int {
	if swapped {
		return 1
	}
	return 0
}

func printSlot(label string, s slot.Slot, d *Device) {
	fmt.Printf("%s (base 0x%08X):\n", label, s.Base)

	raw, err := d.Logical.Read(s.Base, imagehdr.Size)
	if err != nil {
		fmt.Printf("  header: read error: %v\n", err)
		return
	}
	var hdr imagehdr.Header
	if err := hdr.UnmarshalBinary(raw); err != nil {
		fmt.Printf("  header: decode error: %v\n", err)
		return
	}
	if hdr.Magic != imagehdr.Magic {
		fmt.Println("  header: no image (erased or foreign data)")
	} else {
		fmt.Printf("  header: v%d.%d.%d img_size=%d img_crc32=0x%08X\n",
			hdr.Ver.Major, hdr.Ver.Minor, hdr.Ver.Patch, hdr.ImgSize, hdr.ImgCRC32)
	}

	j := &trailer.Journal{Dev: d.Logical, Base: s.TrailerBase, Size: s.TrailerSize()}
	rec, ok, err := j.ReadLast()
	if err != nil {
		fmt.Printf("  trailer: read error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("  trailer: empty")
		return
	}
	fmt.Printf("  trailer: seq=%d state=%s attempt=%d img_crc32=0x%08X\n", rec.Seq, rec.State, rec.Attempt, rec.ImgCRC32)
}
