package boot

import (
	"log/slog"

	"openenterprise/dualbank/bankswap"
	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/imagehdr"
	"openenterprise/dualbank/slot"
	"openenterprise/dualbank/trailer"
)

// JumpMagic is the cross-reset RAM marker value that signals "the boot
// decision has already been made; jump directly to the active entry
// point". On real hardware this lives in a single 32-bit word excluded
// from startup zero-init (see marker_stm32.go); Engine records the
// set-before-reset half of that contract in its JumpPending field.
const JumpMagic uint32 = 0xB007A55A

// Jumper executes the terminal actions of a decision: jumping to an
// already-valid active image, or halting in recovery. A real bootloader's
// Jumper sets VTOR, loads the initial stack pointer, and branches through
// the reset vector; Engine's test/simulator Jumper just records what would
// have happened.
type Jumper interface {
	// Jump transfers control to the image at entry. Does not return on
	// real hardware.
	Jump(entry uint32)
	// Halt enters the terminal recovery loop. Does not return on real
	// hardware.
	Halt()
}

// Geometry is the narrow slot.Geometry surface Engine needs.
type Geometry interface {
	ActiveSlot() slot.Slot
	InactiveSlot() slot.Slot
}

// Engine wires C1-C5 together to run one boot decision cycle: it is the
// impure shell around the pure Decide function.
type Engine struct {
	Flash    flash.Device
	Swap     bankswap.Driver
	Geometry Geometry
	VecWin   imagehdr.VectorWindow
	Log      *slog.Logger

	// JumpPending models the cross-reset marker: Run sets it (and
	// PendingJump to the active entry) after a decision cycle that ended in
	// BootActive/ContinuePending, then calls Jumper.Jump directly. Nothing
	// in Engine reads or clears it; real hardware instead reads the marker
	// in an early, pre-peripheral-init RAM check (ReadMarker).
	JumpPending bool
	PendingJump uint32
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Run executes exactly one decision cycle: inspect both slots, read both
// trailers, call Decide, commit the appends it requires, and execute the
// resulting Outcome via Swap or the supplied Jumper. It never returns an
// error: per spec.md §7 the boot decision is best-effort-progressive, and a
// degraded write is logged rather than escalated.
func (e *Engine) Run(j Jumper) Outcome {
	a := e.Geometry.ActiveSlot()
	i := e.Geometry.InactiveSlot()

	activeView := imagehdr.Inspect(e.Flash, a.Base, a.AppSize, e.VecWin)
	inactiveView := imagehdr.Inspect(e.Flash, i.Base, i.AppSize, e.VecWin)

	activeJournal := &trailer.Journal{Dev: e.Flash, Base: a.TrailerBase, Size: a.TrailerSize()}
	inactiveJournal := &trailer.Journal{Dev: e.Flash, Base: i.TrailerBase, Size: i.TrailerSize()}

	atrRec, atrOK, err := activeJournal.ReadLast()
	if err != nil {
		e.log().Error("boot:active-trailer-read-failed", slog.String("err", err.Error()))
	}
	itrRec, itrOK, err := inactiveJournal.ReadLast()
	if err != nil {
		e.log().Error("boot:inactive-trailer-read-failed", slog.String("err", err.Error()))
	}

	var atr, itr *trailer.Record
	if atrOK {
		atr = &atrRec
	}
	if itrOK {
		itr = &itrRec
	}

	seqActive, err := activeJournal.NextSeq()
	if err != nil {
		e.log().Error("boot:active-nextseq-failed", slog.String("err", err.Error()))
	}
	seqInactive, err := inactiveJournal.NextSeq()
	if err != nil {
		e.log().Error("boot:inactive-nextseq-failed", slog.String("err", err.Error()))
	}

	outcome, appends := Decide(activeView, inactiveView, atr, itr, seqActive, seqInactive)

	for _, ap := range appends {
		journal := activeJournal
		if ap.Target == TargetInactive {
			journal = inactiveJournal
		}
		if err := journal.AppendRetryingFull(ap.Record); err != nil {
			// Best-effort-progressive: log and continue. An unwritten
			// trailer means an extra attempt on the next reset, which
			// spec.md §7 documents as safe.
			e.log().Error("boot:trailer-append-failed",
				slog.String("err", err.Error()),
				slog.String("state", ap.Record.State.String()))
		}
	}

	e.log().Info("boot:decision",
		slog.String("outcome", outcome.String()),
		slog.Bool("active_valid", activeView.Valid),
		slog.Bool("inactive_valid", inactiveView.Valid),
	)

	switch outcome {
	case BootActive, ContinuePending:
		e.JumpPending = true
		e.PendingJump = a.Entry()
		j.Jump(a.Entry())
	case SwapToNew, SwapToOld:
		cur, _ := e.Swap.ReadSwap()
		if err := e.Swap.SetSwap(!cur); err != nil {
			e.log().Error("boot:swap-failed", slog.String("err", err.Error()))
			j.Halt()
		}
	case Recovery:
		j.Halt()
	}

	return outcome
}
