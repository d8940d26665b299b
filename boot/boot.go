// Package boot implements the rollback decision algorithm that runs on
// every reset: given the two slots' verified image views and their last
// trailer records, decide whether to boot the active slot, continue a
// trial, roll back, swap to an upgrade, or enter recovery.
//
// Decide is a pure function — no flash I/O, no swap, nothing but the
// algorithm from spec.md §4.6 — so the whole state machine is unit-
// testable without hardware or even flash.Sim. Engine is the impure
// wrapper that reads real slots and trailers, commits Decide's appends,
// and executes the resulting Outcome.
package boot

import (
	"openenterprise/dualbank/imagehdr"
	"openenterprise/dualbank/trailer"
)

// Outcome is the result of one decision cycle.
type Outcome int

const (
	BootActive Outcome = iota
	ContinuePending
	SwapToNew
	SwapToOld
	Recovery
)

func (o Outcome) String() string {
	switch o {
	case BootActive:
		return "BootActive"
	case ContinuePending:
		return "ContinuePending"
	case SwapToNew:
		return "SwapToNew"
	case SwapToOld:
		return "SwapToOld"
	case Recovery:
		return "Recovery"
	default:
		return "Unknown"
	}
}

// Target identifies which slot an Append belongs to.
type Target int

const (
	TargetActive Target = iota
	TargetInactive
)

// Append is one trailer record Decide requires the caller to durably
// commit before acting on the returned Outcome. Trailer writes always
// happen before the triggering action, so a crash between write and
// action leaves a consistent state on the next boot.
type Append struct {
	Target Target
	Record trailer.Record
}

// bound reports whether trailer record r binds to image view v: the image
// must be valid and the record's img_crc32 must match the image's.
// Unbound records are stale and ignored.
func bound(v imagehdr.View, r *trailer.Record) bool {
	return r != nil && v.Valid && r.ImgCRC32 == v.Hdr.ImgCRC32
}

// Decide implements the five-clause algorithm of spec.md §4.6. active and
// inactive are the two slots' verified image views; atr/itr are each
// slot's last trailer record, or nil if none exists. seqActive/seqInactive
// are the next sequence numbers each trailer would assign (trailer.Journal
// .NextSeq of the respective trailer, as of this decision).
func Decide(active, inactive imagehdr.View, atr, itr *trailer.Record, seqActive, seqInactive uint32) (Outcome, []Append) {
	var appends []Append

	// Clause 1: active invalid.
	if !active.Valid {
		if inactive.Valid && !reject(itr, inactive) {
			if !bound(inactive, itr) {
				appends = append(appends, Append{TargetInactive, trailer.Record{
					Magic: trailer.Magic, Seq: seqInactive, State: trailer.StatePending,
					Attempt: 1, ImgCRC32: inactive.Hdr.ImgCRC32,
				}})
			}
			return SwapToOld, appends
		}
		return Recovery, appends
	}

	// Clause 2: active valid, bound trailer exists.
	if bound(active, atr) {
		switch atr.State {
		case trailer.StatePending, trailer.StateRejected:
			return rollbackOrContinue(active, inactive, atr, itr, seqActive, seqInactive)
		case trailer.StateConfirmed:
			// Fall through to the upgrade check (clause 4).
		}
	} else {
		// Clause 3: no bound trailer (fresh image or stale trailer).
		appends = append(appends, Append{TargetActive, trailer.Record{
			Magic: trailer.Magic, Seq: seqActive, State: trailer.StatePending,
			Attempt: 1, ImgCRC32: active.Hdr.ImgCRC32,
		}})
		return ContinuePending, appends
	}

	// Clause 4: upgrade check (reached from a bound active record in any
	// state other than PENDING or REJECTED, in practice CONFIRMED).
	if inactive.Valid && imagehdr.Compare(inactive.Hdr.Ver, active.Hdr.Ver) > 0 && !reject(itr, inactive) && !confirmed(itr, inactive) {
		if !bound(inactive, itr) {
			appends = append(appends, Append{TargetInactive, trailer.Record{
				Magic: trailer.Magic, Seq: seqInactive, State: trailer.StatePending,
				Attempt: 1, ImgCRC32: inactive.Hdr.ImgCRC32,
			}})
		}
		return SwapToNew, appends
	}

	// Clause 5: otherwise.
	return BootActive, appends
}

func reject(r *trailer.Record, v imagehdr.View) bool {
	return bound(v, r) && r.State == trailer.StateRejected
}

func confirmed(r *trailer.Record, v imagehdr.View) bool {
	return bound(v, r) && r.State == trailer.StateConfirmed
}

// rollbackOrContinue handles the PENDING/REJECTED branch of clause 2:
// either bump the attempt counter, or, once exhausted (or already
// REJECTED), reject the active image and fail over to the inactive slot if
// it offers a safe alternative, otherwise enter Recovery.
func rollbackOrContinue(active, inactive imagehdr.View, atr, itr *trailer.Record, seqActive, seqInactive uint32) (Outcome, []Append) {
	var appends []Append

	if atr.State == trailer.StatePending && atr.Attempt < trailer.MaxAttempts {
		appends = append(appends, Append{TargetActive, trailer.Record{
			Magic: trailer.Magic, Seq: seqActive, State: trailer.StatePending,
			Attempt: atr.Attempt + 1, ImgCRC32: atr.ImgCRC32,
		}})
		return ContinuePending, appends
	}

	// Exhausted PENDING, or already REJECTED: reject (if not already) and
	// try to fail over.
	if atr.State != trailer.StateRejected {
		appends = append(appends, Append{TargetActive, trailer.Record{
			Magic: trailer.Magic, Seq: seqActive, State: trailer.StateRejected,
			Attempt: 0, ImgCRC32: atr.ImgCRC32,
		}})
	}

	if inactive.Valid && !reject(itr, inactive) {
		if !bound(inactive, itr) {
			appends = append(appends, Append{TargetInactive, trailer.Record{
				Magic: trailer.Magic, Seq: seqInactive, State: trailer.StatePending,
				Attempt: 1, ImgCRC32: inactive.Hdr.ImgCRC32,
			}})
		}
		return SwapToOld, appends
	}
	return Recovery, appends
}
