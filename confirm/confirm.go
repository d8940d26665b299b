// Package confirm implements the application-side half of the rollback
// protocol: after self-tests pass, the running application durably
// records that the image it is running should no longer be rolled back.
package confirm

import (
	"openenterprise/dualbank/imagehdr"
	"openenterprise/dualbank/trailer"
)

// Confirmer is exposed to application code running from the active slot.
// It is the only legitimate producer of CONFIRMED records; it never
// writes REJECTED — that is the bootloader's prerogative alone.
type Confirmer struct {
	Journal *trailer.Journal
	// RunningCRC32 is the img_crc32 of the image currently executing,
	// read from the typed ImageHeader.ImgCRC32 field embedded at the
	// active slot's base. Per spec.md §9, the typed field is authoritative
	// over any hard-coded offset into the header; any tamper-check against
	// the computed body CRC is the verifier's job at boot time, not the
	// confirmer's.
	RunningCRC32 uint32
}

// NewConfirmer builds a Confirmer for the active slot's trailer, reading
// the running image's header through r to obtain its binding CRC.
func NewConfirmer(j *trailer.Journal, r imagehdr.BodyReader, activeBase uint32) (*Confirmer, error) {
	raw, err := r.Read(activeBase, imagehdr.Size)
	if err != nil {
		return nil, err
	}
	var hdr imagehdr.Header
	if err := hdr.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return &Confirmer{Journal: j, RunningCRC32: hdr.ImgCRC32}, nil
}

// lastBound returns the active trailer's last record if it binds to the
// running image, and whether one was found at all.
func (c *Confirmer) lastBound() (rec trailer.Record, bound bool, err error) {
	rec, ok, err := c.Journal.ReadLast()
	if err != nil || !ok {
		return trailer.Record{}, false, err
	}
	return rec, rec.ImgCRC32 == c.RunningCRC32, nil
}

// IsPending reports whether the last trailer record is bound to the
// running image and in state PENDING.
func (c *Confirmer) IsPending() (bool, error) {
	rec, bound, err := c.lastBound()
	if err != nil {
		return false, err
	}
	return bound && rec.State == trailer.StatePending, nil
}

// IsConfirmed reports whether the last trailer record is bound to the
// running image and in state CONFIRMED.
func (c *Confirmer) IsConfirmed() (bool, error) {
	rec, bound, err := c.lastBound()
	if err != nil {
		return false, err
	}
	return bound && rec.State == trailer.StateConfirmed, nil
}

// ConfirmSelf appends a CONFIRMED record bound to the running image's
// img_crc32. On a full trailer it erases and retries exactly once, per
// the trailer journal's documented full-handling policy.
func (c *Confirmer) ConfirmSelf() error {
	seq, err := c.Journal.NextSeq()
	if err != nil {
		return err
	}
	rec := trailer.Record{
		Magic:    trailer.Magic,
		Seq:      seq,
		State:    trailer.StateConfirmed,
		Attempt:  0,
		ImgCRC32: c.RunningCRC32,
	}
	return c.Journal.AppendRetryingFull(rec)
}
