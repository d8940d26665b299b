// Package trailer implements the append-only journal of TrailerRecords that
// occupies the last sector of every slot. A slot's trailer records its
// rollback history: one record per state transition, written in place as
// long as the sector has room, compacted only by a full sector erase.
package trailer

import (
	"encoding/binary"
	"errors"
)

// State values are fixed wire constants, not iota-assigned, because they
// are read back from flash written by (and compared against) the spec.
type State uint32

const (
	StateNew       State = 0xAAAA0001
	StatePending   State = 0xAAAA0002
	StateConfirmed State = 0xAAAA0003
	StateRejected  State = 0xAAAA0004
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StatePending:
		return "PENDING"
	case StateConfirmed:
		return "CONFIRMED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

const (
	Magic uint32 = 0x544C5252 // "TLRR" little-endian

	// Size is the fixed record size: one wordline, so every append is a
	// single atomic flash transaction.
	Size = 32

	MaxAttempts = 3
)

var ErrFull = errors.New("trailer: sector full")

// Record is the 32-byte trailer entry, the native flash programming unit.
type Record struct {
	Magic    uint32
	Seq      uint32
	State    State
	Attempt  uint32
	ImgCRC32 uint32
}

// MarshalBinary encodes r into its fixed 32-byte little-endian layout,
// zero-padded to Size.
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint32(buf[0:4], r.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], r.Seq)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.State))
	binary.LittleEndian.PutUint32(buf[12:16], r.Attempt)
	binary.LittleEndian.PutUint32(buf[16:20], r.ImgCRC32)
	return buf, nil
}

// UnmarshalBinary decodes a Record from its 32-byte little-endian layout.
func (r *Record) UnmarshalBinary(buf []byte) error {
	if len(buf) < Size {
		return errors.New("trailer: short record")
	}
	r.Magic = binary.LittleEndian.Uint32(buf[0:4])
	r.Seq = binary.LittleEndian.Uint32(buf[4:8])
	r.State = State(binary.LittleEndian.Uint32(buf[8:12]))
	r.Attempt = binary.LittleEndian.Uint32(buf[12:16])
	r.ImgCRC32 = binary.LittleEndian.Uint32(buf[16:20])
	return nil
}

func isErased(buf []byte) bool {
	for _, b := range buf {
		if b != 0xFF {
			return false
		}
	}
	return true
}

func isValid(buf []byte) bool {
	return len(buf) >= 4 && binary.LittleEndian.Uint32(buf[0:4]) == Magic
}

// Device is the narrow flash surface a Journal needs: reading the trailer
// region and programming/erasing it. flash.Device satisfies it directly.
type Device interface {
	Read(addr uint32, n int) ([]byte, error)
	ProgramWord(addr uint32, src []byte) error
	EraseSector(addr uint32) error
}

// Journal manages the append-only record stream in one slot's trailer
// region: [Base, Base+Size).
type Journal struct {
	Dev  Device
	Base uint32
	Size uint32
}

// slots returns the number of Size-byte record slots the trailer holds.
func (j *Journal) slots() uint32 { return j.Size / Size }

// ReadLast scans the sector in wordline strides, returning the highest-
// offset record with a correct magic, stopping as soon as a wholly-erased
// slot is encountered (an erased slot always follows all written ones,
// since writes are append-only and a sector is only ever fully erased).
// Returns ok == false if no valid record exists.
func (j *Journal) ReadLast() (rec Record, ok bool, err error) {
	n := j.slots()
	for i := uint32(0); i < n; i++ {
		buf, rerr := j.Dev.Read(j.Base+i*Size, Size)
		if rerr != nil {
			return Record{}, false, rerr
		}
		if isErased(buf) {
			break
		}
		if !isValid(buf) {
			// A torn or garbage record never has a valid magic; per the
			// failure model it is simply not the last valid record, and
			// scanning continues so that a later genuinely-erased slot
			// still terminates the scan.
			continue
		}
		if err := rec.UnmarshalBinary(buf); err != nil {
			return Record{}, false, err
		}
		ok = true
	}
	return rec, ok, nil
}

// IsFull reports whether the final slot of the sector is non-erased.
func (j *Journal) IsFull() (bool, error) {
	n := j.slots()
	buf, err := j.Dev.Read(j.Base+(n-1)*Size, Size)
	if err != nil {
		return false, err
	}
	return !isErased(buf), nil
}

// Append writes rec into the first wholly-erased slot. Returns ErrFull if
// the sector has no room; the caller is expected to Erase and retry.
func (j *Journal) Append(rec Record) error {
	n := j.slots()
	for i := uint32(0); i < n; i++ {
		addr := j.Base + i*Size
		buf, err := j.Dev.Read(addr, Size)
		if err != nil {
			return err
		}
		if !isErased(buf) {
			continue
		}
		scratch, err := rec.MarshalBinary()
		if err != nil {
			return err
		}
		return j.Dev.ProgramWord(addr, scratch)
	}
	return ErrFull
}

// Erase erases the entire trailer sector.
func (j *Journal) Erase() error {
	return j.Dev.EraseSector(j.Base)
}

// NextSeq returns the sequence number the next appended record should
// carry: 1 on an empty trailer, or one past the last record's Seq.
func (j *Journal) NextSeq() (uint32, error) {
	rec, ok, err := j.ReadLast()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return rec.Seq + 1, nil
}

// AppendRetryingFull behaves like Append, but on ErrFull erases the sector
// and retries exactly once. A failed retry escalates the underlying flash
// error to the caller.
func (j *Journal) AppendRetryingFull(rec Record) error {
	err := j.Append(rec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrFull) {
		return err
	}
	if err := j.Erase(); err != nil {
		return err
	}
	return j.Append(rec)
}
