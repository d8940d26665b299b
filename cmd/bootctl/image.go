package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"openenterprise/dualbank/imagehdr"
)

// byteReader adapts a plain byte slice to imagehdr.BodyReader, for
// inspecting a raw image file directly rather than a slot inside a
// simulated device.
type byteReader []byte

func (b byteReader) Read(addr uint32, n int) ([]byte, error) {
	if int(addr)+n > len(b) {
		return nil, fmt.Errorf("bootctl: read past end of file at offset %d, len %d", addr, len(b))
	}
	return b[addr : int(addr)+n], nil
}

// buildImage assembles a complete header+body image file: it computes
// img_size/img_crc32 and stamps the vector table, standing in for the
// out-of-scope host-side tool spec.md §1 names as a collaborator. This
// exists purely so bootctl can produce test fixtures without a separate
// toolchain; it is not a redesign of that tool.
func buildImage(ver imagehdr.SemVer, body []byte, vw VectorSeed) []byte {
	padded := make([]byte, len(body))
	copy(padded, body)

	// Stamp the vector table (stack pointer, reset handler) at the start
	// of the body, the way a real linked image's .isr_vector section
	// would already contain these words.
	if len(padded) < 8 {
		grown := make([]byte, 8)
		copy(grown, padded)
		padded = grown
	}
	binary.LittleEndian.PutUint32(padded[0:4], vw.StackPointer)
	binary.LittleEndian.PutUint32(padded[4:8], vw.ResetHandler)

	hdr := imagehdr.Header{
		Magic:      imagehdr.Magic,
		HdrVersion: imagehdr.HdrVersion,
		Ver:        ver,
		ImgSize:    uint32(len(padded)),
		ImgCRC32:   imagehdr.CRC32(padded),
	}
	raw, _ := hdr.MarshalBinary()
	out := make([]byte, 0, len(raw)+len(padded))
	out = append(out, raw...)
	out = append(out, padded...)
	return out
}

// VectorSeed carries the two vector-table words a synthetic test image
// should embed, so it lands inside whatever profile's vector-sanity
// windows the caller is exercising.
type VectorSeed struct {
	StackPointer uint32
	ResetHandler uint32
}

func readImageFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootctl: reading %s: %w", path, err)
	}
	return data, nil
}
