package imagehdr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openenterprise/dualbank/imagehdr"
)

func Test_Header_RoundTrips_Through_MarshalBinary(t *testing.T) {
	t.Parallel()

	hdr := imagehdr.Header{
		Magic:      imagehdr.Magic,
		HdrVersion: imagehdr.HdrVersion,
		Flags:      0x1234,
		Ver:        imagehdr.SemVer{Major: 2, Minor: 5, Patch: 9, Build: 42},
		ImgSize:    4096,
		ImgCRC32:   0xDEADBEEF,
	}

	raw, err := hdr.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, imagehdr.Size)

	var got imagehdr.Header
	require.NoError(t, got.UnmarshalBinary(raw))
	assert.Equal(t, hdr, got)
}

func Test_Header_UnmarshalBinary_Rejects_Short_Buffer(t *testing.T) {
	t.Parallel()

	var hdr imagehdr.Header
	err := hdr.UnmarshalBinary(make([]byte, imagehdr.Size-1))
	assert.ErrorIs(t, err, imagehdr.ErrShortRead)
}

func Test_Compare_Orders_By_Major_Minor_Patch_Ignoring_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b imagehdr.SemVer
		want int
	}{
		{"equal", imagehdr.SemVer{Major: 1, Minor: 2, Patch: 3}, imagehdr.SemVer{Major: 1, Minor: 2, Patch: 3}, 0},
		{"build ignored", imagehdr.SemVer{Major: 1, Minor: 2, Patch: 3, Build: 9}, imagehdr.SemVer{Major: 1, Minor: 2, Patch: 3, Build: 1}, 0},
		{"major wins", imagehdr.SemVer{Major: 2, Minor: 0, Patch: 0}, imagehdr.SemVer{Major: 1, Minor: 9, Patch: 9}, 1},
		{"minor wins", imagehdr.SemVer{Major: 1, Minor: 3, Patch: 0}, imagehdr.SemVer{Major: 1, Minor: 2, Patch: 9}, 1},
		{"patch wins", imagehdr.SemVer{Major: 1, Minor: 2, Patch: 4}, imagehdr.SemVer{Major: 1, Minor: 2, Patch: 3}, 1},
		{"a before b", imagehdr.SemVer{Major: 1, Minor: 0, Patch: 0}, imagehdr.SemVer{Major: 1, Minor: 0, Patch: 1}, -1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, imagehdr.Compare(tc.a, tc.b))
		})
	}
}

// fakeDevice is a minimal imagehdr.BodyReader over a flat byte slice, used
// so Inspect can be exercised without flash.Sim or slot geometry.
type fakeDevice []byte

func (f fakeDevice) Read(addr uint32, n int) ([]byte, error) {
	if int(addr)+n > len(f) {
		return nil, assert.AnError
	}
	return f[addr : int(addr)+n], nil
}

const (
	testAppSize = 2048
	testRAMLo   = 0x20000000
	testRAMHi   = 0x20040000
	testFlashLo = 0x08000000
	testFlashHi = 0x08100000
)

func testVectorWindow() imagehdr.VectorWindow {
	return imagehdr.VectorWindow{RAMLo: testRAMLo, RAMHi: testRAMHi, FlashLo: testFlashLo, FlashHi: testFlashHi}
}

func buildTestImage(t *testing.T, ver imagehdr.SemVer, bodySize int) []byte {
	t.Helper()
	body := make([]byte, bodySize)
	for i := range body {
		body[i] = byte(i)
	}
	// Stamp a vector table that satisfies testVectorWindow.
	putU32(body[0:4], testRAMLo+0x1000)
	putU32(body[4:8], testFlashLo+uint32(imagehdr.Size)+1)

	hdr := imagehdr.Header{
		Magic:      imagehdr.Magic,
		HdrVersion: imagehdr.HdrVersion,
		Ver:        ver,
		ImgSize:    uint32(len(body)),
		ImgCRC32:   imagehdr.CRC32(body),
	}
	raw, err := hdr.MarshalBinary()
	require.NoError(t, err)
	return append(raw, body...)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func Test_Inspect_Valid_Image_Reports_Valid(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1, Minor: 0, Patch: 0}, 256)
	dev := fakeDevice(img)

	v := imagehdr.Inspect(dev, 0, testAppSize, testVectorWindow())
	require.NoError(t, v.Err)
	assert.True(t, v.Valid)
	assert.Equal(t, uint32(imagehdr.Size), v.Entry)
}

func Test_Inspect_Bad_Magic_Short_Circuits_Before_Body_Read(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 256)
	img[0] ^= 0xFF // corrupt magic's first byte

	v := imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrMagic)
}

func Test_Inspect_Bad_Version_Reported_Distinctly_From_Bad_Magic(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 256)
	// Magic intact, header version bumped past what this build understands.
	img[4] = byte(imagehdr.HdrVersion + 1)
	img[5] = 0

	v := imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrVersion)
}

func Test_Inspect_Vector_Out_Of_Range_Rejected_Before_CRC(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 256)
	// Stomp the stack pointer word so it falls outside the RAM window.
	putU32(img[imagehdr.Size:imagehdr.Size+4], 0x00001000)

	v := imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrVector)
}

func Test_Inspect_CRC_Mismatch_Rejected(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 256)
	img[len(img)-1] ^= 0xFF // corrupt one body byte after header/vector checks pass

	v := imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrCRC)
}

func Test_Inspect_ImgSize_Zero_Or_Oversize_Rejected(t *testing.T) {
	t.Parallel()

	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 256)
	putU32(img[20:24], 0) // img_size field lives at header offset 20
	// img_crc32 now mismatches too, but ErrSize must fire first.
	v := imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrSize)

	// One byte past the largest body the app region can hold.
	putU32(img[20:24], testAppSize-imagehdr.Size+1)
	v = imagehdr.Inspect(fakeDevice(img), 0, testAppSize, testVectorWindow())
	assert.False(t, v.Valid)
	assert.ErrorIs(t, v.Err, imagehdr.ErrSize)
}

func Test_Inspect_Valid_Image_With_Unaligned_Body_Size(t *testing.T) {
	t.Parallel()

	// 257 is not a multiple of 4: the trailing partial word must be
	// 0xFF-padded identically by the stamping CRC32 and by Inspect's
	// verification, or a spec-conformant image would never boot.
	img := buildTestImage(t, imagehdr.SemVer{Major: 1}, 257)
	dev := fakeDevice(img)

	v := imagehdr.Inspect(dev, 0, testAppSize, testVectorWindow())
	require.NoError(t, v.Err)
	assert.True(t, v.Valid)
}

func Test_CRC32_Pads_Trailing_Partial_Word_With_0xFF(t *testing.T) {
	t.Parallel()

	// 1 byte: no whole word, only a 1-byte tail. Padding the tail with
	// 0xFF,0xFF,0xFF must produce the same CRC as a 4-byte buffer whose
	// last three bytes already are 0xFF.
	tail := []byte{0x42}
	padded := []byte{0x42, 0xFF, 0xFF, 0xFF}
	assert.Equal(t, imagehdr.CRC32(padded), imagehdr.CRC32(tail))
}

func Test_CRC32_Is_Deterministic_And_Sensitive_To_Every_Byte(t *testing.T) {
	t.Parallel()

	a := []byte{1, 2, 3, 4, 5}
	b := []byte{1, 2, 3, 4, 6}
	assert.Equal(t, imagehdr.CRC32(a), imagehdr.CRC32(a))
	assert.NotEqual(t, imagehdr.CRC32(a), imagehdr.CRC32(b))
}
