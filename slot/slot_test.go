package slot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openenterprise/dualbank/imagehdr"
	"openenterprise/dualbank/slot"
)

func testGeometry() slot.Geometry {
	return slot.Geometry{
		SlotTotalSize: 4096,
		TrailerSize:   256,
		SlotABase:     0,
		SlotBBase:     4096,
	}
}

func Test_Geometry_ActiveSlot_Is_Always_SlotA_Regardless_Of_Swap(t *testing.T) {
	t.Parallel()

	g := testGeometry()
	assert.Equal(t, g.SlotABase, g.ActiveSlot().Base)
	assert.Equal(t, g.SlotBBase, g.InactiveSlot().Base)
}

func Test_Slot_Entry_Is_Base_Plus_Header_Size(t *testing.T) {
	t.Parallel()

	g := testGeometry()
	assert.Equal(t, g.SlotABase+uint32(imagehdr.Size), g.ActiveSlot().Entry())
}

func Test_Slot_AppSize_Excludes_Trailer(t *testing.T) {
	t.Parallel()

	g := testGeometry()
	s := g.ActiveSlot()
	assert.Equal(t, g.SlotTotalSize-g.TrailerSize, s.AppSize)
	assert.Equal(t, g.TrailerSize, s.TrailerSize())
}

func Test_Slot_TrailerBase_Immediately_Follows_AppRegion(t *testing.T) {
	t.Parallel()

	g := testGeometry()
	s := g.ActiveSlot()
	assert.Equal(t, s.Base+s.AppSize, s.TrailerBase)
}

type fakeSwapReader struct {
	swapped bool
	err     error
}

func (f fakeSwapReader) ReadSwap() (bool, error) { return f.swapped, f.err }

func Test_PhysicalBankOf_Matches_Active_And_Swap_State(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		swapped bool
		active  bool
		want    int
	}{
		{"unswapped active", false, true, 0},
		{"unswapped inactive", false, false, 1},
		{"swapped active", true, true, 1},
		{"swapped inactive", true, false, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			bank, err := slot.PhysicalBankOf(fakeSwapReader{swapped: tc.swapped}, tc.active)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bank)
		})
	}
}

func Test_PhysicalBankOf_Propagates_ReadSwap_Error(t *testing.T) {
	t.Parallel()

	wantErr := assert.AnError
	_, err := slot.PhysicalBankOf(fakeSwapReader{err: wantErr}, true)
	assert.ErrorIs(t, err, wantErr)
}
