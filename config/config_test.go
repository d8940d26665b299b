package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openenterprise/dualbank/config"
)

func Test_Default_Parses_Embedded_Profile(t *testing.T) {
	t.Parallel()

	p, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, uint32(917504), p.SlotTotalSize)
	assert.Equal(t, uint32(131072), p.TrailerSize)
	assert.Equal(t, uint32(131072), p.SectorSize)
	assert.Equal(t, uint32(0x08000000), p.SlotABase)
	assert.Equal(t, uint32(0x08100000), p.SlotBBase)
	assert.Equal(t, uint32(0x24000000), p.VectorRAMLo)
	assert.Equal(t, uint32(0x2407FFFF), p.VectorRAMHi)
	assert.Equal(t, uint32(0x08000000), p.VectorFlashLo)
	assert.Equal(t, uint32(0x081FFFFF), p.VectorFlashHi)
}

func Test_Load_Merges_Override_Fields_Over_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.jwcc")
	// JWCC (hujson) allows trailing commas and comments, unlike strict
	// JSON; the override only names the fields it wants to change.
	content := `{
		// shrink the erase unit for a board with smaller sectors
		"sector_size": 65536,
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := config.Load(path)
	require.NoError(t, err)

	def, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, uint32(65536), p.SectorSize)
	// Everything else falls back to the embedded default.
	assert.Equal(t, def.SlotTotalSize, p.SlotTotalSize)
	assert.Equal(t, def.TrailerSize, p.TrailerSize)
	assert.Equal(t, def.VectorRAMLo, p.VectorRAMLo)
}

func Test_Load_Rejects_Invalid_JWCC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jwcc")
	require.NoError(t, os.WriteFile(path, []byte("{not valid"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func Test_Load_Missing_File_Returns_Error(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.jwcc"))
	assert.Error(t, err)
}
