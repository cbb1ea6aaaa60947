package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationCodesLookup(t *testing.T) {
	codes := NewLocationCodes()

	assert.Equal(t, "IN", codes.CountryCode("India"))
	assert.Equal(t, "IN", codes.CountryCode("  iNDIA "))
	assert.Equal(t, "US", codes.CountryCode("USA"))
	assert.Equal(t, UnknownLocationCode, codes.CountryCode("Ind"))
	assert.Equal(t, UnknownLocationCode, codes.CountryCode(""))

	assert.Equal(t, "UP", codes.StateCode("Uttar Pradesh"))
	assert.Equal(t, "DL", codes.StateCode("delhi"))
	assert.Equal(t, "NSW", codes.StateCode("New South Wales"))
	// 不做模糊匹配
	assert.Equal(t, UnknownLocationCode, codes.StateCode("Uttar-Pradesh"))
	assert.Equal(t, UnknownLocationCode, codes.StateCode("New Delhi"))
}

func TestLocationCodesApply(t *testing.T) {
	codes := NewLocationCodes()

	err := codes.Apply(LocationOverrides{
		Countries: map[string]string{"Japan": "JP", "India": "IND"},
		States:    map[string]string{"Tokyo": "TKY"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "JP", codes.CountryCode("japan"))
	assert.Equal(t, "IND", codes.CountryCode("India"))
	assert.Equal(t, "TKY", codes.StateCode("Tokyo"))
	assert.Equal(t, "UP", codes.StateCode("Uttar Pradesh"))

	// 重新应用时以默认表为基础，之前的覆盖项不保留
	assert.NoError(t, codes.Apply(LocationOverrides{}))
	assert.Equal(t, UnknownLocationCode, codes.CountryCode("Japan"))
	assert.Equal(t, "IN", codes.CountryCode("India"))
}

func TestLocationCodesApplyRejectsInvalidCodes(t *testing.T) {
	codes := NewLocationCodes()
	assert.NoError(t, codes.Apply(LocationOverrides{Countries: map[string]string{"Japan": "JP"}}))

	for _, bad := range []string{"jp", "J", "JAPN", "J1", ""} {
		err := codes.Apply(LocationOverrides{Countries: map[string]string{"Japan": bad}})
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "JP", codes.CountryCode("Japan"))
}

func TestLocationCodesReloadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
countries:
  Japan: JP
states:
  Tokyo: TKY
  Uttar Pradesh: UPR
`), 0o644))

	codes := NewLocationCodes()
	require.NoError(t, codes.ReloadFile(path))
	assert.Equal(t, "JP", codes.CountryCode("Japan"))
	assert.Equal(t, "UPR", codes.StateCode("uttar pradesh"))

	require.NoError(t, os.WriteFile(path, []byte("countries: [not, a, map]\n"), 0o644))
	assert.Error(t, codes.ReloadFile(path))
	assert.Equal(t, "JP", codes.CountryCode("Japan"))

	require.NoError(t, os.Remove(path))
	require.NoError(t, codes.ReloadFile(path))
	assert.Equal(t, UnknownLocationCode, codes.CountryCode("Japan"))
	assert.Equal(t, "UP", codes.StateCode("Uttar Pradesh"))
}
