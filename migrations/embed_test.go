package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivePinIndexEmbedded(t *testing.T) {
	up, err := FS.ReadFile("000002_live_pin_per_site.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "uq_bookings_live_site_pin")
	assert.Contains(t, string(up), "(testing_site_id, sms_pin)")

	down, err := FS.ReadFile("000002_live_pin_per_site.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP INDEX IF EXISTS uq_bookings_live_site_pin")
}
