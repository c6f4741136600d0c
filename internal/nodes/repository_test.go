package nodes

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The schema leaves layer_id, owner_id, elevation and last_seen_at
// nullable, so the scan destinations for those columns must accept a
// NULL source. Pointer fields do; plain values make pgx error with
// "cannot scan NULL".
func TestScanDestinationsAcceptNullColumns(t *testing.T) {
	m := pgtype.NewMap()
	var n Node

	cases := []struct {
		column string
		oid    uint32
		dst    any
	}{
		{"layer_id", pgtype.Int8OID, &n.LayerID},
		{"owner_id", pgtype.Int8OID, &n.OwnerID},
		{"elevation", pgtype.Float8OID, &n.Elevation},
		{"last_seen_at", pgtype.TimestamptzOID, &n.LastSeenAt},
	}
	for _, tc := range cases {
		require.NoError(t, m.Scan(tc.oid, pgtype.TextFormatCode, nil, tc.dst), tc.column)
	}
	assert.Nil(t, n.LayerID)
	assert.Nil(t, n.OwnerID)
	assert.Nil(t, n.Elevation)
	assert.Nil(t, n.LastSeenAt)

	// A present value still round-trips into the same destinations.
	require.NoError(t, m.Scan(pgtype.Int8OID, pgtype.TextFormatCode, []byte("7"), &n.LayerID))
	require.NotNil(t, n.LayerID)
	assert.Equal(t, int64(7), *n.LayerID)

	require.NoError(t, m.Scan(pgtype.TimestamptzOID, pgtype.TextFormatCode, []byte("2026-08-01 12:00:00Z"), &n.LastSeenAt))
	require.NotNil(t, n.LastSeenAt)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), n.LastSeenAt.UTC())
}
