package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOptionsForCreate(t *testing.T) {
	tests := []struct {
		name    string
		opts    map[string]string
		check   func(t *testing.T, o Options)
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			check: func(t *testing.T, o Options) {
				assert.Equal(t, DefaultOptions(), o)
			},
		},
		{
			name: "known keys override",
			opts: map[string]string{
				"segment_duration":  "1h",
				"TTL":               "3d",
				"enable_ttl":        "false",
				"write_buffer_size": "4096",
				"update_mode":       "append",
				"unknown_option":    "whatever",
			},
			check: func(t *testing.T, o Options) {
				assert.Equal(t, time.Hour, o.SegmentDuration)
				assert.Equal(t, 3*24*time.Hour, o.TTL)
				assert.False(t, o.EnableTTL)
				assert.Equal(t, uint64(4096), o.WriteBufferSize)
				assert.Equal(t, UpdateModeAppend, o.UpdateMode)
			},
		},
		{name: "bad duration", opts: map[string]string{"ttl": "forever"}, wantErr: true},
		{name: "bad size", opts: map[string]string{"arena_block_size": "-1"}, wantErr: true},
		{name: "bad mode", opts: map[string]string{"update_mode": "upsert"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := MergeOptionsForCreate(tt.opts, DefaultOptions())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOption)
				return
			}
			require.NoError(t, err)
			tt.check(t, o)
		})
	}
}

func TestOptions_Sanitize(t *testing.T) {
	o := Options{
		TTL:                36 * time.Hour,
		ArenaBlockSize:     1,
		NumRowsPerRowGroup: 5,
		WriteBufferSize:    10,
	}
	o.Sanitize()

	assert.Equal(t, DefaultSegmentDuration, o.SegmentDuration)
	assert.Equal(t, 24*time.Hour, o.TTL)
	assert.Equal(t, uint64(MinArenaBlockSize), o.ArenaBlockSize)
	assert.Equal(t, uint64(MinNumRowsPerRowGroup), o.NumRowsPerRowGroup)
	assert.Equal(t, uint64(MinWriteBufferSize), o.WriteBufferSize)
	assert.Equal(t, UpdateModeOverwrite, o.UpdateMode)

	o.ArenaBlockSize = 1 << 40
	o.Sanitize()
	assert.Equal(t, uint64(MaxArenaBlockSize), o.ArenaBlockSize)
}

func TestOptions_ToMapRoundTrip(t *testing.T) {
	o := DefaultOptions()
	o.SegmentDuration = 90 * time.Minute

	back, err := MergeOptionsForCreate(o.ToMap(), Options{})
	require.NoError(t, err)
	assert.Equal(t, o, back)
	assert.Equal(t, "7d", o.ToMap()[OptTTL])
}

func TestMemUsageCollector(t *testing.T) {
	instance := NewMemUsageCollector()
	space := instance.Child()
	t1, t2 := space.Child(), space.Child()

	t1.Track(100)
	t2.Track(50)
	t1.Track(-30)

	assert.Equal(t, int64(70), t1.Usage())
	assert.Equal(t, int64(120), space.Usage())
	assert.Equal(t, int64(120), instance.Usage())
}
