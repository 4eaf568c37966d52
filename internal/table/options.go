package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	OptSegmentDuration    = "segment_duration"
	OptTTL                = "ttl"
	OptEnableTTL          = "enable_ttl"
	OptWriteBufferSize    = "write_buffer_size"
	OptArenaBlockSize     = "arena_block_size"
	OptNumRowsPerRowGroup = "num_rows_per_row_group"
	OptUpdateMode         = "update_mode"
)

const (
	day = 24 * time.Hour

	DefaultSegmentDuration    = 2 * time.Hour
	DefaultTTL                = 7 * day
	DefaultWriteBufferSize    = 32 << 20
	DefaultArenaBlockSize     = 2 << 20
	DefaultNumRowsPerRowGroup = 8192

	MinArenaBlockSize     = 1 << 10
	MaxArenaBlockSize     = 2 << 30
	MinNumRowsPerRowGroup = 100
	MinWriteBufferSize    = 1 << 10
)

var ErrInvalidOption = errors.New("invalid table option")

type UpdateMode string

const (
	UpdateModeOverwrite UpdateMode = "OVERWRITE"
	UpdateModeAppend    UpdateMode = "APPEND"
)

func ParseUpdateMode(s string) (UpdateMode, error) {
	switch mode := UpdateMode(strings.ToUpper(s)); mode {
	case UpdateModeOverwrite, UpdateModeAppend:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %s=%q", ErrInvalidOption, OptUpdateMode, s)
	}
}

// Options are the per-table tunables persisted with the table meta.
type Options struct {
	SegmentDuration    time.Duration `json:"segment_duration"`
	TTL                time.Duration `json:"ttl"`
	EnableTTL          bool          `json:"enable_ttl"`
	WriteBufferSize    uint64        `json:"write_buffer_size"`
	ArenaBlockSize     uint64        `json:"arena_block_size"`
	NumRowsPerRowGroup uint64        `json:"num_rows_per_row_group"`
	UpdateMode         UpdateMode    `json:"update_mode"`
}

func DefaultOptions() Options {
	return Options{
		SegmentDuration:    DefaultSegmentDuration,
		TTL:                DefaultTTL,
		EnableTTL:          true,
		WriteBufferSize:    DefaultWriteBufferSize,
		ArenaBlockSize:     DefaultArenaBlockSize,
		NumRowsPerRowGroup: DefaultNumRowsPerRowGroup,
		UpdateMode:         UpdateModeOverwrite,
	}
}

// MergeOptionsForCreate overrides defaults with the known keys of opts.
// Unknown keys are ignored.
func MergeOptionsForCreate(opts map[string]string, defaults Options) (Options, error) {
	merged := defaults

	for key, raw := range opts {
		var err error
		switch strings.ToLower(key) {
		case OptSegmentDuration:
			merged.SegmentDuration, err = ParseDuration(raw)
		case OptTTL:
			merged.TTL, err = ParseDuration(raw)
		case OptEnableTTL:
			merged.EnableTTL, err = strconv.ParseBool(raw)
		case OptWriteBufferSize:
			merged.WriteBufferSize, err = strconv.ParseUint(raw, 10, 64)
		case OptArenaBlockSize:
			merged.ArenaBlockSize, err = strconv.ParseUint(raw, 10, 64)
		case OptNumRowsPerRowGroup:
			merged.NumRowsPerRowGroup, err = strconv.ParseUint(raw, 10, 64)
		case OptUpdateMode:
			merged.UpdateMode, err = ParseUpdateMode(raw)
		default:
			continue
		}
		if err != nil {
			if errors.Is(err, ErrInvalidOption) {
				return Options{}, err
			}
			return Options{}, fmt.Errorf("%w: %s=%q: %v", ErrInvalidOption, key, raw, err)
		}
	}

	return merged, nil
}

// Sanitize normalizes out of range values in place.
func (o *Options) Sanitize() {
	if o.SegmentDuration <= 0 {
		o.SegmentDuration = DefaultSegmentDuration
	}
	if o.TTL < 0 {
		o.TTL = 0
	}
	o.TTL = o.TTL.Truncate(day)

	o.ArenaBlockSize = clamp(o.ArenaBlockSize, MinArenaBlockSize, MaxArenaBlockSize)
	o.NumRowsPerRowGroup = max(o.NumRowsPerRowGroup, MinNumRowsPerRowGroup)
	o.WriteBufferSize = max(o.WriteBufferSize, MinWriteBufferSize)
	if o.UpdateMode == "" {
		o.UpdateMode = UpdateModeOverwrite
	}
}

// ToMap renders the options with the same keys MergeOptionsForCreate reads.
func (o Options) ToMap() map[string]string {
	return map[string]string{
		OptSegmentDuration:    FormatDuration(o.SegmentDuration),
		OptTTL:                FormatDuration(o.TTL),
		OptEnableTTL:          strconv.FormatBool(o.EnableTTL),
		OptWriteBufferSize:    strconv.FormatUint(o.WriteBufferSize, 10),
		OptArenaBlockSize:     strconv.FormatUint(o.ArenaBlockSize, 10),
		OptNumRowsPerRowGroup: strconv.FormatUint(o.NumRowsPerRowGroup, 10),
		OptUpdateMode:         string(o.UpdateMode),
	}
}

// ParseDuration accepts time.ParseDuration syntax and whole days such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseUint(days, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q: %w", s, err)
		}
		return time.Duration(n) * day, nil
	}
	return time.ParseDuration(s)
}

func FormatDuration(d time.Duration) string {
	if d > 0 && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return d.String()
}

func clamp(v, lo, hi uint64) uint64 {
	return min(max(v, lo), hi)
}
