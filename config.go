package vcdiff

import "fmt"

// Hard limits, independent of any particular stream's configuration.
const (
	// HardMaxWindow is the implementer-chosen ceiling on W_t/W_s: any
	// declared window size above this is rejected before the section
	// payload is read (WindowTooLarge, spec.md §7).
	HardMaxWindow = 16 << 20 // 16 MiB

	// MaxLRU bounds the number of source blocks the cache keeps
	// resident at once (spec.md §3).
	MaxLRU = 32

	// DefaultBlockSize is the source cache's block granularity.
	DefaultBlockSize = 64 << 10 // 64 KiB

	// NearCacheSize and SameCacheSize are RFC 3284's defaults
	// (s_near=4, s_same=3, 3*256 total SAME slots).
	NearCacheSize = 4
	SameCacheSize = 3
)

// MatcherProfile tunes the match engine for a compression level
// (spec.md §4.G). Index by StreamConfig.Level via ProfileForLevel.
type MatcherProfile struct {
	LargeLook   int // bytes per rolling-hash window
	LargeStep   int // stride between large-hash probes
	SmallChain  int // max small-hash chain nodes walked
	SmallLChain int // max small-hash chain length retained
	MaxLazy     int // lazy-match lookahead bound
	LongEnough  int // match length above which lazy search stops early
	StoreOnly   bool
}

// ProfileForLevel returns the matcher tuning for a 0-9 compression
// level, following the bands in spec.md §4.G.
func ProfileForLevel(level int) MatcherProfile {
	switch {
	case level <= 0:
		return MatcherProfile{StoreOnly: true}
	case level == 1:
		return MatcherProfile{LargeLook: 9, LargeStep: 4, SmallChain: 4, SmallLChain: 8, MaxLazy: 0, LongEnough: 16}
	case level == 2:
		return MatcherProfile{LargeLook: 9, LargeStep: 3, SmallChain: 16, SmallLChain: 16, MaxLazy: 0, LongEnough: 32}
	case level >= 3 && level <= 5:
		return MatcherProfile{LargeLook: 9, LargeStep: 2, SmallChain: 32, SmallLChain: 32, MaxLazy: 4, LongEnough: 64}
	case level == 6:
		return MatcherProfile{LargeLook: 9, LargeStep: 1, SmallChain: 64, SmallLChain: 64, MaxLazy: 8, LongEnough: 128}
	default: // 7-9
		return MatcherProfile{LargeLook: 9, LargeStep: 1, SmallChain: 256, SmallLChain: 256, MaxLazy: 32, LongEnough: 4096}
	}
}

// ChecksumMode selects whether windows carry and verify Adler-32.
type ChecksumMode int

const (
	ChecksumEnabled ChecksumMode = iota
	ChecksumDisabled
	// ChecksumVerifySkipped computes and emits the checksum on encode
	// but the decoder is told to skip verification (driver-suppressed,
	// spec.md §7's "unless the driver has suppressed verification").
	ChecksumVerifySkipped
)

// StreamConfig configures an Encoder or Decoder. It is a plain struct
// constructed by the driver (CLI or library caller); there is no
// file-based config layer (see SPEC_FULL.md §2.1).
type StreamConfig struct {
	// Level selects the MatcherProfile (0-9). Default 6.
	Level int

	// WindowSize bounds W_t per window on encode. Must not exceed
	// HardMaxWindow. The decoder does not compare declared windows
	// against it; on decode only HardMaxWindow is enforced.
	WindowSize int

	// SourceWindowSize bounds W_s the encoder will open at once.
	SourceWindowSize int

	// DuplicateWindowSize is the original CLI's knob overlapping with
	// small_chain bounds (spec.md §9 open question). Zero disables
	// target-self (small-hash) matching entirely; values above
	// WindowSize are rejected by Validate.
	DuplicateWindowSize int

	// IoptCapacity bounds the IOPT FIFO; 0 means unbounded/growable.
	IoptCapacity int

	// SrcOverlapMin is the minimum allowed overlap between successive
	// source windows chosen by the encoder (spec.md §4.K).
	SrcOverlapMin int

	// MinMatch is the shortest match length the matcher will accept.
	MinMatch int

	// RunThreshold is the minimum repeated-byte run length promoted
	// to a RUN candidate.
	RunThreshold int

	// Secondary, if non-nil, is applied per-section on encode and
	// selected by ID on decode.
	Secondary Secondary

	// Checksum controls Adler-32 emission/verification.
	Checksum ChecksumMode

	// AppHeader, if non-empty, is carried verbatim in the file header
	// (VCD_APPHEADER).
	AppHeader []byte

	// BlockSize is the source cache's block granularity.
	BlockSize int
}

// DefaultStreamConfig returns the teacher-equivalent sane defaults:
// level 6, 1 MiB windows, Adler-32 on, no secondary compression.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Level:               6,
		WindowSize:          1 << 20,
		SourceWindowSize:    1 << 20,
		DuplicateWindowSize: 1 << 20,
		IoptCapacity:        4096,
		SrcOverlapMin:       0,
		MinMatch:            4,
		RunThreshold:        8,
		Checksum:            ChecksumEnabled,
		BlockSize:           DefaultBlockSize,
	}
}

// Validate applies the defaults and rejects inconsistent configuration.
func (c *StreamConfig) Validate() error {
	if c.Level < 0 || c.Level > 9 {
		return fmt.Errorf("level %d out of range 0-9: %w", c.Level, ErrInvalidConfig)
	}
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultStreamConfig().WindowSize
	}
	if c.WindowSize > HardMaxWindow {
		return fmt.Errorf("window size %d exceeds hard max %d: %w", c.WindowSize, HardMaxWindow, ErrInvalidConfig)
	}
	if c.SourceWindowSize <= 0 {
		c.SourceWindowSize = c.WindowSize
	}
	if c.DuplicateWindowSize > c.WindowSize {
		return fmt.Errorf("duplicate window size %d exceeds window size %d: %w", c.DuplicateWindowSize, c.WindowSize, ErrInvalidConfig)
	}
	if c.MinMatch <= 0 {
		c.MinMatch = 4
	}
	if c.RunThreshold <= 0 {
		c.RunThreshold = 8
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	return nil
}
