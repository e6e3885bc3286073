package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration constants
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 2400000    // 2.4 MHz (same as dump1090)
	DefaultGain       = 40         // Manual gain

	// DefaultFormat names the input sample layout from spec.md section 3;
	// "uc8" matches what every RTL-SDR dongle streams.
	DefaultFormat = "uc8"

	// DefaultFIFODepth is the magnitude-buffer ring size between the
	// producer and the demodulator (spec.md section 4.3/5).
	DefaultFIFODepth = 16

	// DefaultBlockSamples is how many new IQ pairs the producer converts
	// per capture block, before the FIFO's overlap prefix is added.
	DefaultBlockSamples = 131072

	// DefaultPreambleThresholdDB follows dump1090's default: accept a
	// candidate once its correlation exceeds the buffer's mean level by
	// this many dB (spec.md section 4.4 step 3).
	DefaultPreambleThresholdDB = 3.0

	// DefaultPreambleStrictness enables only the baseline half-bit
	// ambiguity check (the Strictness bitmask demod.StrictHalfBit).
	DefaultPreambleStrictness = 1

	DefaultPeakSearchWindow = 2

	// DefaultBeastPort is dump1090's traditional raw Beast TCP port.
	DefaultBeastPort = 30005

	// DefaultLogMaxDays bounds how long rotated BaseStation logs are kept.
	DefaultLogMaxDays = 7
)

// Config holds application configuration: the CLI surface spec.md section
// 6 calls out (device, sample rate, format, gain, DC filter, demod
// tuning), plus the ambient knobs (FIFO depth, wisdom file, log
// directory, Beast/mDNS output) the expanded spec adds on top.
type Config struct {
	Frequency   uint32 `yaml:"frequency"`
	SampleRate  uint32 `yaml:"sample_rate"`
	Gain        int    `yaml:"gain"`
	DeviceIndex int    `yaml:"device_index"`

	// Format names one of the input format descriptors convert.FormatByName
	// resolves: "uc8", "sc16", "sc16q11", "s16", "u16o12".
	Format   string `yaml:"format"`
	DCFilter bool   `yaml:"dc_filter"`

	// InputFile, if set, replaces the RTL-SDR producer with a raw IQ file
	// reader so a recorded capture can be replayed through the same
	// converter/FIFO/demod path without hardware attached.
	InputFile string `yaml:"input_file"`

	PreambleThresholdDB float64 `yaml:"preamble_threshold_db"`
	// PreambleStrictness is the demod.Strictness bitmask (HALFBIT=1,
	// STRONG=2, MAX=4) kept as a plain int here for cobra flag binding.
	PreambleStrictness int `yaml:"preamble_strictness"`
	PeakSearchWindow   int `yaml:"peak_search_window"`

	// MessageSearchLow/High bound the bit-slicing retry window (spec.md
	// section 4.4f), separately from PeakSearchWindow which only governs
	// the preamble correlator's local peak search.
	MessageSearchLow  int  `yaml:"message_search_low"`
	MessageSearchHigh int  `yaml:"message_search_high"`
	MarkLimits        bool `yaml:"mark_limits"`

	FIFODepth    int    `yaml:"fifo_depth"`
	BlockSamples int    `yaml:"block_samples"`
	WisdomFile   string `yaml:"wisdom_file"`

	BeastPort     int    `yaml:"beast_port"`
	MDNSAdvertise bool   `yaml:"mdns_advertise"`
	MDNSName      string `yaml:"mdns_name"`

	LogDir       string `yaml:"log_dir"`
	LogMaxDays   int    `yaml:"log_max_days"`
	LogRotateUTC bool   `yaml:"log_rotate_utc"`
	Verbose      bool   `yaml:"verbose"`
	ShowVersion  bool   `yaml:"-"`
}

// LoadYAMLConfig reads a YAML file at path and layers its fields onto
// base: a key absent from the file (its Go field stays zero-valued after
// unmarshal) leaves base's existing value - normally whatever cobra's
// flag defaults already set - untouched. This lets a config file
// override only the settings it mentions rather than replace the whole
// configuration (spec.md section 6's --config flag).
func LoadYAMLConfig(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("app: reading config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return base, fmt.Errorf("app: parsing config file: %w", err)
	}
	return mergeConfig(base, overlay), nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Frequency != 0 {
		base.Frequency = overlay.Frequency
	}
	if overlay.SampleRate != 0 {
		base.SampleRate = overlay.SampleRate
	}
	if overlay.Gain != 0 {
		base.Gain = overlay.Gain
	}
	if overlay.DeviceIndex != 0 {
		base.DeviceIndex = overlay.DeviceIndex
	}
	if overlay.Format != "" {
		base.Format = overlay.Format
	}
	if overlay.DCFilter {
		base.DCFilter = true
	}
	if overlay.InputFile != "" {
		base.InputFile = overlay.InputFile
	}
	if overlay.PreambleThresholdDB != 0 {
		base.PreambleThresholdDB = overlay.PreambleThresholdDB
	}
	if overlay.PreambleStrictness != 0 {
		base.PreambleStrictness = overlay.PreambleStrictness
	}
	if overlay.PeakSearchWindow != 0 {
		base.PeakSearchWindow = overlay.PeakSearchWindow
	}
	if overlay.MessageSearchLow != 0 {
		base.MessageSearchLow = overlay.MessageSearchLow
	}
	if overlay.MessageSearchHigh != 0 {
		base.MessageSearchHigh = overlay.MessageSearchHigh
	}
	if overlay.MarkLimits {
		base.MarkLimits = true
	}
	if overlay.FIFODepth != 0 {
		base.FIFODepth = overlay.FIFODepth
	}
	if overlay.BlockSamples != 0 {
		base.BlockSamples = overlay.BlockSamples
	}
	if overlay.WisdomFile != "" {
		base.WisdomFile = overlay.WisdomFile
	}
	if overlay.BeastPort != 0 {
		base.BeastPort = overlay.BeastPort
	}
	if overlay.MDNSAdvertise {
		base.MDNSAdvertise = true
	}
	if overlay.MDNSName != "" {
		base.MDNSName = overlay.MDNSName
	}
	if overlay.LogDir != "" {
		base.LogDir = overlay.LogDir
	}
	if overlay.LogMaxDays != 0 {
		base.LogMaxDays = overlay.LogMaxDays
	}
	if overlay.LogRotateUTC {
		base.LogRotateUTC = true
	}
	if overlay.Verbose {
		base.Verbose = true
	}
	return base
}

// SearchWindowValue adapts a "LOW:HIGH" command-line argument (e.g.
// "-2:2") into Config.PeakSearchWindow via pflag's Value interface, the
// way the teacher's cobra-based flags bind directly onto Config fields.
// The demodulator's peak search is symmetric, so the wider of |LOW| and
// HIGH becomes the window radius.
type SearchWindowValue struct {
	cfg *Config
}

// NewSearchWindowValue builds a pflag.Value bound to cfg.PeakSearchWindow.
func NewSearchWindowValue(cfg *Config) *SearchWindowValue {
	return &SearchWindowValue{cfg: cfg}
}

func (v *SearchWindowValue) String() string {
	if v.cfg == nil {
		return "0:0"
	}
	return fmt.Sprintf("-%d:%d", v.cfg.PeakSearchWindow, v.cfg.PeakSearchWindow)
}

func (v *SearchWindowValue) Set(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected LOW:HIGH, got %q", s)
	}
	low, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("invalid low bound: %w", err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("invalid high bound: %w", err)
	}
	if low > high {
		return fmt.Errorf("low bound %d exceeds high bound %d", low, high)
	}
	window := high
	if -low > window {
		window = -low
	}
	v.cfg.PeakSearchWindow = window
	return nil
}

func (v *SearchWindowValue) Type() string { return "LOW:HIGH" }

// MessageSearchWindowValue adapts a "LOW:HIGH" flag onto
// Config.MessageSearchLow/High directly (spec.md section 4.4f's
// bit-slicing retry window is not symmetric the way the peak search
// window is, so unlike SearchWindowValue this keeps both bounds as
// given instead of collapsing them to a radius).
type MessageSearchWindowValue struct {
	cfg *Config
}

// NewMessageSearchWindowValue builds a pflag.Value bound to
// cfg.MessageSearchLow/High.
func NewMessageSearchWindowValue(cfg *Config) *MessageSearchWindowValue {
	return &MessageSearchWindowValue{cfg: cfg}
}

func (v *MessageSearchWindowValue) String() string {
	if v.cfg == nil {
		return "0:0"
	}
	return fmt.Sprintf("%d:%d", v.cfg.MessageSearchLow, v.cfg.MessageSearchHigh)
}

func (v *MessageSearchWindowValue) Set(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected LOW:HIGH, got %q", s)
	}
	low, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("invalid low bound: %w", err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("invalid high bound: %w", err)
	}
	if low > high {
		return fmt.Errorf("low bound %d exceeds high bound %d", low, high)
	}
	v.cfg.MessageSearchLow = low
	v.cfg.MessageSearchHigh = high
	return nil
}

func (v *MessageSearchWindowValue) Type() string { return "LOW:HIGH" }

// WithDefaults returns a copy of c with every zero-valued tunable replaced
// by its documented default. cobra pre-populates most of these from flag
// defaults, but Config values built by hand (tests, library callers) may
// leave them at zero.
func (c Config) WithDefaults() Config {
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.FIFODepth <= 0 {
		c.FIFODepth = DefaultFIFODepth
	}
	if c.BlockSamples <= 0 {
		c.BlockSamples = DefaultBlockSamples
	}
	if c.PreambleThresholdDB == 0 {
		c.PreambleThresholdDB = DefaultPreambleThresholdDB
	}
	if c.PreambleStrictness == 0 {
		c.PreambleStrictness = DefaultPreambleStrictness
	}
	if c.PeakSearchWindow <= 0 {
		c.PeakSearchWindow = DefaultPeakSearchWindow
	}
	if c.BeastPort == 0 {
		c.BeastPort = DefaultBeastPort
	}
	if c.LogMaxDays <= 0 {
		c.LogMaxDays = DefaultLogMaxDays
	}
	return c
}
