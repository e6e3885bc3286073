package app

import (
	"os"
	"testing"

	"go1090/internal/convert"

	"github.com/stretchr/testify/assert"
)

// TestConfig tests the configuration struct and constants
func TestConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "Default configuration",
			config: Config{
				Frequency:    DefaultFrequency,
				SampleRate:   DefaultSampleRate,
				Gain:         DefaultGain,
				DeviceIndex:  0,
				LogDir:       "./logs",
				LogRotateUTC: true,
				Verbose:      false,
				ShowVersion:  false,
			},
		},
		{
			name: "Custom configuration",
			config: Config{
				Frequency:    1090500000,
				SampleRate:   2000000,
				Gain:         30,
				DeviceIndex:  1,
				LogDir:       "/tmp/logs",
				LogRotateUTC: false,
				Verbose:      true,
				ShowVersion:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.config.Frequency, tt.config.Frequency)
			assert.Equal(t, tt.config.SampleRate, tt.config.SampleRate)
			assert.Equal(t, tt.config.Gain, tt.config.Gain)
		})
	}
}

// TestConfig_WithDefaults checks that only zero-valued tunables are
// replaced, leaving caller-set values untouched.
func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, DefaultFormat, c.Format)
	assert.Equal(t, DefaultFIFODepth, c.FIFODepth)
	assert.Equal(t, DefaultBlockSamples, c.BlockSamples)
	assert.InDelta(t, DefaultPreambleThresholdDB, c.PreambleThresholdDB, 0.0001)
	assert.Equal(t, DefaultPreambleStrictness, c.PreambleStrictness)
	assert.Equal(t, DefaultPeakSearchWindow, c.PeakSearchWindow)
	assert.Equal(t, DefaultBeastPort, c.BeastPort)
	assert.Equal(t, DefaultLogMaxDays, c.LogMaxDays)

	custom := Config{Format: "sc16", FIFODepth: 4, BeastPort: 12345}.WithDefaults()
	assert.Equal(t, "sc16", custom.Format)
	assert.Equal(t, 4, custom.FIFODepth)
	assert.Equal(t, 12345, custom.BeastPort)
	assert.Equal(t, DefaultBlockSamples, custom.BlockSamples)
}

// TestConstants tests the default configuration constants
func TestConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant interface{}
		expected interface{}
	}{
		{
			name:     "DefaultFrequency",
			constant: DefaultFrequency,
			expected: uint32(1090000000), // 1090 MHz
		},
		{
			name:     "DefaultSampleRate",
			constant: DefaultSampleRate,
			expected: uint32(2400000), // 2.4 MHz
		},
		{
			name:     "DefaultGain",
			constant: DefaultGain,
			expected: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.constant)
		})
	}
}

// TestShowVersion tests the version display functionality
func TestShowVersion(t *testing.T) {
	assert.NotPanics(t, func() {
		ShowVersion()
	})
}

// TestNewApplication tests the application constructor
func TestNewApplication(t *testing.T) {
	config := Config{
		Frequency:    DefaultFrequency,
		SampleRate:   DefaultSampleRate,
		Gain:         DefaultGain,
		DeviceIndex:  0,
		LogDir:       "./test_logs",
		LogRotateUTC: true,
		Verbose:      false,
		ShowVersion:  false,
	}

	application := NewApplication(config)

	assert.NotNil(t, application)
	assert.NotNil(t, application.logger)
	// NewApplication applies WithDefaults, so an unset Format becomes "uc8".
	assert.Equal(t, DefaultFormat, application.config.Format)
}

// TestApplication_LoggerConfiguration tests logger setup
func TestApplication_LoggerConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
	}{
		{name: "Verbose logging", verbose: true},
		{name: "Normal logging", verbose: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{
				Frequency:    DefaultFrequency,
				SampleRate:   DefaultSampleRate,
				Gain:         DefaultGain,
				DeviceIndex:  0,
				LogDir:       "./test_logs",
				LogRotateUTC: true,
				Verbose:      tt.verbose,
			}

			application := NewApplication(config)
			assert.NotNil(t, application.logger)
		})
	}
}

// TestAdaptiveThreshold checks the dB-to-linear-scale conversion spec.md
// section 4.4 step 3 specifies: T = 65536 * meanLevel * 10^(dB/20).
func TestAdaptiveThreshold(t *testing.T) {
	got := adaptiveThreshold(0.1, 0)
	assert.InDelta(t, 6553, float64(got), 1)

	// Raising the threshold in dB should raise the cutoff, never lower it.
	low := adaptiveThreshold(0.05, 3)
	high := adaptiveThreshold(0.05, 12)
	assert.Greater(t, high, low)

	// Always clamps into a valid uint16 range.
	assert.Equal(t, uint16(65535), adaptiveThreshold(10, 40))
	assert.Equal(t, uint16(0), adaptiveThreshold(0, 0))
}

// TestBytesPerInputSample pins the byte width convert.Init callers must
// feed runProducer's read loop for each supported format.
func TestBytesPerInputSample(t *testing.T) {
	assert.Equal(t, 2, bytesPerInputSample(convert.UC8))
	assert.Equal(t, 4, bytesPerInputSample(convert.SC16))
	assert.Equal(t, 4, bytesPerInputSample(convert.SC16Q11))
	assert.Equal(t, 2, bytesPerInputSample(convert.S16))
	assert.Equal(t, 2, bytesPerInputSample(convert.U16Offset12))
}

// TestSamplesPerSymbolFor checks the 2.4MHz reference case dump1090's
// demodulator is tuned around.
func TestSamplesPerSymbolFor(t *testing.T) {
	assert.Equal(t, 2, samplesPerSymbolFor(2400000))
}

// Cleanup test logs
func TestMain(m *testing.M) {
	code := m.Run()
	os.RemoveAll("./test_logs")
	os.Exit(code)
}
