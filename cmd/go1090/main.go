package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go1090/internal/app"
)

func main() {
	var config app.Config
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "go1090",
		Short: "ADS-B Decoder (dump1090-style)",
		Long: `ADS-B Decoder using RTL-SDR (dump1090-style implementation).

Captures I/Q samples from RTL-SDR at 2.4MHz (or replays a recorded IQ
file), demodulates ADS-B/Mode S messages using dump1090's preamble
correlation and PPM bit-slicing approach, validates and corrects CRC,
and outputs in BaseStation (SBS) format plus raw Beast TCP.

Example usage:
  go1090 --frequency 1090000000 --sample-rate 2400000 --gain 40 --device 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			if configFile != "" {
				merged, err := app.LoadYAMLConfig(config, configFile)
				if err != nil {
					return err
				}
				config = merged
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	flags := rootCmd.Flags()

	flags.Uint32VarP(&config.Frequency, "frequency", "f", app.DefaultFrequency, "Frequency to tune to (Hz)")
	flags.Uint32VarP(&config.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample rate (Hz)")
	flags.IntVarP(&config.Gain, "gain", "g", app.DefaultGain, "Gain setting (0 for auto)")
	flags.IntVarP(&config.DeviceIndex, "device", "d", 0, "RTL-SDR device index")

	flags.StringVar(&config.Format, "format", app.DefaultFormat, "Input sample format: uc8, sc16, sc16q11, s16, u16o12")
	flags.BoolVar(&config.DCFilter, "dc-filter", false, "Enable the IIR DC-block high-pass filter")
	flags.StringVar(&config.InputFile, "input-file", "", "Replay a raw IQ capture file instead of reading from an RTL-SDR device")

	flags.Float64Var(&config.PreambleThresholdDB, "preamble-threshold-db", app.DefaultPreambleThresholdDB, "Preamble acceptance threshold above mean level, in dB")
	flags.IntVar(&config.PreambleStrictness, "preamble-strictness", app.DefaultPreambleStrictness, "Preamble strictness bitmask (1=half-bit, 2=strong, 4=max)")
	flags.Var(app.NewSearchWindowValue(&config), "preamble-window", "Peak search window around a preamble candidate, as LOW:HIGH (e.g. -2:2)")
	flags.Var(app.NewMessageSearchWindowValue(&config), "message-window", "Bit-slicing retry window past a validated preamble, as LOW:HIGH (e.g. 0:0)")
	flags.BoolVar(&config.MarkLimits, "mark-limits", false, "Use the preamble's average mark level to break borderline PPM bit decisions")

	flags.IntVar(&config.FIFODepth, "fifo-depth", app.DefaultFIFODepth, "Number of magnitude buffers between producer and demodulator")
	flags.IntVar(&config.BlockSamples, "block-samples", app.DefaultBlockSamples, "New samples converted per capture block")
	flags.StringVar(&config.WisdomFile, "wisdom-file", "", "Wisdom file recording preferred DSP kernel dispatch order")

	flags.IntVar(&config.BeastPort, "beast-port", app.DefaultBeastPort, "TCP port to serve raw Beast-format messages on")
	flags.BoolVar(&config.MDNSAdvertise, "mdns-advertise", false, "Advertise the Beast TCP service over mDNS/Bonjour")
	flags.StringVar(&config.MDNSName, "mdns-name", "", "Service name to advertise over mDNS (default: go1090-<port>)")

	flags.StringVarP(&config.LogDir, "log-dir", "l", "./logs", "Log directory")
	flags.IntVar(&config.LogMaxDays, "log-max-days", app.DefaultLogMaxDays, "Days to retain rotated BaseStation logs")
	flags.BoolVarP(&config.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&config.ShowVersion, "version", false, "Show version information")

	flags.StringVar(&configFile, "config", "", "YAML config file merged on top of the flags above")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
