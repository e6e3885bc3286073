package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/basestation"
	"go1090/internal/beast"
	"go1090/internal/convert"
	"go1090/internal/demod"
	"go1090/internal/dsp"
	"go1090/internal/fifo"
	"go1090/internal/logging"
	"go1090/internal/mdns"
	"go1090/internal/rtlsdr"
)

// Application owns every long-lived component of a decode session: the
// sample producer (RTL-SDR device or a replayed file), the converter/FIFO/
// demodulator pipeline, and the BaseStation/Beast/mDNS output side.
type Application struct {
	config Config
	logger *logrus.Logger

	rtlsdr    *rtlsdr.RTLSDRDevice
	inputFile *os.File

	convFn    convert.Func
	convState *convert.State
	format    convert.Format

	fifo         *fifo.FIFO
	collaborator *adsb.Collaborator

	logRotator  *logging.LogRotator
	baseStation *basestation.Writer
	beastServer *beast.Server
	mdnsAdv     *mdns.Advertiser

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	verbose bool

	sampleCounter uint64
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	config = config.WithDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		verbose: config.Verbose,
	}
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting Go1090 ADS-B decoder")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.run(); err != nil {
		app.logger.WithError(err).Error("Application error")
		return err
	}

	<-sigChan
	app.logger.Info("Received shutdown signal")
	app.shutdown()

	return nil
}

// initializeComponents wires the converter, FIFO, collaborator, and
// output sinks that the producer/consumer goroutines in run() drive.
func (app *Application) initializeComponents() error {
	format, ok := convert.FormatByName(app.config.Format)
	if !ok {
		return fmt.Errorf("unknown sample format %q", app.config.Format)
	}
	app.format = format

	convFn, convState, err := convert.Init(format, float64(app.config.SampleRate), app.config.DCFilter)
	if err != nil {
		return fmt.Errorf("failed to initialize converter: %w", err)
	}
	app.convFn = convFn
	app.convState = convState

	if app.config.WisdomFile != "" {
		if err := dsp.ReadWisdomFile(app.config.WisdomFile); err != nil {
			app.logger.WithError(err).Warn("failed to apply wisdom file, using default dispatch order")
		}
	}

	if app.config.InputFile != "" {
		f, err := os.Open(app.config.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		app.inputFile = f
	} else {
		dev, err := rtlsdr.NewRTLSDRDevice(app.config.DeviceIndex)
		if err != nil {
			return fmt.Errorf("failed to initialize RTL-SDR: %w", err)
		}
		if err := dev.Configure(app.config.Frequency, app.config.SampleRate, app.config.Gain); err != nil {
			return fmt.Errorf("failed to configure RTL-SDR: %w", err)
		}
		app.rtlsdr = dev
	}

	samplesPerSymbol := samplesPerSymbolFor(app.config.SampleRate)
	overlap := (demodOverlapSymbols) * samplesPerSymbol
	app.fifo = fifo.New(app.config.FIFODepth, overlap+app.config.BlockSamples, overlap)

	app.logRotator, err = logging.NewLogRotator(app.config.LogDir, app.config.LogRotateUTC, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	app.baseStation = basestation.NewWriter(app.logRotator, app.logger)

	beastServer, err := beast.NewServer(app.logger, fmt.Sprintf(":%d", app.config.BeastPort))
	if err != nil {
		return fmt.Errorf("failed to start Beast server: %w", err)
	}
	app.beastServer = beastServer

	if app.config.MDNSAdvertise {
		adv, err := mdns.Advertise(app.logger, app.config.MDNSName, app.config.BeastPort)
		if err != nil {
			app.logger.WithError(err).Warn("mDNS advertisement failed, continuing without it")
		} else {
			app.mdnsAdv = adv
		}
	}

	app.collaborator = adsb.NewCollaborator(app.logger, app.handleDecodedMessage)

	return nil
}

// demodOverlapSymbols carries enough preamble/message length past a
// buffer boundary (16 preamble symbols plus a 112-bit long message) that
// the demodulator never misses a frame straddling two buffers.
const demodOverlapSymbols = 16 + 2*112

func samplesPerSymbolFor(sampleRate uint32) int {
	// spec.md section 3: samplesPerSymbol = sampleRate / 2_000_000, exact
	// for every supported multiple of 2MHz (invariant 10 pins sps=1 at
	// 2MS/s). 2.4MS/s is section 6's one documented exception to "integer
	// multiple of 2,000,000" and isn't a clean ratio (1.2); it is mapped
	// to 2 samples per symbol, rounding up rather than to the nearest.
	if sampleRate == 2_400_000 {
		return 2
	}
	sps := int(sampleRate / 2_000_000)
	if sps < 1 {
		sps = 1
	}
	return sps
}

// bytesPerInputSample reports how many raw bytes one convert.Func sample
// unit consumes: two IQ bytes for UC8, four for the 16-bit IQ formats,
// two for the real-only formats.
func bytesPerInputSample(format convert.Format) int {
	switch format {
	case convert.UC8:
		return 2
	case convert.SC16, convert.SC16Q11:
		return 4
	case convert.S16, convert.U16Offset12:
		return 2
	default:
		return 2
	}
}

// run starts the producer, consumer, log-rotation, and statistics
// goroutines, matching the single-producer/single-consumer model.
func (app *Application) run() error {
	app.logger.Info("Starting capture and demodulation pipeline")

	var source io.Reader
	if app.inputFile != nil {
		source = app.inputFile
	} else {
		dataChan := make(chan []byte, 100)
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			if err := app.rtlsdr.StartCapture(app.ctx, dataChan); err != nil {
				app.logger.WithError(err).Error("RTL-SDR capture failed")
			}
		}()
		source = &chanReader{ctx: app.ctx, ch: dataChan}
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logRotator.Start(app.ctx)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.runProducer(source)
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.runConsumer()
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()

	app.logger.Info("All components started successfully")
	return nil
}

// chanReader adapts RTLSDRDevice.StartCapture's push-style data channel
// into an io.Reader so the producer can use the same read loop whether
// its source is live hardware or a replayed file.
type chanReader struct {
	ctx     context.Context
	ch      <-chan []byte
	pending []byte
}

func (c *chanReader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		select {
		case b, ok := <-c.ch:
			if !ok {
				return 0, io.EOF
			}
			c.pending = b
		case <-c.ctx.Done():
			return 0, c.ctx.Err()
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// runProducer reads raw capture bytes, converts them into magnitude
// samples, and enqueues filled FIFO buffers for the consumer, per
// spec.md section 5's producer loop.
func (app *Application) runProducer(source io.Reader) {
	bps := bytesPerInputSample(app.format)
	rawChunk := make([]byte, app.config.BlockSamples*bps)

	for {
		select {
		case <-app.ctx.Done():
			return
		default:
		}

		n, err := io.ReadFull(source, rawChunk)
		if n == 0 {
			if err != nil {
				if err != io.EOF && app.verbose {
					app.logger.WithError(err).Debug("producer: read stopped")
				}
				app.fifo.Shutdown()
				return
			}
			continue
		}

		nSamples := n / bps
		// spec.md section 5: the producer acquires non-blocking; a full
		// FIFO is not fatal, it just drops this block's samples, which
		// surface as DISCONTINUOUS on the next buffer Acquire does hand
		// back.
		buf, ok := app.fifo.AcquireWait(0)
		if !ok {
			if app.fifo.ShuttingDown() {
				return
			}
			app.fifo.RecordOverrun(uint64(nSamples))
			continue
		}

		var meanLevel, meanPower float64
		app.convFn(rawChunk[:nSamples*bps], buf.Data[buf.Overlap:buf.Overlap+nSamples], nSamples, app.convState, &meanLevel, &meanPower)

		buf.ValidLength = buf.Overlap + nSamples
		buf.SampleRate = float64(app.config.SampleRate)
		buf.SamplesPerSymbol = samplesPerSymbolFor(app.config.SampleRate)
		buf.MeanLevel = meanLevel
		buf.MeanPower = meanPower
		// Data[0] lies Overlap samples before this block's first new sample
		// (clamped at the session start, where no earlier samples exist).
		first := app.sampleCounter
		if first >= uint64(buf.Overlap) {
			first -= uint64(buf.Overlap)
		} else {
			first = 0
		}
		buf.FirstSampleTimestamp = first * 12_000_000 / uint64(app.config.SampleRate)
		app.sampleCounter += uint64(nSamples)

		app.fifo.Enqueue(buf)

		if err != nil && err != io.ErrUnexpectedEOF {
			app.fifo.Shutdown()
			return
		}
	}
}

// runConsumer dequeues filled buffers, derives the adaptive preamble
// threshold from each buffer's mean level (spec.md section 4.4 step 3),
// and hands the buffer to the demodulator.
func (app *Application) runConsumer() {
	sps := samplesPerSymbolFor(app.config.SampleRate)
	ctx := &demod.Context{
		SamplesPerSymbol:  sps,
		Offsets:           demod.NewOffsets(sps),
		Strictness:        demod.Strictness(app.config.PreambleStrictness),
		PeakSearchWindow:  app.config.PeakSearchWindow,
		MessageSearchLow:  app.config.MessageSearchLow,
		MessageSearchHigh: app.config.MessageSearchHigh,
		MarkLimits:        app.config.MarkLimits,
		Collaborator:      app.collaborator,
	}

	for {
		buf, ok := app.fifo.Dequeue()
		if !ok {
			return
		}

		if buf.Flags&fifo.FlagDiscontinuous != 0 {
			app.logger.WithField("dropped_samples", buf.DroppedSamples).Warn("discontinuity before this buffer")
		}

		ctx.PreambleThreshold = adaptiveThreshold(buf.MeanLevel, app.config.PreambleThresholdDB)
		demod.Demodulate(ctx, buf)

		app.fifo.Release(buf)
	}
}

// adaptiveThreshold implements spec.md section 4.4 step 3:
// T = 65536 * meanLevel * 10^(dB/20), clamped to a valid uint16.
func adaptiveThreshold(meanLevel, thresholdDB float64) uint16 {
	t := 65536.0 * meanLevel * math.Pow(10, thresholdDB/20.0)
	if t < 0 {
		t = 0
	}
	if t > 65535 {
		t = 65535
	}
	return uint16(t)
}

// handleDecodedMessage is the Collaborator sink: every accepted message
// is written to the BaseStation log and broadcast over the Beast TCP
// server.
func (app *Application) handleDecodedMessage(msg *adsb.DecodedMessage) {
	if err := app.baseStation.WriteMessage(msg); err != nil {
		app.logger.WithError(err).Debug("failed to write BaseStation message")
	}

	data := msg.Raw[:demod.MessageLength(msg.DF)/8]
	app.beastServer.Broadcast(beast.EncodeModeS(msg.Timestamp12MHz, signalByte(msg.SignalLevel), data))
}

// signalByte compresses a [0,1] power level into a Beast-style single
// signal byte.
func signalByte(level float64) byte {
	v := level * 255.0
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// reportStatistics reports processing statistics periodically
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			stats := app.collaborator.Stats()
			fields := logrus.Fields{
				"accepted":          stats.Accepted,
				"rejected_crc":      stats.RejectedCRC,
				"corrected_single":  stats.CorrectedSingle,
				"corrected_two_bit": stats.CorrectedTwoBit,
				"decode_errors":     stats.DecodeErrors,
			}
			if app.beastServer != nil {
				fields["beast_clients"] = app.beastServer.ClientCount()
			}
			app.logger.WithFields(fields).Info("ADS-B processing statistics")
		}
	}
}

// shutdown gracefully shuts down the application
func (app *Application) shutdown() {
	app.logger.Info("Shutting down application")
	app.cancel()
	app.fifo.Shutdown()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("All goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	if app.rtlsdr != nil {
		app.rtlsdr.Close()
	}
	if app.inputFile != nil {
		app.inputFile.Close()
	}
	if app.mdnsAdv != nil {
		app.mdnsAdv.Stop()
	}
	if app.beastServer != nil {
		app.beastServer.Close()
	}
	if app.logRotator != nil {
		app.logRotator.Close()
	}

	app.logger.Info("Shutdown completed")
}
