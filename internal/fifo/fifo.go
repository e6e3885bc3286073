// Package fifo implements the fixed-capacity magnitude-buffer queue that
// sits between the producer (SDR capture) and consumer (demodulator)
// threads described in spec.md section 5. Buffers are allocated once at
// startup and recycled through acquire/enqueue/dequeue/release instead of
// being garbage-collected per capture block, and each newly acquired
// buffer's head is pre-filled with the tail of the previous one so the
// demodulator always sees a continuous signal across buffer boundaries.
package fifo

import (
	"sync"
	"time"
)

// BufferFlags is the bitset spec.md section 3's data model carries on
// every magnitude buffer. DISCONTINUOUS is the only flag the core
// defines: it marks a buffer as following one or more samples the
// producer had to drop.
type BufferFlags uint32

const (
	FlagDiscontinuous BufferFlags = 1 << iota
)

// Buffer is one magnitude block moving through the FIFO. Data holds
// TotalLength samples; Overlap of them (at the front) are carried over
// from the previous buffer so the demodulator can complete messages that
// straddle a boundary. ValidLength is how many of Data's samples were
// actually written by the producer this round (normally TotalLength, but
// Acquire pre-fills the first Overlap of them before the producer ever
// touches the buffer).
type Buffer struct {
	Data        []uint16
	ValidLength int
	Overlap     int

	SampleRate       float64
	SamplesPerSymbol int

	MeanLevel float64
	MeanPower float64

	// FirstSampleTimestamp is the 12MHz-resolution timestamp of Data[0]
	// (the start of the overlap region), per spec.md section 4.4's
	// timestamp-assembly requirement.
	FirstSampleTimestamp uint64

	// DroppedSamples counts samples the producer discarded before this
	// buffer because the FIFO had no free buffer to acquire (overrun).
	DroppedSamples uint64

	// Flags is set by Acquire from samples dropped since the last
	// successful acquire; FlagDiscontinuous is raised exactly once, on
	// the first buffer acquired after one or more overruns (spec.md
	// section 8 invariant 11).
	Flags BufferFlags
}

// FIFO is a fixed set of Buffers cycling between a free pool (owned by
// the producer until Enqueue, then by the FIFO until Release) and a
// queue of buffers ready for the consumer.
type FIFO struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	free  []*Buffer
	queue []*Buffer

	totalLength int
	overlap     int
	shutdown    bool

	// tail holds the last `overlap` samples handed to the consumer, used
	// to pre-fill the next buffer Acquire returns.
	tail      []uint16
	haveTail  bool
	droppedAcc uint64
}

// New allocates depth buffers of totalLength samples each, overlap of
// which are carried from one buffer to the next. A depth below 1 is
// raised to 1.
func New(depth, totalLength, overlap int) *FIFO {
	if depth < 1 {
		depth = 1
	}
	f := &FIFO{
		totalLength: totalLength,
		overlap:     overlap,
		tail:        make([]uint16, overlap),
	}
	f.notEmpty = sync.NewCond(&f.mu)
	f.notFull = sync.NewCond(&f.mu)
	for i := 0; i < depth; i++ {
		f.free = append(f.free, &Buffer{
			Data:    make([]uint16, totalLength),
			Overlap: overlap,
		})
	}
	return f
}

// Acquire blocks indefinitely until a free buffer is available or the
// FIFO is shut down; it is AcquireWait(-1).
func (f *FIFO) Acquire() (*Buffer, bool) {
	return f.AcquireWait(-1)
}

// AcquireWait implements spec.md section 4.3's acquire(waitMillis):
// waitMillis == 0 returns immediately (FifoFull, non-blocking, the mode
// the producer callback uses); waitMillis < 0 blocks indefinitely;
// waitMillis > 0 blocks up to that many milliseconds. Returns (nil,
// false) on timeout or FIFO shutdown. The returned buffer's first
// Overlap samples are already the tail of whatever buffer was most
// recently Enqueued; the producer should begin writing new samples at
// Data[Overlap:]. Samples accumulated via RecordOverrun since the last
// successful Acquire are attached to the returned buffer and raise
// FlagDiscontinuous exactly once (spec.md section 8 invariant 11).
func (f *FIFO) AcquireWait(waitMillis int) (*Buffer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case waitMillis == 0:
		// non-blocking: fall through without waiting.
	case waitMillis < 0:
		for len(f.free) == 0 && !f.shutdown {
			f.notFull.Wait()
		}
	default:
		deadline := time.Now().Add(time.Duration(waitMillis) * time.Millisecond)
		timer := time.AfterFunc(time.Duration(waitMillis)*time.Millisecond, func() {
			f.mu.Lock()
			f.notFull.Broadcast()
			f.mu.Unlock()
		})
		defer timer.Stop()
		for len(f.free) == 0 && !f.shutdown && time.Now().Before(deadline) {
			f.notFull.Wait()
		}
	}

	if len(f.free) == 0 {
		return nil, false
	}
	n := len(f.free) - 1
	buf := f.free[n]
	f.free = f.free[:n]

	if f.haveTail && f.overlap > 0 {
		copy(buf.Data[:f.overlap], f.tail)
	}
	buf.DroppedSamples = f.droppedAcc
	if f.droppedAcc > 0 {
		buf.Flags = FlagDiscontinuous
	} else {
		buf.Flags = 0
	}
	f.droppedAcc = 0
	return buf, true
}

// Enqueue hands a filled buffer to the consumer side of the FIFO,
// recording its tail for the next Acquire's overlap copy.
func (f *FIFO) Enqueue(buf *Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overlap > 0 && buf.ValidLength >= f.overlap {
		copy(f.tail, buf.Data[buf.ValidLength-f.overlap:buf.ValidLength])
		f.haveTail = true
	}
	f.queue = append(f.queue, buf)
	f.notEmpty.Signal()
}

// Dequeue blocks indefinitely until a buffer is queued or the FIFO is
// shut down and drained; it is DequeueWait(-1).
func (f *FIFO) Dequeue() (*Buffer, bool) {
	return f.DequeueWait(-1)
}

// DequeueWait implements spec.md section 4.3's dequeue(waitMillis) with
// the same waitMillis semantics as AcquireWait. Returns (nil, false) on
// timeout or FIFO shutdown.
func (f *FIFO) DequeueWait(waitMillis int) (*Buffer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case waitMillis == 0:
	case waitMillis < 0:
		for len(f.queue) == 0 && !f.shutdown {
			f.notEmpty.Wait()
		}
	default:
		deadline := time.Now().Add(time.Duration(waitMillis) * time.Millisecond)
		timer := time.AfterFunc(time.Duration(waitMillis)*time.Millisecond, func() {
			f.mu.Lock()
			f.notEmpty.Broadcast()
			f.mu.Unlock()
		})
		defer timer.Stop()
		for len(f.queue) == 0 && !f.shutdown && time.Now().Before(deadline) {
			f.notEmpty.Wait()
		}
	}

	if len(f.queue) == 0 {
		return nil, false
	}
	buf := f.queue[0]
	f.queue = f.queue[1:]
	return buf, true
}

// Release returns a buffer the consumer is finished with to the free
// pool, waking any producer blocked in Acquire.
func (f *FIFO) Release(buf *Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.free = append(f.free, buf)
	f.notFull.Signal()
}

// RecordOverrun tallies samples the producer had to drop because Acquire
// returned before a buffer became free (it never blocks indefinitely in
// that caller's design - callers that choose not to block on Acquire can
// instead call this and skip the capture block).
func (f *FIFO) RecordOverrun(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.droppedAcc += n
}

// Shutdown wakes every blocked Acquire/Dequeue call, which then return
// ok=false. Shutdown is idempotent.
func (f *FIFO) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	f.notEmpty.Broadcast()
	f.notFull.Broadcast()
}

// TotalLength and Overlap report the FIFO's fixed buffer geometry.
func (f *FIFO) TotalLength() int { return f.totalLength }
func (f *FIFO) Overlap() int     { return f.overlap }

// ShuttingDown reports whether Shutdown has been called, so a caller
// whose AcquireWait(0) returned false can tell FifoFull (non-fatal,
// retry) apart from shutdown (stop).
func (f *FIFO) ShuttingDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown
}
