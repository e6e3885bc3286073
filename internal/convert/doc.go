// Scratch-buffer contract: the S16 and U16Offset12 converters correspond to
// dump1090 converters that rescale their input buffer in place (ABS(x)>>4,
// or a table shift) before consulting a magnitude table. This port never
// mutates the caller's byte slice - it reads samples and writes only to
// magOut - so callers may reuse their capture buffer across converter
// calls regardless of which format they picked. internal/app's producer
// relies on this: it passes its own raw read buffer as input and a FIFO
// buffer's Data as output, so the two never alias.
package convert
