package blog

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// newChecksumWriter returns a checksumWriter which wraps the given io.Writer.
func newChecksumWriter(inner io.Writer) *checksumWriter {
	return &checksumWriter{inner: inner}
}

// checksumWriter prefixes each line written to it with the CRC32 checksum of
// that line before passing it through to a wrapped io.Writer. It is intended
// for use as the io.Writer passed to a slog Handler.
type checksumWriter struct {
	inner io.Writer
}

var _ io.Writer = (*checksumWriter)(nil)

// Write concatenates the checksum of its input and the original input,
// separated by a space, and forwards the result in a single call to the
// inner io.Writer.
func (w *checksumWriter) Write(in []byte) (int, error) {
	out := bytes.Buffer{}
	out.WriteString(LogLineChecksum(string(in)))
	out.WriteString(" ")
	out.Write(in)
	size, err := out.WriteTo(w.inner)
	return int(size), err
}

// LogLineChecksum computes a CRC32 over the log line, which can be checked to
// ensure no unexpected log corruption has occurred.
func LogLineChecksum(line string) string {
	crc := crc32.ChecksumIEEE([]byte(line))
	buf := make([]byte, crc32.Size)
	// Error is unreachable because we provide a supported type and buffer size
	_, _ = binary.Encode(buf, binary.LittleEndian, crc)
	return base64.RawURLEncoding.EncodeToString(buf)
}
