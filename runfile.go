package bigsort

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/tamirms/bigsort/internal/tempfiles"
)

const (
	writeBufferSize = 64 << 10

	// runReadBufferSize is smaller than readBufferSize because the merger
	// may hold thousands of run readers open at once.
	runReadBufferSize = 16 << 10
)

// Run file format: one line per record, each terminated by '\n', optionally
// wrapped in a single zstd stream. A run is always fully sorted.

// runWriter writes sorted lines to a new job-prefixed temp file.
type runWriter struct {
	f        *os.File
	name     string
	enc      *zstd.Encoder
	bw       *bufio.Writer
	sum      *xxhash.Digest // checksum of the plain bytes written (nil if not tracked)
	written  int64
	reserved int64
	lines    int64
}

// createRun creates a run file in dir. When reserve > 0 and the run is not
// compressed, that many bytes are preallocated up front so a full disk is
// reported before any merging work is done.
func createRun(dir, prefix string, compress bool, reserve int64) (*runWriter, error) {
	f, err := tempfiles.Create(dir, prefix)
	if err != nil {
		return nil, err
	}
	w := &runWriter{f: f, name: f.Name()}

	if compress {
		enc, err := zstd.NewWriter(f,
			zstd.WithEncoderLevel(zstd.SpeedFastest),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("create zstd encoder: %w", err), f.Close())
		}
		w.enc = enc
		w.bw = bufio.NewWriterSize(enc, writeBufferSize)
		return w, nil
	}

	if reserve > 0 {
		if err := fallocateFile(f, reserve); err != nil {
			return nil, errors.Join(fmt.Errorf("pre-allocate run file: %w", err), f.Close())
		}
		w.reserved = reserve
	}
	w.bw = bufio.NewWriterSize(f, writeBufferSize)
	return w, nil
}

// trackChecksum enables an xxHash64 checksum over every byte written.
func (w *runWriter) trackChecksum() {
	w.sum = xxhash.New()
}

func (w *runWriter) path() string {
	return w.name
}

func (w *runWriter) writeLine(line string) error {
	if _, err := w.bw.WriteString(line); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	if w.sum != nil {
		_, _ = w.sum.WriteString(line) // Digest writes never fail
		_, _ = w.sum.Write(newline)
	}
	w.written += int64(len(line)) + 1
	w.lines++
	return nil
}

var newline = []byte{'\n'}

// checksum returns the xxHash64 of the bytes written so far.
func (w *runWriter) checksum() uint64 {
	if w.sum == nil {
		return 0
	}
	return w.sum.Sum64()
}

// close flushes buffered data and closes the file. The file is closed even
// if flushing fails. A preallocated file is trimmed to the bytes written.
// Safe to call more than once.
func (w *runWriter) close() error {
	if w.f == nil {
		return nil
	}
	var errs []error
	if err := w.bw.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush run: %w", err))
	}
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close zstd encoder: %w", err))
		}
		w.enc = nil
	}
	if w.reserved > 0 && w.written != w.reserved {
		if err := w.f.Truncate(w.written); err != nil {
			errs = append(errs, fmt.Errorf("trim run: %w", err))
		}
	}
	if err := w.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close run: %w", err))
	}
	w.f = nil
	return errors.Join(errs...)
}

// zstdLines reads lines from a compressed run.
type zstdLines struct {
	f   *os.File
	dec *zstd.Decoder
	br  *bufio.Reader
}

func (r *zstdLines) next() (string, bool, error) {
	return readLine(r.br)
}

func (r *zstdLines) close() error {
	r.dec.Close()
	return r.f.Close()
}

// openRun opens a run file written by runWriter.
func openRun(path string, compressed bool) (lineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fadviseSequential(int(f.Fd()), 0, 0)

	if !compressed {
		return &fileLines{f: f, br: bufio.NewReaderSize(f, runReadBufferSize)}, nil
	}
	dec, err := zstd.NewReader(f,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create zstd decoder: %w", err), f.Close())
	}
	return &zstdLines{f: f, dec: dec, br: bufio.NewReaderSize(dec, runReadBufferSize)}, nil
}
