package bigsort

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

const readBufferSize = 64 << 10

// lineSource yields the lines of one file in order. ok is false at end of
// input. Lines are returned without their terminator.
type lineSource interface {
	next() (line string, ok bool, err error)
	close() error
}

// readLine reads one line from br without its '\n'. A final line without a
// terminator still counts. Only '\n' ends a line: a bare '\r' (old Mac line
// ending) stays inside the line.
func readLine(br *bufio.Reader) (string, bool, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, err
		}
		if len(line) == 0 {
			return "", false, nil
		}
		// Unterminated last line
		return line, true, nil
	}
	return line[:len(line)-1], true, nil
}

// trimCR drops one '\r' ending a line, so CRLF input sorts like LF input.
// Only input files are trimmed; runs are read back byte-exact.
func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}

// fileLines reads lines through a bufio.Reader.
type fileLines struct {
	f    *os.File
	br   *bufio.Reader
	crlf bool // strip a trailing '\r'
}

func (r *fileLines) next() (string, bool, error) {
	line, ok, err := readLine(r.br)
	if ok && r.crlf {
		line = trimCR(line)
	}
	return line, ok, err
}

func (r *fileLines) close() error {
	return r.f.Close()
}

// mmapLines reads lines from a read-only memory map of the whole file.
// Each returned line is a copy, so the map can be released while lines are
// still buffered.
type mmapLines struct {
	f    *os.File
	data mmap.MMap
	pos  int
}

func (r *mmapLines) next() (string, bool, error) {
	if r.pos >= len(r.data) {
		return "", false, nil
	}
	rest := r.data[r.pos:]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		r.pos = len(r.data)
		return trimCR(string(rest)), true, nil
	}
	r.pos += i + 1
	return trimCR(string(rest[:i])), true, nil
}

func (r *mmapLines) close() error {
	var errs []error
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		r.data = nil
	}
	if err := r.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// openInput opens an input file for line reading. Empty files are never
// mapped since a zero-length mmap is an error on most platforms.
func openInput(path string, useMmap bool) (lineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if useMmap {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.Join(err, f.Close())
		}
		if info.Size() > 0 {
			data, err := mmap.Map(f, mmap.RDONLY, 0)
			if err != nil {
				return nil, errors.Join(fmt.Errorf("mmap %s: %w", path, err), f.Close())
			}
			return &mmapLines{f: f, data: data}, nil
		}
	}

	fadviseSequential(int(f.Fd()), 0, 0)
	return &fileLines{f: f, br: bufio.NewReaderSize(f, readBufferSize), crlf: true}, nil
}
