// Package iocodec resolves a path or "-" (stdio) to a streamable source or
// sink, dispatching on extension to raw/gzip/xz transparent de/compression.
package iocodec

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// ChunkSize is the fixed streaming copy buffer size.
const ChunkSize = 8 * 1024

// Source is a readable stream with a best-effort, possibly-unknown size.
type Source struct {
	io.ReadCloser
	Size      int64
	SizeKnown bool
}

// Sink is a writable stream.
type Sink struct {
	io.WriteCloser
}

// UnknownInputTypeError names a path whose extension has no registered
// input codec.
type UnknownInputTypeError struct{ Path string }

func (e *UnknownInputTypeError) Error() string {
	return fmt.Sprintf("unknown input type: %s", e.Path)
}

// UnknownOutputTypeError names a path whose extension has no registered
// output codec.
type UnknownOutputTypeError struct{ Path string }

func (e *UnknownOutputTypeError) Error() string {
	return fmt.Sprintf("unknown output type: %s", e.Path)
}

// ResolveInput dispatches path to a Source: "-" is stdin (size unknown),
// ".sql" is a raw file (size = file size), ".gz" is a gzip stream (size =
// uncompressed size read from the file's trailing 4 bytes, best-effort,
// correct only for payloads under 4 GiB uncompressed).
func ResolveInput(path string) (*Source, error) {
	if path == "-" {
		return &Source{ReadCloser: os.Stdin, SizeKnown: false}, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".sql":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &Source{ReadCloser: f, Size: info.Size(), SizeKnown: true}, nil
	case ".gz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		size, ok := gzipUncompressedSize(path)
		gr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &Source{ReadCloser: &gzipSource{gr: gr, f: f}, Size: size, SizeKnown: ok}, nil
	default:
		return nil, &UnknownInputTypeError{Path: path}
	}
}

// ResolveOutput dispatches path to a Sink: "-" is stdout, ".sql" is raw,
// ".gz" is a gzip writer, ".xz" is an xz writer (output only).
func ResolveOutput(path string) (*Sink, error) {
	if path == "-" {
		return &Sink{WriteCloser: nopCloseWriter{os.Stdout}}, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".sql":
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &Sink{WriteCloser: f}, nil
	case ".gz":
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		gw := gzip.NewWriter(f)
		return &Sink{WriteCloser: &gzipSink{gw: gw, f: f}}, nil
	case ".xz":
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		xw, err := xz.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &Sink{WriteCloser: &xzSink{xw: xw, f: f}}, nil
	default:
		return nil, &UnknownOutputTypeError{Path: path}
	}
}

// Progress receives a byte count after each flushed chunk. Optional and
// orthogonal: a nil Progress may be passed to Copy, which then skips it.
type Progress func(written int64)

// Copy streams from src to dst in fixed-size chunks, flushing after each
// one, invoking progress (if non-nil) with the running total.
func Copy(dst io.Writer, src io.Reader, progress Progress) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return total, err
			}
			if f, ok := dst.(interface{ Flush() error }); ok {
				_ = f.Flush()
			}
			total += int64(n)
			if progress != nil {
				progress(total)
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

func gzipUncompressedSize(path string) (int64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() < 4 {
		return 0, false
	}
	if _, err := f.Seek(-4, io.SeekEnd); err != nil {
		return 0, false
	}
	var trailer [4]byte
	if _, err := io.ReadFull(f, trailer[:]); err != nil {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint32(trailer[:])), true
}

type gzipSource struct {
	gr *gzip.Reader
	f  *os.File
}

func (g *gzipSource) Read(p []byte) (int, error) { return g.gr.Read(p) }
func (g *gzipSource) Close() error {
	_ = g.gr.Close()
	return g.f.Close()
}

type gzipSink struct {
	gw *gzip.Writer
	f  *os.File
}

func (g *gzipSink) Write(p []byte) (int, error) { return g.gw.Write(p) }
func (g *gzipSink) Flush() error                 { return g.gw.Flush() }
func (g *gzipSink) Close() error {
	if err := g.gw.Close(); err != nil {
		_ = g.f.Close()
		return err
	}
	return g.f.Close()
}

type xzSink struct {
	xw *xz.Writer
	f  *os.File
}

func (x *xzSink) Write(p []byte) (int, error) { return x.xw.Write(p) }
func (x *xzSink) Close() error {
	if err := x.xw.Close(); err != nil {
		_ = x.f.Close()
		return err
	}
	return x.f.Close()
}

type nopCloseWriter struct{ io.Writer }

func (nopCloseWriter) Close() error { return nil }
