// Package sink delivers converted documents.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var ErrExists = errors.New("output file already exists")

// Sink accepts a converted document and delivers it: to disk, a stream or an
// HTTP response.
type Sink interface {
	Deliver(ctx context.Context, text, fileName, mimeType string) error
}

// Locator is implemented by sinks that can tell where fileName ends up.
type Locator interface {
	Target(fileName string) string
}

// DirSink writes each document to a file. With an empty Dir the derived file
// name is used as-is, which places output next to its input.
type DirSink struct {
	Dir       string
	Overwrite bool
}

func (d DirSink) Target(fileName string) string {
	if d.Dir == "" {
		return fileName
	}
	return filepath.Join(d.Dir, filepath.Base(fileName))
}

func (d DirSink) Deliver(ctx context.Context, text, fileName, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := d.Target(fileName)
	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	flag := os.O_CREATE | os.O_WRONLY
	if d.Overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}

	file, err := os.OpenFile(target, flag, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", target, ErrExists)
		}
		return fmt.Errorf("open output: %w", err)
	}

	if _, err := io.WriteString(file, text); err != nil {
		file.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// WriterSink writes documents to W, one after another.
type WriterSink struct {
	W  io.Writer
	mu sync.Mutex
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{W: w}
}

func (s *WriterSink) Deliver(ctx context.Context, text, _, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.W, text); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
