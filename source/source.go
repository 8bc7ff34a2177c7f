package source

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhcgn/mht-to-html/filter"
	"github.com/dhcgn/mht-to-html/model"
	"github.com/dhcgn/mht-to-html/runner"
	"github.com/dhcgn/mht-to-html/stats"
)

// Extension is matched case-insensitively when expanding directories.
const Extension = ".mht"

var (
	ErrNoInputs = errors.New("no input paths")
	// ErrNotSingle is returned by DiscoverOne when the inputs expand to more
	// than one archive.
	ErrNotSingle = errors.New("inputs expand to more than one archive")
)

type Options struct {
	Paths     []string
	Recursive bool
	Filter    filter.Options
	// OnFiltered is called for every archive rejected by the filter.
	OnFiltered func(path string)
}

type Reader interface {
	Stream(ctx context.Context, out chan<- model.Envelope) error
}

func NewReader(opts Options, logger *slog.Logger) (Reader, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoInputs
	}

	f, err := filter.New(opts.Filter)
	if err != nil {
		return nil, err
	}

	return &fileReader{
		paths:      opts.Paths,
		recursive:  opts.Recursive,
		filter:     f,
		onFiltered: opts.OnFiltered,
		logger:     logger,
	}, nil
}

type fileReader struct {
	paths      []string
	recursive  bool
	filter     *filter.Filter
	onFiltered func(string)
	logger     *slog.Logger
}

func (f *fileReader) Stream(ctx context.Context, out chan<- model.Envelope) error {
	files, err := Discover(f.paths, f.recursive)
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := ReadDocument(path)
		if err != nil {
			if err := f.emitError(ctx, out, path, err); err != nil {
				return err
			}
			continue
		}

		if !f.filter.Allows(doc.Path, doc.Raw) {
			if f.onFiltered != nil {
				f.onFiltered(doc.Path)
			}
			continue
		}

		if err := f.emitEnvelope(ctx, out, model.Envelope{Document: doc}); err != nil {
			return err
		}
	}

	if f.logger != nil && f.filter.Active() {
		st := f.filter.GetStats()
		f.logger.Debug("filter summary", "checked", st.Checked, "skipped", st.Skipped, "hits", st.Hits)
	}

	return nil
}

func (f *fileReader) emitError(ctx context.Context, out chan<- model.Envelope, path string, err error) error {
	if f.logger != nil {
		f.logger.Error("source read error", "path", path, "err", err)
	}
	return f.emitEnvelope(ctx, out, model.Envelope{Document: model.Document{Path: path, Name: filepath.Base(path)}, Err: err})
}

func (f *fileReader) emitEnvelope(ctx context.Context, out chan<- model.Envelope, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- env:
		return nil
	}
}

// Discover expands paths into the list of archives to convert. Files named
// explicitly are kept whatever their extension; directories contribute their
// *.mht entries, descending only when recursive is set. Duplicates are
// removed and order follows the arguments, then lexical order within a
// directory.
func Discover(paths []string, recursive bool) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), Extension) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	return files, nil
}

// DiscoverOne is Discover for callers that can handle exactly one archive,
// such as a single output stream. A directory holding one archive is fine.
func DiscoverOne(paths []string, recursive bool) (string, error) {
	files, err := Discover(paths, recursive)
	if err != nil {
		return "", err
	}
	if len(files) != 1 {
		return "", fmt.Errorf("%w: found %d", ErrNotSingle, len(files))
	}
	return files[0], nil
}

// ReadDocument loads a single archive and computes its content hash.
func ReadDocument(path string) (model.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read archive: %w", err)
	}

	sum := sha256.Sum256(raw)
	return model.Document{
		Path: path,
		Name: filepath.Base(path),
		Hash: base64.StdEncoding.EncodeToString(sum[:]),
		Size: int64(len(raw)),
		Raw:  raw,
	}, nil
}

type Producer struct {
	reader Reader
	runner *runner.Runner
}

func NewProducer(opts Options, r *runner.Runner, logger *slog.Logger) (*Producer, error) {
	if opts.OnFiltered == nil {
		opts.OnFiltered = func(path string) {
			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeFiltered, Path: path})
		}
	}
	reader, err := NewReader(opts, logger)
	if err != nil {
		return nil, err
	}
	producer := &Producer{reader: reader, runner: r}
	r.AddStage("source", producer.run)
	return producer, nil
}

func (p *Producer) run(ctx context.Context) error {
	defer p.runner.CloseDocuments()
	return p.reader.Stream(ctx, p.runner.DocumentWriter())
}
