package qoitool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bodgit/qoitool/index"
	"github.com/bodgit/qoitool/qoi"
	"github.com/pkg/errors"
)

// Extension is the file extension recognised as a QOI image
const Extension = ".qoi"

// Summary counts the outcome of a Scan.
type Summary struct {
	Decoded int64
	Cached  int64
	Failed  int64
}

type counters struct {
	decoded atomic.Int64
	cached  atomic.Int64
	failed  atomic.Int64
}

func (c *counters) summary() Summary {
	return Summary{
		Decoded: c.decoded.Load(),
		Cached:  c.cached.Load(),
		Failed:  c.failed.Load(),
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (t *Tool) findDirectories(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.WalkDir(base, func(dir string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, but not the base itself
			if dir != base && hidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.IsDir() {
				return nil
			}

			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "walk cancelled")
			}

			select {
			case out <- dir:
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// scanFile decodes a single file. A non-nil err is fatal to the scan, a
// failed decode is logged, counted and reported by ok.
func (t *Tool) scanFile(file string, c *counters) (desc qoi.Descriptor, ok bool, err error) {
	b, err := t.readFile(file)
	if err != nil {
		return qoi.Descriptor{}, false, err
	}

	sum := sha1Sum(b)
	logger := t.logger.With().Str("file", file).Str("sha1", sum).Logger()

	if desc, ok := t.seen.Get(sum); ok {
		logger.Debug().Msg("already seen")
		c.cached.Add(1)
		return desc, true, nil
	}

	if t.db != nil {
		desc, _, ok, err := t.db.Lookup(sum)
		if err != nil {
			return qoi.Descriptor{}, false, errors.Wrap(err, "looking up image")
		}
		if ok {
			logger.Debug().Msg("found in database")
			t.seen.Set(sum, desc)
			c.cached.Add(1)
			return desc, true, nil
		}
	}

	pixels, desc, derr := t.decoder().Decode(b)
	if derr != nil {
		logger.Warn().Err(derr).Msg("decode failed")
		c.failed.Add(1)
		return desc, false, nil
	}

	if t.db != nil {
		if err := t.db.Store(sum, desc, crcPixels(pixels)); err != nil {
			return qoi.Descriptor{}, false, errors.Wrap(err, "storing image")
		}
	}

	logger.Debug().Stringer("descriptor", desc).Msg("decoded")
	t.seen.Set(sum, desc)
	c.decoded.Add(1)

	return desc, true, nil
}

func (t *Tool) scanDirectory(ctx context.Context, dir string, c *counters) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	idx := index.New()

	for _, e := range entries {
		// Ignore hidden files and anything that isn't a normal file
		if hidden(e.Name()) || !e.Type().IsRegular() {
			continue
		}

		if !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "scan cancelled")
		}

		desc, ok, err := t.scanFile(filepath.Join(dir, e.Name()), c)
		if err != nil {
			return err
		}
		if ok {
			idx.Set(e.Name(), desc)
		}
	}

	if !t.cfg.Index {
		return nil
	}

	file := filepath.Join(dir, index.Filename)

	// Nothing decoded, so remove any stale index left by a previous scan
	if idx.Len() == 0 {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	b, err := idx.MarshalBinary()
	if err != nil {
		return err
	}

	return os.WriteFile(file, b, 0o644)
}

func (t *Tool) directoryWorker(ctx context.Context, in <-chan string, c *counters) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for dir := range in {
			if err := t.scanDirectory(ctx, dir, c); err != nil {
				errc <- errors.Wrap(err, dir)
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	var first error
	for err := range errc {
		if err != nil && first == nil {
			first = err
			// Stop the walk so the remaining workers drain and exit
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks path, decoding every QOI image found. Images that fail to decode
// are logged and counted; any other error stops the scan.
func (t *Tool) Scan(ctx context.Context, path string) (Summary, error) {
	var c counters

	dir, err := filepath.Abs(path)
	if err != nil {
		return c.summary(), err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var errcList []<-chan error

	dirs, errc, err := t.findDirectories(ctx, dir)
	if err != nil {
		return c.summary(), err
	}
	errcList = append(errcList, errc)

	workers := t.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		errc, err := t.directoryWorker(ctx, dirs, &c)
		if err != nil {
			return c.summary(), err
		}
		errcList = append(errcList, errc)
	}

	err = waitForPipeline(cancel, errcList...)

	s := c.summary()
	t.logger.Info().Str("path", dir).Int64("decoded", s.Decoded).Int64("cached", s.Cached).Int64("failed", s.Failed).Msg("scan finished")

	return s, err
}
