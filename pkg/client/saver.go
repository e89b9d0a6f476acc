package client

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ethpandaops/runcenter/pkg/fsutil"
)

// Download is a report body ready to be handed to the user.
type Download struct {
	Filename      string
	ContentType   string
	ContentLength int64
	Body          io.Reader
}

// Saver delivers a downloaded report to its destination.
type Saver interface {
	Save(ctx context.Context, d Download) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, d Download) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, d Download) error {
	return f(ctx, d)
}

// FileSaver writes downloads into Dir. Path overrides the target file when
// set. Writes go through a temp file that is renamed into place, so a failed
// download leaves nothing behind.
type FileSaver struct {
	Dir   string
	Path  string
	Owner *fsutil.OwnerConfig

	// Written is the final path of the last saved file and Size its
	// length in bytes.
	Written string
	Size    int64
}

// Compile-time interface check.
var _ Saver = (*FileSaver)(nil)

// Save writes d to disk.
func (s *FileSaver) Save(_ context.Context, d Download) error {
	target := s.Path
	if target == "" {
		name := filepath.Base(filepath.Clean("/" + d.Filename))
		if name == "/" || name == "." {
			return fmt.Errorf("invalid file name %q", d.Filename)
		}

		target = filepath.Join(s.Dir, name)
	}

	if err := fsutil.MkdirAll(filepath.Dir(target), 0o755, s.Owner); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	n, err := fsutil.WriteFileAtomic(target, d.Body, 0o644, s.Owner)
	if err != nil {
		return err
	}

	s.Written = target
	s.Size = n

	return nil
}
