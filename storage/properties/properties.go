package properties

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/magiconair/properties"

	"github.com/projecteru2/cocoond/lock"
	"github.com/projecteru2/cocoond/storage"
	"github.com/projecteru2/cocoond/utils"
)

// FilePerm is the mode every rewrite of the settings file is created with.
const FilePerm = 0o600

var _ storage.Store[properties.Properties] = (*Store)(nil)

// Store provides lock-protected access to a line-oriented key = value file.
// Variable expansion is disabled: values are stored and returned verbatim.
type Store struct {
	filePath string
	locker   lock.Locker
}

// New creates a Store for filePath guarded by locker.
func New(filePath string, locker lock.Locker) *Store {
	return &Store{filePath: filePath, locker: locker}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.filePath }

// With loads the file under lock and passes the parsed entries to fn.
// A missing file yields an empty set of entries.
func (s *Store) With(ctx context.Context, fn func(*properties.Properties) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		p, err := s.load()
		if err != nil {
			return err
		}
		return fn(p)
	})
}

// Update performs a read-modify-write under lock. The file is replaced by
// write-new-then-rename, so concurrent readers never see a partial file.
func (s *Store) Update(ctx context.Context, fn func(*properties.Properties) error) error {
	return s.With(ctx, func(p *properties.Properties) error {
		if err := fn(p); err != nil {
			return err
		}
		var buf bytes.Buffer
		if _, err := p.WriteComment(&buf, "# ", properties.UTF8); err != nil {
			return fmt.Errorf("encode %s: %w", s.filePath, err)
		}
		return utils.AtomicWriteFile(s.filePath, buf.Bytes(), FilePerm)
	})
}

func (s *Store) load() (*properties.Properties, error) {
	raw, err := os.ReadFile(s.filePath) //nolint:gosec // fixed daemon settings path
	if os.IsNotExist(err) {
		p := properties.NewProperties()
		p.DisableExpansion = true
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	}
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	return p, nil
}
