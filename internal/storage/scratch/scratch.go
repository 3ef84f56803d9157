package scratch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	dirPerm = 0o755
	fileExt = ".mp4"
)

// Store owns the directory where downloads sit between the
// extraction tool writing them and the response streaming them out.
// Files are short-lived; anything found at startup is an orphan.
type Store struct {
	fs  afero.Fs
	dir string
	log *slog.Logger
}

func New(dir string, log *slog.Logger) *Store {
	return NewWithFS(afero.NewOsFs(), dir, log)
}

func NewWithFS(fs afero.Fs, dir string, log *slog.Logger) *Store {
	return &Store{
		fs:  fs,
		dir: dir,
		log: log.With(slog.String("item", "ScratchStore")),
	}
}

func (s *Store) EnsureDir() error {
	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("cannot create scratch dir %s: %w", s.dir, err)
	}

	return nil
}

// Purge removes files left behind by a previous run. A file that cannot be
// removed is logged and skipped so it does not block startup.
func (s *Store) Purge() (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("cannot read scratch dir %s: %w", s.dir, err)
	}

	var removed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := s.fs.Remove(path); err != nil {
			s.log.Warn("Cannot remove stale file", slog.String("path", path), slog.Any("error", err))

			continue
		}

		removed++
	}

	if removed > 0 {
		s.log.Info("Purged stale files", slog.Int("removed", removed))
	}

	return removed, nil
}

// NewPath hands out a unique path for the next download.
func (s *Store) NewPath() string {
	return filepath.Join(s.dir, uuid.NewString()+fileExt)
}

func (s *Store) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	return f, nil
}

func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("cannot remove %s: %w", path, err)
	}

	return nil
}

// Count reports how many files are currently spooled.
func (s *Store) Count() (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, fmt.Errorf("cannot read scratch dir %s: %w", s.dir, err)
	}

	var count int
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}

	return count, nil
}
