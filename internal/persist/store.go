package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// ErrNotFound is returned when a saved node does not exist.
var ErrNotFound = errors.New("save not found")

// FileStore keeps one file per saved node tree under Dir. Writes are
// atomic: a crash leaves either the previous or the new file.
type FileStore struct {
	Dir      string
	Encoding Encoding
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, enc Encoding) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{Dir: dir, Encoding: enc}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid save name %q", name)
	}
	ext := ".pb"
	if s.Encoding == Text {
		ext = ".txtpb"
	}
	return filepath.Join(s.Dir, name+ext), nil
}

// Save writes node under name.
func (s *FileStore) Save(name string, node *Node) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := Marshal(node, s.Encoding)
	if err != nil {
		return fmt.Errorf("encode save %q: %w", name, err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending save %q: %w", name, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write save %q: %w", name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit save %q: %w", name, err)
	}
	return nil
}

// Load reads the node saved under name.
func (s *FileStore) Load(name string) (*Node, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read save %q: %w", name, err)
	}
	return Unmarshal(data, s.Encoding)
}
