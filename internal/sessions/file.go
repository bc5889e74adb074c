package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mira-ai/sentinel/pkg/models"
)

// FileStore persists one JSON document per session under root,
// writing with a temp-file-then-rename so a crash mid-write never
// leaves a corrupt session document behind. It is safe for
// concurrent use.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore constructs a FileStore rooted at dir, creating it if
// necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessions: create store dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.root, id+".json")
}

func (f *FileStore) Get(id string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(id))
	if os.IsNotExist(err) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("sessions: read %s: %w", id, err)
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Session{}, fmt.Errorf("sessions: decode %s: %w", id, err)
	}
	return s, nil
}

func (f *FileStore) Put(s models.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("sessions: encode %s: %w", s.ID, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.root, s.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("sessions: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sessions: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sessions: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(s.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sessions: rename into place: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileStore) List(opts ListOptions) ([]models.Session, error) {
	f.mu.Lock()
	entries, err := os.ReadDir(f.root)
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sessions: list store dir: %w", err)
	}

	var out []models.Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		s, err := f.Get(id)
		if err != nil {
			continue
		}
		if opts.Channel != "" && s.Channel != opts.Channel {
			continue
		}
		out = append(out, s)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}
