package cursor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the cursor in a JSON file replaced atomically on every save.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cursor. A missing or empty file yields nil. Records written
// under the older "offset" key are still understood.
func (s *FileStore) Load(_ context.Context) (*string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	val, ok := raw["cursor"]
	if !ok {
		val = raw["offset"]
	}
	cur, err := decodeValue(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return cur, nil
}

// decodeValue accepts a JSON string, number or null.
func decodeValue(val json.RawMessage) (*string, error) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return nil, nil
	}
	var s string
	if val[0] == '"' {
		if err := json.Unmarshal(val, &s); err != nil {
			return nil, err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(val, &n); err != nil {
			return nil, fmt.Errorf("cursor must be a string or number")
		}
		s = n.String()
	}
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// Save writes a temp file next to the target, fsyncs it and renames it over
// the target, so a crash leaves either the old or the new record.
func (s *FileStore) Save(_ context.Context, cursor string) (retErr error) {
	data, err := json.Marshal(State{Cursor: &cursor})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("open temp state file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
