package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hushh-ai/consentvault/internal/filex"
)

// FileRepository persists one JSON file per slot under
// <root>/users/<user>/<scope>.json. Writes go to a temp file in the target
// directory followed by a rename, so a reader sees either the old record or
// the new one, never a partial write.
type FileRepository struct {
	usersDir string
}

// NewFileRepository creates the directory layout under root if needed.
func NewFileRepository(root string) (*FileRepository, error) {
	usersDir, err := filex.EnsureDir(root, "users")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return &FileRepository{usersDir: usersDir}, nil
}

func (r *FileRepository) slotPath(key Key) string {
	return filepath.Join(r.usersDir, url.PathEscape(key.UserID), url.PathEscape(key.Scope.String())+".json")
}

func (r *FileRepository) Get(_ context.Context, key Key) (*Record, error) {
	raw, err := os.ReadFile(r.slotPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: corrupt record at %s: %w", ErrStorageIO, r.slotPath(key), err)
	}
	return &rec, nil
}

func (r *FileRepository) Put(_ context.Context, record *Record) error {
	path := r.slotPath(record.Key)
	dir, err := filex.EnsureDir(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

func (r *FileRepository) Delete(_ context.Context, key Key) error {
	err := os.Remove(r.slotPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

func (r *FileRepository) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	return r.readUserDir(ctx, url.PathEscape(userID))
}

func (r *FileRepository) ListAll(ctx context.Context) ([]*Record, error) {
	entries, err := os.ReadDir(r.usersDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	var out []*Record
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		recs, err := r.readUserDir(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	sortRecords(out)
	return out, nil
}

func (r *FileRepository) readUserDir(_ context.Context, dirName string) ([]*Record, error) {
	dir := filepath.Join(r.usersDir, dirName)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}

	var out []*Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			// Removed between ReadDir and ReadFile; fully absent is fine.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: corrupt record %s: %w", ErrStorageIO, name, err)
		}
		out = append(out, &rec)
	}
	sortRecords(out)
	return out, nil
}
