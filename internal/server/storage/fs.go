package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/emoticons/internal/filex"
)

// FileStore keeps images as <base>/<key>.png and exposes them under a public
// URL prefix served by the HTTP layer.
type FileStore struct {
	basePath     string
	publicPrefix string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewFileStore creates basePath if needed.
func NewFileStore(basePath, publicPrefix string) (*FileStore, error) {
	abs, err := filex.EnsureDir(basePath, 0o755)
	if err != nil {
		return nil, fmt.Errorf("storage path: %w", err)
	}

	return &FileStore{
		basePath:     abs,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
		locks:        make(map[string]*entryLock),
	}, nil
}

// BasePath is the absolute directory holding the images.
func (s *FileStore) BasePath() string { return s.basePath }

func (s *FileStore) Put(ctx context.Context, key string, body io.Reader) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	unlock := s.lockEntry(key)
	defer unlock()

	tempFile, err := os.CreateTemp(s.basePath, ".emoticon-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Chmod(tempName, 0o644); err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	filePath, err := s.path(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *FileStore) Location(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	return s.publicPrefix + "/" + url.PathEscape(objectName(key)), nil
}

func (s *FileStore) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	filePath := filepath.Join(s.basePath, objectName(key))
	if filepath.Dir(filePath) != s.basePath {
		return "", errors.New("invalid storage path")
	}
	return filePath, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
