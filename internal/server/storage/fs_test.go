package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), "/emoticon_files/")
	require.NoError(t, err)
	return s
}

func TestFileStore_PutExistsLocation(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "cat")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "cat", bytes.NewReader([]byte("png-bytes"))))

	ok, err = s.Exists(ctx, "cat")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(filepath.Join(s.BasePath(), "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	loc, err := s.Location(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, "/emoticon_files/cat.png", loc)
}

func TestFileStore_NoPartialFileOnFailure(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	body := io.MultiReader(bytes.NewReader([]byte("half")), errReader{errors.New("connection reset")})
	err := s.Put(ctx, "dog", body)
	require.Error(t, err)

	ok, err := s.Exists(ctx, "dog")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := os.ReadDir(s.BasePath())
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must be cleaned up")
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := newFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "cat", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Exists(ctx, "cat")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../evil", "a/b", `a\b`, ".."} {
		err := s.Put(ctx, key, bytes.NewReader(nil))
		assert.Error(t, err, "key %q", key)
	}
}

func TestFileStore_ConcurrentPutsSameKey(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, "cat", bytes.NewReader([]byte(fmt.Sprintf("v%d", i)))))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(s.BasePath(), "cat.png"))
	require.NoError(t, err)
	assert.Regexp(t, `^v\d$`, string(data))

	s.mu.Lock()
	assert.Empty(t, s.locks)
	s.mu.Unlock()
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("", "/x")
	assert.Error(t, err)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
