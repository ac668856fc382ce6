package filesystem

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/brettbedarf/flatfs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(maxEntries, maxEntrySize int) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.MaxEntries = maxEntries
	cfg.MaxEntrySize = maxEntrySize
	return cfg
}

// mustWrite writes data and requires the full length to be kept
func mustWrite(t *testing.T, fs *FileSystem, path, data string) {
	t.Helper()
	n, err := fs.Write(path, []byte(data), 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

func listNames(t *testing.T, fs *FileSystem, path string) []string {
	t.Helper()
	seq, err := fs.ListDirectory(path)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func readAll(t *testing.T, fs *FileSystem, path string, size int, offset int64) string {
	t.Helper()
	buf := make([]byte, size)
	n, err := fs.Read(path, buf, offset)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestNewFS(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(3, 8))

	require.NotNil(t, fs)
	assert.Equal(t, 3, fs.Store().MaxEntries())
	assert.Equal(t, 8, fs.Store().MaxEntrySize())
	assert.Equal(t, 0, fs.Store().Len())
}

func TestFileSystem_CapacityScenario(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(2, config.DefaultMaxEntrySize))

	n, err := fs.Write("/a", []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = fs.Write("/b", []byte("world"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = fs.Write("/c", []byte("x"), 0)
	require.ErrorIs(t, err, ErrNoSpace)

	assert.Equal(t, "hello", readAll(t, fs, "/a", 5, 0))

	require.NoError(t, fs.Unlink("/a"))
	n, err = fs.Write("/c", []byte("x"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []string{".", "..", "b", "c"}, listNames(t, fs, "/"))
}

func TestFileSystem_TruncationScenario(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(4, 4))

	n, err := fs.Write("/f", []byte("abcdef"), 0)
	require.NoError(t, err, "truncation must not be an error")
	assert.Equal(t, 4, n)

	attr, err := fs.Attributes("/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), attr.Size)
	assert.Equal(t, "abcd", readAll(t, fs, "/f", 10, 0))

	// reading from the end yields nothing
	buf := make([]byte, 10)
	n, err = fs.Read("/f", buf, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileSystem_WriteSetsSize(t *testing.T) {
	t.Parallel()

	const capacity = 16
	tests := []struct {
		name   string
		k      int
		offset int64
	}{
		{"at start", 5, 0},
		{"with gap", 3, 4},
		{"hits capacity", 6, 10},
		{"crosses capacity", 10, 12},
		{"beyond capacity", 2, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := NewFS(createTestConfig(1, capacity))

			n, err := fs.Write("/f", []byte(strings.Repeat("z", tt.k)), tt.offset)
			require.NoError(t, err)

			attr, err := fs.Attributes("/f")
			require.NoError(t, err)
			want := min(tt.offset+int64(tt.k), capacity)
			assert.Equal(t, uint64(want), attr.Size)
			assert.Equal(t, int(max(0, want-tt.offset)), n)
		})
	}
}

func TestFileSystem_RoundTrip(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(2, 32))
	mustWrite(t, fs, "/f", "0123456789")

	n, err := fs.Write("/f", []byte("abc"), 4)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	assert.Equal(t, "abc", readAll(t, fs, "/f", 3, 4))
	assert.Equal(t, "ab", readAll(t, fs, "/f", 2, 4))
	assert.Equal(t, "0123abc789", readAll(t, fs, "/f", 64, 0))
	assert.Equal(t, "789", readAll(t, fs, "/f", 64, 7), "reads clamp to size")
}

func TestFileSystem_NeverWritten(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(2, 8))
	mustWrite(t, fs, "/exists", "x")

	for _, path := range []string{"/missing", "/Exists", "/exists/child", "//exists"} {
		_, err := fs.Attributes(path)
		assert.ErrorIs(t, err, ErrNotFound, "Attributes(%q)", path)
		assert.ErrorIs(t, fs.Open(path), ErrNotFound, "Open(%q)", path)
		_, err = fs.Read(path, make([]byte, 1), 0)
		assert.ErrorIs(t, err, ErrNotFound, "Read(%q)", path)
		assert.ErrorIs(t, fs.Unlink(path), ErrNotFound, "Unlink(%q)", path)
	}
}

func TestFileSystem_Attributes(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig(2, 8)
	cfg.FileMode = 0o600
	cfg.DirMode = 0o700
	fs := NewFS(cfg)
	mustWrite(t, fs, "/f", "abc")

	t.Run("Root", func(t *testing.T) {
		t.Parallel()
		attr, err := fs.Attributes("/")
		require.NoError(t, err)
		assert.True(t, attr.IsDir())
		assert.Equal(t, uint32(syscall.S_IFDIR|0o700), attr.Mode)
		assert.Equal(t, uint32(2), attr.Nlink)
	})

	t.Run("Entry", func(t *testing.T) {
		t.Parallel()
		attr, err := fs.Attributes("/f")
		require.NoError(t, err)
		assert.True(t, attr.IsRegular())
		assert.Equal(t, uint32(syscall.S_IFREG|0o600), attr.Mode)
		assert.Equal(t, uint32(1), attr.Nlink)
		assert.Equal(t, uint64(3), attr.Size)
		assert.Equal(t, uint64(1), attr.Blocks)
	})
}

func TestFileSystem_ListDirectory(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(4, 8))

	assert.Equal(t, []string{".", ".."}, listNames(t, fs, "/"))

	mustWrite(t, fs, "/z", "1")
	mustWrite(t, fs, "/a", "2")
	mustWrite(t, fs, "/m", "3")
	assert.Equal(t, []string{".", "..", "z", "a", "m"}, listNames(t, fs, "/"), "insertion order")

	t.Run("NonRoot", func(t *testing.T) {
		t.Parallel()
		_, err := fs.ListDirectory("/z")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SnapshotPerCall", func(t *testing.T) {
		fs := NewFS(createTestConfig(4, 8))
		mustWrite(t, fs, "/a", "1")
		seq, err := fs.ListDirectory("/")
		require.NoError(t, err)
		mustWrite(t, fs, "/b", "2")

		assert.Equal(t, []string{".", "..", "a"}, slices.Collect(seq))
		assert.Equal(t, []string{".", "..", "a", "b"}, listNames(t, fs, "/"))
	})

	t.Run("EarlyStop", func(t *testing.T) {
		t.Parallel()
		seq, err := fs.ListDirectory("/")
		require.NoError(t, err)
		var got []string
		for name := range seq {
			got = append(got, name)
			if len(got) == 3 {
				break
			}
		}
		assert.Equal(t, []string{".", "..", "z"}, got)
	})
}

func TestFileSystem_UnlinkThenOpen(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(4, 8))
	for _, name := range []string{"a", "b", "c", "d"} {
		mustWrite(t, fs, "/"+name, name)
	}

	require.NoError(t, fs.Open("/b"))
	require.NoError(t, fs.Unlink("/b"))

	assert.ErrorIs(t, fs.Open("/b"), ErrNotFound)
	assert.Equal(t, 3, fs.Store().Len())
	assert.Equal(t, []string{".", "..", "a", "c", "d"}, listNames(t, fs, "/"))
	assert.Equal(t, "c", readAll(t, fs, "/c", 4, 0), "remaining entries keep their content")
}

func TestFileSystem_RecreateAfterUnlinkShrinks(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(1, 8))
	mustWrite(t, fs, "/f", "longtext")
	mustWrite(t, fs, "/f", "ab")
	assert.Equal(t, "abngtext", readAll(t, fs, "/f", 8, 0), "writes never shrink an entry")

	require.NoError(t, fs.Unlink("/f"))
	mustWrite(t, fs, "/f", "ab")
	assert.Equal(t, "ab", readAll(t, fs, "/f", 8, 0))
}

func TestFileSystem_RootOperations(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(1, 8))

	_, err := fs.Write("/", []byte("x"), 0)
	assert.ErrorIs(t, err, ErrIsDir)
	_, err = fs.Read("/", make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrIsDir)
	assert.ErrorIs(t, fs.Open("/"), ErrIsDir)
	assert.ErrorIs(t, fs.Unlink("/"), ErrIsDir)
	assert.Equal(t, 0, fs.Store().Len())
}

func TestFileSystem_WriteValidation(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig(4, 8)
	cfg.MaxNameLen = 4
	fs := NewFS(cfg)

	_, err := fs.Write("/sub/file", []byte("x"), 0)
	assert.ErrorIs(t, err, ErrNotFound, "no subdirectories")

	_, err = fs.Write("/toolong", []byte("x"), 0)
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = fs.Write("/ok", []byte("x"), -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)

	_, err = fs.Read("/ok", make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrNotFound, "failed writes must not create entries")
	assert.Equal(t, 0, fs.Store().Len())
}

func TestFileSystem_ErrorWrapping(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(1, 8))
	_, err := fs.Read("/nope", make([]byte, 1), 0)

	var fsErr *Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, OpRead, fsErr.Op)
	assert.Equal(t, "/nope", fsErr.Path)
	assert.Equal(t, "read /nope: no such entry", err.Error())
}

func TestFileSystem_Stats(t *testing.T) {
	t.Parallel()

	fs := NewFS(createTestConfig(3, 8))
	mustWrite(t, fs, "/a", "abc")
	mustWrite(t, fs, "/b", "de")

	assert.Equal(t, Stats{Entries: 2, MaxEntries: 3, UsedBytes: 5, MaxEntrySize: 8}, fs.Stats())
}

func TestFileSystem_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	const capacity = 8
	fs := NewFS(createTestConfig(capacity, 64))
	var wg sync.WaitGroup

	for i := range 32 {
		wg.Go(func() {
			name := fmt.Sprintf("/f%d", i%16)
			for j := range 20 {
				_, _ = fs.Write(name, []byte{byte(j)}, int64(j))
				buf := make([]byte, 64)
				_, _ = fs.Read(name, buf, 0)
				if j%7 == 0 {
					_ = fs.Unlink(name)
				}
			}
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, fs.Store().Len(), capacity)
	names := listNames(t, fs, "/")
	assert.Len(t, names, fs.Store().Len()+2)
}
