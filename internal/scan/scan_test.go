package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("TY  - JOUR\nER  - \n"), 0o600))
	}
}

func TestScanFolder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"b.ris",
		"A.RIS",
		"notes.txt",
		"sub/c.ris",
		".hidden/d.ris",
		"sub/.e.ris",
	)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "recursive default",
			opts: DefaultOptions(),
			want: []string{"A.RIS", "b.ris", "sub/c.ris"},
		},
		{
			name: "top level only",
			opts: Options{},
			want: []string{"A.RIS", "b.ris"},
		},
		{
			name: "include hidden",
			opts: Options{Recursive: true, IncludeHidden: true},
			want: []string{".hidden/d.ris", "A.RIS", "b.ris", "sub/.e.ris", "sub/c.ris"},
		},
		{
			name: "custom extensions",
			opts: Options{Extensions: []string{".TXT"}},
			want: []string{"notes.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanFolder(root, tt.opts)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(root, filepath.FromSlash(w))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestScanFolder_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := ScanFolder(filepath.Join(root, "missing"), DefaultOptions())
	assert.ErrorIs(t, err, ErrFolderNotFound)

	writeFiles(t, root, "file.ris")
	_, err = ScanFolder(filepath.Join(root, "file.ris"), DefaultOptions())
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestScanFolder_ReturnsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.ris")

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(root))

	got, err := ScanFolder(".", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, filepath.IsAbs(got[0]))
}

func TestScanFolder_FollowsFileSymlinks(t *testing.T) {
	target := t.TempDir()
	writeFiles(t, target, "real.ris")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "dir.ris"), 0o755))

	root := t.TempDir()
	writeFiles(t, root, "a.ris")
	if err := os.Symlink(filepath.Join(target, "real.ris"), filepath.Join(root, "linked.ris")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(target, "missing.ris"), filepath.Join(root, "dangling.ris")))
	require.NoError(t, os.Symlink(filepath.Join(target, "dir.ris"), filepath.Join(root, "dirlink.ris")))

	got, err := ScanFolder(root, DefaultOptions())
	require.NoError(t, err)

	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.ris", "linked.ris"}, names)
}
