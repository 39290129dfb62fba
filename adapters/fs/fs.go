// Package fs provides FileSystem implementations for file-body uploads.
package fs

import (
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/artpar/routegen/ports"
)

// OS reads files from the local disk, optionally relative to a root directory.
type OS struct {
	Root string
}

func (o OS) path(name string) string {
	if o.Root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Root, name)
}

// Stat returns file info.
func (o OS) Stat(name string) (iofs.FileInfo, error) {
	return os.Stat(o.path(name))
}

// Open opens the file for streaming.
func (o OS) Open(name string) (io.ReadCloser, error) {
	return os.Open(o.path(name))
}

var _ ports.FileSystem = OS{}

// FS adapts an io/fs.FS, such as fstest.MapFS or an embed.FS.
type FS struct {
	FS iofs.FS
}

// Stat returns file info.
func (f FS) Stat(name string) (iofs.FileInfo, error) {
	return iofs.Stat(f.FS, name)
}

// Open opens the file for streaming.
func (f FS) Open(name string) (io.ReadCloser, error) {
	return f.FS.Open(name)
}

var _ ports.FileSystem = FS{}
