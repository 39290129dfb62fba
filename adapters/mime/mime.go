// Package mime resolves upload content types from file names.
package mime

import (
	stdmime "mime"
	"path/filepath"
	"strings"

	"github.com/artpar/routegen/ports"
)

// DefaultType is used when the extension is unknown.
const DefaultType = "application/octet-stream"

// extra covers release-asset extensions missing from minimal system tables.
var extra = map[string]string{
	".gz":   "application/gzip",
	".tgz":  "application/gzip",
	".zip":  "application/zip",
	".md":   "text/markdown; charset=utf-8",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".deb":  "application/vnd.debian.binary-package",
	".rpm":  "application/x-rpm",
	".dmg":  "application/x-apple-diskimage",
}

// Extension resolves content types by file extension.
type Extension struct{}

// TypeByName returns the content type registered for the extension of name.
func (Extension) TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultType
	}
	if t, ok := extra[ext]; ok {
		return t
	}
	if t := stdmime.TypeByExtension(ext); t != "" {
		return t
	}
	return DefaultType
}

var _ ports.MimeResolver = Extension{}
