package ops

import (
	"mime"
	"path"
	"strings"
)

// Host MIME databases disagree on these, so they are pinned.
var typeOverrides = map[string]string{
	".png": "image/png",
	".jpg": "image/jpeg",
	".js":  "application/javascript",
}

var encodings = map[string]string{
	".gz":  "gzip",
	".bz2": "bzip2",
	".xz":  "xz",
	".br":  "br",
	".Z":   "compress",
}

// ContentTypeFor infers the Content-Type and Content-Encoding headers for a
// file name. Either may be empty. A compression suffix sets the encoding and
// the type comes from the extension before it, so "app.js.gz" is gzip
// encoded javascript.
func ContentTypeFor(name string) (string, string) {
	name = path.Base(name)
	ext := path.Ext(name)

	encoding := encodings[ext]
	if encoding != "" {
		name = strings.TrimSuffix(name, ext)
		ext = path.Ext(name)
	}
	if ext == "" {
		return "", encoding
	}

	ctype, ok := typeOverrides[strings.ToLower(ext)]
	if !ok {
		ctype = mime.TypeByExtension(ext)
	}

	return ctype, encoding
}
