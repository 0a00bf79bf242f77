package ops_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studio1767/s3site/internal/ops"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name     string
		ctype    string
		encoding string
	}{
		{"logo.png", "image/png", ""},
		{"photos/cat.jpg", "image/jpeg", ""},
		{"app.js", "application/javascript", ""},
		{"app.js.gz", "application/javascript", "gzip"},
		{"logo.PNG", "image/png", ""},
		{"data.bin.br", "", "br"},
		{"README", "", ""},
		{"archive.Z", "", "compress"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctype, encoding := ops.ContentTypeFor(tc.name)
			if tc.name == "data.bin.br" {
				// .bin is left to the host database
				require.Equal(t, tc.encoding, encoding)
				return
			}
			require.Equal(t, tc.ctype, ctype)
			require.Equal(t, tc.encoding, encoding)
		})
	}
}

func TestContentTypeForHTML(t *testing.T) {
	ctype, encoding := ops.ContentTypeFor("blog/index.html")
	require.True(t, strings.HasPrefix(ctype, "text/html"), ctype)
	require.Equal(t, "", encoding)
}
