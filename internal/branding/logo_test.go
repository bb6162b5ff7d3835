package branding

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadLogo(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	pngPath := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(pngPath, buf.Bytes(), 0o644))

	txtPath := filepath.Join(dir, "logo.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hello"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "png", path: pngPath},
		{name: "missing file", path: filepath.Join(dir, "missing.png"), wantErr: true},
		{name: "not an image", path: txtPath, wantErr: true},
		{name: "no path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			logo, err := LoadLogo(tt.path)
			if tt.wantErr {
				req.ErrorIs(err, ErrLogoUnavailable)
				req.Nil(logo)
				return
			}
			req.NoError(err)
			req.Equal("image/png", logo.MimeType)
			req.NotEmpty(logo.Data)
		})
	}
}
