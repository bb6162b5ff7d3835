package branding

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrLogoUnavailable = errors.New("logo image not found")

// MissingLogoMessage is shown in place of the logo.
const MissingLogoMessage = "Logo image not found. Please check the path."

// Logo is an image file read from disk, ready to inline into a page.
type Logo struct {
	Data     []byte
	MimeType string
}

// LoadLogo reads the logo at path. Any failure, including a file that is
// not an image, is reported as ErrLogoUnavailable.
func LoadLogo(path string) (*Logo, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrLogoUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogoUnavailable, err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrLogoUnavailable, path, mt.String())
	}

	return &Logo{Data: data, MimeType: mt.String()}, nil
}
