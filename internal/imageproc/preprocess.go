package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Brownie44l1/pesticide-api/internal/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	"github.com/samber/lo"
)

// ErrUndecodable covers every reason an upload cannot be turned into pixels.
var ErrUndecodable = errors.New("image could not be decoded")

// Accepted lists the upload types the classifier takes.
var Accepted = []string{"image/jpeg", "image/png"}

// AcceptAttr is the file input accept attribute for the upload form.
const AcceptAttr = ".jpg,.jpeg,.png"

// Decoded is an upload turned into pixels.
type Decoded struct {
	Image    image.Image
	MimeType string
}

// Decode sniffs the content type and decodes a JPEG or PNG.
func Decode(raw []byte) (*Decoded, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUndecodable)
	}

	detected := mimetype.Detect(raw)
	mt, ok := acceptedType(detected)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %s", ErrUndecodable, detected.String())
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrUndecodable)
	}

	return &Decoded{Image: img, MimeType: mt}, nil
}

// acceptedType walks up the detected type's parents, so subtypes such as
// APNG resolve to image/png.
func acceptedType(detected *mimetype.MIME) (string, bool) {
	for m := detected; m != nil; m = m.Parent() {
		if lo.Contains(Accepted, m.String()) {
			return m.String(), true
		}
	}
	return "", false
}

// Tensor resizes img to the model's square input and scales every RGB
// channel to [0,1]. Alpha is dropped. The output is laid out per
// meta.Layout and always has meta.InputSize() values.
func Tensor(img image.Image, meta model.Metadata) []float32 {
	size := uint(meta.ImageSize)
	resized := resize.Resize(size, size, img, resize.Bicubic)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	inputData := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r := float32(c.R) / 255.0
			g := float32(c.G) / 255.0
			b := float32(c.B) / 255.0

			pixelIndex := y*width + x
			if meta.Layout == model.LayoutNCHW {
				inputData[pixelIndex] = r
				inputData[plane+pixelIndex] = g
				inputData[2*plane+pixelIndex] = b
				continue
			}
			inputData[3*pixelIndex] = r
			inputData[3*pixelIndex+1] = g
			inputData[3*pixelIndex+2] = b
		}
	}

	return inputData
}
