package imageproc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Brownie44l1/pesticide-api/internal/model"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// encodeAPNG adds an acTL chunk right after IHDR, which is what marks a
// PNG as animated. The default frame is still an ordinary PNG image.
func encodeAPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	plain := encodePNG(t, img)
	const ihdrEnd = 8 + 4 + 4 + 13 + 4

	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], 1)
	binary.BigEndian.PutUint32(data[4:8], 0)

	var chunk bytes.Buffer
	_ = binary.Write(&chunk, binary.BigEndian, uint32(len(data)))
	chunk.WriteString("acTL")
	chunk.Write(data)
	_ = binary.Write(&chunk, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("acTL"), data...)))

	out := append([]byte{}, plain[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, plain[ihdrEnd:]...)
}

func TestDecode(t *testing.T) {
	img := solid(20, 10, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name     string
		raw      []byte
		wantMime string
		wantErr  bool
	}{
		{name: "png", raw: encodePNG(t, img), wantMime: "image/png"},
		{name: "jpeg", raw: encodeJPEG(t, img), wantMime: "image/jpeg"},
		{name: "animated png", raw: encodeAPNG(t, img), wantMime: "image/png"},
		{name: "empty", raw: nil, wantErr: true},
		{name: "text", raw: []byte("definitely not an image"), wantErr: true},
		{name: "gif is not accepted", raw: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), wantErr: true},
		{name: "truncated png", raw: encodePNG(t, img)[:40], wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := Decode(tt.raw)
			if tt.wantErr {
				req.ErrorIs(err, ErrUndecodable)
				return
			}
			req.NoError(err)
			req.Equal(tt.wantMime, got.MimeType)
			req.Equal(20, got.Image.Bounds().Dx())
			req.Equal(10, got.Image.Bounds().Dy())
		})
	}
}

func TestTensor_ShapeAndRange(t *testing.T) {
	req := require.New(t)
	meta := model.DefaultMetadata()

	img := image.NewNRGBA(image.Rect(0, 0, 300, 170))
	for y := 0; y < 170; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}

	data := Tensor(img, meta)
	req.Len(data, meta.InputSize())
	for _, v := range data {
		req.GreaterOrEqual(v, float32(0))
		req.LessOrEqual(v, float32(1))
	}
}

func TestTensor_Layout(t *testing.T) {
	img := solid(8, 8, color.NRGBA{R: 255, G: 0, B: 51, A: 255})

	tests := []struct {
		name   string
		layout string
		at     func(data []float32, plane, pixel, channel int) float32
	}{
		{
			name:   "nhwc",
			layout: model.LayoutNHWC,
			at:     func(d []float32, _, p, c int) float32 { return d[3*p+c] },
		},
		{
			name:   "nchw",
			layout: model.LayoutNCHW,
			at:     func(d []float32, plane, p, c int) float32 { return d[c*plane+p] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			meta := model.DefaultMetadata()
			meta.ImageSize = 4
			meta.Layout = tt.layout

			data := Tensor(img, meta)
			req.Len(data, 3*4*4)
			plane := 16
			for p := 0; p < plane; p++ {
				req.InDelta(1.0, tt.at(data, plane, p, 0), 0.01)
				req.InDelta(0.0, tt.at(data, plane, p, 1), 0.01)
				req.InDelta(0.2, tt.at(data, plane, p, 2), 0.01)
			}
		})
	}
}

func TestTensor_Deterministic(t *testing.T) {
	req := require.New(t)
	meta := model.DefaultMetadata()
	decoded, err := Decode(encodeJPEG(t, solid(64, 48, color.NRGBA{R: 10, G: 180, B: 90, A: 255})))
	req.NoError(err)

	first := Tensor(decoded.Image, meta)
	second := Tensor(decoded.Image, meta)
	req.Equal(first, second)
}
