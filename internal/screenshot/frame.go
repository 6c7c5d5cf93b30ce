// Package screenshot decodes incoming screenshot blobs into pixel planes the
// detection pipeline can scan. Screenshots arrive as base64-encoded PNG/JPEG
// data (typically a canvas data URI captured by the companion app).
package screenshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when the decoded blob contains no pixels.
var ErrEmptyImage = errors.New("screenshot: empty image")

// Frame holds one decoded screenshot as tightly packed pixel planes.
// RGBA always has a zero origin and a stride of exactly 4×Width, and Gray a
// stride of exactly Width, so scanning code may index Pix directly.
type Frame struct {
	RGBA   *image.RGBA
	Gray   *image.Gray
	Width  int
	Height int
}

// Decode decodes a base64 screenshot blob. A data URI prefix
// ("data:image/png;base64,") is stripped if present.
func Decode(blob string) (*Frame, error) {
	raw, err := decodeBase64(blob)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode screenshot: %w", ErrEmptyImage)
	}

	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decode screenshot: %w", ErrEmptyImage)
	}

	w := mat.Cols()
	h := mat.Rows()

	rgbaMat := gocv.NewMat()
	defer rgbaMat.Close()
	gocv.CvtColor(mat, &rgbaMat, gocv.ColorBGRToRGBA)
	rgbaBytes := rgbaMat.ToBytes()

	grayMat := gocv.NewMat()
	defer grayMat.Close()
	gocv.CvtColor(mat, &grayMat, gocv.ColorBGRToGray)
	grayBytes := grayMat.ToBytes()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(rgba.Pix, rgbaBytes)
	gray := image.NewGray(image.Rect(0, 0, w, h))
	copy(gray.Pix, grayBytes)

	return &Frame{RGBA: rgba, Gray: gray, Width: w, Height: h}, nil
}

func decodeBase64(blob string) ([]byte, error) {
	s := strings.TrimSpace(blob)
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		s = s[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some producers omit padding.
		raw, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return raw, nil
}

// FromImage builds a Frame from a decoded Go image. Used by ingest paths that
// already hold an image.Image (file loads, tests).
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		grow := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			grow[x] = Luma(p[0], p[1], p[2])
		}
	}

	return &Frame{RGBA: rgba, Gray: gray, Width: w, Height: h}
}

// Luma converts an RGB triple to its grayscale brightness (ITU-R BT.601).
func Luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}
