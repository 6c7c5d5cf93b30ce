package screenshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"image"

	"bonk-scanner/pkg/geometry"
)

// CropRGBA copies a region out of an RGBA plane into a fresh zero-origin
// image. The region is clamped to the source bounds first.
func CropRGBA(src *image.RGBA, r geometry.ROI) *image.RGBA {
	b := src.Bounds()
	r = r.ClampTo(b.Dx(), b.Dy())
	out := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	if r.Empty() {
		return out
	}
	for y := 0; y < r.Height; y++ {
		srcOff := (r.Y+y)*src.Stride + r.X*4
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+r.Width*4], src.Pix[srcOff:srcOff+r.Width*4])
	}
	return out
}

// CropGray copies a region out of a grayscale plane into a fresh zero-origin
// image. The region is clamped to the source bounds first.
func CropGray(src *image.Gray, r geometry.ROI) *image.Gray {
	b := src.Bounds()
	r = r.ClampTo(b.Dx(), b.Dy())
	out := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	if r.Empty() {
		return out
	}
	for y := 0; y < r.Height; y++ {
		srcOff := (r.Y+y)*src.Stride + r.X
		dstOff := y * out.Stride
		copy(out.Pix[dstOff:dstOff+r.Width], src.Pix[srcOff:srcOff+r.Width])
	}
	return out
}

// Crop returns the frame restricted to a region, with both planes copied.
func (f *Frame) Crop(r geometry.ROI) *Frame {
	r = r.ClampTo(f.Width, f.Height)
	return &Frame{
		RGBA:   CropRGBA(f.RGBA, r),
		Gray:   CropGray(f.Gray, r),
		Width:  r.Width,
		Height: r.Height,
	}
}

// Hash returns a deterministic content hash of the frame's pixels, used as
// the result-cache key. Identical rasters always hash identically regardless
// of the encoding they arrived in.
func (f *Frame) Hash() string {
	h := sha256.New()
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(f.Height))
	h.Write(dims[:])
	h.Write(f.RGBA.Pix)
	return hex.EncodeToString(h.Sum(nil))
}
