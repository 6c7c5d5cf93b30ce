// Package ocr extracts stack-count digits from detection badges. The OCR
// engine itself is Tesseract via gosseract; this package only prepares badge
// crops and parses the small integers the game renders on stacked items.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// ErrNoDigits is returned when the badge contains no parseable count.
var ErrNoDigits = errors.New("ocr: no digits found")

// Stack counts outside this range are misreads: singles carry no badge and
// the game caps stacks well below 20.
const (
	MinCount = 2
	MaxCount = 20
)

// Counter reads a stack count from a badge crop. Implementations must be
// closed after use.
type Counter interface {
	ReadCount(ctx context.Context, badge *image.RGBA) (count int, confidence float64, err error)
	Close() error
}

// DigitReader is the Tesseract-backed Counter.
type DigitReader struct {
	client *gosseract.Client
}

// NewDigitReader creates a digit-restricted OCR reader.
func NewDigitReader() (*DigitReader, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Counts aren't words; disable dictionary correction entirely.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("classify_bln_numeric_mode", "1")

	return &DigitReader{client: client}, nil
}

// Close releases OCR resources.
func (d *DigitReader) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// ReadCount OCRs a badge crop and parses the stack count. Counts outside
// [MinCount, MaxCount] return ErrNoDigits. The context is checked before the
// engine runs; a started recognition cannot be interrupted.
func (d *DigitReader) ReadCount(ctx context.Context, badge *image.RGBA) (int, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if badge == nil || badge.Bounds().Dx() == 0 || badge.Bounds().Dy() == 0 {
		return 0, 0, fmt.Errorf("empty badge image")
	}

	mat, err := gocv.ImageToMatRGBA(badge)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to convert badge: %w", err)
	}
	defer mat.Close()

	processed := preprocessBadge(mat)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encode badge: %w", err)
	}
	defer buf.Close()

	if err := d.client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		return 0, 0, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := d.client.SetWhitelist("0123456789"); err != nil {
		return 0, 0, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := d.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return 0, 0, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := d.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0, 0, fmt.Errorf("OCR failed: %w", err)
	}

	var digits strings.Builder
	conf := 0.0
	n := 0
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		for _, c := range word {
			if c >= '0' && c <= '9' {
				digits.WriteRune(c)
			}
		}
		conf += box.Confidence
		n++
	}
	if digits.Len() == 0 {
		return 0, 0, ErrNoDigits
	}
	if n > 0 {
		conf = conf / float64(n) / 100
	}
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	count := 0
	for _, c := range digits.String() {
		count = count*10 + int(c-'0')
		if count > MaxCount {
			return 0, 0, ErrNoDigits
		}
	}
	if count < MinCount {
		return 0, 0, ErrNoDigits
	}

	return count, conf, nil
}

// preprocessBadge prepares a badge crop for recognition: upscale the tiny
// crop, boost local contrast, binarize, and flip polarity when needed.
// Tesseract wants dark text on a light background; badges render light
// digits on a dark fill.
func preprocessBadge(mat gocv.Mat) gocv.Mat {
	h, w := mat.Rows(), mat.Cols()

	var scaled gocv.Mat
	minDim := min(h, w)
	if minDim < 64 {
		scale := 64.0 / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(mat, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = mat.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(scaled, &gray, gocv.ColorRGBAToGray)
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	whiteCount := gocv.CountNonZero(binary)
	totalPixels := binary.Rows() * binary.Cols()
	if float64(whiteCount)/float64(totalPixels) < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	return binary
}
