package scan

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/template"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	testRed  = color.RGBA{R: 230, G: 60, B: 60, A: 255}
	testBlue = color.RGBA{R: 100, G: 180, B: 240, A: 255}
	testInk  = color.RGBA{R: 30, G: 30, B: 30, A: 255}
)

// paintIcon renders a 64px icon the way the game draws slot art: interior
// pattern framed by a 3px rarity border.
func paintIcon(interior func(x, y int) color.RGBA, border color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := interior(x, y)
			if x < 3 || y < 3 || x >= 61 || y >= 61 {
				c = border
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func blockArt(base color.RGBA) func(x, y int) color.RGBA {
	return func(x, y int) color.RGBA {
		if x%16 < 3 || y%16 < 3 {
			return testInk
		}
		return base
	}
}

// stripeArt paints horizontal bands only, so icons built from it contribute
// no vertical edges of their own to grid localization.
func stripeArt(base color.RGBA, period, duty int) func(x, y int) color.RGBA {
	return func(_, y int) color.RGBA {
		if y%period < duty {
			return testInk
		}
		return base
	}
}

func testEntities() []catalog.Entity {
	return []catalog.Entity{
		{ID: "dragonfire", Name: "Dragonfire", Kind: catalog.KindItem, Rarity: catalog.RarityRare},
		{ID: "hero_sword", Name: "Hero Sword", Kind: catalog.KindWeapon, Rarity: catalog.RarityEpic},
		{ID: "ice_cube", Name: "Ice Cube", Kind: catalog.KindItem, Rarity: catalog.RarityCommon},
	}
}

func writeTestIcon(t *testing.T, dir, rel string, img image.Image) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// newTestSession builds a session over a three-entity catalog with on-disk
// icons: red block art for dragonfire, red stripes for hero_sword, light
// blue stripes for ice_cube. The distinct hues exercise the color-bucket
// candidate narrowing and the baked-in borders satisfy rarity validation.
func newTestSession(t *testing.T) (*Session, *template.Store) {
	t.Helper()

	dir := t.TempDir()
	writeTestIcon(t, dir, filepath.Join("images", "items", "dragonfire.png"),
		paintIcon(blockArt(testRed), catalog.RarityRare.BorderColor()))
	writeTestIcon(t, dir, filepath.Join("images", "weapons", "hero_sword.png"),
		paintIcon(stripeArt(testRed, 8, 3), catalog.RarityEpic.BorderColor()))
	writeTestIcon(t, dir, filepath.Join("images", "items", "ice_cube.png"),
		paintIcon(stripeArt(testBlue, 16, 6), catalog.RarityCommon.BorderColor()))

	cat := catalog.New(testEntities())
	store := template.NewStore(cat, dir)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, cat, conf.Defaults().Scan, log), store
}

func fillRGBA(img *image.RGBA, c color.RGBA) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func pngBlob(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
