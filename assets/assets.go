package assets

import (
	"bytes"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/examples/resources/fonts"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

var (
	MPlus1pRegular *text.GoTextFaceSource

	Player     *ebiten.Image
	Enemy      *ebiten.Image
	Bystander  *ebiten.Image
	Projectile *ebiten.Image
	Surface    *ebiten.Image
)

func init() {
	MPlus1pRegular = must(text.NewGoTextFaceSource(bytes.NewReader(fonts.MPlus1pRegular_ttf)))

	Player = solid(color.RGBA{R: 0x3a, G: 0xa0, B: 0xff, A: 0xff})
	Enemy = solid(color.RGBA{R: 0xe5, G: 0x48, B: 0x48, A: 0xff})
	Bystander = solid(color.RGBA{R: 0x9a, G: 0x9a, B: 0x9a, A: 0xff})
	Projectile = solid(color.RGBA{R: 0xff, G: 0xe0, B: 0x66, A: 0xff})
	Surface = solid(color.RGBA{R: 0x4c, G: 0x41, B: 0x3b, A: 0xff})
}

func solid(c color.Color) *ebiten.Image {
	img := ebiten.NewImage(1, 1)
	img.Fill(c)
	return img
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}
