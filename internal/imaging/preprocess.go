// Package imaging turns uploaded leaf photos into the input tensor of the
// disease model.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// InputSize is the square edge the model was trained on
const InputSize = 224

const (
	// MaxUploadBytes bounds the encoded image read from the client.
	MaxUploadBytes = 10 << 20

	// MaxPixels bounds the decoded size (4096x4096); the header is checked
	// before any pixel buffer is allocated.
	MaxPixels = 4096 * 4096
)

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrImageTooLarge = errors.New("image is too large")
)

// Preprocess decodes a JPEG, PNG or WebP image, resizes it to InputSize
// square and returns it as [row][col][rgb] with channels scaled to [0,1].
func Preprocess(r io.Reader) ([][][]float32, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, MaxUploadBytes)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, format, ErrEmptyImage
	}
	if int64(config.Width)*int64(config.Height) > MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, config.Width, config.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if src.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}

	return Tensor(Resize(src, InputSize)), format, nil
}

// Resize scales src to a size x size NRGBA image. Aspect ratio is not kept,
// matching how the model's training images were prepared. Colour channels
// stay unpremultiplied so translucent pixels keep their colour.
func Resize(src image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Tensor drops alpha and normalizes every channel to [0,1]
func Tensor(img *image.NRGBA) [][][]float32 {
	b := img.Bounds()
	tensor := make([][][]float32, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([][]float32, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			row[x] = []float32{
				float32(img.Pix[i]) / 255,
				float32(img.Pix[i+1]) / 255,
				float32(img.Pix[i+2]) / 255,
			}
		}
		tensor[y] = row
	}
	return tensor
}
