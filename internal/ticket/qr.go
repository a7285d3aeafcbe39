package ticket

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 256

var (
	// ErrNoCode is returned when an image holds no readable QR code.
	ErrNoCode   = errors.New("no code found")
	ErrBadImage = errors.New("unreadable image")
)

// QRPNG renders the payload's JSON text as a QR code PNG.
func QRPNG(p Payload, size int) ([]byte, error) {
	data, err := Marshal(p)
	if err != nil {
		return nil, err
	}
	return TextPNG(string(data), size)
}

// TextPNG renders arbitrary text as a QR code PNG.
func TextPNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// DataURL wraps PNG bytes for direct use in an <img> src.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// ScanImage decodes a PNG or JPEG image and returns the text of the QR code
// it contains.
func ScanImage(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", ErrNoCode
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}
