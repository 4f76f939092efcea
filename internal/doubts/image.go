package doubts

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// The PDF renderer and ingest pipeline accept webp uploads; imaging
	// decodes through image.Decode, which needs the format registered.
	_ "golang.org/x/image/webp"

	"doubtabase/internal/domain"
)

// DecodeImage decodes an attachment payload, honoring EXIF orientation for
// JPEGs. Unsupported or corrupt data fails with domain.ErrValidation.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image: %v", domain.ErrValidation, err)
	}
	return img, nil
}

// EncodePNG re-encodes an image as PNG. Used to hand the PDF renderer one
// format regardless of what was uploaded.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeImageToPNG decodes then re-encodes to PNG in one step.
func NormalizeImageToPNG(data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}
