package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/mediscan-triage-server/internal/domain"
)

// ErrNoUpload is returned when Validate is called without an upload.
var ErrNoUpload = errors.New("no image upload to validate")

// MaxImagePixels caps width*height before the pixel data is decoded.
const MaxImagePixels = 89_478_485

// ImageValidator checks uploaded images and reports their metadata. The
// whole image is decoded to prove it is readable, but the pixels are never
// inspected.
type ImageValidator struct {
	logger *logrus.Logger
}

// NewImageValidator creates a new image validator
func NewImageValidator(logger *logrus.Logger) *ImageValidator {
	return &ImageValidator{logger: logger}
}

// Validate checks the declared content type, reads the image header, then
// decodes the full image. A content type without the image/ prefix yields
// ErrInvalidContentType and the payload is not read. Bytes that no
// registered decoder accepts, truncated pixel data and images larger than
// MaxImagePixels yield ErrInvalidImage. Failures to read the upload are
// returned as plain errors.
func (v *ImageValidator) Validate(upload *domain.ImageUpload) (*domain.ImageMetadata, error) {
	if upload == nil || upload.Open == nil {
		return nil, ErrNoUpload
	}

	if !isImageContentType(upload.ContentType) {
		v.logger.WithFields(logrus.Fields{
			"content_type":   upload.ContentType,
			"image_filename": upload.Filename,
		}).Debug("Rejected upload with non-image content type")
		return nil, domain.NewClientError(domain.ErrInvalidContentType,
			fmt.Errorf("declared content type %q", upload.ContentType))
	}

	data, err := readUpload(upload)
	if err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		v.logger.WithFields(logrus.Fields{
			"content_type":   upload.ContentType,
			"image_filename": upload.Filename,
			"size_bytes":     len(data),
		}).WithError(err).Debug("Rejected undecodable image")
		return nil, domain.NewClientError(domain.ErrInvalidImage, err)
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxImagePixels {
		v.logger.WithFields(logrus.Fields{
			"image_filename": upload.Filename,
			"image_width":    cfg.Width,
			"image_height":   cfg.Height,
		}).Debug("Rejected oversized image")
		return nil, domain.NewClientError(domain.ErrInvalidImage,
			fmt.Errorf("image dimensions %dx%d exceed %d pixels", cfg.Width, cfg.Height, MaxImagePixels))
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		v.logger.WithFields(logrus.Fields{
			"image_filename": upload.Filename,
			"image_format":   format,
			"size_bytes":     len(data),
		}).WithError(err).Debug("Rejected image with unreadable pixel data")
		return nil, domain.NewClientError(domain.ErrInvalidImage, err)
	}

	return &domain.ImageMetadata{
		Filename: upload.Filename,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   strings.ToUpper(format),
		Mode:     colorMode(cfg.ColorModel),
	}, nil
}

func readUpload(upload *domain.ImageUpload) ([]byte, error) {
	rc, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open image upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read image upload: %w", err)
	}
	return data, nil
}

// isImageContentType compares the media type case-insensitively, as media
// types are case-insensitive on the wire.
func isImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// colorMode names the decoder's colour model with the usual channel
// descriptors: RGB, RGBA, L (grey), I;16 (16-bit grey), P (palette), CMYK.
func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}

	switch m {
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	case color.YCbCrModel, color.RGBAModel, color.RGBA64Model:
		return "RGB"
	case color.NYCbCrAModel, color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	default:
		return "UNKNOWN"
	}
}
