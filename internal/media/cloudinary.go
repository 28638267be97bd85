package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
)

var ErrUploadFailed = errors.New("media: upload failed")

// Image is an uploaded file as received from a multipart form.
type Image struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type Uploader interface {
	// Upload stores the image and returns its public URL.
	Upload(ctx context.Context, image Image) (string, error)
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cfg config.CloudinaryConfig) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}

	return &CloudinaryUploader{cld: cld, folder: cfg.Folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, image Image) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, image.Reader, uploader.UploadParams{
		Folder: u.folder,
	})
	if err != nil {
		log.Error().Err(err).Str("filename", image.Filename).Msg("media: cloudinary upload failed")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if res.Error.Message != "" {
		log.Error().Str("cloudinary_error", res.Error.Message).Str("filename", image.Filename).Msg("media: cloudinary rejected upload")
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, res.Error.Message)
	}

	log.Debug().Str("public_id", res.PublicID).Str("filename", image.Filename).Msg("media: image uploaded")
	return res.SecureURL, nil
}
