package uploader

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Folder ticket QR images are stored under
const TicketFolder = "zestpass/tickets"

// Image storage for rendered ticket QR codes. Returns the public URL of the stored image
type ImageUploader interface {
	UploadImage(ctx context.Context, name string, image []byte) (string, error)
}

// Cloudinary service
type CloudinaryService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// Constructor for cloudinary service
func NewCloudinaryService(cloudName, cloudKey, cloudSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, cloudKey, cloudSecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryService{cld: cld, folder: TicketFolder}, nil
}

// Upload a PNG under `name`. Uploading the same name again replaces the image
func (service *CloudinaryService) UploadImage(ctx context.Context, name string, image []byte) (string, error) {
	resp, err := service.cld.Upload.Upload(ctx, bytes.NewReader(image), uploader.UploadParams{
		PublicID: name,
		Folder:   service.folder,
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload rejected: %s", resp.Error.Message)
	}

	return resp.SecureURL, nil
}

// Uploader for local runs without cloud storage: the "URL" is the image itself as a data URL
type DataURLUploader struct{}

func (DataURLUploader) UploadImage(ctx context.Context, name string, image []byte) (string, error) {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image), nil
}
