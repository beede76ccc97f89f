package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Store abstracts the blob bucket: keyed upload returning a public URL and
// keyed delete. Keys follow the {userId}/{timestamp}-{filename} convention,
// which existing stored links depend on.
type Store interface {
	Upload(ctx context.Context, key string, reader io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config contains credentials for the Cloudinary bucket.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore implements Store against Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary-backed store.
func New(cfg Config, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Upload stores the blob under the given key and returns its public URL.
func (s *CloudinaryStore) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", fmt.Errorf("storage key must not be empty")
	}

	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     key,
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Info().Str("key", key).Msg("blob uploaded")

	return result.SecureURL, nil
}

// Delete removes the blob stored under the given key.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	key = strings.Trim(key, "/")
	if key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	publicID := key
	if s.folder != "" {
		publicID = s.folder + "/" + key
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	if result != nil && result.Result != "" && result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete blob: %s", result.Result)
	}

	s.logger.Info().Str("key", key).Msg("blob deleted")

	return nil
}
