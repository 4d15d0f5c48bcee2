package media

import (
	"context"
	"errors"
	"io"
	"strings"

	"chatting-demo-backend/internal/model"

	"github.com/rs/zerolog"
)

// Blobs stores media bytes and hands out download URLs.
type Blobs interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	URL(ctx context.Context, key string) (string, error)
}

type Resolver struct {
	blobs  Blobs
	logger zerolog.Logger
}

func NewResolver(blobs Blobs, logger zerolog.Logger) *Resolver {
	return &Resolver{
		blobs:  blobs,
		logger: logger.With().Str("service", "media").Logger(),
	}
}

func (r *Resolver) DownloadURL(ctx context.Context, path string) (string, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if !ValidPath(path) {
		return "", newError(ErrorCodeValidation, "media path is invalid", nil)
	}
	url, err := r.blobs.URL(ctx, path)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return "", newError(ErrorCodeNotFound, "media not found", err)
		}
		return "", newError(ErrorCodeInternal, "failed to resolve media url", err)
	}
	return url, nil
}

// Upload stores body at path and returns its download URL.
func (r *Resolver) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if !ValidPath(path) {
		return "", newError(ErrorCodeValidation, "media path is invalid", nil)
	}
	if err := r.blobs.Put(ctx, path, body, contentType); err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("upload failed")
		return "", newError(ErrorCodeWriteFailure, "failed to upload media", err)
	}
	url, err := r.blobs.URL(ctx, path)
	if err != nil {
		return "", newError(ErrorCodeInternal, "failed to resolve media url", err)
	}
	r.logger.Info().Str("path", path).Msg("media uploaded")
	return url, nil
}

func (r *Resolver) UploadProfilePicture(ctx context.Context, email string, body io.Reader, contentType string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", newError(ErrorCodeValidation, "email is required", nil)
	}
	return r.Upload(ctx, ProfilePicturePath(email), body, contentType)
}

// UploadMessageMedia stores a photo or video attachment of messageID.
func (r *Resolver) UploadMessageMedia(ctx context.Context, kind model.MessageKind, messageID, ext string, body io.Reader, contentType string) (string, error) {
	if !kind.IsMedia() {
		return "", newError(ErrorCodeValidation, "kind must be photo or video", nil)
	}
	if strings.TrimSpace(messageID) == "" {
		return "", newError(ErrorCodeValidation, "message id is required", nil)
	}
	path, err := MessageMediaPath(kind, MessageMediaFileName(kind, messageID, ext))
	if err != nil {
		return "", newError(ErrorCodeValidation, err.Error(), err)
	}
	return r.Upload(ctx, path, body, contentType)
}
