package endpoints

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"chatting-demo-backend/internal/dto"
	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/service/media"
)

const maxUploadBytes = 64 << 20

type MediaEndpoints interface {
	URL(http.ResponseWriter, *http.Request) error
	Upload(http.ResponseWriter, *http.Request) error
	Files(http.ResponseWriter, *http.Request) error
}

type MediaPaths struct {
	UploadPrefix string
	FilesPrefix  string
}

type mediaEndpoints struct {
	resolver *media.Resolver
	files    *media.MemoryBlobs
	paths    MediaPaths
}

// NewMediaEndpoints serves uploads and URL lookups. files is only set when
// blobs are kept in process and must be served by this server.
func NewMediaEndpoints(resolver *media.Resolver, files *media.MemoryBlobs, paths MediaPaths) MediaEndpoints {
	return &mediaEndpoints{resolver: resolver, files: files, paths: paths}
}

func (h *mediaEndpoints) URL(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleURL,
	})
}

func (h *mediaEndpoints) Upload(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleUpload,
	})
}

func (h *mediaEndpoints) Files(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleFile,
	})
}

func (h *mediaEndpoints) handleURL(w http.ResponseWriter, r *http.Request) error {
	path := r.URL.Query().Get("path")
	url, err := h.resolver.DownloadURL(r.Context(), path)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.MediaURLResponse{Path: strings.TrimPrefix(path, "/"), URL: url})
}

// handleUpload accepts a multipart "file" at /{kind} where kind is profile,
// photo or video. Message media also needs the messageId form field.
func (h *mediaEndpoints) handleUpload(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	parts, ok := pathParts(r.URL.Path, h.paths.UploadPrefix)
	if !ok || len(parts) != 1 {
		return notFound(r.URL.Path)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "A multipart file field is required",
			Code:       string(media.ErrorCodeValidation),
			ErrorLog:   fmt.Errorf("read upload: %w", err),
		}
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var url, path string
	switch kind := parts[0]; kind {
	case "profile":
		path = media.ProfilePicturePath(session.Email)
		url, err = h.resolver.UploadProfilePicture(r.Context(), session.Email, file, contentType)
	case string(model.MessageKindPhoto), string(model.MessageKindVideo):
		messageID := strings.TrimSpace(r.FormValue("messageId"))
		if messageID == "" {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "messageId is required",
				Code:       string(media.ErrorCodeValidation),
				ErrorLog:   fmt.Errorf("upload %s without message id", kind),
			}
		}
		mk := model.MessageKind(kind)
		ext := filepath.Ext(header.Filename)
		path, _ = media.MessageMediaPath(mk, media.MessageMediaFileName(mk, messageID, ext))
		url, err = h.resolver.UploadMessageMedia(r.Context(), mk, messageID, ext, file, contentType)
	default:
		return notFound(r.URL.Path)
	}
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.MediaURLResponse{Path: path, URL: url})
}

func (h *mediaEndpoints) handleFile(w http.ResponseWriter, r *http.Request) error {
	if h.files == nil {
		return notFound(r.URL.Path)
	}
	key := strings.TrimPrefix(r.URL.Path, h.paths.FilesPrefix)
	if !media.ValidPath(key) {
		return notFound(r.URL.Path)
	}
	data, contentType, ok := h.files.Object(key)
	if !ok {
		return notFound(r.URL.Path)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(data)
	return err
}
