package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"chatting-demo-backend/internal/model"

	"github.com/rs/zerolog"
)

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, io.Reader, string) error {
	return errors.New("unavailable")
}

func (failingBlobs) URL(context.Context, string) (string, error) {
	return "", errors.New("unavailable")
}

func TestPathConventions(t *testing.T) {
	if got := ProfilePicturePath("alice@example.com"); got != "images/alice-example-com_profile_pic.png" {
		t.Fatalf("unexpected profile path %s", got)
	}
	name := MessageMediaFileName(model.MessageKindPhoto, "m 1", "")
	if name != "photo_message_m-1.png" {
		t.Fatalf("unexpected file name %s", name)
	}
	p, err := MessageMediaPath(model.MessageKindVideo, MessageMediaFileName(model.MessageKindVideo, "m2", ".mp4"))
	if err != nil || p != "message_videos/video_message_m2.mp4" {
		t.Fatalf("unexpected video path %s %v", p, err)
	}
	if _, err := MessageMediaPath(model.MessageKindText, "x"); err == nil {
		t.Fatal("expected error for text kind")
	}
}

func TestValidPath(t *testing.T) {
	valid := []string{"images/a_profile_pic.png", "message_images/x.png", "message_videos/y.mov"}
	for _, p := range valid {
		if !ValidPath(p) {
			t.Fatalf("expected %s to be valid", p)
		}
	}
	invalid := []string{"", "images/", "other/x.png", "images/../secret", "message_images/a/b.png", "x.png"}
	for _, p := range invalid {
		if ValidPath(p) {
			t.Fatalf("expected %s to be invalid", p)
		}
	}
}

func TestUploadAndDownload(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobs("https://cdn.example.com/")
	r := NewResolver(blobs, zerolog.Nop())

	url, err := r.UploadProfilePicture(ctx, "alice@example.com", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UploadProfilePicture error: %v", err)
	}
	if url != "https://cdn.example.com/images/alice-example-com_profile_pic.png" {
		t.Fatalf("unexpected url %s", url)
	}
	data, contentType, ok := blobs.Object("images/alice-example-com_profile_pic.png")
	if !ok || string(data) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected stored object %q %q %v", data, contentType, ok)
	}

	got, err := r.DownloadURL(ctx, "/images/alice-example-com_profile_pic.png")
	if err != nil || got != url {
		t.Fatalf("unexpected download url %s %v", got, err)
	}

	mediaURL, err := r.UploadMessageMedia(ctx, model.MessageKindPhoto, "m1", "jpg", strings.NewReader("x"), "image/jpeg")
	if err != nil {
		t.Fatalf("UploadMessageMedia error: %v", err)
	}
	if mediaURL != "https://cdn.example.com/message_images/photo_message_m1.jpg" {
		t.Fatalf("unexpected media url %s", mediaURL)
	}
}

func TestDownloadURLErrors(t *testing.T) {
	r := NewResolver(NewMemoryBlobs("https://cdn.example.com"), zerolog.Nop())

	_, err := r.DownloadURL(context.Background(), "images/missing.png")
	if CodeOf(err) != ErrorCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	_, err = r.DownloadURL(context.Background(), "secrets/key.pem")
	if CodeOf(err) != ErrorCodeValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
	_, err = r.UploadMessageMedia(context.Background(), model.MessageKindAudio, "m1", "", strings.NewReader("x"), "")
	if CodeOf(err) != ErrorCodeValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestUploadFailureIsWriteFailure(t *testing.T) {
	r := NewResolver(failingBlobs{}, zerolog.Nop())
	_, err := r.Upload(context.Background(), "message_images/a.png", strings.NewReader("x"), "image/png")
	if CodeOf(err) != ErrorCodeWriteFailure {
		t.Fatalf("expected write_failure, got %v", err)
	}
}
