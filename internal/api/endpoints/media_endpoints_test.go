package endpoints

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"chatting-demo-backend/internal/dto"
)

func (e *testEnv) upload(t *testing.T, path, token string, fields map[string]string, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadMessagePhotoAndResolve(t *testing.T) {
	env := setupTestHandler(t)
	alice := env.register(t, "alice@example.com", "Alice", "Smith")

	rec := env.upload(t, "/api/v1/media/upload/photo", alice, map[string]string{"messageId": "m1"}, "cat.jpg", "image/jpeg", []byte("jpeg-bytes"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded dto.MediaURLResponse
	decode(t, rec, &uploaded)
	if uploaded.Path != "message_images/photo_message_m1.jpg" {
		t.Fatalf("unexpected path %s", uploaded.Path)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/media/url?path="+uploaded.Path, alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resolved dto.MediaURLResponse
	decode(t, rec, &resolved)
	if resolved.URL != uploaded.URL {
		t.Fatalf("resolved url %s differs from upload url %s", resolved.URL, uploaded.URL)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/media/files/"+uploaded.Path, "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg-bytes" {
		t.Fatalf("unexpected file response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}
}

func TestUploadProfilePicture(t *testing.T) {
	env := setupTestHandler(t)
	alice := env.register(t, "alice@example.com", "Alice", "Smith")

	rec := env.upload(t, "/api/v1/media/upload/profile", alice, nil, "me.png", "image/png", []byte("png"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded dto.MediaURLResponse
	decode(t, rec, &uploaded)
	if uploaded.Path != "images/alice-example-com_profile_pic.png" {
		t.Fatalf("unexpected path %s", uploaded.Path)
	}
}

func TestMediaErrors(t *testing.T) {
	env := setupTestHandler(t)
	alice := env.register(t, "alice@example.com", "Alice", "Smith")

	if rec := env.upload(t, "/api/v1/media/upload/video", alice, nil, "clip.mov", "video/quicktime", []byte("v")); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message id: expected 400, got %d", rec.Code)
	}
	if rec := env.upload(t, "/api/v1/media/upload/audio", alice, map[string]string{"messageId": "m1"}, "a.m4a", "audio/mp4", []byte("a")); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown kind: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/media/url?path=secrets/key.pem", alice, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid path: expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/media/url?path=images/missing.png", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing blob: expected 404, got %d", rec.Code)
	}
}
