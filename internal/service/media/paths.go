package media

import (
	"fmt"
	"path"
	"strings"

	"chatting-demo-backend/internal/model"
)

const (
	ProfileImagesPrefix = "images"
	MessageImagesPrefix = "message_images"
	MessageVideosPrefix = "message_videos"

	profilePictureSuffix = "_profile_pic.png"
)

func ProfilePictureFileName(email string) string {
	return model.IdentityKey(email) + profilePictureSuffix
}

func ProfilePicturePath(email string) string {
	return path.Join(ProfileImagesPrefix, ProfilePictureFileName(email))
}

// MessageMediaFileName names an attachment after the message that carries it.
func MessageMediaFileName(kind model.MessageKind, messageID, ext string) string {
	id := strings.NewReplacer(" ", "-", "/", "-").Replace(strings.TrimSpace(messageID))
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = defaultExtension(kind)
	}
	return fmt.Sprintf("%s_message_%s.%s", kind, id, ext)
}

func MessageMediaPath(kind model.MessageKind, fileName string) (string, error) {
	switch kind {
	case model.MessageKindPhoto:
		return path.Join(MessageImagesPrefix, fileName), nil
	case model.MessageKindVideo:
		return path.Join(MessageVideosPrefix, fileName), nil
	}
	return "", fmt.Errorf("no media prefix for kind %q", kind)
}

// ValidPath reports whether p names a file directly below a known prefix.
func ValidPath(p string) bool {
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if file == "" || file == "." || file == ".." || strings.Contains(p, "..") {
		return false
	}
	switch dir {
	case ProfileImagesPrefix, MessageImagesPrefix, MessageVideosPrefix:
		return true
	}
	return false
}

func defaultExtension(kind model.MessageKind) string {
	if kind == model.MessageKindVideo {
		return "mov"
	}
	return "png"
}
