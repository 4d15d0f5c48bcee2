package router

import (
	"net/http"
	"strings"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/endpoints"
	"chatting-demo-backend/internal/service/media"
)

// MediaRoutes registers media lookups and uploads. When files is set the
// in-process blobs are served below /media/files/.
func MediaRoutes(prefix string, files *media.MemoryBlobs) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")
		paths := endpoints.MediaPaths{
			UploadPrefix: base + "/media/upload/",
			FilesPrefix:  base + "/media/files/",
		}
		mediaEndpoints := endpoints.NewMediaEndpoints(s.Services().Media, files, paths)

		mux.HandleFunc(base+"/media/url", s.MakeHTTPHandleFunc(mediaEndpoints.URL, s.RequireSession()))
		mux.HandleFunc(paths.UploadPrefix, s.MakeHTTPHandleFunc(mediaEndpoints.Upload, s.RequireSession()))
		if files != nil {
			mux.HandleFunc(paths.FilesPrefix, s.MakeHTTPHandleFunc(mediaEndpoints.Files))
		}
	}
}

// MediaFilesURL is the public base URL of in-process blobs for a server
// reachable at publicBase.
func MediaFilesURL(publicBase, prefix string) string {
	return strings.TrimRight(publicBase, "/") + strings.TrimRight(prefix, "/") + "/media/files"
}
