package router

import (
	"net/http"
	"strings"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/endpoints"
)

// UserRoutes registers the directory. Registration is the only route that
// does not need a session.
func UserRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		services := s.Services()
		base := strings.TrimRight(prefix, "/")
		userEndpoints := endpoints.NewUserEndpoints(services.Directory, services.Sessions)

		users := s.MakeHTTPHandleFunc(userEndpoints.Users, s.RequireSession())
		register := s.MakeHTTPHandleFunc(userEndpoints.Register)
		mux.HandleFunc(base+"/users", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				register(w, r)
				return
			}
			users(w, r)
		})
		mux.HandleFunc(base+"/users/search", s.MakeHTTPHandleFunc(userEndpoints.Search, s.RequireSession()))
		mux.HandleFunc(base+"/users/exists", s.MakeHTTPHandleFunc(userEndpoints.Exists, s.RequireSession()))
		mux.HandleFunc(base+"/users/profile", s.MakeHTTPHandleFunc(userEndpoints.Profile, s.RequireSession()))
	}
}
