package router

import (
	"net/http"
	"strings"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/endpoints"
)

func ConversationRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		services := s.Services()
		base := strings.TrimRight(prefix, "/")
		convEndpoints := endpoints.NewConversationEndpoints(services.Conversations, services.Streams, endpoints.ConversationPaths{
			ConversationPrefix: base + "/conversations/",
		})

		mux.HandleFunc(base+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.Conversations, s.RequireSession()))
		mux.HandleFunc(base+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.Conversation, s.RequireSession()))
	}
}

func ConversationWebsocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		services := s.Services()
		base := strings.TrimRight(prefix, "/")
		convEndpoints := endpoints.NewConversationEndpoints(services.Conversations, services.Streams, endpoints.ConversationPaths{
			StreamPrefix: base + "/conversations/",
		})

		mux.HandleFunc(base+"/conversations", s.MakeHTTPHandleFunc(convEndpoints.ConversationsStream, s.RequireSession()))
		mux.HandleFunc(base+"/conversations/", s.MakeHTTPHandleFunc(convEndpoints.MessagesStream, s.RequireSession()))
	}
}
