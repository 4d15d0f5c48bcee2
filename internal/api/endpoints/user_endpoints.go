package endpoints

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"chatting-demo-backend/internal/dto"
	"chatting-demo-backend/internal/jwt"
	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/service/directory"
)

type UserEndpoints interface {
	Register(http.ResponseWriter, *http.Request) error
	Users(http.ResponseWriter, *http.Request) error
	Search(http.ResponseWriter, *http.Request) error
	Exists(http.ResponseWriter, *http.Request) error
	Profile(http.ResponseWriter, *http.Request) error
}

type userEndpoints struct {
	directory *directory.Service
	sessions  *jwt.Issuer
}

func NewUserEndpoints(directory *directory.Service, sessions *jwt.Issuer) UserEndpoints {
	return &userEndpoints{directory: directory, sessions: sessions}
}

func (h *userEndpoints) Register(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRegister,
	})
}

func (h *userEndpoints) Users(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListUsers,
	})
}

func (h *userEndpoints) Search(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSearch,
	})
}

func (h *userEndpoints) Exists(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleExists,
	})
}

func (h *userEndpoints) Profile(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleProfile,
	})
}

// handleRegister stores the user, lists it in the directory and returns a
// session token. A directory failure still returns the token with 207.
func (h *userEndpoints) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req dto.RegisterUserRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.directory.RegisterUser(r.Context(), model.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	status := http.StatusCreated
	if err != nil {
		if directory.CodeOf(err) != directory.ErrorCodePartialFailure {
			return serviceError(err)
		}
		status = http.StatusMultiStatus
	}

	token, err := h.sessions.CreateToken(model.Session{Email: result.User.Email, Name: result.User.DisplayName()})
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("create session token: %w", err),
		}
	}

	resp := dto.RegisterUserResponse{
		User:             toUserResponse(result.User),
		AccessToken:      token.AccessToken,
		ExpiresAt:        token.ExpiresAt,
		DirectoryUpdated: result.DirectoryUpdated,
		AlreadyListed:    result.AlreadyListed,
	}
	if result.DirectoryErr != nil {
		resp.Errors = []dto.StepError{stepError("directory", result.DirectoryErr)}
	}
	return WriteJSON(w, status, resp)
}

func (h *userEndpoints) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	entries, err := h.directory.ListAllUsers(r.Context())
	if err != nil {
		return serviceError(err)
	}
	resp := dto.ListUsersResponse{Users: make([]dto.DirectoryEntryResponse, len(entries))}
	for i, entry := range entries {
		resp.Users[i] = dto.DirectoryEntryResponse{Name: entry.Name, Email: entry.Email}
	}
	return WriteJSON(w, http.StatusOK, resp)
}

// handleSearch filters the caller's cached directory copy. refresh=true
// drops the cache first.
func (h *userEndpoints) handleSearch(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}

	searcher := h.directory.SearcherFor(session)
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		searcher.Reset()
	}

	results, err := searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return serviceError(err)
	}
	resp := dto.SearchUsersResponse{Results: make([]dto.DirectoryEntryResponse, len(results))}
	for i, res := range results {
		resp.Results[i] = dto.DirectoryEntryResponse{Name: res.Name, Email: res.Email}
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *userEndpoints) handleExists(w http.ResponseWriter, r *http.Request) error {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	exists, err := h.directory.UserExists(r.Context(), email)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.UserExistsResponse{Email: email, Exists: exists})
}

// handleProfile returns the caller's profile, or another user's when email
// is given.
func (h *userEndpoints) handleProfile(w http.ResponseWriter, r *http.Request) error {
	session, err := sessionFrom(r)
	if err != nil {
		return err
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		email = session.Email
	}

	user, err := h.directory.GetProfile(r.Context(), email)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user model.User) dto.UserResponse {
	return dto.UserResponse{
		Email:       user.Email,
		IdentityKey: user.IdentityKey(),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Name:        user.DisplayName(),
	}
}
