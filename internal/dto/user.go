package dto

type RegisterUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type UserResponse struct {
	Email       string `json:"email"`
	IdentityKey string `json:"identityKey"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Name        string `json:"name"`
}

type RegisterUserResponse struct {
	User             UserResponse `json:"user"`
	AccessToken      string       `json:"accessToken"`
	ExpiresAt        int64        `json:"expiresAt"`
	DirectoryUpdated bool         `json:"directoryUpdated"`
	AlreadyListed    bool         `json:"alreadyListed"`
	Errors           []StepError  `json:"errors,omitempty"`
}

type DirectoryEntryResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ListUsersResponse struct {
	Users []DirectoryEntryResponse `json:"users"`
}

type SearchUsersResponse struct {
	Results []DirectoryEntryResponse `json:"results"`
}

type UserExistsResponse struct {
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}
