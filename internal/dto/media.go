package dto

type MediaURLResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}
