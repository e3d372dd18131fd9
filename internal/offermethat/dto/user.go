// Light transfer structs returned by the API. Conversion from dao models
// happens in the dao package via ToDTO/ToLightDTO methods.
package dto

import "time"

type UserLight struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type User struct {
	UserLight
	CreatedAt time.Time `json:"created_at"`
}

type FileAsset struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	FileSize    int    `json:"size"`
	ContentType string `json:"content_type"`
	URL         string `json:"url,omitempty"`
}

type Attachment struct {
	Id        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Asset     *FileAsset `json:"file_details"`
}
