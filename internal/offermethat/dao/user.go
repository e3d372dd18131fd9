package dao

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	policy "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/redactor-policy"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `json:"email" gorm:"uniqueIndex;not null" validate:"required,email"`
	Password string `json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Username is the opaque public key under which the owner's forms are
	// served. Not chosen by the user.
	Username string `json:"username" gorm:"uniqueIndex;not null"`

	AvatarId uuid.NullUUID `json:"avatar_id" gorm:"type:uuid" extensions:"x-nullable"`
	Avatar   *FileAsset    `json:"-" gorm:"foreignKey:AvatarId" extensions:"x-nullable"`

	LastLoginTime  *time.Time `json:"last_login_time" extensions:"x-nullable"`
	TokenUpdatedAt *time.Time `json:"-" extensions:"x-nullable"`

	IsActive    bool `json:"is_active" gorm:"default:true"`
	IsSuperuser bool `json:"-" gorm:"default:false"`
}

func (User) TableName() string { return "users" }

func (user *User) BeforeSave(tx *gorm.DB) error {
	user.FirstName = policy.StripTagsPolicy.Sanitize(user.FirstName)
	user.LastName = policy.StripTagsPolicy.Sanitize(user.LastName)
	return nil
}

// BeforeDelete drops everything the owner holds: listings, forms and the
// records submitted to them.
func (user *User) BeforeDelete(tx *gorm.DB) error {
	var forms []Form
	if err := tx.Where("owner_id = ?", user.ID).Find(&forms).Error; err != nil {
		return err
	}
	for _, form := range forms {
		if err := tx.Delete(&form).Error; err != nil {
			return err
		}
	}

	var listings []Listing
	if err := tx.Where("owner_id = ?", user.ID).Find(&listings).Error; err != nil {
		return err
	}
	for _, listing := range listings {
		if err := tx.Delete(&listing).Error; err != nil {
			return err
		}
	}
	return nil
}

// AfterDelete removes the avatar asset if nothing else references it.
func (user *User) AfterDelete(tx *gorm.DB) error {
	if !user.AvatarId.Valid {
		return nil
	}

	asset := FileAsset{Id: user.AvatarId.UUID}
	del, err := asset.CanBeDeleted(tx)
	if err != nil {
		return err
	}
	if del {
		return tx.Delete(&asset).Error
	}
	return nil
}

func (user *User) GetName() string {
	if user == nil {
		return ""
	}
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}

func (user *User) GetAvatarURL() string {
	if user == nil || !user.AvatarId.Valid {
		return ""
	}
	return FileStorage.FileURL(user.AvatarId.UUID)
}

func (user *User) ToLightDTO() *dto.UserLight {
	if user == nil {
		return nil
	}
	return &dto.UserLight{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		AvatarURL: user.GetAvatarURL(),
	}
}

func (user *User) ToDTO() *dto.User {
	if user == nil {
		return nil
	}
	return &dto.User{
		UserLight: *user.ToLightDTO(),
		CreatedAt: user.CreatedAt,
	}
}
