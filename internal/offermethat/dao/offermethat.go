// DAO layer. GORM models for owners, listings, forms and submitted records,
// plus the shared file asset storage bookkeeping.
package dao

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/config"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

var Config *config.Config
var FileStorage filestorage.FileStorage

type FileAsset struct {
	Id          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedById uuid.NullUUID `json:"created_by,omitempty" gorm:"type:uuid" extensions:"x-nullable"`

	OwnerId   uuid.NullUUID `json:"owner,omitempty" gorm:"type:uuid"`
	FormId    uuid.NullUUID `json:"form,omitempty" gorm:"type:uuid"`
	ListingId uuid.NullUUID `json:"listing,omitempty" gorm:"type:uuid"`

	Name        string `json:"name" gorm:"index"`
	FileSize    int    `json:"size"`
	ContentType string `json:"content_type"`

	Author *User `json:"-" gorm:"foreignKey:CreatedById" extensions:"x-nullable"`
}

func (FileAsset) TableName() string { return "file_assets" }

// BeforeDelete removes the blob before the row goes away.
func (asset *FileAsset) BeforeDelete(tx *gorm.DB) error {
	exist, err := FileStorage.Exist(asset.Id)
	if err != nil {
		return err
	}

	if exist {
		if err := FileStorage.Delete(asset.Id); err != nil {
			return err
		}
	}
	return nil
}

// CanBeDeleted reports whether no attachment, avatar or listing photo still
// references this asset.
func (asset *FileAsset) CanBeDeleted(tx *gorm.DB) (bool, error) {
	var exists bool
	if err := tx.Raw(`
        SELECT EXISTS(SELECT 1 FROM form_attachments WHERE asset_id = ?)
           OR EXISTS(SELECT 1 FROM users WHERE avatar_id = ?)
           OR EXISTS(SELECT 1 FROM listing_photos WHERE asset_id = ?)`,
		asset.Id, asset.Id, asset.Id).Scan(&exists).Error; err != nil {
		return false, err
	}
	return !exists, nil
}

func (asset *FileAsset) ToDTO() *dto.FileAsset {
	if asset == nil {
		return nil
	}
	return &dto.FileAsset{
		Id:          asset.Id.String(),
		Name:        asset.Name,
		FileSize:    asset.FileSize,
		ContentType: asset.ContentType,
		URL:         FileStorage.FileURL(asset.Id),
	}
}
