package dao

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	policy "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/redactor-policy"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Listing struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerId uuid.UUID `json:"owner_id" gorm:"type:uuid;index"`
	Owner   *User     `json:"owner_detail" gorm:"foreignKey:OwnerId" extensions:"x-nullable"`

	Address     string   `json:"address" validate:"required"`
	Suburb      string   `json:"suburb"`
	State       string   `json:"state"`
	Postcode    string   `json:"postcode"`
	Price       *float64 `json:"price" extensions:"x-nullable"`
	Description string   `json:"description"`

	Status string `json:"status" gorm:"default:active;index"`

	Photos  []ListingPhoto  `json:"-" gorm:"foreignKey:ListingId"`
	Sellers []ListingSeller `json:"sellers" gorm:"foreignKey:ListingId"`
}

func (Listing) TableName() string { return "listings" }

func (listing *Listing) BeforeSave(tx *gorm.DB) error {
	listing.Address = policy.StripTagsPolicy.Sanitize(listing.Address)
	listing.Suburb = policy.StripTagsPolicy.Sanitize(listing.Suburb)
	listing.Description = policy.UgcPolicy.Sanitize(listing.Description)
	return nil
}

// BeforeDelete detaches records and drops sellers and photos. Offers and
// leads survive listing deletion, they fall back to unassigned.
func (listing *Listing) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Model(&Offer{}).Where("listing_id = ?", listing.ID).
		Updates(map[string]interface{}{"listing_id": nil, "status": types.StatusUnassigned}).Error; err != nil {
		return err
	}
	if err := tx.Model(&Lead{}).Where("listing_id = ?", listing.ID).
		Updates(map[string]interface{}{"listing_id": nil, "status": types.StatusUnassigned}).Error; err != nil {
		return err
	}

	if err := tx.Where("listing_id = ?", listing.ID).Delete(&ListingSeller{}).Error; err != nil {
		return err
	}

	var photos []ListingPhoto
	if err := tx.Where("listing_id = ?", listing.ID).Find(&photos).Error; err != nil {
		return err
	}
	for _, photo := range photos {
		if err := tx.Delete(&photo).Error; err != nil {
			return err
		}
	}
	return nil
}

func (listing *Listing) ToLightDTO() *dto.ListingLight {
	if listing == nil {
		return nil
	}

	photos := make([]string, len(listing.Photos))
	for i, photo := range listing.Photos {
		photos[i] = FileStorage.FileURL(photo.AssetId)
	}

	return &dto.ListingLight{
		ID:        listing.ID.String(),
		Address:   listing.Address,
		Suburb:    listing.Suburb,
		State:     listing.State,
		Postcode:  listing.Postcode,
		Price:     listing.Price,
		Status:    listing.Status,
		Photos:    photos,
		CreatedAt: listing.CreatedAt,
	}
}

func (listing *Listing) ToDTO() *dto.Listing {
	if listing == nil {
		return nil
	}

	sellers := make([]dto.ListingSeller, len(listing.Sellers))
	for i, seller := range listing.Sellers {
		sellers[i] = *seller.ToDTO()
	}

	return &dto.Listing{
		ListingLight: *listing.ToLightDTO(),
		Description:  listing.Description,
		Owner:        listing.Owner.ToLightDTO(),
		Sellers:      sellers,
	}
}

type ListingSeller struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ListingId uuid.UUID `json:"listing_id" gorm:"type:uuid;index"`
	Listing   *Listing  `json:"-" gorm:"foreignKey:ListingId" extensions:"x-nullable"`

	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (ListingSeller) TableName() string { return "listing_sellers" }

func (seller *ListingSeller) BeforeSave(tx *gorm.DB) error {
	seller.Name = policy.StripTagsPolicy.Sanitize(seller.Name)
	return nil
}

func (seller *ListingSeller) ToDTO() *dto.ListingSeller {
	if seller == nil {
		return nil
	}
	return &dto.ListingSeller{
		ID:    seller.ID.String(),
		Name:  seller.Name,
		Email: seller.Email,
		Phone: seller.Phone,
	}
}

type ListingPhoto struct {
	Id        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time `json:"created_at"`

	ListingId uuid.UUID `json:"listing" gorm:"type:uuid;index"`
	AssetId   uuid.UUID `json:"asset" gorm:"type:uuid"`

	Asset *FileAsset `json:"file_details" gorm:"foreignKey:AssetId" extensions:"x-nullable"`
}

func (ListingPhoto) TableName() string { return "listing_photos" }

// AfterDelete removes the backing asset when no other row references it.
func (photo *ListingPhoto) AfterDelete(tx *gorm.DB) error {
	if photo.Asset == nil {
		if err := tx.Where("id = ?", photo.AssetId).First(&photo.Asset).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
	}

	del, err := photo.Asset.CanBeDeleted(tx)
	if err != nil {
		return err
	}
	if del {
		return tx.Delete(photo.Asset).Error
	}
	return nil
}
