// Listing management endpoints: the agent's property inventory, its photos
// and the sellers attached to each listing.
package offermethat

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/OfferMeThat/OfferMeThat-sub002/pkg/limiter"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Services) AddListingServices(g *echo.Group) {
	g.GET("listings/", s.getListingList)
	g.POST("listings/", s.createListing)

	listingGroup := g.Group("listings/:listingId/", s.ListingMiddleware)
	listingGroup.GET("", s.getListing)
	listingGroup.PATCH("", s.updateListing)
	listingGroup.DELETE("", s.deleteListing)

	listingGroup.POST("photos/", s.uploadListingPhoto)
	listingGroup.DELETE("photos/:photoId/", s.deleteListingPhoto)

	listingGroup.POST("sellers/", s.createListingSeller)
	listingGroup.PATCH("sellers/:sellerId/", s.updateListingSeller)
	listingGroup.DELETE("sellers/:sellerId/", s.deleteListingSeller)
}

type ListingRequest struct {
	Address     string   `json:"address" validate:"required,address"`
	Suburb      string   `json:"suburb"`
	State       string   `json:"state"`
	Postcode    string   `json:"postcode"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Status      string   `json:"status" validate:"omitempty,oneof=active under_offer sold withdrawn"`
}

func (s *Services) getListingList(c echo.Context) error {
	ctx := c.(AuthContext)

	offset := 0
	limit := 25
	echo.QueryParamsBinder(c).Int("offset", &offset).Int("limit", &limit)
	if limit > 100 {
		limit = 100
	}

	query := s.db.
		Preload("Photos").
		Where("owner_id = ?", ctx.User.ID).
		Order("created_at desc")

	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := c.QueryParam("search"); search != "" {
		search = "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(address) like ? OR lower(suburb) like ?", search, search)
	}

	var listings []dao.Listing
	resp, err := dao.PaginationRequest(offset, limit, query, &listings)
	if err != nil {
		return EError(c, err)
	}

	res := make([]dto.ListingLight, len(listings))
	for i := range listings {
		res[i] = *listings[i].ToLightDTO()
	}
	resp.Result = res

	return c.JSON(http.StatusOK, resp)
}

func (s *Services) createListing(c echo.Context) error {
	ctx := c.(AuthContext)

	if !limiter.Limiter.CanCreateListing(ctx.User.ID) {
		return EErrorMsgStatus(c, errors.New("listing quota exceeded"), http.StatusForbidden)
	}

	var req ListingRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrListingAddressEmpty)
	}

	listing := dao.Listing{
		ID:          dao.GenUUID(),
		OwnerId:     ctx.User.ID,
		Address:     req.Address,
		Suburb:      req.Suburb,
		State:       req.State,
		Postcode:    req.Postcode,
		Price:       req.Price,
		Description: req.Description,
	}
	if req.Status != "" {
		listing.Status = req.Status
	}

	if err := s.db.Create(&listing).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusCreated, listing.ToLightDTO())
}

func (s *Services) getListing(c echo.Context) error {
	ctx := c.(ListingContext)
	ctx.Listing.Owner = ctx.User
	return c.JSON(http.StatusOK, ctx.Listing.ToDTO())
}

func (s *Services) updateListing(c echo.Context) error {
	ctx := c.(ListingContext)

	var req ListingRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrListingAddressEmpty)
	}

	ctx.Listing.Address = req.Address
	ctx.Listing.Suburb = req.Suburb
	ctx.Listing.State = req.State
	ctx.Listing.Postcode = req.Postcode
	ctx.Listing.Price = req.Price
	ctx.Listing.Description = req.Description
	if req.Status != "" {
		ctx.Listing.Status = req.Status
	}

	if err := s.db.Model(&ctx.Listing).
		Select("Address", "Suburb", "State", "Postcode", "Price", "Description", "Status").
		Updates(&ctx.Listing).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, ctx.Listing.ToLightDTO())
}

func (s *Services) deleteListing(c echo.Context) error {
	ctx := c.(ListingContext)
	if err := s.db.Delete(&ctx.Listing).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Services) uploadListingPhoto(c echo.Context) error {
	ctx := c.(ListingContext)

	if !limiter.Limiter.CanAddAttachment(ctx.User.ID) {
		return EErrorMsgStatus(c, errors.New("attachment quota exceeded"), http.StatusForbidden)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return EError(c, err)
	}
	if fileHeader.Size > 20<<20 {
		return EErrorDefined(c, apierrors.ErrListingPhotoTooLarge)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return EError(c, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return EError(c, err)
	}

	asset := dao.FileAsset{
		Id:          dao.GenUUID(),
		CreatedById: uuid.NullUUID{UUID: ctx.User.ID, Valid: true},
		OwnerId:     uuid.NullUUID{UUID: ctx.User.ID, Valid: true},
		ListingId:   uuid.NullUUID{UUID: ctx.Listing.ID, Valid: true},
		Name:        fileHeader.Filename,
		FileSize:    int(fileHeader.Size),
		ContentType: fileHeader.Header.Get("Content-Type"),
	}
	photo := dao.ListingPhoto{
		Id:        dao.GenUUID(),
		ListingId: ctx.Listing.ID,
		AssetId:   asset.Id,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&asset).Error; err != nil {
			return err
		}
		return tx.Create(&photo).Error
	}); err != nil {
		return EError(c, err)
	}

	if err := s.storage.Save(data, asset.Id, asset.ContentType, &filestorage.Metadata{
		OwnerId:   ctx.User.ID.String(),
		ListingId: ctx.Listing.ID.String(),
	}); err != nil {
		s.db.Delete(&photo)
		return EErrorDefined(c, apierrors.ErrStorageFail)
	}

	photo.Asset = &asset
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":  photo.Id,
		"url": s.storage.FileURL(asset.Id),
	})
}

func (s *Services) deleteListingPhoto(c echo.Context) error {
	ctx := c.(ListingContext)

	var photo dao.ListingPhoto
	if err := s.db.
		Preload("Asset").
		Where("listing_id = ? AND id = ?", ctx.Listing.ID, c.Param("photoId")).
		First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrAttachmentNotFound)
		}
		return EError(c, err)
	}

	if err := s.db.Delete(&photo).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type SellerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (s *Services) createListingSeller(c echo.Context) error {
	ctx := c.(ListingContext)

	var req SellerRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	seller := dao.ListingSeller{
		ID:        dao.GenUUID(),
		ListingId: ctx.Listing.ID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := s.db.Create(&seller).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusCreated, seller.ToDTO())
}

func (s *Services) updateListingSeller(c echo.Context) error {
	ctx := c.(ListingContext)

	var seller dao.ListingSeller
	if err := s.db.
		Where("listing_id = ? AND id = ?", ctx.Listing.ID, c.Param("sellerId")).
		First(&seller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EErrorDefined(c, apierrors.ErrSellerNotFound)
		}
		return EError(c, err)
	}

	var req SellerRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	seller.Name = req.Name
	seller.Email = req.Email
	seller.Phone = req.Phone
	if err := s.db.Model(&seller).Select("Name", "Email", "Phone").Updates(&seller).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, seller.ToDTO())
}

func (s *Services) deleteListingSeller(c echo.Context) error {
	ctx := c.(ListingContext)

	if err := s.db.
		Where("listing_id = ? AND id = ?", ctx.Listing.ID, c.Param("sellerId")).
		Delete(&dao.ListingSeller{}).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
