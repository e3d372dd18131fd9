// Agent profile endpoints: identity, avatar, password and the public form
// links derived from the opaque username.
package offermethat

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Services) AddUserServices(g *echo.Group) {
	g.GET("users/me/", s.getMe)
	g.PATCH("users/me/", s.updateMe)
	g.POST("users/me/password/", s.changePassword)
	g.POST("users/me/avatar/", s.uploadAvatar)
	g.DELETE("users/me/avatar/", s.deleteAvatar)
	g.GET("users/me/links/", s.getPublicLinks)
	g.POST("users/me/links/rotate/", s.rotatePublicLink)
}

func (s *Services) getMe(c echo.Context) error {
	ctx := c.(AuthContext)
	return c.JSON(http.StatusOK, ctx.User.ToDTO())
}

type UpdateMeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Services) updateMe(c echo.Context) error {
	ctx := c.(AuthContext)

	var req UpdateMeRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	ctx.User.FirstName = req.FirstName
	ctx.User.LastName = req.LastName
	if err := s.db.Model(ctx.User).Select("FirstName", "LastName").Updates(ctx.User).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, ctx.User.ToDTO())
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Services) changePassword(c echo.Context) error {
	ctx := c.(AuthContext)

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if !dao.ComparePasswordHash(req.OldPassword, ctx.User.Password) {
		return EErrorDefined(c, apierrors.ErrFailedLogin)
	}
	if len(req.NewPassword) < 8 {
		return EErrorDefined(c, apierrors.ErrWeakPassword)
	}

	tm := time.Now()
	ctx.User.Password = dao.GenPasswordHash(req.NewPassword)
	ctx.User.TokenUpdatedAt = &tm
	if err := s.db.Model(ctx.User).Select("Password", "TokenUpdatedAt").Updates(ctx.User).Error; err != nil {
		return EError(c, err)
	}

	accessToken, refreshToken, err := createAccessToken(ctx.User.ID.String())
	if err != nil {
		return EError(c, err)
	}
	setAuthCookies(c, accessToken, refreshToken)

	return c.NoContent(http.StatusOK)
}

func (s *Services) uploadAvatar(c echo.Context) error {
	ctx := c.(AuthContext)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return EError(c, err)
	}
	if fileHeader.Size > 5<<20 {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
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
		Name:        fileHeader.Filename,
		FileSize:    int(fileHeader.Size),
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	oldAvatar := ctx.User.AvatarId

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&asset).Error; err != nil {
			return err
		}
		ctx.User.AvatarId = uuid.NullUUID{UUID: asset.Id, Valid: true}
		return tx.Model(ctx.User).Select("AvatarId").Updates(ctx.User).Error
	}); err != nil {
		return EError(c, err)
	}

	if err := s.storage.Save(data, asset.Id, asset.ContentType, &filestorage.Metadata{
		OwnerId: ctx.User.ID.String(),
	}); err != nil {
		return EErrorDefined(c, apierrors.ErrStorageFail)
	}

	// Drop the previous avatar if nothing else references it
	if oldAvatar.Valid {
		old := dao.FileAsset{Id: oldAvatar.UUID}
		if del, err := old.CanBeDeleted(s.db); err == nil && del {
			s.db.Delete(&old)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"url": s.storage.FileURL(asset.Id),
	})
}

func (s *Services) deleteAvatar(c echo.Context) error {
	ctx := c.(AuthContext)

	if !ctx.User.AvatarId.Valid {
		return c.NoContent(http.StatusNoContent)
	}

	asset := dao.FileAsset{Id: ctx.User.AvatarId.UUID}
	ctx.User.AvatarId = uuid.NullUUID{}
	if err := s.db.Model(ctx.User).Select("AvatarId").Updates(ctx.User).Error; err != nil {
		return EError(c, err)
	}

	if del, err := asset.CanBeDeleted(s.db); err == nil && del {
		s.db.Delete(&asset)
	}
	return c.NoContent(http.StatusNoContent)
}

// getPublicLinks returns the shareable offer and lead form URLs.
func (s *Services) getPublicLinks(c echo.Context) error {
	ctx := c.(AuthContext)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"offer": fmt.Sprintf("%s/api/forms/%s/%s/", cfg.WebURL, ctx.User.Username, types.FormKindOffer),
		"lead":  fmt.Sprintf("%s/api/forms/%s/%s/", cfg.WebURL, ctx.User.Username, types.FormKindLead),
	})
}

// rotatePublicLink replaces the opaque username, invalidating every link
// shared so far.
func (s *Services) rotatePublicLink(c echo.Context) error {
	ctx := c.(AuthContext)

	ctx.User.Username = dao.GenUsername()
	if err := s.db.Model(ctx.User).Select("Username").Updates(ctx.User).Error; err != nil {
		return EError(c, err)
	}

	return s.getPublicLinks(c)
}
