// Middleware for resolving path-scoped entities. Each wrapper loads the
// entity, checks ownership and passes it down in a typed context.
package offermethat

import (
	"errors"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Reject mutating methods when the demo mode is on.
func DemoMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cfg.Demo && c.Request().Method != "GET" {
			return EErrorMsgStatus(c, errors.New("demo mode is read only"), 403)
		}
		return next(c)
	}
}

type FormContext struct {
	AuthContext
	Form dao.Form
}

func (s *Services) FormMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.(AuthContext)
		formID := c.Param("formId")

		var form dao.Form
		if err := s.db.
			Preload("Questions").
			Preload("Pages").
			Where("id = ?", formID).
			First(&form).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrFormNotFound)
			}
			return EError(c, err)
		}

		if form.OwnerId != ctx.User.ID && !ctx.User.IsSuperuser {
			return EErrorDefined(c, apierrors.ErrFormForbidden)
		}

		return next(FormContext{ctx, form})
	}
}

type ListingContext struct {
	AuthContext
	Listing dao.Listing
}

func (s *Services) ListingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.(AuthContext)
		listingID := c.Param("listingId")

		var listing dao.Listing
		if err := s.db.
			Preload("Photos").
			Preload("Photos.Asset").
			Preload("Sellers").
			Where("id = ?", listingID).
			First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return EErrorDefined(c, apierrors.ErrListingNotFound)
			}
			return EError(c, err)
		}

		if listing.OwnerId != ctx.User.ID && !ctx.User.IsSuperuser {
			return EErrorDefined(c, apierrors.ErrListingForbidden)
		}

		return next(ListingContext{ctx, listing})
	}
}
