// Public form submission and the agent-facing record endpoints. The public
// surface is keyed by the owner's opaque username, so the numeric account id
// never leaks into shared links.
package offermethat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/OfferMeThat/OfferMeThat-sub002/pkg/limiter"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Services) AddPublicFormServices(g *echo.Group) {
	g.GET("forms/:username/:kind/", s.getPublicForm)
	g.POST("forms/:username/:kind/", s.submitForm)
	g.POST("forms/:username/:kind/render/", s.renderPublicForm)
}

func (s *Services) AddRecordServices(g *echo.Group) {
	g.GET("offers/", s.getOfferList)
	g.GET("offers/:recordId/", s.getOffer)
	g.PATCH("offers/:recordId/", s.updateOfferStatus)
	g.POST("offers/:recordId/assign/", s.assignOfferListing)
	g.DELETE("offers/:recordId/", s.deleteOffer)
	g.GET("offers/:recordId/attachments/", s.getOfferAttachments)

	g.GET("leads/", s.getLeadList)
	g.GET("leads/:recordId/", s.getLead)
	g.PATCH("leads/:recordId/", s.updateLeadStatus)
	g.POST("leads/:recordId/assign/", s.assignLeadListing)
	g.DELETE("leads/:recordId/", s.deleteLead)
}

// publicForm resolves the owner and form behind a public link.
func (s *Services) publicForm(c echo.Context) (*dao.User, *dao.Form, error) {
	kind := types.FormKind(c.Param("kind"))
	if kind != types.FormKindOffer && kind != types.FormKindLead {
		return nil, nil, EErrorDefined(c, apierrors.ErrFormNotFound)
	}

	var owner dao.User
	if err := s.db.Where("username = ?", c.Param("username")).First(&owner).Error; err != nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrFormNotFound)
	}

	var form dao.Form
	if err := s.db.
		Preload("Questions").
		Preload("Pages").
		Where("owner_id = ? AND kind = ?", owner.ID, kind).
		First(&form).Error; err != nil {
		return nil, nil, EErrorDefined(c, apierrors.ErrFormNotFound)
	}

	return &owner, &form, nil
}

func (s *Services) getPublicForm(c echo.Context) error {
	owner, form, err := s.publicForm(c)
	if err != nil {
		return err
	}

	formDTO := form.ToDTO()
	return c.JSON(http.StatusOK, dto.PublicForm{
		FormID:            formDTO.ID,
		OwnerID:           owner.ID.String(),
		Questions:         formDTO.Questions,
		Pages:             formDTO.Pages,
		Branding:          form.Branding,
		ProfilePictureURL: owner.GetAvatarURL(),
		OwnerName:         owner.GetName(),
	})
}

// renderPublicForm expands every question into its generated sub-questions
// for the current partial answers. The renderer calls this on each change to
// a deposit instalment count or a loan gate.
func (s *Services) renderPublicForm(c echo.Context) error {
	_, form, err := s.publicForm(c)
	if err != nil {
		return err
	}

	answers := map[string]interface{}{}
	if err := c.Bind(&answers); err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, GenerateForm(form.Questions, answers))
}

// storageUploader persists submitted files and hands back their public URLs.
type storageUploader struct {
	db      *gorm.DB
	storage filestorage.FileStorage
	owner   *dao.User
	form    *dao.Form

	assetIDs []uuid.UUID
}

func (u *storageUploader) Upload(name string, contentType string, data []byte) (string, error) {
	asset := dao.FileAsset{
		Id:          dao.GenUUID(),
		OwnerId:     uuid.NullUUID{UUID: u.owner.ID, Valid: true},
		FormId:      uuid.NullUUID{UUID: u.form.ID, Valid: true},
		Name:        name,
		FileSize:    len(data),
		ContentType: contentType,
	}
	if err := u.db.Create(&asset).Error; err != nil {
		return "", err
	}

	if err := u.storage.Save(data, asset.Id, contentType, &filestorage.Metadata{
		OwnerId: u.owner.ID.String(),
		FormId:  u.form.ID.String(),
	}); err != nil {
		u.db.Delete(&asset)
		return "", err
	}

	u.assetIDs = append(u.assetIDs, asset.Id)
	return u.storage.FileURL(asset.Id), nil
}

// parseSubmission reads the answer map and, for multipart requests, folds
// every uploaded file in as a FileAnswer keyed by its field name.
func parseSubmission(c echo.Context) (map[string]interface{}, error) {
	answers := map[string]interface{}{}

	form, err := c.MultipartForm()
	if err != nil {
		// Plain JSON body
		if err := c.Bind(&answers); err != nil {
			return nil, err
		}
		return answers, nil
	}

	if raw := c.FormValue("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return nil, err
		}
	}

	for field, headers := range form.File {
		for _, header := range headers {
			if header.Size > 20<<20 {
				return nil, apierrors.ErrAttachmentTooLarge
			}
			file, err := header.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, err
			}

			answer := &FileAnswer{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
			setFileAnswer(answers, field, answer)
		}
	}
	return answers, nil
}

// setFileAnswer places a file under a dotted field path ("qid.sub_field") in
// the answer map.
func setFileAnswer(answers map[string]interface{}, field string, answer *FileAnswer) {
	parent, sub, nested := strings.Cut(field, ".")
	if !nested {
		answers[field] = answer
		return
	}

	obj, ok := answers[parent].(map[string]interface{})
	if !ok {
		obj = map[string]interface{}{}
		answers[parent] = obj
	}
	obj[sub] = answer
}

func (s *Services) submitForm(c echo.Context) error {
	owner, form, err := s.publicForm(c)
	if err != nil {
		return err
	}

	if !limiter.Limiter.CanAcceptSubmission(owner.ID) {
		return EErrorMsgStatus(c, errors.New("submission quota exceeded"), http.StatusForbidden)
	}

	answers, err := parseSubmission(c)
	if err != nil {
		return EError(c, err)
	}

	valid, fieldErrors := BuildFormValidator(form.Questions, form.Kind).Validate(answers)
	if !valid {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"code":   apierrors.ErrSubmissionInvalid.Code,
			"error":  apierrors.ErrSubmissionInvalid.Err,
			"errors": fieldErrors,
		})
	}

	// Files go to storage before the record is built, so the stored record
	// only ever contains URLs.
	uploader := &storageUploader{db: s.db, storage: s.storage, owner: owner, form: form}
	if err := SubstituteFileUploads(answers, uploader); err != nil {
		return EErrorDefined(c, apierrors.ErrStorageFail)
	}

	isTest, _ := strconv.ParseBool(c.QueryParam("test"))

	if form.Kind == types.FormKindOffer {
		offer, err := TransformOffer(form, form.Questions, answers, isTest)
		if err != nil {
			return EError(c, err)
		}
		if offer.ListingId.Valid {
			if err := s.checkListingOwner(owner.ID, offer.ListingId.UUID); err != nil {
				return EError(c, err)
			}
		}
		if err := dao.CreateOffer(s.db, offer); err != nil {
			return EError(c, err)
		}
		if err := s.attachSubmissionFiles(form, uploader.assetIDs, uuid.NullUUID{UUID: offer.ID, Valid: true}, uuid.NullUUID{}); err != nil {
			return EError(c, err)
		}
		return c.JSON(http.StatusCreated, map[string]interface{}{
			"id":     offer.ID,
			"seq_id": offer.SeqId,
			"status": offer.Status,
		})
	}

	lead, err := TransformLead(form, form.Questions, answers)
	if err != nil {
		return EError(c, err)
	}
	if lead.ListingId.Valid {
		if err := s.checkListingOwner(owner.ID, lead.ListingId.UUID); err != nil {
			return EError(c, err)
		}
	}
	if err := dao.CreateLead(s.db, lead); err != nil {
		return EError(c, err)
	}
	if err := s.attachSubmissionFiles(form, uploader.assetIDs, uuid.NullUUID{}, uuid.NullUUID{UUID: lead.ID, Valid: true}); err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":     lead.ID,
		"seq_id": lead.SeqId,
		"status": lead.Status,
	})
}

// checkListingOwner rejects submissions that reference another agent's
// listing.
func (s *Services) checkListingOwner(ownerID uuid.UUID, listingID uuid.UUID) error {
	var exist bool
	if err := s.db.Model(&dao.Listing{}).
		Select("count(*) > 0").
		Where("id = ? AND owner_id = ?", listingID, ownerID).
		Find(&exist).Error; err != nil {
		return err
	}
	if !exist {
		return apierrors.ErrUnknownListingOwner
	}
	return nil
}

func (s *Services) attachSubmissionFiles(form *dao.Form, assetIDs []uuid.UUID, offerID uuid.NullUUID, leadID uuid.NullUUID) error {
	for _, assetID := range assetIDs {
		attachment := dao.FormAttachment{
			Id:      dao.GenUUID(),
			AssetId: assetID,
			FormId:  form.ID,
			OfferId: offerID,
			LeadId:  leadID,
		}
		if err := s.db.Create(&attachment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Services) getOfferList(c echo.Context) error {
	ctx := c.(AuthContext)

	offset := 0
	limit := 25
	echo.QueryParamsBinder(c).Int("offset", &offset).Int("limit", &limit)
	if limit > 100 {
		limit = 100
	}

	query := s.db.
		Preload("Listing").
		Where("owner_id = ?", ctx.User.ID).
		Order("created_at desc")

	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if listingID := c.QueryParam("listing_id"); listingID != "" {
		query = query.Where("listing_id = ?", listingID)
	}
	if !queryBool(c, "include_test") {
		query = query.Where("is_test = false")
	}
	query = dateRangeFilter(c, query)

	var offers []dao.Offer
	resp, err := dao.PaginationRequest(offset, limit, query, &offers)
	if err != nil {
		return EError(c, err)
	}

	res := make([]dto.OfferLight, len(offers))
	for i := range offers {
		res[i] = *offers[i].ToLightDTO()
	}
	resp.Result = res

	return c.JSON(http.StatusOK, resp)
}

func (s *Services) findOffer(c echo.Context) (*dao.Offer, error) {
	ctx := c.(AuthContext)

	var offer dao.Offer
	if err := s.db.
		Preload("Listing").
		Where("owner_id = ? AND id = ?", ctx.User.ID, c.Param("recordId")).
		First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (s *Services) getOffer(c echo.Context) error {
	offer, err := s.findOffer(c)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, offer.ToDTO())
}

type RecordStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new unassigned accepted declined archived"`
}

func (s *Services) updateOfferStatus(c echo.Context) error {
	offer, err := s.findOffer(c)
	if err != nil {
		return EError(c, err)
	}

	var req RecordStatusRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	// An offer without a listing stays unassigned until one is attached.
	if !offer.ListingId.Valid && req.Status != types.StatusUnassigned && req.Status != types.StatusArchived {
		return EErrorDefined(c, apierrors.ErrListingRefRequired)
	}

	offer.Status = req.Status
	if err := s.db.Model(offer).Select("Status").Updates(offer).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, offer.ToLightDTO())
}

type AssignListingRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

// assignOfferListing manually attaches an unassigned offer to a listing.
func (s *Services) assignOfferListing(c echo.Context) error {
	ctx := c.(AuthContext)

	offer, err := s.findOffer(c)
	if err != nil {
		return EError(c, err)
	}

	var req AssignListingRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	listingID, err := uuid.FromString(req.ListingID)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrListingNotFound)
	}
	if err := s.checkListingOwner(ctx.User.ID, listingID); err != nil {
		return EError(c, err)
	}

	offer.ListingId = uuid.NullUUID{UUID: listingID, Valid: true}
	if offer.Status == types.StatusUnassigned {
		offer.Status = types.StatusNew
	}
	if err := s.db.Model(offer).Select("ListingId", "Status").Updates(offer).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, offer.ToLightDTO())
}

func (s *Services) deleteOffer(c echo.Context) error {
	offer, err := s.findOffer(c)
	if err != nil {
		return EError(c, err)
	}
	if err := s.db.Delete(offer).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Services) getOfferAttachments(c echo.Context) error {
	offer, err := s.findOffer(c)
	if err != nil {
		return EError(c, err)
	}

	var attachments []dao.FormAttachment
	if err := s.db.
		Preload("Asset").
		Where("offer_id = ?", offer.ID).
		Find(&attachments).Error; err != nil {
		return EError(c, err)
	}

	res := make([]dto.Attachment, len(attachments))
	for i := range attachments {
		res[i] = *attachments[i].ToDTO()
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Services) getLeadList(c echo.Context) error {
	ctx := c.(AuthContext)

	offset := 0
	limit := 25
	echo.QueryParamsBinder(c).Int("offset", &offset).Int("limit", &limit)
	if limit > 100 {
		limit = 100
	}

	query := s.db.
		Preload("Listing").
		Where("owner_id = ?", ctx.User.ID).
		Order("created_at desc")

	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if listingID := c.QueryParam("listing_id"); listingID != "" {
		query = query.Where("listing_id = ?", listingID)
	}
	query = dateRangeFilter(c, query)

	var leads []dao.Lead
	resp, err := dao.PaginationRequest(offset, limit, query, &leads)
	if err != nil {
		return EError(c, err)
	}

	res := make([]dto.LeadLight, len(leads))
	for i := range leads {
		res[i] = *leads[i].ToLightDTO()
	}
	resp.Result = res

	return c.JSON(http.StatusOK, resp)
}

func (s *Services) findLead(c echo.Context) (*dao.Lead, error) {
	ctx := c.(AuthContext)

	var lead dao.Lead
	if err := s.db.
		Preload("Listing").
		Where("owner_id = ? AND id = ?", ctx.User.ID, c.Param("recordId")).
		First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &lead, nil
}

func (s *Services) getLead(c echo.Context) error {
	lead, err := s.findLead(c)
	if err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, lead.ToDTO())
}

func (s *Services) updateLeadStatus(c echo.Context) error {
	lead, err := s.findLead(c)
	if err != nil {
		return EError(c, err)
	}

	var req RecordStatusRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	lead.Status = req.Status
	if err := s.db.Model(lead).Select("Status").Updates(lead).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, lead.ToLightDTO())
}

func (s *Services) assignLeadListing(c echo.Context) error {
	ctx := c.(AuthContext)

	lead, err := s.findLead(c)
	if err != nil {
		return EError(c, err)
	}

	var req AssignListingRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorMsg(c, err)
	}

	listingID, err := uuid.FromString(req.ListingID)
	if err != nil {
		return EErrorDefined(c, apierrors.ErrListingNotFound)
	}
	if err := s.checkListingOwner(ctx.User.ID, listingID); err != nil {
		return EError(c, err)
	}

	lead.ListingId = uuid.NullUUID{UUID: listingID, Valid: true}
	if lead.Status == types.StatusUnassigned {
		lead.Status = types.StatusNew
	}
	if err := s.db.Model(lead).Select("ListingId", "Status").Updates(lead).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, lead.ToLightDTO())
}

func (s *Services) deleteLead(c echo.Context) error {
	lead, err := s.findLead(c)
	if err != nil {
		return EError(c, err)
	}
	if err := s.db.Delete(lead).Error; err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

// dateRangeFilter applies created_after/created_before query params, both
// date-only and inclusive.
func dateRangeFilter(c echo.Context, query *gorm.DB) *gorm.DB {
	if after := c.QueryParam("created_after"); after != "" {
		if t, err := time.Parse("2006-01-02", after); err == nil {
			query = query.Where("created_at >= ?", t)
		}
	}
	if before := c.QueryParam("created_before"); before != "" {
		if t, err := time.Parse("2006-01-02", before); err == nil {
			query = query.Where("created_at < ?", t.AddDate(0, 0, 1))
		}
	}
	return query
}
