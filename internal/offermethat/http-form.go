// Form builder endpoints: question configuration, ordering and page breaks.
// Every mutation keeps the question orders contiguous and the submit button
// last; page assignment is recomputed from the breaks after each change.
package offermethat

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Services) AddFormServices(g *echo.Group) {
	g.GET("forms/", s.getFormList)
	g.POST("question-catalog/:questionType/", s.getQuestionCatalog)

	formGroup := g.Group("forms/:formId/", s.FormMiddleware)
	formGroup.GET("", s.getForm)
	formGroup.PATCH("", s.updateFormBranding)

	formGroup.POST("questions/", s.createQuestion)
	formGroup.PATCH("questions/:questionId/", s.updateQuestion)
	formGroup.DELETE("questions/:questionId/", s.deleteQuestion)
	formGroup.POST("questions/:questionId/move/", s.moveQuestion)

	formGroup.POST("pages/", s.createPageBreak)
	formGroup.DELETE("pages/:pageId/", s.deletePageBreak)
	formGroup.POST("pages/:pageId/move/", s.movePageBreak)

	formGroup.POST("preview/", s.previewForm)
}

func (s *Services) getFormList(c echo.Context) error {
	ctx := c.(AuthContext)

	var forms []dao.Form
	if err := s.db.Where("owner_id = ?", ctx.User.ID).Find(&forms).Error; err != nil {
		return EError(c, err)
	}

	res := make([]interface{}, len(forms))
	for i := range forms {
		res[i] = forms[i].ToLightDTO()
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Services) getForm(c echo.Context) error {
	ctx := c.(FormContext)
	ctx.Form.Owner = ctx.User
	return c.JSON(http.StatusOK, ctx.Form.ToDTO())
}

type BrandingRequest struct {
	Branding types.BrandingConfig `json:"branding"`
}

func (s *Services) updateFormBranding(c echo.Context) error {
	ctx := c.(FormContext)

	var req BrandingRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	ctx.Form.Branding = req.Branding
	if err := s.db.Model(&ctx.Form).Select("Branding").Updates(&ctx.Form).Error; err != nil {
		return EError(c, err)
	}
	return c.JSON(http.StatusOK, ctx.Form.ToLightDTO())
}

// getQuestionCatalog returns the setup questions visible for the given
// type and the partial setup answers in the request body.
func (s *Services) getQuestionCatalog(c echo.Context) error {
	questionType := types.QuestionType(c.Param("questionType"))
	entry, ok := CatalogLookup(questionType)
	if !ok {
		return EErrorDefined(c, apierrors.ErrUnknownQuestionType.WithFormattedMessage(questionType))
	}

	answers := map[string]interface{}{}
	if err := c.Bind(&answers); err != nil {
		return EError(c, err)
	}

	res := map[string]interface{}{
		"setup_questions":     VisibleSetupQuestions(entry, answers),
		"default_ui_config":   entry.DefaultUIConfig,
		"required_by_default": entry.RequiredByDefault,
	}
	if changed := c.QueryParam("changed"); changed != "" {
		res["re_evaluate"] = SetupDependents(entry, changed)
	}
	return c.JSON(http.StatusOK, res)
}

type QuestionRequest struct {
	Type        string                `json:"type" validate:"omitempty,questionType"`
	Required    *bool                 `json:"required"`
	AtOrder     int                   `json:"at_order"`
	SetupConfig types.SetupConfigJSON `json:"setup_config"`
	UIConfig    *types.UIConfig       `json:"ui_config"`
}

func (s *Services) createQuestion(c echo.Context) error {
	ctx := c.(FormContext)

	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrUnknownQuestionType.WithFormattedMessage(req.Type))
	}

	questionType := types.QuestionType(req.Type)
	entry, ok := CatalogLookup(questionType)
	if !ok {
		return EErrorDefined(c, apierrors.ErrUnknownQuestionType.WithFormattedMessage(req.Type))
	}
	if questionType == types.QuestionSubmitButton {
		return EErrorDefined(c, apierrors.ErrSubmitButtonImmutable)
	}

	// The setup config is validated on write so rendering never sees a
	// malformed one from our own store.
	if _, err := types.DecodeSetupConfig(questionType, req.SetupConfig); err != nil {
		return EErrorDefined(c, apierrors.ErrBadSetupConfig.WithFormattedMessage(err))
	}

	q := dao.FormQuestion{
		ID:          questionKey(questionType),
		Type:        questionType,
		Required:    entry.RequiredByDefault,
		SetupConfig: req.SetupConfig,
		UIConfig:    entry.DefaultUIConfig,
	}
	if req.Required != nil {
		q.Required = *req.Required
	}
	if req.UIConfig != nil {
		q.UIConfig = *req.UIConfig
	}

	if err := dao.InsertQuestion(s.db, &ctx.Form, &q, req.AtOrder); err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusCreated, q.ToDTO())
}

// questionKey builds the stable question id. Well known questions use their
// type string so one form carries at most one of each; custom questions get
// a random suffix.
func questionKey(t types.QuestionType) string {
	if t != types.QuestionCustom && t != types.QuestionStatement {
		return string(t)
	}
	u, _ := uuid.NewV4()
	return fmt.Sprintf("%s_%s", t, strings.ReplaceAll(u.String(), "-", "")[:8])
}

func (s *Services) updateQuestion(c echo.Context) error {
	ctx := c.(FormContext)

	var q dao.FormQuestion
	if err := s.db.Where("form_id = ? AND id = ?", ctx.Form.ID, c.Param("questionId")).First(&q).Error; err != nil {
		return EErrorDefined(c, apierrors.ErrQuestionNotFound)
	}

	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if len(req.SetupConfig) > 0 {
		if _, err := types.DecodeSetupConfig(q.Type, req.SetupConfig); err != nil {
			return EErrorDefined(c, apierrors.ErrBadSetupConfig.WithFormattedMessage(err))
		}
		q.SetupConfig = req.SetupConfig
	}
	if req.UIConfig != nil {
		q.UIConfig = *req.UIConfig
	}
	if req.Required != nil && q.Type != types.QuestionSubmitButton {
		q.Required = *req.Required
	}

	if err := s.db.Model(&q).
		Where("form_id = ? AND id = ?", ctx.Form.ID, q.ID).
		Select("SetupConfig", "UIConfig", "Required").
		Updates(&q).Error; err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, q.ToDTO())
}

func (s *Services) deleteQuestion(c echo.Context) error {
	ctx := c.(FormContext)

	if err := dao.RemoveQuestion(s.db, &ctx.Form, c.Param("questionId")); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type MoveQuestionRequest struct {
	Order int `json:"order" validate:"required,min=1"`
}

func (s *Services) moveQuestion(c echo.Context) error {
	ctx := c.(FormContext)

	var req MoveQuestionRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrOrderOutOfRange)
	}

	if err := dao.MoveQuestion(s.db, &ctx.Form, c.Param("questionId"), req.Order); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

type PageBreakRequest struct {
	AfterOrder int `json:"after_order" validate:"required,min=1"`
}

func (s *Services) createPageBreak(c echo.Context) error {
	ctx := c.(FormContext)

	var req PageBreakRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrPageBreakOutOfRange)
	}

	if err := dao.CreatePageBreak(s.db, &ctx.Form, req.AfterOrder); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Services) deletePageBreak(c echo.Context) error {
	ctx := c.(FormContext)

	pageID, err := uuid.FromString(c.Param("pageId"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrPageNotFound)
	}

	if err := dao.DeletePageBreak(s.db, &ctx.Form, pageID); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type MovePageBreakRequest struct {
	Direction string `json:"direction" validate:"required,breakDirection"`
}

func (s *Services) movePageBreak(c echo.Context) error {
	ctx := c.(FormContext)

	pageID, err := uuid.FromString(c.Param("pageId"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrPageNotFound)
	}

	var req MovePageBreakRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return EErrorDefined(c, apierrors.ErrPageBreakOutOfRange)
	}

	if err := dao.MovePageBreak(s.db, &ctx.Form, pageID, req.Direction); err != nil {
		return EError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// previewForm renders the form against candidate answers, so the builder UI
// can show what a buyer would see at each step.
func (s *Services) previewForm(c echo.Context) error {
	ctx := c.(FormContext)

	answers := map[string]interface{}{}
	if err := c.Bind(&answers); err != nil {
		return EError(c, err)
	}

	return c.JSON(http.StatusOK, GenerateForm(ctx.Form.Questions, answers))
}
