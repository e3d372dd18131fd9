package dao

import (
	"errors"
	"sort"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	policy "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/redactor-policy"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Form struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OwnerId uuid.UUID `json:"owner_id" gorm:"type:uuid;uniqueIndex:idx_owner_kind,priority:1"`
	Owner   *User     `json:"owner_detail" gorm:"foreignKey:OwnerId" extensions:"x-nullable"`

	Kind     types.FormKind       `json:"kind" gorm:"uniqueIndex:idx_owner_kind,priority:2"`
	Branding types.BrandingConfig `json:"branding" gorm:"type:jsonb"`

	Questions []FormQuestion `json:"-" gorm:"foreignKey:FormId"`
	Pages     []FormPage     `json:"-" gorm:"foreignKey:FormId"`
}

func (Form) TableName() string { return "forms" }

func (form *Form) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("form_id = ?", form.ID).Delete(&FormQuestion{}).Error; err != nil {
		return err
	}
	if err := tx.Where("form_id = ?", form.ID).Delete(&FormPage{}).Error; err != nil {
		return err
	}

	var attachments []FormAttachment
	if err := tx.Where("form_id = ?", form.ID).Find(&attachments).Error; err != nil {
		return err
	}
	for _, attachment := range attachments {
		if err := tx.Delete(&attachment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (form *Form) ToLightDTO() *dto.FormLight {
	if form == nil {
		return nil
	}
	return &dto.FormLight{
		ID:       form.ID.String(),
		Kind:     form.Kind,
		Branding: form.Branding,
	}
}

func (form *Form) ToDTO() *dto.Form {
	if form == nil {
		return nil
	}

	sort.Slice(form.Questions, func(i, j int) bool { return form.Questions[i].Order < form.Questions[j].Order })
	sort.Slice(form.Pages, func(i, j int) bool { return form.Pages[i].Order < form.Pages[j].Order })

	questions := make([]dto.FormQuestion, len(form.Questions))
	for i, q := range form.Questions {
		questions[i] = *q.ToDTO()
	}
	pages := make([]dto.FormPage, len(form.Pages))
	for i, p := range form.Pages {
		pages[i] = *p.ToDTO()
	}

	return &dto.Form{
		FormLight: *form.ToLightDTO(),
		Questions: questions,
		Pages:     pages,
		Owner:     form.Owner.ToLightDTO(),
	}
}

type FormPage struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	FormId uuid.UUID `json:"form_id" gorm:"type:uuid;index"`
	Form   *Form     `json:"-" gorm:"foreignKey:FormId" extensions:"x-nullable"`

	Order int `json:"order" gorm:"column:page_order"`

	// BreakIndex is the question order after which this page begins. Nil on
	// the first page.
	BreakIndex *int `json:"break_index" extensions:"x-nullable"`
}

func (FormPage) TableName() string { return "form_pages" }

func (page *FormPage) ToDTO() *dto.FormPage {
	if page == nil {
		return nil
	}
	return &dto.FormPage{
		ID:         page.ID.String(),
		Order:      page.Order,
		BreakIndex: page.BreakIndex,
	}
}

type FormQuestion struct {
	// ID is the question key, unique within a form. Well known questions use
	// their type string as the key.
	ID     string    `gorm:"primaryKey" json:"id"`
	FormId uuid.UUID `json:"form_id" gorm:"primaryKey;type:uuid"`
	Form   *Form     `json:"-" gorm:"foreignKey:FormId" extensions:"x-nullable"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Type     types.QuestionType `json:"type" gorm:"index"`
	Order    int                `json:"order" gorm:"column:question_order"`
	Required bool               `json:"required"`

	PageId uuid.UUID `json:"page_id" gorm:"type:uuid;index"`

	SetupConfig types.SetupConfigJSON `json:"setup_config" gorm:"type:jsonb"`
	UIConfig    types.UIConfig        `json:"ui_config" gorm:"type:jsonb"`
}

func (FormQuestion) TableName() string { return "form_questions" }

func (q *FormQuestion) BeforeSave(tx *gorm.DB) error {
	q.UIConfig.Label = policy.StripTagsPolicy.Sanitize(q.UIConfig.Label)
	q.UIConfig.Description = policy.StripTagsPolicy.Sanitize(q.UIConfig.Description)
	return nil
}

func (q *FormQuestion) ToDTO() *dto.FormQuestion {
	if q == nil {
		return nil
	}
	return &dto.FormQuestion{
		ID:          q.ID,
		Type:        q.Type,
		Order:       q.Order,
		Required:    q.Required,
		PageID:      q.PageId.String(),
		SetupConfig: q.SetupConfig,
		UIConfig:    q.UIConfig,
	}
}

// submitOrder returns the order of the submit button, the last question of
// the form.
func submitOrder(tx *gorm.DB, formID uuid.UUID) (int, error) {
	var order int
	err := tx.Model(&FormQuestion{}).
		Where("form_id = ? AND type = ?", formID, types.QuestionSubmitButton).
		Select("question_order").Scan(&order).Error
	return order, err
}

// reassignPages recomputes every question's page from the sorted break list.
// Page assignment is derived state, the breaks are the source of truth.
func reassignPages(tx *gorm.DB, formID uuid.UUID) error {
	var pages []FormPage
	if err := tx.Where("form_id = ?", formID).Order("page_order").Find(&pages).Error; err != nil {
		return err
	}

	for i, page := range pages {
		lower := 1
		if page.BreakIndex != nil {
			lower = *page.BreakIndex + 1
		}
		query := tx.Model(&FormQuestion{}).
			Where("form_id = ? AND question_order >= ?", formID, lower)
		if i < len(pages)-1 {
			next := pages[i+1]
			if next.BreakIndex == nil {
				return apierrors.ErrPageBreakOutOfRange
			}
			query = query.Where("question_order <= ?", *next.BreakIndex)
		}
		if err := query.Update("page_id", page.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// normalizeBreaks drops pages whose break became invalid after a question
// removal. A page left without questions merges into its predecessor.
func normalizeBreaks(tx *gorm.DB, formID uuid.UUID) error {
	last, err := submitOrder(tx, formID)
	if err != nil {
		return err
	}
	lastContent := last - 1

	for {
		var pages []FormPage
		if err := tx.Where("form_id = ?", formID).Order("page_order").Find(&pages).Error; err != nil {
			return err
		}

		merged := false
		prev := 0
		for i, page := range pages {
			if i == 0 {
				continue
			}
			if page.BreakIndex == nil || *page.BreakIndex <= prev || *page.BreakIndex >= lastContent {
				if err := tx.Delete(&pages[i]).Error; err != nil {
					return err
				}
				if err := tx.Model(&FormPage{}).
					Where("form_id = ? AND page_order > ?", formID, page.Order).
					Update("page_order", gorm.Expr("page_order - 1")).Error; err != nil {
					return err
				}
				merged = true
				break
			}
			prev = *page.BreakIndex
		}

		if !merged {
			return nil
		}
	}
}

// InsertQuestion places q at the given order, pushing later questions and
// page breaks down by one. The submit button always stays last.
func InsertQuestion(db *gorm.DB, form *Form, q *FormQuestion, atOrder int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		last, err := submitOrder(tx, form.ID)
		if err != nil {
			return err
		}
		if last == 0 {
			return apierrors.ErrFormNotFound
		}

		if atOrder < 1 || atOrder > last {
			atOrder = last
		}

		if err := tx.Model(&FormQuestion{}).
			Where("form_id = ? AND question_order >= ?", form.ID, atOrder).
			Update("question_order", gorm.Expr("question_order + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&FormPage{}).
			Where("form_id = ? AND break_index >= ?", form.ID, atOrder).
			Update("break_index", gorm.Expr("break_index + 1")).Error; err != nil {
			return err
		}

		q.FormId = form.ID
		q.Order = atOrder
		if err := tx.Create(q).Error; err != nil {
			return err
		}

		return reassignPages(tx, form.ID)
	})
}

// RemoveQuestion deletes a question and pulls later questions and page
// breaks up by one. Pages left without questions merge into their successor.
func RemoveQuestion(db *gorm.DB, form *Form, questionID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var q FormQuestion
		if err := tx.Where("form_id = ? AND id = ?", form.ID, questionID).First(&q).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrQuestionNotFound
			}
			return err
		}

		if q.Type == types.QuestionSubmitButton {
			return apierrors.ErrSubmitButtonImmutable
		}

		if err := tx.Delete(&q).Error; err != nil {
			return err
		}

		if err := tx.Model(&FormQuestion{}).
			Where("form_id = ? AND question_order > ?", form.ID, q.Order).
			Update("question_order", gorm.Expr("question_order - 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&FormPage{}).
			Where("form_id = ? AND break_index >= ?", form.ID, q.Order).
			Update("break_index", gorm.Expr("break_index - 1")).Error; err != nil {
			return err
		}

		if err := normalizeBreaks(tx, form.ID); err != nil {
			return err
		}
		return reassignPages(tx, form.ID)
	})
}

// MoveQuestion shifts a question to a new order inside the form. The range
// between the old and the new position moves one step in the opposite
// direction.
func MoveQuestion(db *gorm.DB, form *Form, questionID string, newOrder int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var q FormQuestion
		if err := tx.Where("form_id = ? AND id = ?", form.ID, questionID).First(&q).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrQuestionNotFound
			}
			return err
		}

		if q.Type == types.QuestionSubmitButton {
			return apierrors.ErrSubmitButtonImmutable
		}

		last, err := submitOrder(tx, form.ID)
		if err != nil {
			return err
		}
		if newOrder < 1 || newOrder >= last {
			return apierrors.ErrOrderOutOfRange
		}
		if newOrder == q.Order {
			return nil
		}

		if newOrder < q.Order {
			if err := tx.Model(&FormQuestion{}).
				Where("form_id = ? AND question_order >= ? AND question_order < ?", form.ID, newOrder, q.Order).
				Update("question_order", gorm.Expr("question_order + 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&FormQuestion{}).
				Where("form_id = ? AND question_order > ? AND question_order <= ?", form.ID, q.Order, newOrder).
				Update("question_order", gorm.Expr("question_order - 1")).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&FormQuestion{}).
			Where("form_id = ? AND id = ?", form.ID, questionID).
			Update("question_order", newOrder).Error; err != nil {
			return err
		}

		return reassignPages(tx, form.ID)
	})
}

// CreatePageBreak starts a new page after the question at afterOrder. All
// higher order questions move to the new page.
func CreatePageBreak(db *gorm.DB, form *Form, afterOrder int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		last, err := submitOrder(tx, form.ID)
		if err != nil {
			return err
		}
		// A break below the first question or at the last content question
		// would leave an empty page.
		if afterOrder < 1 || afterOrder >= last-1 {
			return apierrors.ErrPageBreakOutOfRange
		}

		var pages []FormPage
		if err := tx.Where("form_id = ?", form.ID).Order("page_order").Find(&pages).Error; err != nil {
			return err
		}

		newOrder := 2
		for _, page := range pages {
			if page.BreakIndex == nil {
				continue
			}
			if *page.BreakIndex == afterOrder {
				return apierrors.ErrPageBreakCrossesSibling
			}
			if *page.BreakIndex < afterOrder {
				newOrder = page.Order + 1
			}
		}

		if err := tx.Model(&FormPage{}).
			Where("form_id = ? AND page_order >= ?", form.ID, newOrder).
			Update("page_order", gorm.Expr("page_order + 1")).Error; err != nil {
			return err
		}

		newPage := FormPage{
			ID:         GenUUID(),
			FormId:     form.ID,
			Order:      newOrder,
			BreakIndex: &afterOrder,
		}
		if err := tx.Create(&newPage).Error; err != nil {
			return err
		}

		return reassignPages(tx, form.ID)
	})
}

// DeletePageBreak merges a page's questions back into its predecessor. The
// first page cannot be merged away.
func DeletePageBreak(db *gorm.DB, form *Form, pageID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var page FormPage
		if err := tx.Where("form_id = ? AND id = ?", form.ID, pageID).First(&page).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrPageNotFound
			}
			return err
		}

		if page.Order == 1 {
			return apierrors.ErrFirstPageImmutable
		}

		if err := tx.Delete(&page).Error; err != nil {
			return err
		}
		if err := tx.Model(&FormPage{}).
			Where("form_id = ? AND page_order > ?", form.ID, page.Order).
			Update("page_order", gorm.Expr("page_order - 1")).Error; err != nil {
			return err
		}

		return reassignPages(tx, form.ID)
	})
}

// MovePageBreak shifts a page's break one question up or down. The break
// never goes below the first question, never reaches the submit button and
// never crosses a sibling break.
func MovePageBreak(db *gorm.DB, form *Form, pageID uuid.UUID, direction string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var page FormPage
		if err := tx.Where("form_id = ? AND id = ?", form.ID, pageID).First(&page).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrPageNotFound
			}
			return err
		}
		if page.BreakIndex == nil {
			return apierrors.ErrFirstPageImmutable
		}

		newBreak := *page.BreakIndex
		switch direction {
		case "up":
			newBreak--
		case "down":
			newBreak++
		default:
			return apierrors.ErrPageBreakOutOfRange
		}

		last, err := submitOrder(tx, form.ID)
		if err != nil {
			return err
		}
		if newBreak < 1 || newBreak >= last-1 {
			return apierrors.ErrPageBreakOutOfRange
		}

		var siblings []FormPage
		if err := tx.Where("form_id = ? AND page_order IN ?", form.ID,
			[]int{page.Order - 1, page.Order + 1}).Find(&siblings).Error; err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.BreakIndex == nil {
				continue
			}
			if sibling.Order < page.Order && newBreak <= *sibling.BreakIndex {
				return apierrors.ErrPageBreakCrossesSibling
			}
			if sibling.Order > page.Order && newBreak >= *sibling.BreakIndex {
				return apierrors.ErrPageBreakCrossesSibling
			}
		}

		if err := tx.Model(&page).Update("break_index", newBreak).Error; err != nil {
			return err
		}

		return reassignPages(tx, form.ID)
	})
}

type FormAttachment struct {
	Id        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time `json:"created_at"`

	AssetId uuid.UUID `json:"asset" gorm:"type:uuid"`
	FormId  uuid.UUID `json:"form" gorm:"index;type:uuid"`
	OfferId uuid.NullUUID `json:"offer,omitempty" gorm:"type:uuid;index" extensions:"x-nullable"`
	LeadId  uuid.NullUUID `json:"lead,omitempty" gorm:"type:uuid;index" extensions:"x-nullable"`

	Asset *FileAsset `json:"file_details" gorm:"foreignKey:AssetId" extensions:"x-nullable"`
}

func (FormAttachment) TableName() string { return "form_attachments" }

func (fa *FormAttachment) ToDTO() *dto.Attachment {
	if fa == nil {
		return nil
	}
	return &dto.Attachment{
		Id:        fa.Id.String(),
		CreatedAt: fa.CreatedAt,
		Asset:     fa.Asset.ToDTO(),
	}
}

// AfterDelete drops the backing asset if this was the last reference.
func (fa *FormAttachment) AfterDelete(tx *gorm.DB) error {
	if fa.Asset == nil {
		if err := tx.Where("id = ?", fa.AssetId).First(&fa.Asset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
	}

	// Check if this asset used in another attachment
	del, err := fa.Asset.CanBeDeleted(tx)
	if err != nil {
		return err
	}
	if del {
		return tx.Delete(fa.Asset).Error
	}
	return nil
}
