package dto

import (
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
)

type FormQuestion struct {
	ID          string                `json:"id"`
	Type        types.QuestionType    `json:"type"`
	Order       int                   `json:"order"`
	Required    bool                  `json:"required"`
	PageID      string                `json:"page_id"`
	SetupConfig types.SetupConfigJSON `json:"setup_config,omitempty"`
	UIConfig    types.UIConfig        `json:"ui_config"`
}

type FormPage struct {
	ID         string `json:"id"`
	Order      int    `json:"order"`
	BreakIndex *int   `json:"break_index"`
}

type FormLight struct {
	ID       string               `json:"id"`
	Kind     types.FormKind       `json:"kind"`
	Branding types.BrandingConfig `json:"branding"`
}

type Form struct {
	FormLight
	Questions []FormQuestion `json:"questions"`
	Pages     []FormPage     `json:"pages"`
	Owner     *UserLight     `json:"owner_detail,omitempty"`
}

// PublicForm is the unauthenticated read surface keyed by the owner's
// opaque username.
type PublicForm struct {
	FormID            string               `json:"form_id"`
	OwnerID           string               `json:"owner_id"`
	Questions         []FormQuestion       `json:"questions"`
	Pages             []FormPage           `json:"pages"`
	Branding          types.BrandingConfig `json:"branding_config"`
	ProfilePictureURL string               `json:"profile_picture_url,omitempty"`
	OwnerName         string               `json:"owner_name"`
}

// RenderedQuestion is one generated sub-question descriptor sent to the form
// renderer.
type RenderedQuestion struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	InputKind     string   `json:"input_kind"`
	Options       []string `json:"options,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Required      bool     `json:"required"`
	Suffix        string   `json:"suffix,omitempty"`
	CurrencyField *string  `json:"currency_field,omitempty"`
	Currencies    []string `json:"currencies,omitempty"`
}
