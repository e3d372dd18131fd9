// Question catalog: a static registry mapping every question type to its
// setup questions, default UI config and default requiredness. The setup
// questions carry declarative dependsOn gating evaluated by
// VisibleSetupQuestions.
package offermethat

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"gorm.io/gorm"
)

type SetupDependency struct {
	QuestionID string   `json:"question_id"`
	Values     []string `json:"values"`
}

type SetupQuestion struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Type      string           `json:"type"`
	Options   []string         `json:"options,omitempty"`
	DependsOn *SetupDependency `json:"depends_on,omitempty"`
}

type CatalogEntry struct {
	SetupQuestions    []SetupQuestion
	DefaultUIConfig   types.UIConfig
	RequiredByDefault bool
}

var requirementOptions = []string{types.RequirementRequired, types.RequirementOptional, types.RequirementNotRequired}

var questionCatalog = map[types.QuestionType]CatalogEntry{
	types.QuestionSubmitterName: {
		DefaultUIConfig:   types.UIConfig{Label: "Your name"},
		RequiredByDefault: true,
	},
	types.QuestionSubmitterEmail: {
		DefaultUIConfig:   types.UIConfig{Label: "Email address"},
		RequiredByDefault: true,
	},
	types.QuestionSubmitterPhone: {
		DefaultUIConfig:   types.UIConfig{Label: "Phone number"},
		RequiredByDefault: true,
	},
	types.QuestionSpecifyListing: {
		SetupQuestions: []SetupQuestion{
			{ID: "allow_free_text", Label: "Allow a free text address", Type: "radio", Options: []string{"yes", "no"}},
		},
		DefaultUIConfig:   types.UIConfig{Label: "Which property is this offer for?"},
		RequiredByDefault: true,
	},
	types.QuestionListingInterest: {
		SetupQuestions: []SetupQuestion{
			{ID: "allow_free_text", Label: "Allow a free text address", Type: "radio", Options: []string{"yes", "no"}},
		},
		DefaultUIConfig: types.UIConfig{Label: "Which property are you interested in?"},
	},
	types.QuestionOfferAmount: {
		SetupQuestions: []SetupQuestion{
			{ID: "currency_stipulation", Label: "Currency", Type: "radio", Options: []string{types.CurrencyAny, types.CurrencyOptions, types.CurrencyFixed}},
			{ID: "stipulated_currency", Label: "Stipulated currency", Type: "select", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyFixed}}},
			{ID: "currency_options", Label: "Allowed currencies", Type: "multiChoiceSelect", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyOptions}}},
		},
		DefaultUIConfig:   types.UIConfig{Label: "Offer amount"},
		RequiredByDefault: true,
	},
	types.QuestionBuyerType: {
		DefaultUIConfig: types.UIConfig{Label: "Are you buying as an individual or a company?"},
	},
	types.QuestionDeposit: {
		SetupQuestions: []SetupQuestion{
			{ID: "instalments", Label: "How is the deposit paid?", Type: "radio",
				Options: []string{types.InstalmentsSingle, types.InstalmentsTwoAlways, types.InstalmentsOneOrTwo, types.InstalmentsThreePlus}},
			{ID: "amount_management", Label: "Who sets the amount?", Type: "radio",
				Options: []string{types.AmountBuyerEnters, types.AmountBuyerChoice, types.AmountSellerFixed}},
			{ID: "fixed_amount", Label: "Fixed amount", Type: "number",
				DependsOn: &SetupDependency{QuestionID: "amount_management", Values: []string{types.AmountSellerFixed}}},
			{ID: "currency_stipulation", Label: "Currency", Type: "radio",
				Options: []string{types.CurrencyAny, types.CurrencyOptions, types.CurrencyFixed}},
			{ID: "stipulated_currency", Label: "Stipulated currency", Type: "select", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyFixed}}},
			{ID: "currency_options", Label: "Allowed currencies", Type: "multiChoiceSelect", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyOptions}}},
			{ID: "due_date_type", Label: "Due date", Type: "radio",
				Options: []string{types.DueDateCalendar, types.DueDateDaysAfter, types.DueDateNone}},
			{ID: "deposit_holding", Label: "Where is the deposit held?", Type: "radio",
				Options: []string{types.HoldingAgencyTrust, types.HoldingSolicitorTrust, types.HoldingNotAscertain}},
			{ID: "inst1_amount_management", Label: "Second instalment: who sets the amount?", Type: "radio",
				Options:   []string{types.AmountBuyerEnters, types.AmountBuyerChoice, types.AmountSellerFixed},
				DependsOn: &SetupDependency{QuestionID: "instalments", Values: []string{types.InstalmentsTwoAlways, types.InstalmentsOneOrTwo, types.InstalmentsThreePlus}}},
			{ID: "inst1_due_date_type", Label: "Second instalment: due date", Type: "radio",
				Options:   []string{types.DueDateCalendar, types.DueDateDaysAfter, types.DueDateNone},
				DependsOn: &SetupDependency{QuestionID: "instalments", Values: []string{types.InstalmentsTwoAlways, types.InstalmentsOneOrTwo, types.InstalmentsThreePlus}}},
			{ID: "inst2_amount_management", Label: "Third instalment: who sets the amount?", Type: "radio",
				Options:   []string{types.AmountBuyerEnters, types.AmountBuyerChoice, types.AmountSellerFixed},
				DependsOn: &SetupDependency{QuestionID: "instalments", Values: []string{types.InstalmentsThreePlus}}},
			{ID: "inst2_due_date_type", Label: "Third instalment: due date", Type: "radio",
				Options:   []string{types.DueDateCalendar, types.DueDateDaysAfter, types.DueDateNone},
				DependsOn: &SetupDependency{QuestionID: "instalments", Values: []string{types.InstalmentsThreePlus}}},
		},
		DefaultUIConfig: types.UIConfig{Label: "Deposit"},
	},
	types.QuestionLoanApproval: {
		SetupQuestions: []SetupQuestion{
			{ID: "lender_details", Label: "Lender details", Type: "radio", Options: requirementOptions},
			{ID: "attachments", Label: "Supporting documents", Type: "radio", Options: requirementOptions},
			{ID: "evidence_of_funds", Label: "Evidence of funds", Type: "radio", Options: requirementOptions},
		},
		DefaultUIConfig: types.UIConfig{Label: "Is this offer subject to loan approval?"},
	},
	types.QuestionSaleOfProperty: {
		DefaultUIConfig: types.UIConfig{Label: "Is this offer subject to the sale of another property?"},
	},
	types.QuestionPurchaserName: {
		SetupQuestions: []SetupQuestion{
			{ID: "method", Label: "How are purchasers captured?", Type: "radio",
				Options: []string{types.PurchaserSingleField, types.PurchaserIndividualNames}},
			{ID: "require_id_document", Label: "Require an ID document", Type: "radio", Options: []string{"yes", "no"}},
		},
		DefaultUIConfig: types.UIConfig{Label: "Purchaser name(s)"},
	},
	types.QuestionOfferExpiry: {
		DefaultUIConfig: types.UIConfig{Label: "When does this offer expire?"},
	},
	types.QuestionSettlementDate: {
		DefaultUIConfig: types.UIConfig{Label: "Preferred settlement date"},
	},
	types.QuestionEvidenceOfFunds: {
		DefaultUIConfig: types.UIConfig{Label: "Evidence of funds"},
	},
	types.QuestionSolicitorDetails: {
		DefaultUIConfig: types.UIConfig{Label: "Solicitor or conveyancer details"},
	},
	types.QuestionAdditionalConditions: {
		DefaultUIConfig: types.UIConfig{Label: "Additional conditions"},
	},
	types.QuestionMessage: {
		DefaultUIConfig: types.UIConfig{Label: "Your message"},
	},
	types.QuestionPriceRange: {
		DefaultUIConfig: types.UIConfig{Label: "What is your price range?"},
	},
	types.QuestionInspectionStatus: {
		DefaultUIConfig: types.UIConfig{Label: "Have you inspected the property?"},
	},
	types.QuestionCustom: {
		SetupQuestions: []SetupQuestion{
			{ID: "question_text", Label: "Question text", Type: "text"},
			{ID: "answer_type", Label: "Answer type", Type: "select",
				Options: []string{types.AnswerShortText, types.AnswerLongText, types.AnswerNumberAmount, types.AnswerFileUpload, types.AnswerTimeDate, types.AnswerYesNo, types.AnswerSingleSelect, types.AnswerMultiSelect, types.AnswerStatement}},
			{ID: "number_type", Label: "Number type", Type: "radio", Options: []string{"number", "money"},
				DependsOn: &SetupDependency{QuestionID: "answer_type", Values: []string{types.AnswerNumberAmount}}},
			{ID: "currency_stipulation", Label: "Currency", Type: "radio",
				Options:   []string{types.CurrencyAny, types.CurrencyOptions, types.CurrencyFixed},
				DependsOn: &SetupDependency{QuestionID: "number_type", Values: []string{"money"}}},
			{ID: "stipulated_currency", Label: "Stipulated currency", Type: "select", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyFixed}}},
			{ID: "currency_options", Label: "Allowed currencies", Type: "multiChoiceSelect", Options: currencyList,
				DependsOn: &SetupDependency{QuestionID: "currency_stipulation", Values: []string{types.CurrencyOptions}}},
			{ID: "select_options", Label: "Options", Type: "multiChoiceSelect",
				DependsOn: &SetupDependency{QuestionID: "answer_type", Values: []string{types.AnswerSingleSelect, types.AnswerMultiSelect}}},
			{ID: "add_tickbox", Label: "Add a tickbox", Type: "radio", Options: []string{"yes", "no"}},
			{ID: "tickbox_label", Label: "Tickbox label", Type: "text",
				DependsOn: &SetupDependency{QuestionID: "add_tickbox", Values: []string{"yes"}}},
		},
		DefaultUIConfig: types.UIConfig{Label: "Custom question"},
	},
	types.QuestionStatement: {
		DefaultUIConfig: types.UIConfig{Label: ""},
	},
	types.QuestionSubmitButton: {
		DefaultUIConfig:   types.UIConfig{Label: "Submit"},
		RequiredByDefault: true,
	},
}

// CatalogLookup returns the catalog entry of a question type. Pure lookup,
// no side effects.
func CatalogLookup(t types.QuestionType) (CatalogEntry, bool) {
	entry, ok := questionCatalog[t]
	return entry, ok
}

// VisibleSetupQuestions filters an entry's setup questions by their
// dependsOn gating against the current setup answers. A field is visible
// only when its whole dependency chain holds, so hiding a parent hides all
// of its descendants.
func VisibleSetupQuestions(entry CatalogEntry, answers map[string]interface{}) []SetupQuestion {
	byID := make(map[string]SetupQuestion, len(entry.SetupQuestions))
	for _, sq := range entry.SetupQuestions {
		byID[sq.ID] = sq
	}

	memo := make(map[string]bool)
	var visible func(sq SetupQuestion) bool
	visible = func(sq SetupQuestion) bool {
		if v, ok := memo[sq.ID]; ok {
			return v
		}
		memo[sq.ID] = false // guards against dependency cycles
		res := true
		if sq.DependsOn != nil {
			parent, ok := byID[sq.DependsOn.QuestionID]
			if !ok || !visible(parent) {
				res = false
			} else {
				val, _ := answers[sq.DependsOn.QuestionID].(string)
				res = false
				for _, want := range sq.DependsOn.Values {
					if val == want {
						res = true
						break
					}
				}
			}
		}
		memo[sq.ID] = res
		return res
	}

	var out []SetupQuestion
	for _, sq := range entry.SetupQuestions {
		if visible(sq) {
			out = append(out, sq)
		}
	}
	return out
}

// SetupDependents returns the ids of setup questions downstream of the
// changed one, in catalog order. The builder UI re-evaluates exactly these
// after an answer changes instead of re-checking every field.
func SetupDependents(entry CatalogEntry, changedID string) []string {
	affected := map[string]bool{changedID: true}

	// Edges only point backwards in catalog order, one pass suffices.
	var out []string
	for _, sq := range entry.SetupQuestions {
		if sq.DependsOn != nil && affected[sq.DependsOn.QuestionID] {
			affected[sq.ID] = true
			out = append(out, sq.ID)
		}
	}
	return out
}

type defaultQuestion struct {
	Type     types.QuestionType
	Required bool
}

var defaultOfferQuestions = []defaultQuestion{
	{types.QuestionSubmitterName, true},
	{types.QuestionSubmitterEmail, true},
	{types.QuestionSubmitterPhone, true},
	{types.QuestionSpecifyListing, true},
	{types.QuestionOfferAmount, true},
	{types.QuestionSubmitButton, true},
}

var defaultLeadQuestions = []defaultQuestion{
	{types.QuestionSubmitterName, true},
	{types.QuestionSubmitterEmail, true},
	{types.QuestionSubmitterPhone, false},
	{types.QuestionListingInterest, false},
	{types.QuestionMessage, false},
	{types.QuestionSubmitButton, true},
}

// ProvisionForm creates an owner's form of the given kind with the default
// question set on a single page. The submit button goes last.
func ProvisionForm(db *gorm.DB, owner *dao.User, kind types.FormKind) (*dao.Form, error) {
	defaults := defaultOfferQuestions
	if kind == types.FormKindLead {
		defaults = defaultLeadQuestions
	}

	form := dao.Form{
		ID:        dao.GenUUID(),
		CreatedAt: time.Now(),
		OwnerId:   owner.ID,
		Kind:      kind,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&form).Error; err != nil {
			return err
		}

		page := dao.FormPage{
			ID:     dao.GenUUID(),
			FormId: form.ID,
			Order:  1,
		}
		if err := tx.Create(&page).Error; err != nil {
			return err
		}

		for i, def := range defaults {
			entry := questionCatalog[def.Type]
			q := dao.FormQuestion{
				ID:       string(def.Type),
				FormId:   form.ID,
				Type:     def.Type,
				Order:    i + 1,
				Required: def.Required,
				PageId:   page.ID,
				UIConfig: entry.DefaultUIConfig,
			}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &form, nil
}
