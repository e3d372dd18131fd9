package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Deposit instalment policies a seller can configure.
const (
	InstalmentsSingle    = "single"
	InstalmentsTwoAlways = "two_always"
	InstalmentsOneOrTwo  = "one_or_two"
	InstalmentsThreePlus = "three_plus"
)

// Who decides the deposit amount shape.
const (
	AmountBuyerEnters = "buyer_enters"
	AmountBuyerChoice = "buyer_choice"
	AmountSellerFixed = "seller_fixed"
)

// Currency stipulation modes for any amount-bearing field.
const (
	CurrencyAny     = "any"
	CurrencyOptions = "options"
	CurrencyFixed   = "fixed"
)

// Deposit due date shapes.
const (
	DueDateCalendar  = "calendar_date"
	DueDateDaysAfter = "days_after_acceptance"
	DueDateNone      = "not_required"
)

// Deposit holding arrangements.
const (
	HoldingAgencyTrust    = "agency_trust"
	HoldingSolicitorTrust = "solicitor_trust"
	HoldingNotAscertain   = "not_ascertain"
)

// Three-state requirement used by loan approval sub-fields.
const (
	RequirementRequired    = "required"
	RequirementOptional    = "optional"
	RequirementNotRequired = "not_required"
)

// Custom question answer kinds.
const (
	AnswerShortText    = "short_text"
	AnswerLongText     = "long_text"
	AnswerNumberAmount = "number_amount"
	AnswerFileUpload   = "file_upload"
	AnswerTimeDate     = "time_date"
	AnswerYesNo        = "yes_no"
	AnswerSingleSelect = "single_select"
	AnswerMultiSelect  = "multi_select"
	AnswerStatement    = "statement"
)

// Purchaser name capture methods.
const (
	PurchaserSingleField     = "single_field"
	PurchaserIndividualNames = "individual_names"
)

// SetupConfig is the decoded, type-specific configuration of one question.
// The concrete struct is selected by the question type; adding a question
// type with config means adding a case to DecodeSetupConfig, so unhandled
// types show up at the decode boundary instead of deep in rendering code.
type SetupConfig interface {
	setupConfig()
	Validate() error
}

type DepositConfig struct {
	Instalments         string   `json:"instalments"`
	AmountManagement    string   `json:"amount_management"`
	FixedAmount         *float64 `json:"fixed_amount,omitempty"`
	FixedPercentage     *float64 `json:"fixed_percentage,omitempty"`
	CurrencyStipulation string   `json:"currency_stipulation,omitempty"`
	StipulatedCurrency  string   `json:"stipulated_currency,omitempty"`
	CurrencyOptions     []string `json:"currency_options,omitempty"`
	DueDateType         string   `json:"due_date_type,omitempty"`
	DepositHolding      string   `json:"deposit_holding,omitempty"`

	// Settings reused by generated instalments beyond the first:
	// inst1_* applies to instalment 2, inst2_* to instalment 3.
	Inst1AmountManagement string `json:"inst1_amount_management,omitempty"`
	Inst1DueDateType      string `json:"inst1_due_date_type,omitempty"`
	Inst2AmountManagement string `json:"inst2_amount_management,omitempty"`
	Inst2DueDateType      string `json:"inst2_due_date_type,omitempty"`
}

func (*DepositConfig) setupConfig() {}

func (c *DepositConfig) Validate() error {
	switch c.Instalments {
	case InstalmentsSingle, InstalmentsTwoAlways, InstalmentsOneOrTwo, InstalmentsThreePlus:
	default:
		return fmt.Errorf("unknown instalment policy %q", c.Instalments)
	}
	switch c.AmountManagement {
	case AmountBuyerEnters, AmountBuyerChoice, AmountSellerFixed:
	default:
		return fmt.Errorf("unknown amount management %q", c.AmountManagement)
	}
	if err := validateCurrencyStipulation(c.CurrencyStipulation, c.StipulatedCurrency, c.CurrencyOptions); err != nil {
		return err
	}
	return nil
}

type LoanApprovalConfig struct {
	LenderDetails   string `json:"lender_details"`
	Attachments     string `json:"attachments"`
	EvidenceOfFunds string `json:"evidence_of_funds,omitempty"`
}

func (*LoanApprovalConfig) setupConfig() {}

func (c *LoanApprovalConfig) Validate() error {
	for _, req := range []string{c.LenderDetails, c.Attachments} {
		switch req {
		case RequirementRequired, RequirementOptional, RequirementNotRequired:
		default:
			return fmt.Errorf("unknown requirement %q", req)
		}
	}
	return nil
}

type CustomConfig struct {
	QuestionText        string   `json:"question_text"`
	AnswerType          string   `json:"answer_type"`
	NumberType          string   `json:"number_type,omitempty"`
	CurrencyStipulation string   `json:"currency_stipulation,omitempty"`
	StipulatedCurrency  string   `json:"stipulated_currency,omitempty"`
	CurrencyOptions     []string `json:"currency_options,omitempty"`
	SelectOptions       []string `json:"select_options,omitempty"`
	AddTickbox          bool     `json:"add_tickbox,omitempty"`
	TickboxLabel        string   `json:"tickbox_label,omitempty"`
}

func (*CustomConfig) setupConfig() {}

func (c *CustomConfig) Validate() error {
	switch c.AnswerType {
	case AnswerShortText, AnswerLongText, AnswerNumberAmount, AnswerFileUpload,
		AnswerTimeDate, AnswerYesNo, AnswerSingleSelect, AnswerMultiSelect, AnswerStatement:
	default:
		return fmt.Errorf("unknown answer type %q", c.AnswerType)
	}
	if c.QuestionText == "" {
		return fmt.Errorf("custom question text is required")
	}
	if (c.AnswerType == AnswerSingleSelect || c.AnswerType == AnswerMultiSelect) && len(c.SelectOptions) == 0 {
		return fmt.Errorf("select question has no options")
	}
	if c.AnswerType == AnswerNumberAmount && c.NumberType == "money" {
		return validateCurrencyStipulation(c.CurrencyStipulation, c.StipulatedCurrency, c.CurrencyOptions)
	}
	return nil
}

type AmountConfig struct {
	CurrencyStipulation string   `json:"currency_stipulation,omitempty"`
	StipulatedCurrency  string   `json:"stipulated_currency,omitempty"`
	CurrencyOptions     []string `json:"currency_options,omitempty"`
}

func (*AmountConfig) setupConfig() {}

func (c *AmountConfig) Validate() error {
	return validateCurrencyStipulation(c.CurrencyStipulation, c.StipulatedCurrency, c.CurrencyOptions)
}

type ListingRefConfig struct {
	AllowFreeText bool `json:"allow_free_text"`
}

func (*ListingRefConfig) setupConfig() {}
func (c *ListingRefConfig) Validate() error {
	return nil
}

type PurchaserConfig struct {
	Method            string `json:"method"`
	RequireIDDocument bool   `json:"require_id_document,omitempty"`
}

func (*PurchaserConfig) setupConfig() {}

func (c *PurchaserConfig) Validate() error {
	switch c.Method {
	case PurchaserSingleField, PurchaserIndividualNames:
		return nil
	default:
		return fmt.Errorf("unknown purchaser method %q", c.Method)
	}
}

func validateCurrencyStipulation(mode, fixed string, options []string) error {
	switch mode {
	case "", CurrencyAny:
	case CurrencyOptions:
		if len(options) == 0 {
			return fmt.Errorf("currency options list is empty")
		}
	case CurrencyFixed:
		if fixed == "" {
			return fmt.Errorf("stipulated currency is empty")
		}
	default:
		return fmt.Errorf("unknown currency stipulation %q", mode)
	}
	return nil
}

// SetupConfigJSON is the raw persisted form of a setup config. Decoding to
// the typed union happens at the store boundary via DecodeSetupConfig.
type SetupConfigJSON json.RawMessage

func (s SetupConfigJSON) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return string(s), nil
}

func (s *SetupConfigJSON) Scan(value interface{}) error {
	switch data := value.(type) {
	case []byte:
		*s = append((*s)[:0], data...)
	case string:
		*s = SetupConfigJSON(data)
	case nil:
		*s = nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return nil
}

func (s SetupConfigJSON) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *SetupConfigJSON) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// DecodeSetupConfig parses the raw blob into the config struct for the given
// question type. Types without setup config return (nil, nil).
func DecodeSetupConfig(t QuestionType, raw SetupConfigJSON) (SetupConfig, error) {
	decode := func(target SetupConfig) (SetupConfig, error) {
		if len(raw) == 0 {
			return nil, fmt.Errorf("missing setup config for question type %s", t)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, err
		}
		if err := target.Validate(); err != nil {
			return nil, err
		}
		return target, nil
	}

	switch t {
	case QuestionDeposit:
		return decode(&DepositConfig{})
	case QuestionLoanApproval:
		return decode(&LoanApprovalConfig{})
	case QuestionCustom:
		return decode(&CustomConfig{})
	case QuestionOfferAmount, QuestionPriceRange:
		if len(raw) == 0 {
			return &AmountConfig{}, nil
		}
		return decode(&AmountConfig{})
	case QuestionSpecifyListing, QuestionListingInterest:
		if len(raw) == 0 {
			return &ListingRefConfig{AllowFreeText: true}, nil
		}
		return decode(&ListingRefConfig{})
	case QuestionPurchaserName:
		return decode(&PurchaserConfig{})
	default:
		return nil, nil
	}
}

// EncodeSetupConfig is the write-side counterpart of DecodeSetupConfig.
func EncodeSetupConfig(cfg SetupConfig) (SetupConfigJSON, error) {
	if cfg == nil {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(cfg)
	return SetupConfigJSON(b), err
}
