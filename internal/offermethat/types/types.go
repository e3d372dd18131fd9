// Custom column types shared by the dao layer and the form engine.
// All JSONB-backed types implement driver.Valuer and sql.Scanner so gorm can
// persist them as jsonb columns on Postgres and as text on sqlite in tests.
package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType enumerates the question kinds the catalog knows about.
// Well-known questions use their type as question id when provisioned, so
// answer maps and validation error paths are keyed by these values.
type QuestionType string

const (
	QuestionSubmitterName        QuestionType = "submitterName"
	QuestionSubmitterEmail       QuestionType = "submitterEmail"
	QuestionSubmitterPhone       QuestionType = "submitterPhone"
	QuestionOfferAmount          QuestionType = "offerAmount"
	QuestionBuyerType            QuestionType = "buyerType"
	QuestionSpecifyListing       QuestionType = "specifyListing"
	QuestionListingInterest      QuestionType = "listingInterest"
	QuestionDeposit              QuestionType = "depositField"
	QuestionLoanApproval         QuestionType = "subjectToLoanApproval"
	QuestionSaleOfProperty       QuestionType = "subjectToSaleOfProperty"
	QuestionPurchaserName        QuestionType = "purchaserName"
	QuestionOfferExpiry          QuestionType = "offerExpiry"
	QuestionSettlementDate       QuestionType = "settlementDate"
	QuestionEvidenceOfFunds      QuestionType = "evidenceOfFunds"
	QuestionSolicitorDetails     QuestionType = "solicitorDetails"
	QuestionAdditionalConditions QuestionType = "additionalConditions"
	QuestionMessage              QuestionType = "message"
	QuestionPriceRange           QuestionType = "priceRange"
	QuestionInspectionStatus     QuestionType = "inspectionStatus"
	QuestionCustom               QuestionType = "custom"
	QuestionStatement            QuestionType = "statement"
	QuestionSubmitButton         QuestionType = "submitButton"
)

type FormKind string

const (
	FormKindOffer FormKind = "offer"
	FormKindLead  FormKind = "lead"
)

// Record statuses for offers and leads.
const (
	StatusNew        = "new"
	StatusUnassigned = "unassigned"
	StatusAccepted   = "accepted"
	StatusDeclined   = "declined"
	StatusArchived   = "archived"
)

func jsonbValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonbScan(value interface{}, target interface{}) error {
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, target)
	case string:
		return json.Unmarshal([]byte(data), target)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// SubQuestionUI overrides rendering hints of one generated sub-question.
// Required, when set, wins over the coarse setup-level requirement.
type SubQuestionUI struct {
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    *bool  `json:"required,omitempty"`
}

type UIConfig struct {
	Label        string                   `json:"label,omitempty"`
	Placeholder  string                   `json:"placeholder,omitempty"`
	Description  string                   `json:"description,omitempty"`
	SubQuestions map[string]SubQuestionUI `json:"subQuestions,omitempty"`
}

func (u UIConfig) Value() (driver.Value, error) { return jsonbValue(u) }
func (u *UIConfig) Scan(value interface{}) error {
	return jsonbScan(value, u)
}

// SubRequired resolves the effective requiredness of a generated sub-question.
func (u UIConfig) SubRequired(subID string, fallback bool) bool {
	if sub, ok := u.SubQuestions[subID]; ok && sub.Required != nil {
		return *sub.Required
	}
	return fallback
}

type BrandingConfig struct {
	PrimaryColor string `json:"primary_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	Intro        string `json:"intro,omitempty"`
}

func (b BrandingConfig) Value() (driver.Value, error) { return jsonbValue(b) }
func (b *BrandingConfig) Scan(value interface{}) error {
	return jsonbScan(value, b)
}

// TargetDate is a date-only value serialized as 2006-01-02.
type TargetDate struct {
	time.Time
}

const targetDateFormat = "2006-01-02"

func (d TargetDate) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.Time.Format(targetDateFormat))), nil
}

func (d *TargetDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	t, err := time.Parse(targetDateFormat, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d TargetDate) Value() (driver.Value, error) {
	if d.Time.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *TargetDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		d.Time = v
	case string:
		t, err := time.Parse(targetDateFormat, v)
		if err != nil {
			return err
		}
		d.Time = t
	case nil:
	default:
		return fmt.Errorf("unsupported date source type %T", value)
	}
	return nil
}

// Instalment is one scheduled deposit part in the canonical persisted form.
type Instalment struct {
	DepositType string   `json:"depositType,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Percentage  *float64 `json:"percentage,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	DueDateType string   `json:"dueDateType,omitempty"`
	Holding     string   `json:"holding,omitempty"`
}

// DepositData is the canonical flattened deposit shape written to the record.
// Single-instalment deposits carry amount/percentage at the top level;
// multi-instalment deposits carry instalment_N sub-objects.
type DepositData struct {
	Instalments    string   `json:"instalments"`
	NumInstalments int      `json:"numInstalments"`
	DepositType    string   `json:"depositType,omitempty"`
	Amount         *float64 `json:"amount,omitempty"`
	Percentage     *float64 `json:"percentage,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	DueDate        string   `json:"dueDate,omitempty"`
	Holding        string   `json:"holding,omitempty"`

	Instalment1 *Instalment `json:"instalment_1,omitempty"`
	Instalment2 *Instalment `json:"instalment_2,omitempty"`
	Instalment3 *Instalment `json:"instalment_3,omitempty"`
}

func (d DepositData) Value() (driver.Value, error) { return jsonbValue(d) }
func (d *DepositData) Scan(value interface{}) error {
	return jsonbScan(value, d)
}

// PurchaserData encodes which setup branch produced the purchaser answer.
type PurchaserData struct {
	Method     string            `json:"method"`
	Name       string            `json:"name,omitempty"`
	IDFileURL  string            `json:"idFileUrl,omitempty"`
	Scenario   string            `json:"scenario,omitempty"`
	NameFields map[string]string `json:"nameFields,omitempty"`
	IDFileURLs []string          `json:"idFileUrls,omitempty"`
}

func (p PurchaserData) Value() (driver.Value, error) { return jsonbValue(p) }
func (p *PurchaserData) Scan(value interface{}) error {
	return jsonbScan(value, p)
}

type LoanApprovalData struct {
	SubjectToLoan string   `json:"subjectToLoan"`
	LenderName    string   `json:"lenderName,omitempty"`
	DocumentURLs  []string `json:"documentUrls,omitempty"`
}

func (l LoanApprovalData) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *LoanApprovalData) Scan(value interface{}) error {
	return jsonbScan(value, l)
}

// CustomAnswer is one answered custom question with its setup context kept
// alongside the value, so the record stays readable after the form changes.
type CustomAnswer struct {
	QuestionText string      `json:"questionText"`
	AnswerType   string      `json:"answerType"`
	Value        interface{} `json:"value"`
}

type CustomAnswers map[string]CustomAnswer

func (c CustomAnswers) Value() (driver.Value, error) { return jsonbValue(c) }
func (c *CustomAnswers) Scan(value interface{}) error {
	return jsonbScan(value, c)
}

// TaggedValue is one residual answer kept with enough context to stay
// interpretable without the originating question row.
type TaggedValue struct {
	QuestionType QuestionType `json:"questionType"`
	QuestionID   string       `json:"questionId"`
	Value        interface{}  `json:"value"`
}

// ExtensionBag is an insertion-ordered map of question id to tagged value.
// It is the catch-all for answers with no named column on the record.
type ExtensionBag struct {
	keys   []string
	values map[string]TaggedValue
}

func (b *ExtensionBag) Set(id string, v TaggedValue) {
	if b.values == nil {
		b.values = make(map[string]TaggedValue)
	}
	if _, ok := b.values[id]; !ok {
		b.keys = append(b.keys, id)
	}
	b.values[id] = v
}

func (b *ExtensionBag) Get(id string) (TaggedValue, bool) {
	v, ok := b.values[id]
	return v, ok
}

func (b *ExtensionBag) Len() int { return len(b.keys) }

func (b *ExtensionBag) Keys() []string {
	keys := make([]string, len(b.keys))
	copy(keys, b.keys)
	return keys
}

func (b ExtensionBag) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, key := range b.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(b.values[key])
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (b *ExtensionBag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extension bag must be a JSON object")
	}
	b.keys = nil
	b.values = make(map[string]TaggedValue)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var value TaggedValue
		if err := dec.Decode(&value); err != nil {
			return err
		}
		b.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

func (b ExtensionBag) Value() (driver.Value, error) { return jsonbValue(b) }
func (b *ExtensionBag) Scan(value interface{}) error {
	return jsonbScan(value, b)
}
