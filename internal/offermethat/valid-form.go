// Validation schema builder for submitted forms. Every rule accumulates
// into a per-field error map, nothing short-circuits: the caller gets the
// full picture and decides whether to block submission.
package offermethat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
)

const maxTextLen = 150

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type FieldErrors map[string]string

type questionValidateFunc func(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors)

var questionValidators = map[types.QuestionType]questionValidateFunc{
	types.QuestionSubmitterName:   validateName,
	types.QuestionPurchaserName:   validatePurchaser,
	types.QuestionSubmitterEmail:  validateEmail,
	types.QuestionSubmitterPhone:  validatePhone,
	types.QuestionOfferAmount:     validateAmount,
	types.QuestionPriceRange:      validateAmount,
	types.QuestionOfferExpiry:     validateDate,
	types.QuestionSettlementDate:  validateDate,
	types.QuestionDeposit:         validateDeposit,
	types.QuestionLoanApproval:    validateLoanApproval,
	types.QuestionCustom:          validateCustom,
	types.QuestionSubmitButton:    validateSubmit,
	types.QuestionSpecifyListing:  validateListingRef,
	types.QuestionListingInterest: validateListingRef,
	types.QuestionStatement:       validateNothing,
}

type FormValidator struct {
	questions []dao.FormQuestion
	kind      types.FormKind
}

// BuildFormValidator composes a validator over the form's question list.
func BuildFormValidator(questions []dao.FormQuestion, kind types.FormKind) *FormValidator {
	return &FormValidator{questions: questions, kind: kind}
}

// Validate checks a full answer map and returns every field error keyed by
// question id (or a nested path for generated sub-fields).
func (v *FormValidator) Validate(answers map[string]interface{}) (bool, FieldErrors) {
	errs := FieldErrors{}
	for i := range v.questions {
		q := &v.questions[i]
		val := normalizeAbsent(answers[q.ID])

		fn, ok := questionValidators[q.Type]
		if !ok {
			if q.Required && val == nil {
				errs[q.ID] = "required"
			}
			continue
		}
		fn(v, q, val, errs)
	}
	return len(errs) == 0, errs
}

// normalizeAbsent maps empty string and nil to "absent" so optional fields
// never fail type checks on an empty value.
func normalizeAbsent(val interface{}) interface{} {
	if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return val
}

func validateNothing(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {}

func validateName(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	obj, ok := val.(map[string]interface{})
	if !ok {
		errs[q.ID] = "expected first and last name"
		return
	}

	first, _ := obj["firstName"].(string)
	last, _ := obj["lastName"].(string)
	if q.Required && (strings.TrimSpace(first) == "" || strings.TrimSpace(last) == "") {
		errs[q.ID] = "first and last name are required"
		return
	}
	if utf8.RuneCountInString(first) > maxTextLen || utf8.RuneCountInString(last) > maxTextLen {
		errs[q.ID] = fmt.Sprintf("name parts must be at most %d characters", maxTextLen)
	}
}

func validateEmail(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	email, ok := val.(string)
	if !ok {
		errs[q.ID] = "invalid email"
		return
	}
	if len(email) > maxTextLen || !emailRegexp.MatchString(email) {
		errs[q.ID] = "invalid email"
	}
}

func validatePhone(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	// Legacy answers are a bare string, newer ones split the country code.
	var raw string
	switch p := val.(type) {
	case string:
		raw = p
	case map[string]interface{}:
		code, _ := p["countryCode"].(string)
		number, _ := p["number"].(string)
		raw = code + number
	default:
		errs[q.ID] = "invalid phone number"
		return
	}

	minDigits := 8
	if v.kind == types.FormKindLead {
		minDigits = 4
	}
	if countDigits(raw) < minDigits {
		errs[q.ID] = fmt.Sprintf("phone number needs at least %d digits", minDigits)
	}
}

func validateAmount(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	var amount float64
	var ok bool
	switch a := val.(type) {
	case map[string]interface{}:
		amount, ok = toFloat(a["amount"])
	default:
		amount, ok = toFloat(val)
	}

	if !ok {
		errs[q.ID] = "invalid amount"
		return
	}
	if q.Required && amount <= 0 {
		errs[q.ID] = "amount must be greater than zero"
	}
}

func validateDate(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	if msg := checkDateNotPast(val); msg != "" {
		errs[q.ID] = msg
	}
}

// checkDateNotPast rejects any date strictly before today at local
// midnight. Today is fine.
func checkDateNotPast(val interface{}) string {
	s, ok := val.(string)
	if !ok {
		return "invalid date"
	}

	parsed, err := time.ParseInLocation("2006-01-02", s[:min(len(s), 10)], time.Local)
	if err != nil {
		return "invalid date"
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if parsed.Before(today) {
		return "date must not be in the past"
	}
	return ""
}

func validateDeposit(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	sub, ok := val.(map[string]interface{})
	if !ok {
		errs[q.ID] = "invalid deposit answer"
		return
	}

	for key, subVal := range sub {
		subVal = normalizeAbsent(subVal)
		if subVal == nil {
			continue
		}

		// Currency selectors ride alongside their amount field under
		// `<field>_currency` and hold a currency code, not a number.
		if strings.HasSuffix(key, "_currency") {
			if _, ok := subVal.(string); !ok {
				errs[q.ID+"."+key] = "invalid currency"
			}
			continue
		}

		switch {
		case strings.HasPrefix(key, "deposit_due_days"):
			if _, ok := toFloat(subVal); !ok {
				errs[q.ID+"."+key] = "invalid number of days"
			}
		case strings.HasPrefix(key, "deposit_due"):
			if msg := checkDateNotPast(subVal); msg != "" {
				errs[q.ID+"."+key] = msg
			}
		case strings.HasPrefix(key, "deposit_amount"), strings.HasPrefix(key, "deposit_percentage"):
			amount, ok := toFloat(subVal)
			if !ok {
				errs[q.ID+"."+key] = "invalid amount"
			} else if amount <= 0 {
				errs[q.ID+"."+key] = "amount must be greater than zero"
			}
		}
	}
}

func validateLoanApproval(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	sub, ok := val.(map[string]interface{})
	if !ok {
		errs[q.ID] = "invalid answer"
		return
	}

	subject, _ := sub["subjectToLoan"].(string)
	if q.Required && subject == "" {
		errs[q.ID+".subjectToLoan"] = "required"
		return
	}
	if subject != "yes" {
		return
	}

	cfg, err := types.DecodeSetupConfig(q.Type, q.SetupConfig)
	if err != nil {
		return
	}
	loanCfg, ok := cfg.(*types.LoanApprovalConfig)
	if !ok {
		return
	}

	// A supporting document is required only when the loan gate is "yes"
	// and the setup (or a field-level override) says so.
	if q.UIConfig.SubRequired("loan_documents", loanCfg.Attachments == types.RequirementRequired) {
		if !hasAnswer(sub["loan_documents"]) {
			errs[q.ID+".loan_documents"] = "supporting document is required"
		}
	}
	if q.UIConfig.SubRequired("lender_details", loanCfg.LenderDetails == types.RequirementRequired) {
		if !hasAnswer(sub["lender_details"]) {
			errs[q.ID+".lender_details"] = "lender details are required"
		}
	}
}

func validatePurchaser(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	switch p := val.(type) {
	case string:
		if utf8.RuneCountInString(p) > maxTextLen {
			errs[q.ID] = fmt.Sprintf("name must be at most %d characters", maxTextLen)
		}
	case map[string]interface{}:
		// Generated purchaser sub-fields, nothing type-specific to check
		// beyond presence.
	default:
		errs[q.ID] = "invalid purchaser answer"
	}
}

func validateCustom(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}

	cfg, err := types.DecodeSetupConfig(q.Type, q.SetupConfig)
	if err != nil {
		return
	}
	custom, ok := cfg.(*types.CustomConfig)
	if !ok {
		return
	}

	switch custom.AnswerType {
	case types.AnswerNumberAmount:
		inner := val
		if obj, ok := val.(map[string]interface{}); ok {
			inner = obj["amount"]
		}
		if _, ok := toFloat(inner); !ok {
			errs[q.ID] = "invalid number"
		}
	case types.AnswerTimeDate:
		if msg := checkDateNotPast(val); msg == "invalid date" {
			errs[q.ID] = msg
		}
	case types.AnswerSingleSelect:
		s, _ := val.(string)
		if !containsString(custom.SelectOptions, s) {
			errs[q.ID] = "not an allowed option"
		}
	case types.AnswerMultiSelect:
		items, ok := val.([]interface{})
		if !ok {
			errs[q.ID] = "not an allowed option"
			return
		}
		for _, item := range items {
			s, _ := item.(string)
			if !containsString(custom.SelectOptions, s) {
				errs[q.ID] = "not an allowed option"
				return
			}
		}
	}
}

func validateSubmit(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	// Terms acceptance must be exactly true, nothing else passes.
	if accepted, ok := val.(bool); !ok || !accepted {
		errs[q.ID] = "terms must be accepted"
	}
}

func validateListingRef(v *FormValidator, q *dao.FormQuestion, val interface{}, errs FieldErrors) {
	if val == nil {
		if q.Required {
			errs[q.ID] = "required"
		}
		return
	}
	if _, ok := val.(string); !ok {
		errs[q.ID] = "invalid listing reference"
	}
}

func hasAnswer(val interface{}) bool {
	switch a := val.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(a) != ""
	case []interface{}:
		return len(a) > 0
	}
	return true
}

func countDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

func containsString(arr []string, val string) bool {
	for _, item := range arr {
		if item == val {
			return true
		}
	}
	return false
}

func toFloat(val interface{}) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
