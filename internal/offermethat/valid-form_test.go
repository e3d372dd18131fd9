package offermethat

import (
	"strings"
	"testing"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccumulatesErrors(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterName), Type: types.QuestionSubmitterName, Order: 1, Required: true},
		{ID: string(types.QuestionSubmitterEmail), Type: types.QuestionSubmitterEmail, Order: 2, Required: true},
		{ID: string(types.QuestionOfferAmount), Type: types.QuestionOfferAmount, Order: 3, Required: true},
		{ID: string(types.QuestionSubmitButton), Type: types.QuestionSubmitButton, Order: 4, Required: true},
	}

	ok, errs := BuildFormValidator(questions, types.FormKindOffer).Validate(map[string]interface{}{
		string(types.QuestionSubmitterEmail): "not-an-email",
		string(types.QuestionOfferAmount):    "abc",
	})
	require.False(t, ok)

	// Every broken field reports, nothing short-circuits.
	assert.Len(t, errs, 4)
	assert.Equal(t, "required", errs[string(types.QuestionSubmitterName)])
	assert.Equal(t, "invalid email", errs[string(types.QuestionSubmitterEmail)])
	assert.Equal(t, "invalid amount", errs[string(types.QuestionOfferAmount)])
	assert.NotEmpty(t, errs[string(types.QuestionSubmitButton)])
}

func TestValidateSubmitButton(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitButton), Type: types.QuestionSubmitButton, Order: 1, Required: true},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	ok, _ := v.Validate(map[string]interface{}{string(types.QuestionSubmitButton): true})
	assert.True(t, ok)

	// Only the boolean true passes, not a truthy string and not false.
	for _, val := range []interface{}{"true", false, 1, nil} {
		ok, errs := v.Validate(map[string]interface{}{string(types.QuestionSubmitButton): val})
		assert.False(t, ok, "value %v must not pass", val)
		assert.Contains(t, errs, string(types.QuestionSubmitButton))
	}
}

func TestValidatePhoneDigits(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterPhone), Type: types.QuestionSubmitterPhone, Order: 1, Required: true},
	}

	offerValidator := BuildFormValidator(questions, types.FormKindOffer)
	leadValidator := BuildFormValidator(questions, types.FormKindLead)

	short := map[string]interface{}{string(types.QuestionSubmitterPhone): "12 34 5"}
	ok, _ := offerValidator.Validate(short)
	assert.False(t, ok)
	ok, _ = leadValidator.Validate(short)
	assert.True(t, ok)

	split := map[string]interface{}{string(types.QuestionSubmitterPhone): map[string]interface{}{
		"countryCode": "+61",
		"number":      "412 345 678",
	}}
	ok, _ = offerValidator.Validate(split)
	assert.True(t, ok)
}

func TestValidateDateNotPast(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSettlementDate), Type: types.QuestionSettlementDate, Order: 1},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	today := time.Now().Format("2006-01-02")
	ok, _ := v.Validate(map[string]interface{}{string(types.QuestionSettlementDate): today})
	assert.True(t, ok, "today must pass")

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	ok, errs := v.Validate(map[string]interface{}{string(types.QuestionSettlementDate): yesterday})
	assert.False(t, ok)
	assert.Equal(t, "date must not be in the past", errs[string(types.QuestionSettlementDate)])

	// Optional and absent: no error.
	ok, _ = v.Validate(map[string]interface{}{})
	assert.True(t, ok)
}

func TestValidateDepositSubFields(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    string(types.QuestionDeposit),
			Type:  types.QuestionDeposit,
			Order: 1,
		},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	ok, errs := v.Validate(map[string]interface{}{
		string(types.QuestionDeposit): map[string]interface{}{
			"deposit_amount":   "0",
			"deposit_due":      yesterday,
			"deposit_due_days": "soon",
		},
	})
	require.False(t, ok)

	assert.Equal(t, "amount must be greater than zero", errs["depositField.deposit_amount"])
	assert.Equal(t, "date must not be in the past", errs["depositField.deposit_due"])
	assert.Equal(t, "invalid number of days", errs["depositField.deposit_due_days"])
}

func TestValidateDepositCurrencySelector(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    string(types.QuestionDeposit),
			Type:  types.QuestionDeposit,
			Order: 1,
			SetupConfig: mustSetup(t, &types.DepositConfig{
				Instalments:         types.InstalmentsTwoAlways,
				AmountManagement:    types.AmountBuyerEnters,
				CurrencyStipulation: types.CurrencyOptions,
				CurrencyOptions:     []string{"AUD", "NZD"},
			}),
		},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	// The currency selector answer sits next to its amount field and is a
	// currency code, never a number.
	ok, errs := v.Validate(map[string]interface{}{
		string(types.QuestionDeposit): map[string]interface{}{
			"deposit_amount":                       "5000",
			"deposit_amount_currency":              "AUD",
			"deposit_amount_instalment_2":          "2500",
			"deposit_amount_instalment_2_currency": "NZD",
		},
	})
	assert.True(t, ok, "should be valid, got %v", errs)

	ok, errs = v.Validate(map[string]interface{}{
		string(types.QuestionDeposit): map[string]interface{}{
			"deposit_amount":          "5000",
			"deposit_amount_currency": 42,
		},
	})
	require.False(t, ok)
	assert.Equal(t, "invalid currency", errs["depositField.deposit_amount_currency"])
}

func TestValidateNameLength(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterName), Type: types.QuestionSubmitterName, Order: 1, Required: true},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	// The cap counts characters, not bytes.
	ok, _ := v.Validate(map[string]interface{}{
		string(types.QuestionSubmitterName): map[string]interface{}{
			"firstName": strings.Repeat("ø", 150),
			"lastName":  "Strand",
		},
	})
	assert.True(t, ok)

	ok, errs := v.Validate(map[string]interface{}{
		string(types.QuestionSubmitterName): map[string]interface{}{
			"firstName": strings.Repeat("ø", 151),
			"lastName":  "Strand",
		},
	})
	require.False(t, ok)
	assert.Contains(t, errs[string(types.QuestionSubmitterName)], "150")
}

func TestValidateLoanApprovalGating(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:       string(types.QuestionLoanApproval),
			Type:     types.QuestionLoanApproval,
			Order:    1,
			Required: true,
			SetupConfig: mustSetup(t, &types.LoanApprovalConfig{
				LenderDetails: types.RequirementOptional,
				Attachments:   types.RequirementRequired,
			}),
		},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	// Gate answered "no": nothing else is required.
	ok, _ := v.Validate(map[string]interface{}{
		string(types.QuestionLoanApproval): map[string]interface{}{"subjectToLoan": "no"},
	})
	assert.True(t, ok)

	// Gate "yes" makes the configured attachment mandatory.
	ok, errs := v.Validate(map[string]interface{}{
		string(types.QuestionLoanApproval): map[string]interface{}{"subjectToLoan": "yes"},
	})
	require.False(t, ok)
	assert.Contains(t, errs, "subjectToLoanApproval.loan_documents")
	assert.NotContains(t, errs, "subjectToLoanApproval.lender_details")

	ok, _ = v.Validate(map[string]interface{}{
		string(types.QuestionLoanApproval): map[string]interface{}{
			"subjectToLoan":  "yes",
			"loan_documents": "https://example.com/doc.pdf",
		},
	})
	assert.True(t, ok)
}

func TestValidateCustomSelect(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:       "custom_pets",
			Type:     types.QuestionCustom,
			Order:    1,
			Required: true,
			SetupConfig: mustSetup(t, &types.CustomConfig{
				QuestionText:  "Any pets?",
				AnswerType:    types.AnswerSingleSelect,
				SelectOptions: []string{"yes", "no"},
			}),
		},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	ok, _ := v.Validate(map[string]interface{}{"custom_pets": "yes"})
	assert.True(t, ok)

	ok, errs := v.Validate(map[string]interface{}{"custom_pets": "maybe"})
	assert.False(t, ok)
	assert.Equal(t, "not an allowed option", errs["custom_pets"])
}

func TestValidateEmptyStringIsAbsent(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterEmail), Type: types.QuestionSubmitterEmail, Order: 1},
	}
	v := BuildFormValidator(questions, types.FormKindOffer)

	// Empty answers to optional questions never fail type checks.
	ok, _ := v.Validate(map[string]interface{}{string(types.QuestionSubmitterEmail): "  "})
	assert.True(t, ok)
}
