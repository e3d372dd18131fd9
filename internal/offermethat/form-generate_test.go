package offermethat

import (
	"testing"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSetup(t *testing.T, cfg types.SetupConfig) types.SetupConfigJSON {
	t.Helper()
	raw, err := types.EncodeSetupConfig(cfg)
	require.NoError(t, err)
	return raw
}

func fieldIDs(fields []dto.RenderedQuestion) []string {
	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	return ids
}

func TestGenerateDepositSelectorOnly(t *testing.T) {
	q := dao.FormQuestion{
		ID:   string(types.QuestionDeposit),
		Type: types.QuestionDeposit,
		SetupConfig: mustSetup(t, &types.DepositConfig{
			Instalments:      types.InstalmentsOneOrTwo,
			AmountManagement: types.AmountBuyerEnters,
		}),
	}

	// No count picked yet: only the selector renders.
	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "deposit_instalments", fields[0].ID)
	assert.Equal(t, []string{"1", "2"}, fields[0].Options)
}

func TestGenerateDepositInstalmentCount(t *testing.T) {
	q := dao.FormQuestion{
		ID:   string(types.QuestionDeposit),
		Type: types.QuestionDeposit,
		SetupConfig: mustSetup(t, &types.DepositConfig{
			Instalments:      types.InstalmentsThreePlus,
			AmountManagement: types.AmountBuyerEnters,
			DueDateType:      types.DueDateCalendar,
		}),
	}

	answers := map[string]interface{}{
		q.ID: map[string]interface{}{"deposit_instalments": "2"},
	}
	fields := GenerateSubQuestions(&q, answers)
	ids := fieldIDs(fields)
	assert.Contains(t, ids, "deposit_amount")
	assert.Contains(t, ids, "deposit_amount_instalment_2")
	assert.Contains(t, ids, "deposit_due_instalment_2")
	assert.NotContains(t, ids, "deposit_amount_instalment_3")

	// A count beyond the configured maximum truncates.
	answers[q.ID] = map[string]interface{}{"deposit_instalments": "7"}
	ids = fieldIDs(GenerateSubQuestions(&q, answers))
	assert.Contains(t, ids, "deposit_amount_instalment_3")
	assert.NotContains(t, ids, "deposit_amount_instalment_4")
}

func TestGenerateDepositIdempotent(t *testing.T) {
	q := dao.FormQuestion{
		ID:   string(types.QuestionDeposit),
		Type: types.QuestionDeposit,
		SetupConfig: mustSetup(t, &types.DepositConfig{
			Instalments:      types.InstalmentsTwoAlways,
			AmountManagement: types.AmountBuyerChoice,
			DueDateType:      types.DueDateDaysAfter,
			DepositHolding:   types.HoldingAgencyTrust,
		}),
	}
	answers := map[string]interface{}{
		q.ID: map[string]interface{}{"deposit_type": "percentage"},
	}

	first := GenerateSubQuestions(&q, answers)
	second := GenerateSubQuestions(&q, answers)
	assert.Equal(t, first, second)

	ids := fieldIDs(first)
	assert.Contains(t, ids, "deposit_percentage")
	assert.NotContains(t, ids, "deposit_amount")
	assert.Contains(t, ids, "deposit_holding")
}

func TestGenerateFixedCurrency(t *testing.T) {
	q := dao.FormQuestion{
		ID:   string(types.QuestionOfferAmount),
		Type: types.QuestionOfferAmount,
		SetupConfig: mustSetup(t, &types.AmountConfig{
			CurrencyStipulation: types.CurrencyFixed,
			StipulatedCurrency:  "EUR",
		}),
	}

	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "EUR", fields[0].Suffix)
	assert.Nil(t, fields[0].CurrencyField)
	assert.Empty(t, fields[0].Currencies)
}

func TestGenerateAmountCurrencySelector(t *testing.T) {
	q := dao.FormQuestion{
		ID:          string(types.QuestionOfferAmount),
		Type:        types.QuestionOfferAmount,
		SetupConfig: nil,
	}

	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].CurrencyField)
	assert.Equal(t, "offerAmount_currency", *fields[0].CurrencyField)
	assert.Equal(t, currencyList, fields[0].Currencies)
}

func TestGenerateLoanApprovalGate(t *testing.T) {
	q := dao.FormQuestion{
		ID:   string(types.QuestionLoanApproval),
		Type: types.QuestionLoanApproval,
		SetupConfig: mustSetup(t, &types.LoanApprovalConfig{
			LenderDetails: types.RequirementRequired,
			Attachments:   types.RequirementOptional,
		}),
	}

	// Gate unanswered or "no": only the gate renders.
	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "subjectToLoan", fields[0].ID)

	answers := map[string]interface{}{
		q.ID: map[string]interface{}{"subjectToLoan": "yes"},
	}
	fields = GenerateSubQuestions(&q, answers)
	ids := fieldIDs(fields)
	assert.Contains(t, ids, "lender_details")
	assert.Contains(t, ids, "loan_documents")

	for _, f := range fields {
		if f.ID == "lender_details" {
			assert.True(t, f.Required)
		}
		if f.ID == "loan_documents" {
			assert.False(t, f.Required)
		}
	}
}

func TestGenerateSubmitButton(t *testing.T) {
	q := dao.FormQuestion{
		ID:       string(types.QuestionSubmitButton),
		Type:     types.QuestionSubmitButton,
		Required: true,
		UIConfig: types.UIConfig{Label: "Submit"},
	}

	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "checkbox", fields[0].InputKind)
	assert.Equal(t, "I accept the terms and conditions", fields[0].Label)
	assert.True(t, fields[0].Required)
}

func TestGenerateSkipsBrokenSetup(t *testing.T) {
	broken := dao.FormQuestion{
		ID:          "custom_broken",
		Type:        types.QuestionCustom,
		SetupConfig: types.SetupConfigJSON(`{"answer_type":"nope"}`),
	}
	name := dao.FormQuestion{
		ID:   string(types.QuestionSubmitterName),
		Type: types.QuestionSubmitterName,
	}

	res := GenerateForm([]dao.FormQuestion{broken, name}, nil)
	assert.NotContains(t, res, "custom_broken")
	assert.Contains(t, res, string(types.QuestionSubmitterName))
}

func TestGenerateSubQuestionOverrides(t *testing.T) {
	required := false
	q := dao.FormQuestion{
		ID:   string(types.QuestionDeposit),
		Type: types.QuestionDeposit,
		SetupConfig: mustSetup(t, &types.DepositConfig{
			Instalments:      types.InstalmentsSingle,
			AmountManagement: types.AmountBuyerEnters,
		}),
		UIConfig: types.UIConfig{
			SubQuestions: map[string]types.SubQuestionUI{
				"deposit_amount": {Label: "Initial payment", Required: &required},
			},
		},
	}

	fields := GenerateSubQuestions(&q, nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "Initial payment", fields[0].Label)
	assert.False(t, fields[0].Required)
}

func TestVisibleSetupQuestions(t *testing.T) {
	entry, ok := CatalogLookup(types.QuestionDeposit)
	require.True(t, ok)

	visible := VisibleSetupQuestions(entry, nil)
	ids := make([]string, len(visible))
	for i, sq := range visible {
		ids[i] = sq.ID
	}
	assert.Contains(t, ids, "instalments")
	assert.NotContains(t, ids, "fixed_amount")
	assert.NotContains(t, ids, "inst1_due_date_type")

	visible = VisibleSetupQuestions(entry, map[string]interface{}{
		"amount_management": types.AmountSellerFixed,
		"instalments":       types.InstalmentsThreePlus,
	})
	ids = ids[:0]
	for _, sq := range visible {
		ids = append(ids, sq.ID)
	}
	assert.Contains(t, ids, "fixed_amount")
	assert.Contains(t, ids, "inst2_amount_management")
}

func TestVisibleSetupQuestionsHiddenParent(t *testing.T) {
	entry, ok := CatalogLookup(types.QuestionCustom)
	require.True(t, ok)

	// currency_stipulation depends on number_type=money which itself depends
	// on answer_type=number_amount. Answering only the leaf keeps the whole
	// chain hidden.
	visible := VisibleSetupQuestions(entry, map[string]interface{}{
		"currency_stipulation": types.CurrencyFixed,
	})
	for _, sq := range visible {
		assert.NotEqual(t, "stipulated_currency", sq.ID)
		assert.NotEqual(t, "currency_stipulation", sq.ID)
	}
}
