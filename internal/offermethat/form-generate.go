// Question generator: expands a configured question into the concrete input
// fields a renderer shows. Pure over (question, answers), so regeneration
// with the same inputs yields the same field list.
package offermethat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
)

var currencyList = []string{"AUD", "NZD", "USD", "EUR", "GBP"}

// GenerateForm renders every question of a form. A question with an
// unknown type or broken setup config is skipped, never aborts the form.
func GenerateForm(questions []dao.FormQuestion, answers map[string]interface{}) map[string][]dto.RenderedQuestion {
	res := make(map[string][]dto.RenderedQuestion, len(questions))
	for i := range questions {
		fields := GenerateSubQuestions(&questions[i], answers)
		if fields != nil {
			res[questions[i].ID] = fields
		}
	}
	return res
}

// GenerateSubQuestions expands one question into renderable fields. Returns
// nil when the question cannot be rendered.
func GenerateSubQuestions(q *dao.FormQuestion, answers map[string]interface{}) []dto.RenderedQuestion {
	if _, ok := CatalogLookup(q.Type); !ok {
		return nil
	}

	cfg, err := types.DecodeSetupConfig(q.Type, q.SetupConfig)
	if err != nil {
		// Malformed setup config degrades to skipping this question only.
		return nil
	}

	switch c := cfg.(type) {
	case *types.DepositConfig:
		return generateDeposit(q, c, answers)
	case *types.LoanApprovalConfig:
		return generateLoanApproval(q, c, answers)
	case *types.CustomConfig:
		return generateCustom(q, c)
	case *types.AmountConfig:
		return generateAmount(q, c)
	case *types.ListingRefConfig:
		return []dto.RenderedQuestion{simpleField(q, q.ID, "input")}
	case *types.PurchaserConfig:
		return generatePurchaser(q, c, answers)
	}

	return generateSimple(q)
}

func generateSimple(q *dao.FormQuestion) []dto.RenderedQuestion {
	var kind string
	var options []string

	switch q.Type {
	case types.QuestionSubmitterName, types.QuestionPurchaserName:
		kind = "name"
	case types.QuestionSubmitterEmail:
		kind = "email"
	case types.QuestionSubmitterPhone:
		kind = "phone"
	case types.QuestionBuyerType:
		kind, options = "select", []string{"individual", "company"}
	case types.QuestionOfferExpiry, types.QuestionSettlementDate:
		kind = "date"
	case types.QuestionEvidenceOfFunds:
		kind = "file"
	case types.QuestionSolicitorDetails, types.QuestionAdditionalConditions, types.QuestionMessage:
		kind = "textarea"
	case types.QuestionSaleOfProperty, types.QuestionInspectionStatus:
		kind, options = "select", []string{"yes", "no"}
	case types.QuestionStatement:
		kind = "statement"
	case types.QuestionSubmitButton:
		f := simpleField(q, q.ID, "checkbox")
		if f.Label == "" || f.Label == "Submit" {
			f.Label = "I accept the terms and conditions"
		}
		f.Required = true
		return []dto.RenderedQuestion{f}
	default:
		kind = "input"
	}

	f := simpleField(q, q.ID, kind)
	f.Options = options
	return []dto.RenderedQuestion{f}
}

func simpleField(q *dao.FormQuestion, id string, kind string) dto.RenderedQuestion {
	return dto.RenderedQuestion{
		ID:          id,
		Label:       q.UIConfig.Label,
		InputKind:   kind,
		Placeholder: q.UIConfig.Placeholder,
		Required:    q.Required,
	}
}

// subField builds a generated sub-question field, honoring per-field
// uiConfig.subQuestions overrides for label, placeholder and required.
func subField(q *dao.FormQuestion, subID string, kind string, label string, requiredDefault bool) dto.RenderedQuestion {
	f := dto.RenderedQuestion{
		ID:        subID,
		Label:     label,
		InputKind: kind,
		Required:  q.UIConfig.SubRequired(subID, requiredDefault),
	}
	if sub, ok := q.UIConfig.SubQuestions[subID]; ok {
		if sub.Label != "" {
			f.Label = sub.Label
		}
		f.Placeholder = sub.Placeholder
	}
	return f
}

func decorateCurrency(f *dto.RenderedQuestion, stipulation string, fixed string, options []string) {
	switch stipulation {
	case types.CurrencyFixed:
		// Read-only decorator, never an editable selector.
		f.Suffix = fixed
	case types.CurrencyOptions:
		currencyField := f.ID + "_currency"
		f.CurrencyField = &currencyField
		f.Currencies = options
	default:
		currencyField := f.ID + "_currency"
		f.CurrencyField = &currencyField
		f.Currencies = currencyList
	}
}

func generateAmount(q *dao.FormQuestion, cfg *types.AmountConfig) []dto.RenderedQuestion {
	f := simpleField(q, q.ID, "number")
	decorateCurrency(&f, cfg.CurrencyStipulation, cfg.StipulatedCurrency, cfg.CurrencyOptions)
	return []dto.RenderedQuestion{f}
}

// instalmentSuffix returns the id suffix of the n-th instalment. Instalment
// 1 uses un-suffixed ids.
func instalmentSuffix(n int) string {
	if n <= 1 {
		return ""
	}
	return fmt.Sprintf("_instalment_%d", n)
}

// instalmentPolicy resolves the amount management and due date policy of
// the n-th instalment. Setup fields prefixed inst1_/inst2_ configure
// instalments 2 and 3.
func instalmentPolicy(cfg *types.DepositConfig, n int) (amountMgmt string, dueDateType string) {
	amountMgmt, dueDateType = cfg.AmountManagement, cfg.DueDateType
	switch n {
	case 2:
		if cfg.Inst1AmountManagement != "" {
			amountMgmt = cfg.Inst1AmountManagement
		}
		if cfg.Inst1DueDateType != "" {
			dueDateType = cfg.Inst1DueDateType
		}
	case 3:
		if cfg.Inst2AmountManagement != "" {
			amountMgmt = cfg.Inst2AmountManagement
		}
		if cfg.Inst2DueDateType != "" {
			dueDateType = cfg.Inst2DueDateType
		}
	}
	return
}

func generateDeposit(q *dao.FormQuestion, cfg *types.DepositConfig, answers map[string]interface{}) []dto.RenderedQuestion {
	sub := subAnswers(answers, q.ID)

	count := 0
	var fields []dto.RenderedQuestion

	switch cfg.Instalments {
	case types.InstalmentsSingle:
		count = 1
	case types.InstalmentsTwoAlways:
		count = 2
	case types.InstalmentsOneOrTwo, types.InstalmentsThreePlus:
		max := 2
		options := []string{"1", "2"}
		if cfg.Instalments == types.InstalmentsThreePlus {
			max = 3
			options = []string{"1", "2", "3"}
		}

		selector := subField(q, "deposit_instalments", "select", "How many instalments?", true)
		selector.Options = options
		fields = append(fields, selector)

		// Until the buyer picks a count there is nothing else to render.
		// Changing the pick regenerates, dropping instalments beyond it.
		count = parseCount(sub["deposit_instalments"])
		if count > max {
			count = max
		}
	default:
		return nil
	}

	for n := 1; n <= count; n++ {
		fields = append(fields, instalmentFields(q, cfg, sub, n)...)
	}
	return fields
}

func instalmentFields(q *dao.FormQuestion, cfg *types.DepositConfig, sub map[string]interface{}, n int) []dto.RenderedQuestion {
	sfx := instalmentSuffix(n)
	amountMgmt, dueDateType := instalmentPolicy(cfg, n)

	var fields []dto.RenderedQuestion

	switch amountMgmt {
	case types.AmountBuyerChoice:
		choice := subField(q, "deposit_type"+sfx, "select", "Deposit as", true)
		choice.Options = []string{"amount", "percentage"}
		fields = append(fields, choice)

		if answerString(sub, "deposit_type"+sfx) == "percentage" {
			fields = append(fields, subField(q, "deposit_percentage"+sfx, "number", "Deposit percentage", true))
		} else {
			amount := subField(q, "deposit_amount"+sfx, "number", "Deposit amount", true)
			decorateCurrency(&amount, cfg.CurrencyStipulation, cfg.StipulatedCurrency, cfg.CurrencyOptions)
			fields = append(fields, amount)
		}
	case types.AmountSellerFixed:
		fixed := subField(q, "deposit_amount"+sfx, "statement", "Deposit amount", false)
		if cfg.FixedAmount != nil {
			fixed.Placeholder = strconv.FormatFloat(*cfg.FixedAmount, 'f', -1, 64)
		}
		decorateCurrency(&fixed, types.CurrencyFixed, cfg.StipulatedCurrency, nil)
		fields = append(fields, fixed)
	default: // buyer_enters
		amount := subField(q, "deposit_amount"+sfx, "number", "Deposit amount", true)
		decorateCurrency(&amount, cfg.CurrencyStipulation, cfg.StipulatedCurrency, cfg.CurrencyOptions)
		fields = append(fields, amount)
	}

	switch dueDateType {
	case types.DueDateCalendar:
		fields = append(fields, subField(q, "deposit_due"+sfx, "date", "Deposit due date", true))
	case types.DueDateDaysAfter:
		fields = append(fields, subField(q, "deposit_due_days"+sfx, "number", "Days after acceptance", true))
	}

	if cfg.DepositHolding != "" && cfg.DepositHolding != types.HoldingNotAscertain {
		holding := subField(q, "deposit_holding"+sfx, "statement", "Deposit held in", false)
		holding.Options = []string{cfg.DepositHolding}
		fields = append(fields, holding)
	}

	return fields
}

func generateLoanApproval(q *dao.FormQuestion, cfg *types.LoanApprovalConfig, answers map[string]interface{}) []dto.RenderedQuestion {
	sub := subAnswers(answers, q.ID)

	gate := subField(q, "subjectToLoan", "select", q.UIConfig.Label, q.Required)
	gate.Options = []string{"yes", "no"}
	fields := []dto.RenderedQuestion{gate}

	if answerString(sub, "subjectToLoan") != "yes" {
		return fields
	}

	// Field-level required in uiConfig.subQuestions takes precedence over
	// the coarse setup value.
	if cfg.LenderDetails != types.RequirementNotRequired {
		fields = append(fields, subField(q, "lender_details", "input", "Lender name",
			cfg.LenderDetails == types.RequirementRequired))
	}
	if cfg.Attachments != types.RequirementNotRequired {
		fields = append(fields, subField(q, "loan_documents", "file", "Loan approval documents",
			cfg.Attachments == types.RequirementRequired))
	}
	if cfg.EvidenceOfFunds != "" && cfg.EvidenceOfFunds != types.RequirementNotRequired {
		fields = append(fields, subField(q, "evidence_of_funds", "file", "Evidence of funds",
			cfg.EvidenceOfFunds == types.RequirementRequired))
	}
	return fields
}

func generateCustom(q *dao.FormQuestion, cfg *types.CustomConfig) []dto.RenderedQuestion {
	label := cfg.QuestionText
	if label == "" {
		label = q.UIConfig.Label
	}

	f := dto.RenderedQuestion{
		ID:       q.ID,
		Label:    label,
		Required: q.Required,
	}

	switch cfg.AnswerType {
	case types.AnswerShortText:
		f.InputKind = "input"
	case types.AnswerLongText:
		f.InputKind = "textarea"
	case types.AnswerNumberAmount:
		f.InputKind = "number"
		if cfg.NumberType == "money" {
			decorateCurrency(&f, cfg.CurrencyStipulation, cfg.StipulatedCurrency, cfg.CurrencyOptions)
		}
	case types.AnswerFileUpload:
		f.InputKind = "file"
	case types.AnswerTimeDate:
		f.InputKind = "date"
	case types.AnswerYesNo:
		f.InputKind = "select"
		f.Options = []string{"yes", "no"}
	case types.AnswerSingleSelect:
		f.InputKind = "select"
		f.Options = cfg.SelectOptions
	case types.AnswerMultiSelect:
		f.InputKind = "multiselect"
		f.Options = cfg.SelectOptions
	case types.AnswerStatement:
		f.InputKind = "statement"
		f.Required = false
	default:
		return nil
	}

	fields := []dto.RenderedQuestion{f}
	if cfg.AddTickbox {
		tickbox := subField(q, q.ID+"_tickbox", "checkbox", cfg.TickboxLabel, false)
		fields = append(fields, tickbox)
	}
	return fields
}

func generatePurchaser(q *dao.FormQuestion, cfg *types.PurchaserConfig, answers map[string]interface{}) []dto.RenderedQuestion {
	sub := subAnswers(answers, q.ID)

	if cfg.Method != types.PurchaserIndividualNames {
		fields := []dto.RenderedQuestion{subField(q, "purchaser_name", "input", "Purchaser name(s)", q.Required)}
		if cfg.RequireIDDocument {
			fields = append(fields, subField(q, "purchaser_id_file", "file", "Purchaser ID document", true))
		}
		return fields
	}

	scenario := subField(q, "purchaser_scenario", "select", "How many purchasers?", true)
	scenario.Options = []string{"1", "2", "3", "4"}
	fields := []dto.RenderedQuestion{scenario}

	count := parseCount(sub["purchaser_scenario"])
	if count > 4 {
		count = 4
	}
	for n := 1; n <= count; n++ {
		fields = append(fields, subField(q, fmt.Sprintf("purchaser_name_%d", n), "name",
			fmt.Sprintf("Purchaser %d full name", n), true))
		if cfg.RequireIDDocument {
			fields = append(fields, subField(q, fmt.Sprintf("purchaser_id_file_%d", n), "file",
				fmt.Sprintf("Purchaser %d ID document", n), true))
		}
	}
	return fields
}

func subAnswers(answers map[string]interface{}, id string) map[string]interface{} {
	if answers == nil {
		return nil
	}
	m, _ := answers[id].(map[string]interface{})
	return m
}

func answerString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func parseCount(val interface{}) int {
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
