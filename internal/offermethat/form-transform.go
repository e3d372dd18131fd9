// Form data transformer: maps a flat answer payload into the normalized
// offer/lead record. Pure over its inputs except file upload substitution,
// which must run before the record is persisted.
package offermethat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"
)

// FileAnswer is an in-memory file captured from the request. Transformation
// replaces it with the storage URL.
type FileAnswer struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores a blob and returns its public URL.
type Uploader interface {
	Upload(name string, contentType string, data []byte) (string, error)
}

type uploadJob struct {
	file  *FileAnswer
	url   string
	apply func(url string)
}

// SubstituteFileUploads replaces every FileAnswer in the answer map with
// its storage URL. Uploads run concurrently, each result is written back to
// its own field only after all uploads finished.
func SubstituteFileUploads(answers map[string]interface{}, up Uploader) error {
	var jobs []*uploadJob
	collectUploads(answers, &jobs)
	if len(jobs) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(4)
	for _, job := range jobs {
		g.Go(func() error {
			url, err := up.Upload(job.file.Name, job.file.ContentType, job.file.Data)
			if err != nil {
				return err
			}
			job.url = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, job := range jobs {
		job.apply(job.url)
	}
	return nil
}

func collectUploads(container map[string]interface{}, jobs *[]*uploadJob) {
	for key, val := range container {
		switch v := val.(type) {
		case *FileAnswer:
			k := key
			*jobs = append(*jobs, &uploadJob{file: v, apply: func(url string) { container[k] = url }})
		case map[string]interface{}:
			collectUploads(v, jobs)
		case []interface{}:
			for i, item := range v {
				switch el := item.(type) {
				case *FileAnswer:
					idx := i
					*jobs = append(*jobs, &uploadJob{file: el, apply: func(url string) { v[idx] = url }})
				case map[string]interface{}:
					collectUploads(el, jobs)
				}
			}
		}
	}
}

// TransformOffer maps an answer payload into an offer record. File answers
// must have been substituted with URLs beforehand.
func TransformOffer(form *dao.Form, questions []dao.FormQuestion, answers map[string]interface{}, isTest bool) (*dao.Offer, error) {
	offer := &dao.Offer{
		ID:                  dao.GenUUID(),
		FormId:              form.ID,
		OwnerId:             form.OwnerId,
		Status:              types.StatusNew,
		CustomQuestionsData: types.CustomAnswers{},
		IsTest:              isTest,
	}

	sorted := sortedByOrder(questions)
	for i := range sorted {
		q := &sorted[i]
		val := normalizeAbsent(answers[q.ID])

		switch q.Type {
		case types.QuestionSpecifyListing, types.QuestionListingInterest:
			listingID, custom := transformListingRef(val)
			if listingID != nil {
				offer.ListingId = uuid.NullUUID{UUID: *listingID, Valid: true}
			} else if custom != "" {
				offer.CustomListingAddress = &custom
				offer.Status = types.StatusUnassigned
			}
		case types.QuestionSubmitterName:
			offer.SubmitterFirstName, offer.SubmitterLastName = transformName(val)
		case types.QuestionSubmitterEmail:
			offer.SubmitterEmail, _ = val.(string)
		case types.QuestionSubmitterPhone:
			offer.SubmitterPhone = transformPhone(val)
		case types.QuestionBuyerType:
			offer.BuyerType, _ = val.(string)
		case types.QuestionOfferAmount:
			offer.Amount, offer.Currency = transformAmount(val)
		case types.QuestionOfferExpiry:
			offer.OfferExpiry = parseTargetDate(val)
		case types.QuestionSettlementDate:
			offer.SettlementDate = parseTargetDate(val)
		case types.QuestionDeposit:
			offer.DepositData = flattenDeposit(q, answers)
		case types.QuestionLoanApproval:
			offer.LoanApprovalData = transformLoanApproval(val)
		case types.QuestionPurchaserName:
			offer.PurchaserData = transformPurchaser(q, val)
		case types.QuestionCustom:
			transformCustom(q, val, offer.CustomQuestionsData)
		case types.QuestionSubmitButton, types.QuestionStatement:
			// Nothing to persist.
		default:
			if val != nil {
				offer.FormData.Set(q.ID, types.TaggedValue{
					QuestionType: q.Type,
					QuestionID:   q.ID,
					Value:        val,
				})
			}
		}
	}

	// A non-test offer must either reference a listing or be explicitly
	// unassigned. Anything else must not be persisted.
	if !offer.ListingId.Valid && offer.Status != types.StatusUnassigned && !offer.IsTest {
		return nil, apierrors.ErrListingRefRequired
	}

	return offer, nil
}

// TransformLead maps an answer payload into a lead record.
func TransformLead(form *dao.Form, questions []dao.FormQuestion, answers map[string]interface{}) (*dao.Lead, error) {
	lead := &dao.Lead{
		ID:                  dao.GenUUID(),
		FormId:              form.ID,
		OwnerId:             form.OwnerId,
		Status:              types.StatusNew,
		CustomQuestionsData: types.CustomAnswers{},
	}

	sorted := sortedByOrder(questions)
	for i := range sorted {
		q := &sorted[i]
		val := normalizeAbsent(answers[q.ID])

		switch q.Type {
		case types.QuestionSpecifyListing, types.QuestionListingInterest:
			listingID, custom := transformListingRef(val)
			if listingID != nil {
				lead.ListingId = uuid.NullUUID{UUID: *listingID, Valid: true}
			} else if custom != "" {
				lead.CustomListingAddress = &custom
				lead.Status = types.StatusUnassigned
			}
		case types.QuestionSubmitterName:
			lead.SubmitterFirstName, lead.SubmitterLastName = transformName(val)
		case types.QuestionSubmitterEmail:
			lead.SubmitterEmail, _ = val.(string)
		case types.QuestionSubmitterPhone:
			lead.SubmitterPhone = transformPhone(val)
		case types.QuestionMessage:
			lead.Message, _ = val.(string)
		case types.QuestionPriceRange:
			lead.PriceRange = transformPriceRange(val)
		case types.QuestionInspectionStatus:
			lead.InspectionStatus, _ = val.(string)
		case types.QuestionCustom:
			transformCustom(q, val, lead.CustomQuestionsData)
		case types.QuestionSubmitButton, types.QuestionStatement:
		default:
			if val != nil {
				lead.FormData.Set(q.ID, types.TaggedValue{
					QuestionType: q.Type,
					QuestionID:   q.ID,
					Value:        val,
				})
			}
		}
	}

	return lead, nil
}

func sortedByOrder(questions []dao.FormQuestion) []dao.FormQuestion {
	sorted := make([]dao.FormQuestion, len(questions))
	copy(sorted, questions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}

// transformListingRef resolves a listing reference answer: a UUID becomes
// the foreign key, anything else is kept as a free text address.
func transformListingRef(val interface{}) (*uuid.UUID, string) {
	ref, ok := val.(string)
	if !ok || ref == "" {
		return nil, ""
	}
	if id, err := uuid.FromString(ref); err == nil {
		return &id, ""
	}
	return nil, ref
}

func transformName(val interface{}) (first string, last string) {
	switch n := val.(type) {
	case map[string]interface{}:
		first, _ = n["firstName"].(string)
		last, _ = n["lastName"].(string)
	case string:
		parts := strings.SplitN(n, " ", 2)
		first = parts[0]
		if len(parts) > 1 {
			last = parts[1]
		}
	}
	return
}

func transformPhone(val interface{}) string {
	switch p := val.(type) {
	case string:
		return p
	case map[string]interface{}:
		code, _ := p["countryCode"].(string)
		number, _ := p["number"].(string)
		return code + number
	}
	return ""
}

func transformAmount(val interface{}) (*float64, string) {
	var currency string
	inner := val
	if obj, ok := val.(map[string]interface{}); ok {
		inner = obj["amount"]
		currency, _ = obj["currency"].(string)
	}
	if amount, ok := toFloat(inner); ok {
		return &amount, currency
	}
	return nil, currency
}

func transformPriceRange(val interface{}) string {
	switch p := val.(type) {
	case string:
		return p
	case float64:
		return fmt.Sprintf("%v", p)
	case map[string]interface{}:
		return fmt.Sprintf("%v", p["amount"])
	}
	return ""
}

func parseTargetDate(val interface{}) *types.TargetDate {
	s, ok := val.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s[:min(len(s), 10)])
	if err != nil {
		return nil
	}
	return &types.TargetDate{Time: t}
}

// flattenDeposit produces the canonical deposit shape. Prefixed keys from
// the raw answer map merge with the sub-object under the deposit question
// id; already structured data passes through unchanged.
func flattenDeposit(q *dao.FormQuestion, answers map[string]interface{}) *types.DepositData {
	merged := map[string]interface{}{}
	for key, val := range subAnswers(answers, q.ID) {
		merged[key] = val
	}
	for key, val := range answers {
		if strings.HasPrefix(key, "deposit_") || strings.HasPrefix(key, "instalment_") {
			merged[key] = val
		}
	}
	if len(merged) == 0 {
		return nil
	}

	// Pass-through for payloads already in canonical form.
	if _, ok := merged["instalments"]; ok {
		var data types.DepositData
		if err := remarshal(merged, &data); err == nil {
			return &data
		}
	}

	cfg, err := types.DecodeSetupConfig(q.Type, q.SetupConfig)
	if err != nil {
		return nil
	}
	depositCfg, ok := cfg.(*types.DepositConfig)
	if !ok {
		return nil
	}

	count := 1
	switch depositCfg.Instalments {
	case types.InstalmentsTwoAlways:
		count = 2
	case types.InstalmentsOneOrTwo, types.InstalmentsThreePlus:
		count = parseCount(merged["deposit_instalments"])
		if count < 1 {
			count = 1
		}
		max := 2
		if depositCfg.Instalments == types.InstalmentsThreePlus {
			max = 3
		}
		if count > max {
			count = max
		}
	}

	data := &types.DepositData{
		Instalments:    depositCfg.Instalments,
		NumInstalments: count,
	}

	if count == 1 {
		inst := flattenInstalment(merged, depositCfg, 1)
		data.DepositType = inst.DepositType
		data.Amount = inst.Amount
		data.Percentage = inst.Percentage
		data.Currency = inst.Currency
		data.DueDate = inst.DueDate
		data.Holding = inst.Holding
		return data
	}

	instalments := []**types.Instalment{&data.Instalment1, &data.Instalment2, &data.Instalment3}
	for n := 1; n <= count; n++ {
		inst := flattenInstalment(merged, depositCfg, n)
		*instalments[n-1] = inst
	}
	return data
}

func flattenInstalment(merged map[string]interface{}, cfg *types.DepositConfig, n int) *types.Instalment {
	sfx := instalmentSuffix(n)
	inst := &types.Instalment{}

	if p, ok := toFloat(merged["deposit_percentage"+sfx]); ok {
		inst.Percentage = &p
		inst.DepositType = "percentage"
	}
	if a, ok := toFloat(merged["deposit_amount"+sfx]); ok {
		inst.Amount = &a
		inst.DepositType = "amount"
	}
	if chosen := answerString(merged, "deposit_type"+sfx); chosen != "" {
		inst.DepositType = chosen
	}

	if cfg.CurrencyStipulation == types.CurrencyFixed {
		inst.Currency = cfg.StipulatedCurrency
	} else if currency := answerString(merged, "deposit_amount"+sfx+"_currency"); currency != "" {
		inst.Currency = currency
	}

	if due := answerString(merged, "deposit_due"+sfx); due != "" {
		inst.DueDate = due
		inst.DueDateType = types.DueDateCalendar
	} else if days := answerString(merged, "deposit_due_days"+sfx); days != "" {
		inst.DueDate = days
		inst.DueDateType = types.DueDateDaysAfter
	}

	if cfg.DepositHolding != "" && cfg.DepositHolding != types.HoldingNotAscertain {
		inst.Holding = cfg.DepositHolding
	}
	return inst
}

func transformLoanApproval(val interface{}) *types.LoanApprovalData {
	sub, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}

	data := &types.LoanApprovalData{
		SubjectToLoan: answerString(sub, "subjectToLoan"),
		LenderName:    answerString(sub, "lender_details"),
	}
	switch docs := sub["loan_documents"].(type) {
	case string:
		if docs != "" {
			data.DocumentURLs = []string{docs}
		}
	case []interface{}:
		for _, doc := range docs {
			if s, ok := doc.(string); ok && s != "" {
				data.DocumentURLs = append(data.DocumentURLs, s)
			}
		}
	}
	return data
}

func transformPurchaser(q *dao.FormQuestion, val interface{}) *types.PurchaserData {
	if val == nil {
		return nil
	}

	if name, ok := val.(string); ok {
		return &types.PurchaserData{Method: types.PurchaserSingleField, Name: name}
	}

	sub, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}

	cfg, err := types.DecodeSetupConfig(q.Type, q.SetupConfig)
	method := types.PurchaserSingleField
	if err == nil {
		if purchaserCfg, ok := cfg.(*types.PurchaserConfig); ok {
			method = purchaserCfg.Method
		}
	}

	if method != types.PurchaserIndividualNames {
		return &types.PurchaserData{
			Method:    types.PurchaserSingleField,
			Name:      answerString(sub, "purchaser_name"),
			IDFileURL: answerString(sub, "purchaser_id_file"),
		}
	}

	data := &types.PurchaserData{
		Method:     types.PurchaserIndividualNames,
		Scenario:   answerString(sub, "purchaser_scenario"),
		NameFields: map[string]string{},
	}
	for key := range sub {
		if strings.HasPrefix(key, "purchaser_name_") {
			data.NameFields[key] = answerString(sub, key)
		}
		if strings.HasPrefix(key, "purchaser_id_file_") {
			if url := answerString(sub, key); url != "" {
				data.IDFileURLs = append(data.IDFileURLs, url)
			}
		}
	}
	sort.Strings(data.IDFileURLs)
	return data
}

// transformCustom folds a custom answer into the custom questions bag,
// coercing numeric strings for number answer types.
func transformCustom(q *dao.FormQuestion, val interface{}, bag types.CustomAnswers) {
	if val == nil {
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

	if custom.AnswerType == types.AnswerNumberAmount {
		inner := val
		if obj, ok := val.(map[string]interface{}); ok {
			inner = obj["amount"]
		}
		if f, ok := toFloat(inner); ok {
			val = f
		}
	}

	bag[q.ID] = types.CustomAnswer{
		QuestionText: custom.QuestionText,
		AnswerType:   custom.AnswerType,
		Value:        val,
	}
}

func remarshal(src interface{}, dst interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
