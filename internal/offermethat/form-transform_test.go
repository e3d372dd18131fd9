package offermethat

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOfferForm() *dao.Form {
	return &dao.Form{
		ID:      dao.GenUUID(),
		OwnerId: dao.GenUUID(),
		Kind:    types.FormKindOffer,
	}
}

func TestTransformOfferBasics(t *testing.T) {
	listingID := dao.GenUUID()
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterName), Type: types.QuestionSubmitterName, Order: 1},
		{ID: string(types.QuestionSubmitterPhone), Type: types.QuestionSubmitterPhone, Order: 2},
		{ID: string(types.QuestionSpecifyListing), Type: types.QuestionSpecifyListing, Order: 3},
		{ID: string(types.QuestionOfferAmount), Type: types.QuestionOfferAmount, Order: 4},
	}

	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		string(types.QuestionSubmitterName):  "Jane van Dyk",
		string(types.QuestionSubmitterPhone): map[string]interface{}{"countryCode": "+64", "number": "21 123 456"},
		string(types.QuestionSpecifyListing): listingID.String(),
		string(types.QuestionOfferAmount):    map[string]interface{}{"amount": "750000", "currency": "NZD"},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "Jane", offer.SubmitterFirstName)
	assert.Equal(t, "van Dyk", offer.SubmitterLastName)
	assert.Equal(t, "+6421 123 456", offer.SubmitterPhone)
	require.True(t, offer.ListingId.Valid)
	assert.Equal(t, listingID, offer.ListingId.UUID)
	assert.Equal(t, types.StatusNew, offer.Status)
	require.NotNil(t, offer.Amount)
	assert.Equal(t, 750000.0, *offer.Amount)
	assert.Equal(t, "NZD", offer.Currency)
}

func TestTransformOfferFreeTextListing(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSpecifyListing), Type: types.QuestionSpecifyListing, Order: 1},
	}

	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		string(types.QuestionSpecifyListing): "123 Main St",
	}, false)
	require.NoError(t, err)

	assert.False(t, offer.ListingId.Valid)
	require.NotNil(t, offer.CustomListingAddress)
	assert.Equal(t, "123 Main St", *offer.CustomListingAddress)
	assert.Equal(t, types.StatusUnassigned, offer.Status)
}

func TestTransformOfferListingRefRequired(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSpecifyListing), Type: types.QuestionSpecifyListing, Order: 1},
	}

	_, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{}, false)
	assert.ErrorIs(t, err, apierrors.ErrListingRefRequired)

	// Test submissions are exempt.
	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{}, true)
	require.NoError(t, err)
	assert.True(t, offer.IsTest)
}

func TestTransformDepositSingleInstalment(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    string(types.QuestionDeposit),
			Type:  types.QuestionDeposit,
			Order: 1,
			SetupConfig: mustSetup(t, &types.DepositConfig{
				Instalments:      types.InstalmentsSingle,
				AmountManagement: types.AmountBuyerEnters,
			}),
		},
		{ID: string(types.QuestionSpecifyListing), Type: types.QuestionSpecifyListing, Order: 2},
	}

	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		string(types.QuestionDeposit):        map[string]interface{}{"deposit_amount": "5000"},
		string(types.QuestionSpecifyListing): dao.GenUUID().String(),
	}, false)
	require.NoError(t, err)

	require.NotNil(t, offer.DepositData)
	data := offer.DepositData
	assert.Equal(t, types.InstalmentsSingle, data.Instalments)
	assert.Equal(t, 1, data.NumInstalments)
	assert.Equal(t, "amount", data.DepositType)
	require.NotNil(t, data.Amount)
	assert.Equal(t, 5000.0, *data.Amount)
	assert.Nil(t, data.Percentage)
	assert.Empty(t, data.Currency)
	assert.Nil(t, data.Instalment1)
}

func TestTransformDepositTwoInstalments(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    string(types.QuestionDeposit),
			Type:  types.QuestionDeposit,
			Order: 1,
			SetupConfig: mustSetup(t, &types.DepositConfig{
				Instalments:         types.InstalmentsOneOrTwo,
				AmountManagement:    types.AmountBuyerEnters,
				CurrencyStipulation: types.CurrencyFixed,
				StipulatedCurrency:  "AUD",
				DueDateType:         types.DueDateCalendar,
				DepositHolding:      types.HoldingSolicitorTrust,
			}),
		},
	}

	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		string(types.QuestionDeposit): map[string]interface{}{
			"deposit_instalments":         "2",
			"deposit_amount":              "10000",
			"deposit_due":                 "2030-01-15",
			"deposit_amount_instalment_2": "40000",
			"deposit_due_instalment_2":    "2030-03-01",
		},
	}, true)
	require.NoError(t, err)

	data := offer.DepositData
	require.NotNil(t, data)
	assert.Equal(t, 2, data.NumInstalments)
	assert.Nil(t, data.Amount)

	require.NotNil(t, data.Instalment1)
	assert.Equal(t, 10000.0, *data.Instalment1.Amount)
	assert.Equal(t, "AUD", data.Instalment1.Currency)
	assert.Equal(t, "2030-01-15", data.Instalment1.DueDate)
	assert.Equal(t, types.DueDateCalendar, data.Instalment1.DueDateType)
	assert.Equal(t, types.HoldingSolicitorTrust, data.Instalment1.Holding)

	require.NotNil(t, data.Instalment2)
	assert.Equal(t, 40000.0, *data.Instalment2.Amount)
	assert.Nil(t, data.Instalment3)
}

func TestTransformDepositPassThrough(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    string(types.QuestionDeposit),
			Type:  types.QuestionDeposit,
			Order: 1,
			SetupConfig: mustSetup(t, &types.DepositConfig{
				Instalments:      types.InstalmentsSingle,
				AmountManagement: types.AmountBuyerEnters,
			}),
		},
	}

	// Already canonical payloads survive a second transformation unchanged.
	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		string(types.QuestionDeposit): map[string]interface{}{
			"instalments":    types.InstalmentsSingle,
			"numInstalments": 1.0,
			"depositType":    "percentage",
			"percentage":     10.0,
		},
	}, true)
	require.NoError(t, err)

	data := offer.DepositData
	require.NotNil(t, data)
	assert.Equal(t, "percentage", data.DepositType)
	require.NotNil(t, data.Percentage)
	assert.Equal(t, 10.0, *data.Percentage)
}

func TestTransformCustomAndResidual(t *testing.T) {
	questions := []dao.FormQuestion{
		{
			ID:    "custom_budget",
			Type:  types.QuestionCustom,
			Order: 1,
			SetupConfig: mustSetup(t, &types.CustomConfig{
				QuestionText: "What is your renovation budget?",
				AnswerType:   types.AnswerNumberAmount,
			}),
		},
		{ID: string(types.QuestionSolicitorDetails), Type: types.QuestionSolicitorDetails, Order: 2},
		{ID: string(types.QuestionSpecifyListing), Type: types.QuestionSpecifyListing, Order: 3},
	}

	offer, err := TransformOffer(testOfferForm(), questions, map[string]interface{}{
		"custom_budget":                        "42000",
		string(types.QuestionSolicitorDetails): "Smith & Partners",
		string(types.QuestionSpecifyListing):   dao.GenUUID().String(),
	}, false)
	require.NoError(t, err)

	answer, ok := offer.CustomQuestionsData["custom_budget"]
	require.True(t, ok)
	assert.Equal(t, "What is your renovation budget?", answer.QuestionText)
	assert.Equal(t, 42000.0, answer.Value)

	// Questions without a named column land in the residual bag with their
	// type kept alongside.
	tagged, ok := offer.FormData.Get(string(types.QuestionSolicitorDetails))
	require.True(t, ok)
	assert.Equal(t, types.QuestionSolicitorDetails, tagged.QuestionType)
	assert.Equal(t, "Smith & Partners", tagged.Value)
}

func TestTransformLead(t *testing.T) {
	questions := []dao.FormQuestion{
		{ID: string(types.QuestionSubmitterName), Type: types.QuestionSubmitterName, Order: 1},
		{ID: string(types.QuestionListingInterest), Type: types.QuestionListingInterest, Order: 2},
		{ID: string(types.QuestionMessage), Type: types.QuestionMessage, Order: 3},
		{ID: string(types.QuestionPriceRange), Type: types.QuestionPriceRange, Order: 4},
	}

	form := testOfferForm()
	form.Kind = types.FormKindLead

	lead, err := TransformLead(form, questions, map[string]interface{}{
		string(types.QuestionSubmitterName):   map[string]interface{}{"firstName": "Sam", "lastName": "Field"},
		string(types.QuestionListingInterest): "45 Ocean Rd",
		string(types.QuestionMessage):         "Keen on a viewing this weekend",
		string(types.QuestionPriceRange):      map[string]interface{}{"amount": 900000.0},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sam", lead.SubmitterFirstName)
	assert.Equal(t, "Field", lead.SubmitterLastName)
	require.NotNil(t, lead.CustomListingAddress)
	assert.Equal(t, types.StatusUnassigned, lead.Status)
	assert.Equal(t, "Keen on a viewing this weekend", lead.Message)
	assert.Equal(t, "900000", lead.PriceRange)
}

type mapUploader struct {
	fail    bool
	uploads atomic.Int32
}

func (u *mapUploader) Upload(name string, contentType string, data []byte) (string, error) {
	if u.fail {
		return "", errors.New("storage down")
	}
	u.uploads.Add(1)
	return fmt.Sprintf("https://files.example.com/%s", name), nil
}

func TestSubstituteFileUploads(t *testing.T) {
	answers := map[string]interface{}{
		"evidenceOfFunds": &FileAnswer{Name: "funds.pdf", ContentType: "application/pdf", Data: []byte("x")},
		"subjectToLoanApproval": map[string]interface{}{
			"subjectToLoan": "yes",
			"loan_documents": []interface{}{
				&FileAnswer{Name: "loan1.pdf", Data: []byte("y")},
				&FileAnswer{Name: "loan2.pdf", Data: []byte("z")},
			},
		},
	}

	up := &mapUploader{}
	require.NoError(t, SubstituteFileUploads(answers, up))
	assert.Equal(t, int32(3), up.uploads.Load())

	assert.Equal(t, "https://files.example.com/funds.pdf", answers["evidenceOfFunds"])
	sub := answers["subjectToLoanApproval"].(map[string]interface{})
	docs := sub["loan_documents"].([]interface{})
	assert.Equal(t, "https://files.example.com/loan1.pdf", docs[0])
	assert.Equal(t, "https://files.example.com/loan2.pdf", docs[1])
}

func TestSubstituteFileUploadsNestedInSlice(t *testing.T) {
	answers := map[string]interface{}{
		"purchaserName": map[string]interface{}{
			"purchasers": []interface{}{
				map[string]interface{}{
					"name":        "Alex Reid",
					"id_document": &FileAnswer{Name: "passport.jpg", Data: []byte("p")},
				},
			},
		},
	}

	require.NoError(t, SubstituteFileUploads(answers, &mapUploader{}))

	purchasers := answers["purchaserName"].(map[string]interface{})["purchasers"].([]interface{})
	first := purchasers[0].(map[string]interface{})
	assert.Equal(t, "https://files.example.com/passport.jpg", first["id_document"])
	assert.Equal(t, "Alex Reid", first["name"])
}

func TestSubstituteFileUploadsError(t *testing.T) {
	answers := map[string]interface{}{
		"evidenceOfFunds": &FileAnswer{Name: "funds.pdf"},
	}
	err := SubstituteFileUploads(answers, &mapUploader{fail: true})
	require.Error(t, err)

	// The original answer stays untouched on failure.
	_, isFile := answers["evidenceOfFunds"].(*FileAnswer)
	assert.True(t, isFile)
}
