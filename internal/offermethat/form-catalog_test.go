package offermethat

import (
	"fmt"
	"os"
	"testing"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := testDB.AutoMigrate(
		&dao.User{},
		&dao.FileAsset{},
		&dao.Form{},
		&dao.FormPage{},
		&dao.FormQuestion{},
		&dao.FormAttachment{},
	); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func newTestUser(t *testing.T) *dao.User {
	t.Helper()
	user := dao.User{
		ID:       dao.GenUUID(),
		Email:    fmt.Sprintf("%s@example.com", dao.GenUUID()),
		Username: dao.GenUsername(),
		IsActive: true,
	}
	require.NoError(t, testDB.Create(&user).Error)
	t.Cleanup(func() { testDB.Delete(&user) })
	return &user
}

func TestProvisionForm(t *testing.T) {
	user := newTestUser(t)

	form, err := ProvisionForm(testDB, user, types.FormKindOffer)
	require.NoError(t, err)

	var questions []dao.FormQuestion
	require.NoError(t, testDB.Where("form_id = ?", form.ID).Order("question_order").Find(&questions).Error)
	require.Len(t, questions, len(defaultOfferQuestions))

	for i, q := range questions {
		assert.Equal(t, i+1, q.Order)
		assert.Equal(t, defaultOfferQuestions[i].Type, q.Type)
		// Well-known questions are keyed by their type.
		assert.Equal(t, string(q.Type), q.ID)
	}
	assert.Equal(t, types.QuestionSubmitButton, questions[len(questions)-1].Type)

	var pages []dao.FormPage
	require.NoError(t, testDB.Where("form_id = ?", form.ID).Find(&pages).Error)
	require.Len(t, pages, 1)
	for _, q := range questions {
		assert.Equal(t, pages[0].ID, q.PageId)
	}
}

func TestProvisionFormLead(t *testing.T) {
	user := newTestUser(t)

	form, err := ProvisionForm(testDB, user, types.FormKindLead)
	require.NoError(t, err)
	assert.Equal(t, types.FormKindLead, form.Kind)

	var questions []dao.FormQuestion
	require.NoError(t, testDB.Where("form_id = ?", form.ID).Order("question_order").Find(&questions).Error)
	require.Len(t, questions, len(defaultLeadQuestions))

	byID := map[string]dao.FormQuestion{}
	for _, q := range questions {
		byID[q.ID] = q
	}
	assert.Contains(t, byID, string(types.QuestionMessage))
	assert.Contains(t, byID, string(types.QuestionListingInterest))
	assert.False(t, byID[string(types.QuestionSubmitterPhone)].Required)
}

func TestSetupDependents(t *testing.T) {
	custom, ok := CatalogLookup(types.QuestionCustom)
	require.True(t, ok)

	// Changing the answer type cascades through the whole currency chain.
	assert.Equal(t, []string{
		"number_type",
		"currency_stipulation",
		"stipulated_currency",
		"currency_options",
		"select_options",
	}, SetupDependents(custom, "answer_type"))

	deposit, ok := CatalogLookup(types.QuestionDeposit)
	require.True(t, ok)

	assert.Equal(t, []string{
		"inst1_amount_management",
		"inst1_due_date_type",
		"inst2_amount_management",
		"inst2_due_date_type",
	}, SetupDependents(deposit, "instalments"))

	// Leaf fields have nothing downstream.
	assert.Empty(t, SetupDependents(deposit, "deposit_holding"))
}

func TestProvisionFormOnePerKind(t *testing.T) {
	user := newTestUser(t)

	_, err := ProvisionForm(testDB, user, types.FormKindOffer)
	require.NoError(t, err)

	// The owner+kind unique index rejects a second offer form.
	_, err = ProvisionForm(testDB, user, types.FormKindOffer)
	assert.Error(t, err)
}
