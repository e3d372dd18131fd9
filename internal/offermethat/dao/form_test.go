package dao

import (
	"fmt"
	"os"
	"testing"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/glebarez/sqlite"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func TestMain(m *testing.M) {
	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&User{},
		&FileAsset{},
		&Form{},
		&FormPage{},
		&FormQuestion{},
		&FormAttachment{},
	); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// newTestForm creates a form holding contentCount statement questions and the
// trailing submit button, all on a single page.
func newTestForm(t *testing.T, contentCount int) *Form {
	t.Helper()

	user := User{
		ID:       GenUUID(),
		Email:    fmt.Sprintf("%s@example.com", GenUUID()),
		Username: GenUsername(),
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)

	form := Form{
		ID:      GenUUID(),
		OwnerId: user.ID,
		Kind:    types.FormKindOffer,
	}
	require.NoError(t, db.Create(&form).Error)

	page := FormPage{
		ID:     GenUUID(),
		FormId: form.ID,
		Order:  1,
	}
	require.NoError(t, db.Create(&page).Error)

	for i := 1; i <= contentCount; i++ {
		q := FormQuestion{
			ID:     fmt.Sprintf("q%d", i),
			FormId: form.ID,
			Type:   types.QuestionStatement,
			Order:  i,
			PageId: page.ID,
		}
		require.NoError(t, db.Create(&q).Error)
	}
	submit := FormQuestion{
		ID:       string(types.QuestionSubmitButton),
		FormId:   form.ID,
		Type:     types.QuestionSubmitButton,
		Order:    contentCount + 1,
		Required: true,
		PageId:   page.ID,
	}
	require.NoError(t, db.Create(&submit).Error)

	t.Cleanup(func() {
		db.Where("form_id = ?", form.ID).Delete(&FormQuestion{})
		db.Where("form_id = ?", form.ID).Delete(&FormPage{})
		db.Delete(&form)
		db.Delete(&user)
	})

	return &form
}

func formQuestions(t *testing.T, formID uuid.UUID) []FormQuestion {
	t.Helper()
	var questions []FormQuestion
	require.NoError(t, db.Where("form_id = ?", formID).Order("question_order").Find(&questions).Error)
	return questions
}

func formPages(t *testing.T, formID uuid.UUID) []FormPage {
	t.Helper()
	var pages []FormPage
	require.NoError(t, db.Where("form_id = ?", formID).Order("page_order").Find(&pages).Error)
	return pages
}

// requireContiguous checks that question orders are exactly 1..N and the
// submit button holds the last slot.
func requireContiguous(t *testing.T, questions []FormQuestion) {
	t.Helper()
	for i, q := range questions {
		require.Equal(t, i+1, q.Order, "question %s out of sequence", q.ID)
	}
	require.Equal(t, types.QuestionSubmitButton, questions[len(questions)-1].Type)
}

func TestInsertQuestion(t *testing.T) {
	form := newTestForm(t, 3)

	extra := FormQuestion{ID: "extra", Type: types.QuestionStatement}
	require.NoError(t, InsertQuestion(db, form, &extra, 2))

	questions := formQuestions(t, form.ID)
	require.Len(t, questions, 5)
	requireContiguous(t, questions)
	assert.Equal(t, "extra", questions[1].ID)
	assert.Equal(t, "q2", questions[2].ID)

	// Out of range orders fall back to "right before the submit button".
	tail := FormQuestion{ID: "tail", Type: types.QuestionStatement}
	require.NoError(t, InsertQuestion(db, form, &tail, 99))

	questions = formQuestions(t, form.ID)
	require.Len(t, questions, 6)
	requireContiguous(t, questions)
	assert.Equal(t, "tail", questions[4].ID)
}

func TestRemoveQuestion(t *testing.T) {
	form := newTestForm(t, 3)

	require.NoError(t, RemoveQuestion(db, form, "q2"))

	questions := formQuestions(t, form.ID)
	require.Len(t, questions, 3)
	requireContiguous(t, questions)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "q3", questions[1].ID)

	assert.ErrorIs(t, RemoveQuestion(db, form, "missing"), apierrors.ErrQuestionNotFound)
	assert.ErrorIs(t, RemoveQuestion(db, form, string(types.QuestionSubmitButton)), apierrors.ErrSubmitButtonImmutable)
}

func TestMoveQuestion(t *testing.T) {
	form := newTestForm(t, 3)

	require.NoError(t, MoveQuestion(db, form, "q1", 3))

	questions := formQuestions(t, form.ID)
	requireContiguous(t, questions)
	assert.Equal(t, "q2", questions[0].ID)
	assert.Equal(t, "q3", questions[1].ID)
	assert.Equal(t, "q1", questions[2].ID)

	// The submit button slot is out of reach in both directions.
	assert.ErrorIs(t, MoveQuestion(db, form, "q1", 4), apierrors.ErrOrderOutOfRange)
	assert.ErrorIs(t, MoveQuestion(db, form, string(types.QuestionSubmitButton), 1), apierrors.ErrSubmitButtonImmutable)
}

func TestCreatePageBreak(t *testing.T) {
	form := newTestForm(t, 5)

	require.NoError(t, CreatePageBreak(db, form, 2))
	require.NoError(t, CreatePageBreak(db, form, 4))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 3)
	assert.Nil(t, pages[0].BreakIndex)
	require.NotNil(t, pages[1].BreakIndex)
	require.NotNil(t, pages[2].BreakIndex)
	assert.Equal(t, 2, *pages[1].BreakIndex)
	assert.Equal(t, 4, *pages[2].BreakIndex)

	// Questions follow the breaks: 1-2, 3-4, 5 and the submit button.
	questions := formQuestions(t, form.ID)
	assert.Equal(t, pages[0].ID, questions[0].PageId)
	assert.Equal(t, pages[0].ID, questions[1].PageId)
	assert.Equal(t, pages[1].ID, questions[2].PageId)
	assert.Equal(t, pages[1].ID, questions[3].PageId)
	assert.Equal(t, pages[2].ID, questions[4].PageId)
	assert.Equal(t, pages[2].ID, questions[5].PageId)

	assert.ErrorIs(t, CreatePageBreak(db, form, 2), apierrors.ErrPageBreakCrossesSibling)
	assert.ErrorIs(t, CreatePageBreak(db, form, 5), apierrors.ErrPageBreakOutOfRange)
	assert.ErrorIs(t, CreatePageBreak(db, form, 0), apierrors.ErrPageBreakOutOfRange)
}

func TestMovePageBreak(t *testing.T) {
	form := newTestForm(t, 5)
	require.NoError(t, CreatePageBreak(db, form, 2))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 2)
	pageID := pages[1].ID

	require.NoError(t, MovePageBreak(db, form, pageID, "up"))
	pages = formPages(t, form.ID)
	assert.Equal(t, 1, *pages[1].BreakIndex)

	// The break never goes below the first question.
	assert.ErrorIs(t, MovePageBreak(db, form, pageID, "up"), apierrors.ErrPageBreakOutOfRange)

	require.NoError(t, MovePageBreak(db, form, pageID, "down"))
	require.NoError(t, MovePageBreak(db, form, pageID, "down"))
	require.NoError(t, MovePageBreak(db, form, pageID, "down"))
	pages = formPages(t, form.ID)
	assert.Equal(t, 4, *pages[1].BreakIndex)

	// The next step would reach the last content question.
	assert.ErrorIs(t, MovePageBreak(db, form, pageID, "down"), apierrors.ErrPageBreakOutOfRange)

	assert.ErrorIs(t, MovePageBreak(db, form, pages[0].ID, "down"), apierrors.ErrFirstPageImmutable)
}

func TestMovePageBreakCrossesSibling(t *testing.T) {
	form := newTestForm(t, 5)
	require.NoError(t, CreatePageBreak(db, form, 2))
	require.NoError(t, CreatePageBreak(db, form, 3))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 3)

	assert.ErrorIs(t, MovePageBreak(db, form, pages[1].ID, "down"), apierrors.ErrPageBreakCrossesSibling)
	assert.ErrorIs(t, MovePageBreak(db, form, pages[2].ID, "up"), apierrors.ErrPageBreakCrossesSibling)
}

func TestDeletePageBreak(t *testing.T) {
	form := newTestForm(t, 4)
	require.NoError(t, CreatePageBreak(db, form, 2))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 2)

	assert.ErrorIs(t, DeletePageBreak(db, form, pages[0].ID), apierrors.ErrFirstPageImmutable)

	require.NoError(t, DeletePageBreak(db, form, pages[1].ID))
	pages = formPages(t, form.ID)
	require.Len(t, pages, 1)

	// Everything merged back onto the remaining page.
	for _, q := range formQuestions(t, form.ID) {
		assert.Equal(t, pages[0].ID, q.PageId)
	}
}

func TestRemoveQuestionMergesEmptyPage(t *testing.T) {
	form := newTestForm(t, 3)
	require.NoError(t, CreatePageBreak(db, form, 2))

	// Page 2 holds only q3; removing it leaves the page without content.
	require.NoError(t, RemoveQuestion(db, form, "q3"))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 1)

	questions := formQuestions(t, form.ID)
	require.Len(t, questions, 3)
	requireContiguous(t, questions)
	for _, q := range questions {
		assert.Equal(t, pages[0].ID, q.PageId)
	}
}

func TestInsertQuestionShiftsBreaks(t *testing.T) {
	form := newTestForm(t, 4)
	require.NoError(t, CreatePageBreak(db, form, 2))

	extra := FormQuestion{ID: "extra", Type: types.QuestionStatement}
	require.NoError(t, InsertQuestion(db, form, &extra, 1))

	pages := formPages(t, form.ID)
	require.Len(t, pages, 2)
	require.NotNil(t, pages[1].BreakIndex)
	assert.Equal(t, 3, *pages[1].BreakIndex)

	questions := formQuestions(t, form.ID)
	requireContiguous(t, questions)
	assert.Equal(t, "extra", questions[0].ID)
	assert.Equal(t, pages[0].ID, questions[2].PageId)
	assert.Equal(t, pages[1].ID, questions[3].PageId)
}
