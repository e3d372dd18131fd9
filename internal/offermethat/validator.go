// Request validation for the offermethat API. Uses go-playground/validator
// with a few domain validators for question types, form kinds and page break
// move directions.
package offermethat

import (
	"regexp"
	"unicode/utf8"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/go-playground/validator"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	err := v.RegisterValidation("questionType", questionTypeValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("formKind", formKindValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("breakDirection", breakDirectionValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("questionId", questionIDValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("address", addressValidator)
	if err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

func questionTypeValidator(fl validator.FieldLevel) bool {
	_, ok := CatalogLookup(types.QuestionType(fl.Field().String()))
	return ok
}

func formKindValidator(fl validator.FieldLevel) bool {
	switch types.FormKind(fl.Field().String()) {
	case types.FormKindOffer, types.FormKindLead:
		return true
	}
	return false
}

func breakDirectionValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "up" || value == "down"
}

func questionIDValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !isValidLowerCamelOrSnake(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 100
}

func addressValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	return lenStr >= 1 && lenStr <= 300
}

func isValidLowerCamelOrSnake(str string) bool {
	pt := `^[a-zA-Z][a-zA-Z0-9_\-]*$`
	re := regexp.MustCompile(pt)
	return re.MatchString(str)
}
