// Defined API errors returned by the OfferMeThat service. Every error carries
// a stable numeric code and the HTTP status it maps to, so clients can switch
// on codes instead of parsing messages.
package apierrors

import (
	"fmt"
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
}

func (e DefinedError) Error() string {
	return e.Err
}

// WithFormattedMessage fills printf-style placeholders in the error message.
func (e DefinedError) WithFormattedMessage(args ...interface{}) DefinedError {
	e.Err = fmt.Sprintf(e.Err, args...)
	return e
}

var (
	// 1*** - auth errors
	ErrFailedLogin              = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Err: "invalid credentials"}
	ErrLoginCredentialsRequired = DefinedError{Code: 1002, StatusCode: http.StatusUnauthorized, Err: "both email and password are required"}
	ErrUserAlreadyExist         = DefinedError{Code: 1003, StatusCode: http.StatusConflict, Err: "user with this email already exists"}
	ErrTokenExpired             = DefinedError{Code: 1004, StatusCode: http.StatusUnauthorized, Err: "token expired"}
	ErrTokenInvalid             = DefinedError{Code: 1005, StatusCode: http.StatusUnauthorized, Err: "invalid token"}
	ErrUserNotFound             = DefinedError{Code: 1006, StatusCode: http.StatusNotFound, Err: "user not found"}
	ErrWeakPassword             = DefinedError{Code: 1007, StatusCode: http.StatusBadRequest, Err: "password must be at least 8 characters"}

	// 2*** - listing errors
	ErrListingNotFound      = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "listing not found"}
	ErrListingForbidden     = DefinedError{Code: 2002, StatusCode: http.StatusForbidden, Err: "not enough rights to manage this listing"}
	ErrListingAddressEmpty  = DefinedError{Code: 2003, StatusCode: http.StatusBadRequest, Err: "listing must have an address"}
	ErrSellerNotFound       = DefinedError{Code: 2004, StatusCode: http.StatusNotFound, Err: "listing seller not found"}
	ErrListingPhotoTooLarge = DefinedError{Code: 2005, StatusCode: http.StatusRequestEntityTooLarge, Err: "listing photo is too large"}

	// 3*** - form configuration errors
	ErrFormNotFound            = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Err: "form not found"}
	ErrFormForbidden           = DefinedError{Code: 3002, StatusCode: http.StatusForbidden, Err: "not enough rights to manage this form"}
	ErrQuestionNotFound        = DefinedError{Code: 3003, StatusCode: http.StatusNotFound, Err: "question not found"}
	ErrUnknownQuestionType     = DefinedError{Code: 3004, StatusCode: http.StatusBadRequest, Err: "unknown question type %s"}
	ErrBadSetupConfig          = DefinedError{Code: 3005, StatusCode: http.StatusBadRequest, Err: "invalid setup config: %s"}
	ErrSubmitButtonImmutable   = DefinedError{Code: 3006, StatusCode: http.StatusBadRequest, Err: "submit button question cannot be moved or deleted"}
	ErrPageNotFound            = DefinedError{Code: 3007, StatusCode: http.StatusNotFound, Err: "form page not found"}
	ErrPageBreakOutOfRange     = DefinedError{Code: 3008, StatusCode: http.StatusBadRequest, Err: "page break position is out of range"}
	ErrPageBreakCrossesSibling = DefinedError{Code: 3009, StatusCode: http.StatusBadRequest, Err: "page break would leave an empty page"}
	ErrFirstPageImmutable      = DefinedError{Code: 3010, StatusCode: http.StatusBadRequest, Err: "first page has no break to move or delete"}
	ErrOrderOutOfRange         = DefinedError{Code: 3011, StatusCode: http.StatusBadRequest, Err: "question order is out of range"}

	// 4*** - submission errors
	ErrSubmissionInvalid   = DefinedError{Code: 4001, StatusCode: http.StatusBadRequest, Err: "submission failed validation"}
	ErrListingRefRequired  = DefinedError{Code: 4002, StatusCode: http.StatusUnprocessableEntity, Err: "submission has no listing reference"}
	ErrRecordNotFound      = DefinedError{Code: 4003, StatusCode: http.StatusNotFound, Err: "record not found"}
	ErrRecordForbidden     = DefinedError{Code: 4004, StatusCode: http.StatusForbidden, Err: "not enough rights to manage this record"}
	ErrAttachmentNotFound  = DefinedError{Code: 4005, StatusCode: http.StatusNotFound, Err: "attachment not found"}
	ErrAttachmentTooLarge  = DefinedError{Code: 4006, StatusCode: http.StatusRequestEntityTooLarge, Err: "attachment is too large"}
	ErrUnknownListingOwner = DefinedError{Code: 4007, StatusCode: http.StatusBadRequest, Err: "referenced listing belongs to another owner"}

	// 5*** - generic/storage errors
	ErrGeneric       = DefinedError{Code: 5001, StatusCode: http.StatusBadRequest, Err: "unknown api error"}
	ErrEntityToLarge = DefinedError{Code: 5002, StatusCode: http.StatusRequestEntityTooLarge, Err: "request entity too large"}
	ErrStorageFail   = DefinedError{Code: 5003, StatusCode: http.StatusInternalServerError, Err: "file storage operation failed"}
)
