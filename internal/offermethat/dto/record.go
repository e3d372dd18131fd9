package dto

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
)

type OfferLight struct {
	ID                   string    `json:"id"`
	SeqId                int       `json:"seq_id"`
	CreatedAt            time.Time `json:"created_at"`
	Status               string    `json:"status"`
	ListingId            *string   `json:"listing_id"`
	CustomListingAddress *string   `json:"custom_listing_address,omitempty"`
	SubmitterFirstName   string    `json:"submitter_first_name"`
	SubmitterLastName    string    `json:"submitter_last_name"`
	SubmitterEmail       string    `json:"submitter_email"`
	Amount               *float64  `json:"amount,omitempty"`
	Currency             string    `json:"currency,omitempty"`
}

type Offer struct {
	OfferLight
	SubmitterPhone      string                  `json:"submitter_phone,omitempty"`
	BuyerType           string                  `json:"buyer_type,omitempty"`
	OfferExpiry         *types.TargetDate       `json:"offer_expiry,omitempty"`
	SettlementDate      *types.TargetDate       `json:"settlement_date,omitempty"`
	DepositData         *types.DepositData      `json:"deposit_data,omitempty"`
	PurchaserData       *types.PurchaserData    `json:"purchaser_data,omitempty"`
	LoanApprovalData    *types.LoanApprovalData `json:"loan_approval_data,omitempty"`
	CustomQuestionsData types.CustomAnswers     `json:"custom_questions_data,omitempty"`
	FormData            *types.ExtensionBag     `json:"form_data,omitempty"`
	Listing             *ListingLight           `json:"listing_detail,omitempty"`
	IsTest              bool                    `json:"is_test,omitempty"`
}

type LeadLight struct {
	ID                   string    `json:"id"`
	SeqId                int       `json:"seq_id"`
	CreatedAt            time.Time `json:"created_at"`
	Status               string    `json:"status"`
	ListingId            *string   `json:"listing_id"`
	CustomListingAddress *string   `json:"custom_listing_address,omitempty"`
	SubmitterFirstName   string    `json:"submitter_first_name"`
	SubmitterLastName    string    `json:"submitter_last_name"`
	SubmitterEmail       string    `json:"submitter_email"`
}

type Lead struct {
	LeadLight
	SubmitterPhone      string              `json:"submitter_phone,omitempty"`
	Message             string              `json:"message,omitempty"`
	PriceRange          string              `json:"price_range,omitempty"`
	InspectionStatus    string              `json:"inspection_status,omitempty"`
	CustomQuestionsData types.CustomAnswers `json:"custom_questions_data,omitempty"`
	FormData            *types.ExtensionBag `json:"form_data,omitempty"`
	Listing             *ListingLight       `json:"listing_detail,omitempty"`
}
