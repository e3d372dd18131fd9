package dao

import (
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dto"
	policy "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/redactor-policy"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/types"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Offer struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	SeqId     int       `json:"seq_id" gorm:"uniqueIndex:idx_offer_seq,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FormId uuid.UUID `json:"form_id" gorm:"type:uuid;uniqueIndex:idx_offer_seq,priority:1"`
	Form   *Form     `json:"-" gorm:"foreignKey:FormId" extensions:"x-nullable"`

	OwnerId uuid.UUID `json:"owner_id" gorm:"type:uuid;index"`
	Owner   *User     `json:"-" gorm:"foreignKey:OwnerId" extensions:"x-nullable"`

	ListingId            uuid.NullUUID `json:"listing_id" gorm:"type:uuid;index" extensions:"x-nullable"`
	Listing              *Listing      `json:"listing_detail" gorm:"foreignKey:ListingId" extensions:"x-nullable"`
	CustomListingAddress *string       `json:"custom_listing_address" extensions:"x-nullable"`

	Status string `json:"status" gorm:"default:new;index"`

	SubmitterFirstName string `json:"submitter_first_name"`
	SubmitterLastName  string `json:"submitter_last_name"`
	SubmitterEmail     string `json:"submitter_email"`
	SubmitterPhone     string `json:"submitter_phone"`

	Amount    *float64 `json:"amount" extensions:"x-nullable"`
	Currency  string   `json:"currency"`
	BuyerType string   `json:"buyer_type"`

	OfferExpiry    *types.TargetDate `json:"offer_expiry" extensions:"x-nullable"`
	SettlementDate *types.TargetDate `json:"settlement_date" extensions:"x-nullable"`

	DepositData      *types.DepositData      `json:"deposit_data" gorm:"type:jsonb" extensions:"x-nullable"`
	PurchaserData    *types.PurchaserData    `json:"purchaser_data" gorm:"type:jsonb" extensions:"x-nullable"`
	LoanApprovalData *types.LoanApprovalData `json:"loan_approval_data" gorm:"type:jsonb" extensions:"x-nullable"`

	CustomQuestionsData types.CustomAnswers `json:"custom_questions_data" gorm:"type:jsonb"`
	FormData            types.ExtensionBag  `json:"form_data" gorm:"type:jsonb"`

	IsTest bool `json:"is_test" gorm:"default:false"`
}

func (Offer) TableName() string { return "offers" }

func (offer *Offer) BeforeSave(tx *gorm.DB) error {
	offer.SubmitterFirstName = policy.StripTagsPolicy.Sanitize(offer.SubmitterFirstName)
	offer.SubmitterLastName = policy.StripTagsPolicy.Sanitize(offer.SubmitterLastName)
	if offer.CustomListingAddress != nil {
		addr := policy.StripTagsPolicy.Sanitize(*offer.CustomListingAddress)
		offer.CustomListingAddress = &addr
	}
	return nil
}

func (offer *Offer) BeforeDelete(tx *gorm.DB) error {
	var attachments []FormAttachment
	if err := tx.Where("offer_id = ?", offer.ID).Find(&attachments).Error; err != nil {
		return err
	}
	for _, attachment := range attachments {
		if err := tx.Delete(&attachment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (offer *Offer) ToLightDTO() *dto.OfferLight {
	if offer == nil {
		return nil
	}

	res := &dto.OfferLight{
		ID:                   offer.ID.String(),
		SeqId:                offer.SeqId,
		CreatedAt:            offer.CreatedAt,
		Status:               offer.Status,
		CustomListingAddress: offer.CustomListingAddress,
		SubmitterFirstName:   offer.SubmitterFirstName,
		SubmitterLastName:    offer.SubmitterLastName,
		SubmitterEmail:       offer.SubmitterEmail,
		Amount:               offer.Amount,
		Currency:             offer.Currency,
	}
	if offer.ListingId.Valid {
		listingId := offer.ListingId.UUID.String()
		res.ListingId = &listingId
	}
	return res
}

func (offer *Offer) ToDTO() *dto.Offer {
	if offer == nil {
		return nil
	}

	res := &dto.Offer{
		OfferLight:          *offer.ToLightDTO(),
		SubmitterPhone:      offer.SubmitterPhone,
		BuyerType:           offer.BuyerType,
		OfferExpiry:         offer.OfferExpiry,
		SettlementDate:      offer.SettlementDate,
		DepositData:         offer.DepositData,
		PurchaserData:       offer.PurchaserData,
		LoanApprovalData:    offer.LoanApprovalData,
		CustomQuestionsData: offer.CustomQuestionsData,
		Listing:             offer.Listing.ToLightDTO(),
		IsTest:              offer.IsTest,
	}
	if offer.FormData.Len() > 0 {
		res.FormData = &offer.FormData
	}
	return res
}

// CreateOffer inserts the offer with the next sequence number of its form.
func CreateOffer(db *gorm.DB, offer *Offer) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var lastSeq int
		if err := tx.Model(&Offer{}).
			Where("form_id = ?", offer.FormId).
			Select("COALESCE(MAX(seq_id), 0)").Scan(&lastSeq).Error; err != nil {
			return err
		}
		offer.SeqId = lastSeq + 1
		return tx.Create(offer).Error
	})
}

type Lead struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	SeqId     int       `json:"seq_id" gorm:"uniqueIndex:idx_lead_seq,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FormId uuid.UUID `json:"form_id" gorm:"type:uuid;uniqueIndex:idx_lead_seq,priority:1"`
	Form   *Form     `json:"-" gorm:"foreignKey:FormId" extensions:"x-nullable"`

	OwnerId uuid.UUID `json:"owner_id" gorm:"type:uuid;index"`
	Owner   *User     `json:"-" gorm:"foreignKey:OwnerId" extensions:"x-nullable"`

	ListingId            uuid.NullUUID `json:"listing_id" gorm:"type:uuid;index" extensions:"x-nullable"`
	Listing              *Listing      `json:"listing_detail" gorm:"foreignKey:ListingId" extensions:"x-nullable"`
	CustomListingAddress *string       `json:"custom_listing_address" extensions:"x-nullable"`

	Status string `json:"status" gorm:"default:new;index"`

	SubmitterFirstName string `json:"submitter_first_name"`
	SubmitterLastName  string `json:"submitter_last_name"`
	SubmitterEmail     string `json:"submitter_email"`
	SubmitterPhone     string `json:"submitter_phone"`

	Message          string `json:"message"`
	PriceRange       string `json:"price_range"`
	InspectionStatus string `json:"inspection_status"`

	CustomQuestionsData types.CustomAnswers `json:"custom_questions_data" gorm:"type:jsonb"`
	FormData            types.ExtensionBag  `json:"form_data" gorm:"type:jsonb"`
}

func (Lead) TableName() string { return "leads" }

func (lead *Lead) BeforeSave(tx *gorm.DB) error {
	lead.SubmitterFirstName = policy.StripTagsPolicy.Sanitize(lead.SubmitterFirstName)
	lead.SubmitterLastName = policy.StripTagsPolicy.Sanitize(lead.SubmitterLastName)
	lead.Message = policy.UgcPolicy.Sanitize(lead.Message)
	if lead.CustomListingAddress != nil {
		addr := policy.StripTagsPolicy.Sanitize(*lead.CustomListingAddress)
		lead.CustomListingAddress = &addr
	}
	return nil
}

func (lead *Lead) BeforeDelete(tx *gorm.DB) error {
	var attachments []FormAttachment
	if err := tx.Where("lead_id = ?", lead.ID).Find(&attachments).Error; err != nil {
		return err
	}
	for _, attachment := range attachments {
		if err := tx.Delete(&attachment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (lead *Lead) ToLightDTO() *dto.LeadLight {
	if lead == nil {
		return nil
	}

	res := &dto.LeadLight{
		ID:                   lead.ID.String(),
		SeqId:                lead.SeqId,
		CreatedAt:            lead.CreatedAt,
		Status:               lead.Status,
		CustomListingAddress: lead.CustomListingAddress,
		SubmitterFirstName:   lead.SubmitterFirstName,
		SubmitterLastName:    lead.SubmitterLastName,
		SubmitterEmail:       lead.SubmitterEmail,
	}
	if lead.ListingId.Valid {
		listingId := lead.ListingId.UUID.String()
		res.ListingId = &listingId
	}
	return res
}

func (lead *Lead) ToDTO() *dto.Lead {
	if lead == nil {
		return nil
	}

	res := &dto.Lead{
		LeadLight:           *lead.ToLightDTO(),
		SubmitterPhone:      lead.SubmitterPhone,
		Message:             lead.Message,
		PriceRange:          lead.PriceRange,
		InspectionStatus:    lead.InspectionStatus,
		CustomQuestionsData: lead.CustomQuestionsData,
		Listing:             lead.Listing.ToLightDTO(),
	}
	if lead.FormData.Len() > 0 {
		res.FormData = &lead.FormData
	}
	return res
}

// CreateLead inserts the lead with the next sequence number of its form.
func CreateLead(db *gorm.DB, lead *Lead) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var lastSeq int
		if err := tx.Model(&Lead{}).
			Where("form_id = ?", lead.FormId).
			Select("COALESCE(MAX(seq_id), 0)").Scan(&lastSeq).Error; err != nil {
			return err
		}
		lead.SeqId = lastSeq + 1
		return tx.Create(lead).Error
	})
}
