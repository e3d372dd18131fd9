// Quota checks for agent accounts. The community build allows everything;
// hosted deployments point EXTERNAL_LIMITER_URL at a billing service that
// answers per-owner quota questions.
package limiter

import (
	"log/slog"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/config"
	"github.com/gofrs/uuid"
)

type LimiterInt interface {
	CanCreateListing(ownerId uuid.UUID) bool
	CanAddAttachment(ownerId uuid.UUID) bool
	CanAcceptSubmission(ownerId uuid.UUID) bool

	GetRemainingListings(ownerId uuid.UUID) int
	GetRemainingSubmissions(ownerId uuid.UUID) int
}

var Limiter LimiterInt = CommunityLimiter{}

func Init(cfg *config.Config) {
	if cfg.ExternalLimiter == nil {
		slog.Info("Using Community limiter")
		return
	}
	Limiter = NewExternalLimiter(cfg.ExternalLimiter)
}

type CommunityLimiter struct{}

func (c CommunityLimiter) CanCreateListing(ownerId uuid.UUID) bool {
	return true
}

func (c CommunityLimiter) CanAddAttachment(ownerId uuid.UUID) bool {
	return true
}

func (c CommunityLimiter) CanAcceptSubmission(ownerId uuid.UUID) bool {
	return true
}

func (c CommunityLimiter) GetRemainingListings(ownerId uuid.UUID) int {
	return 99999999
}

func (c CommunityLimiter) GetRemainingSubmissions(ownerId uuid.UUID) int {
	return 99999999
}
