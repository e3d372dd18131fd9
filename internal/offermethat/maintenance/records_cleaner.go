package maintenance

import (
	"log/slog"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"gorm.io/gorm"
)

// RecordCleaner drops stale test submissions. Agents use test submissions to
// try out their forms, the records have no value after a few days.
type RecordCleaner struct {
	db *gorm.DB
}

func NewRecordCleaner(db *gorm.DB) *RecordCleaner {
	return &RecordCleaner{db}
}

func (rc *RecordCleaner) CleanTestRecords() {
	slog.Info("Start test records cleaning")

	cutoff := time.Now().AddDate(0, 0, -7)

	var offers []dao.Offer
	if err := rc.db.
		Where("is_test = true AND created_at < ?", cutoff).
		Find(&offers).Error; err != nil {
		slog.Error("Find stale test offers", "err", err)
		return
	}

	for i := range offers {
		if err := rc.db.Delete(&offers[i]).Error; err != nil {
			slog.Error("Delete test offer", "id", offers[i].ID, "err", err)
		}
	}

	slog.Info("Finish test records cleaning", "removed", len(offers))
}
