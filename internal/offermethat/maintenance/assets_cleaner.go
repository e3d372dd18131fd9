// Background cleanup of the object store. Removes blobs that no file_assets
// row references anymore, for example after a failed upload transaction.
package maintenance

import (
	"log/slog"
	"strings"
	"time"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	filestorage "github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/file-storage"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AssetsCleaner struct {
	db *gorm.DB
	si filestorage.FileStorage
}

func NewAssetCleaner(db *gorm.DB, si filestorage.FileStorage) *AssetsCleaner {
	return &AssetsCleaner{db, si}
}

func (ac *AssetsCleaner) CleanAssets() {
	slog.Info("Start assets cleaning")
	var removed int
	if err := ac.si.ListRoot(func(fi filestorage.FileInfo) error {
		// Fresh blobs may belong to an upload still in flight
		if time.Since(fi.CreatedAt) < time.Hour*24 {
			return nil
		}

		name, err := uuid.FromString(fi.Name)
		if err != nil {
			return nil
		}

		var exist bool
		if err := ac.db.
			Where("id = ?", name).
			Select("count(*) > 0").
			Model(&dao.FileAsset{}).
			Find(&exist).Error; err != nil && !strings.Contains(err.Error(), "invalid input syntax") {
			return err
		}
		if exist {
			return nil
		}
		if err := ac.si.Delete(name); err != nil {
			return err
		}
		removed++
		return nil
	}); err != nil {
		slog.Error("Clean assets fail", "err", err)
	}
	slog.Info("Finish assets cleaning", "removed", removed)
}
