package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquirePostingLock serializes a distribution run across instances using
// MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that runs the posting transaction.
func AcquirePostingLock(tx *gorm.DB, name string) error {
	lockName := fmt.Sprintf("revenue:%s", name)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock %q", lockName)
	}
	return nil
}

func ReleasePostingLock(tx *gorm.DB, name string) {
	lockName := fmt.Sprintf("revenue:%s", name)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
