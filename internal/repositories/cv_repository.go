package repositories

import (
	"errors"
	"time"

	"cvbuilder_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCVNotFound      = errors.New("cv not found")
	ErrCVLimitReached  = errors.New("cv limit reached")
	ErrShareTokenTaken = errors.New("share token already in use")
)

type CVRepository interface {
	// CreateWithinLimit атомарно проверяет лимит и создает резюме.
	// limit <= 0 - без ограничений.
	CreateWithinLimit(db *gorm.DB, cv *models.CV, limit int) error
	FindByID(db *gorm.DB, id string) (*models.CV, error)
	FindByUser(db *gorm.DB, userID string) ([]models.CV, error)
	FindByShareToken(db *gorm.DB, token string) (*models.CV, error)
	CountByUser(db *gorm.DB, userID string) (int64, error)
	UpdateFields(db *gorm.DB, cvID string, fields map[string]interface{}) error
	// UpdateMetadata пишет служебные данные (анализ, экспорт), updated_at не трогает
	UpdateMetadata(db *gorm.DB, cvID string, md models.CVMetadata) error
	Delete(db *gorm.DB, cvID string) error
	// FileKeysByUser - ключи сохраненных PDF и фото в хранилище (для очистки при удалении аккаунта)
	FileKeysByUser(db *gorm.DB, userID string) ([]string, error)
}

type CVRepositoryImpl struct{}

func NewCVRepository() CVRepository {
	return &CVRepositoryImpl{}
}

func (r *CVRepositoryImpl) CreateWithinLimit(db *gorm.DB, cv *models.CV, limit int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// Блокируем строку владельца: параллельные создания одного пользователя
		// выстраиваются в очередь, и count ниже видит все закоммиченные резюме.
		var owner models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", cv.UserID).
			First(&owner).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if limit > 0 {
			var count int64
			if err := tx.Model(&models.CV{}).Where("user_id = ?", cv.UserID).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(limit) {
				return ErrCVLimitReached
			}
		}

		if err := tx.Create(cv).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).
			Where("id = ?", cv.UserID).
			UpdateColumn("cvs_created", gorm.Expr("cvs_created + ?", 1)).Error
	})
}

func (r *CVRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.CV, error) {
	var cv models.CV
	if err := db.First(&cv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCVNotFound
		}
		return nil, err
	}
	return &cv, nil
}

func (r *CVRepositoryImpl) FindByUser(db *gorm.DB, userID string) ([]models.CV, error) {
	var cvs []models.CV
	err := db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&cvs).Error
	return cvs, err
}

func (r *CVRepositoryImpl) FindByShareToken(db *gorm.DB, token string) (*models.CV, error) {
	if token == "" {
		return nil, ErrCVNotFound
	}
	var cv models.CV
	if err := db.First(&cv, "share_token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCVNotFound
		}
		return nil, err
	}
	return &cv, nil
}

func (r *CVRepositoryImpl) CountByUser(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.CV{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *CVRepositoryImpl) UpdateFields(db *gorm.DB, cvID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()

	result := db.Model(&models.CV{}).Where("id = ?", cvID).Updates(fields)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrShareTokenTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCVNotFound
	}
	return nil
}

func (r *CVRepositoryImpl) UpdateMetadata(db *gorm.DB, cvID string, md models.CVMetadata) error {
	// UpdateColumn не выставляет autoUpdateTime
	result := db.Model(&models.CV{}).Where("id = ?", cvID).UpdateColumn("metadata", datatypes.NewJSONType(md))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCVNotFound
	}
	return nil
}

func (r *CVRepositoryImpl) Delete(db *gorm.DB, cvID string) error {
	result := db.Where("id = ?", cvID).Delete(&models.CV{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCVNotFound
	}
	return nil
}

func (r *CVRepositoryImpl) FileKeysByUser(db *gorm.DB, userID string) ([]string, error) {
	var cvs []models.CV
	if err := db.Select("id", "metadata").Where("user_id = ?", userID).Find(&cvs).Error; err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(cvs))
	for _, cv := range cvs {
		md := cv.Metadata.Data()
		for _, key := range []string{md.PDFKey, md.PhotoKey} {
			if key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}
