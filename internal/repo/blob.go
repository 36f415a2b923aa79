package repo

import (
	"context"

	"immigration/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRepository минимальный контракт доступа к PhotoBlob.
type BlobRepository interface {
	// CreateIfAbsent пытается создать запись. Если ключ уже занят, ничего не делает.
	// Возвращает created=true если запись была создана в этой операции.
	CreateIfAbsent(ctx context.Context, key, contentType string, data []byte) (created bool, err error)
	Get(ctx context.Context, key string) (*model.PhotoBlob, error)
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

type blobRepo struct {
	db *gorm.DB
}

// NewBlobRepository создаёт реализацию репозитория для PhotoBlob.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

// CreateIfAbsent создает PhotoBlob в БД, если его ещё нет.
func (r *blobRepo) CreateIfAbsent(ctx context.Context, key, contentType string, data []byte) (bool, error) {
	b := &model.PhotoBlob{Key: key, ContentType: contentType, Data: data}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoNothing: true,
	}).Create(b)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *blobRepo) Get(ctx context.Context, key string) (*model.PhotoBlob, error) {
	var b model.PhotoBlob
	if err := r.db.WithContext(ctx).Where("blob_key = ?", key).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// Delete удаляет blob; отсутствующий ключ не считается ошибкой.
func (r *blobRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&model.PhotoBlob{}).Error
}

func (r *blobRepo) ListKeys(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := r.db.WithContext(ctx).Model(&model.PhotoBlob{}).Order("blob_key ASC").Pluck("blob_key", &keys).Error
	return keys, err
}
