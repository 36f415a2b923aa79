package bootstrap

import (
	"fmt"

	"immigration/internal/config"
	"immigration/internal/photo"
	"immigration/internal/repo"
	"immigration/internal/service"

	"go.uber.org/zap"
)

// App: сервисы, которые нужны командам immctl.
type App struct {
	Documents *service.DocumentService
	Reports   *service.ReportService
	Users     *service.UserService
}

// PhotoStore выбирает хранилище фотографий по PHOTO_BACKEND.
func PhotoStore(cfg *config.Config, blobs repo.BlobRepository) photo.Store {
	if cfg.PhotoBackend == "db" {
		return photo.NewDBStore(blobs)
	}
	return photo.NewFSStore(cfg.MediaRoot)
}

// Open подключается к БД из конфигурации, выполняет миграции и собирает
// сервисы. cleanup закрывает соединение с БД.
func Open(cfg *config.Config, logger *zap.SugaredLogger) (*App, func() error, error) {
	db, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	docs := repo.NewDocumentRepository(db)
	forms := repo.NewFormRepository(db)
	events := repo.NewEventRepository(db)
	store := PhotoStore(cfg, repo.NewBlobRepository(db))
	opts := []service.Option{service.WithRecentDays(cfg.RecentDays)}

	app := &App{
		Documents: service.NewDocumentService(docs, events, store, nil, nil, logger, opts...),
		Reports:   service.NewReportService(docs, forms, store, logger, opts...),
		Users:     service.NewUserService(repo.NewUserRepository(db), cfg.AuthSecret),
	}
	return app, sqlDB.Close, nil
}
