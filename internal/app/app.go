package app

import (
	"context"

	"wikihub/internal/config"
	"wikihub/internal/db"
	"wikihub/internal/handlers"
	"wikihub/internal/logger"
	"wikihub/internal/notify"
	"wikihub/internal/repository"
	"wikihub/internal/routes"
	"wikihub/internal/services"
	"wikihub/internal/storage"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Core: общие зависимости сервера и lineagectl.
type Core struct {
	Pool    *pgxpool.Pool
	Store   repository.Store
	Blobs   *storage.BlobStore
	Ledger  *services.VersionLedger
	Sweeper *services.Sweeper
}

func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	blobs, err := storage.NewBlobStore(cfg.UploadDir)
	if err != nil {
		conn.Close()
		return nil, err
	}

	store := repository.NewStore(conn)
	ledger := services.NewVersionLedger()
	return &Core{
		Pool:    conn,
		Store:   store,
		Blobs:   blobs,
		Ledger:  ledger,
		Sweeper: services.NewSweeper(store, blobs, ledger, cfg.OrphanMaxAge()),
	}, nil
}

func (c *Core) Close() { c.Pool.Close() }

// InitApp собирает сервер. Периодическая очистка живёт, пока жив ctx.
func InitApp(ctx context.Context, cfg *config.Config) (*mux.Router, func(), error) {
	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Log.Info("Хранилище файлов готово", zap.String("root", core.Blobs.Root()))

	// Репозитории
	userRepo := repository.NewUserRepository(core.Pool)

	// Сервисы
	hub := notify.NewHub(cfg.Origin)
	binder := services.NewAttachmentBinder(core.Blobs, services.UploadPolicy{
		MaxAttachments: cfg.MaxAttachments,
		AllowedMIME:    cfg.AllowedMIME,
	})
	aggregate := services.NewArticleAggregate(core.Store, core.Ledger, cfg.PublicURLPrefix)
	lineage := services.NewLineageService(core.Store, core.Ledger, binder, aggregate, core.Blobs, hub, cfg.EditRetries)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL())
	commentService := services.NewCommentService(core.Store)
	workspaceService := services.NewWorkspaceService(core.Store)

	// Хендлеры
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Articles:   handlers.NewArticleHandler(lineage, handlers.NewUploads(core.Blobs, cfg.MaxAttachments, cfg.MaxUploadMB)),
		Comments:   handlers.NewCommentHandler(commentService),
		Workspaces: handlers.NewWorkspaceHandler(workspaceService),
		Files:      handlers.NewFileHandler(core.Blobs),
		Logs:       handlers.NewAdminLogsHandler("logs"),
		Hub:        hub,
	}

	// ▶️ Периодическая очистка файлов и ремонт указателей версий
	core.Sweeper.Start(ctx, cfg.SweepEvery())

	router := mux.NewRouter()
	routes.InitRoutes(router, cfg.JWTSecret, h)

	return router, core.Close, nil
}
