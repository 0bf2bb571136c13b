package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/extractions"
	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/profiles"
	"docredact-backend/internal/redactions"
	"docredact-backend/internal/services/health"
	"docredact-backend/internal/shared/config"
	"docredact-backend/internal/shared/keylock"
	"docredact-backend/internal/shared/server"
	"docredact-backend/internal/shared/server/middleware"
	"docredact-backend/internal/shared/storage/db"
	"docredact-backend/internal/shared/storage/object"
	localstore "docredact-backend/internal/shared/storage/object/local"
	s3store "docredact-backend/internal/shared/storage/object/s3"
	"docredact-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Locks  *keylock.Map
	Client *fieldservice.Client

	DocumentsRepo documents.Repo
	ProfilesRepo  profiles.Repo

	DocumentsService   *documents.Service
	ProfilesService    *profiles.Service
	ExtractionsService *extractions.Service
	RedactionsService  *redactions.Service
	HealthService      *health.Service

	DocumentsHandler   *documents.Handler
	ProfilesHandler    *profiles.Handler
	ExtractionsHandler *extractions.Handler
	RedactionsHandler  *redactions.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.ScratchDir) == "" {
		cfg.ScratchDir = os.TempDir()
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Locks:  keylock.New(),
		Client: fieldservice.NewClient(cfg.FieldServiceURL, cfg.FieldServiceTimeout),
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		Health:            app.HealthService,
		DocumentHandler:   app.DocumentsHandler,
		ProfileHandler:    app.ProfilesHandler,
		ExtractionHandler: app.ExtractionsHandler,
		RedactionHandler:  app.RedactionsHandler,
		RateLimiter:       middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var docRepo documents.Repo
	var profileRepo profiles.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		profileRepo = &profiles.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		profileRepo = profiles.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:    app.Store,
		Repo:     docRepo,
		Locks:    app.Locks,
		MaxFiles: app.Config.MaxUploadFiles,
		MaxBytes: app.Config.MaxUploadBytes,
	}
	profileSvc := &profiles.Service{Repo: profileRepo}
	extractionSvc := &extractions.Service{
		Repo:       docRepo,
		Store:      app.Store,
		Client:     app.Client,
		Locks:      app.Locks,
		ScratchDir: app.Config.ScratchDir,
	}
	redactionSvc := &redactions.Service{
		Repo:       docRepo,
		Store:      app.Store,
		Client:     app.Client,
		Locks:      app.Locks,
		ScratchDir: app.Config.ScratchDir,
	}

	app.DocumentsRepo = docRepo
	app.ProfilesRepo = profileRepo
	app.DocumentsService = docSvc
	app.ProfilesService = profileSvc
	app.ExtractionsService = extractionSvc
	app.RedactionsService = redactionSvc
	app.HealthService = health.NewService(app.DB, 0)
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Config.MaxUploadBytes)
	app.ProfilesHandler = profiles.NewHandler(profileSvc)
	app.ExtractionsHandler = extractions.NewHandler(extractionSvc, profileSvc)
	app.RedactionsHandler = redactions.NewHandler(redactionSvc)
}
