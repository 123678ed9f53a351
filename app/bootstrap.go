package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sandbox-svc/app/clients"
	"sandbox-svc/app/executor"
	"sandbox-svc/app/handlers"
	"sandbox-svc/app/services"
	"sandbox-svc/app/storage"
)

// App represents the application
type App struct {
	Config     *Config
	Runtime    clients.RuntimeAdapter
	Store      *storage.Store
	Registry   *services.SessionRegistry
	Executions *services.ExecutionService
	Files      *services.FileService
	Router     *gin.Engine

	stopJobs context.CancelFunc
}

// Bootstrap initializes the application: container runtime, metadata
// store, session registry (rehydrated from durable state), executors,
// services, HTTP router, and the background maintenance jobs.
func Bootstrap(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	runtime, err := clients.NewDockerRuntime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container runtime: %w", err)
	}

	store, err := storage.NewStore(cfg.SQLitePath)
	if err != nil {
		runtime.Close()
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	registry := services.NewSessionRegistry(runtime, store, services.RegistryOptions{
		Mode:          cfg.WorkspaceMode,
		WorkspaceRoot: cfg.WorkspaceRoot,
		QueueOnBusy:   cfg.QueueOnBusy,
		IdleHours:     cfg.SessionIdleHours,
	})
	if err := registry.Rehydrate(ctx); err != nil {
		store.Close()
		runtime.Close()
		return nil, fmt.Errorf("failed to rehydrate session registry: %w", err)
	}

	exec := executor.NewContainerExecutor(runtime, executor.Options{
		Image:             cfg.SandboxImage,
		MemoryLimit:       cfg.DefaultMemoryLimit,
		NetworkMode:       cfg.DefaultNetworkMode,
		TimeoutSeconds:    cfg.DefaultTimeoutSeconds,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
		MaxConcurrent:     cfg.WorkerPoolSize,
		MaxOutputBytes:    cfg.MaxOutputBytes,
	})

	// In bind mode the host can reach workspaces directly; in volume
	// mode file operations run through short helper containers.
	var bridge clients.FileBridge
	if cfg.WorkspaceMode == services.WorkspaceModeBind {
		bridge = storage.NewHostFiles(cfg.MaxFileBytes)
	} else {
		bridge = storage.NewContainerFiles(exec, storage.ContainerFilesOptions{
			Image:       cfg.SandboxImage,
			MaxFileSize: cfg.MaxFileBytes,
		})
	}

	browser := executor.NewBrowserRunner(exec, bridge, executor.BrowserRunnerOptions{
		Image:          cfg.BrowserImage,
		NetworkMode:    cfg.BrowserNetworkMode,
		MemoryLimit:    cfg.DefaultMemoryLimit,
		TimeoutSeconds: cfg.BrowserTimeoutSeconds,
	})

	executions := services.NewExecutionService(registry, exec, browser, store, cfg.BrowserCredential)
	files := services.NewFileService(registry, bridge)

	var tokens *services.TokenService
	if cfg.AuthJWTSecret != "" {
		tokens = services.NewTokenService(cfg.AuthJWTSecret, cfg.AuthTokenTTLSec)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(router, runtime, store, registry, executions, files, tokens, cfg.AuthTokenTTLSec)

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	go runMaintenanceJobs(jobsCtx, registry, store, cfg)

	return &App{
		Config:     cfg,
		Runtime:    runtime,
		Store:      store,
		Registry:   registry,
		Executions: executions,
		Files:      files,
		Router:     router,
		stopJobs:   stopJobs,
	}, nil
}

// Close stops the background jobs and releases the runtime client and
// the metadata store.
func (a *App) Close() {
	a.stopJobs()
	if err := a.Store.Close(); err != nil {
		log.Printf("app: closing store: %v", err)
	}
	if err := a.Runtime.Close(); err != nil {
		log.Printf("app: closing runtime: %v", err)
	}
}

// setupRoutes configures HTTP routes
func setupRoutes(
	router *gin.Engine,
	runtime clients.RuntimeAdapter,
	store *storage.Store,
	registry *services.SessionRegistry,
	executions *services.ExecutionService,
	files *services.FileService,
	tokens *services.TokenService,
	tokenTTLSec int64,
) {
	healthHandler := handlers.NewHealthHandler(runtime, store)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Token issue stays outside the authenticated group: tokens are
	// session-bound, so holding one only grants access to that one
	// workspace. Wildcard tokens are minted out-of-band.
	if tokens != nil {
		tokenHandler := handlers.NewTokenHandler(tokens, tokenTTLSec)
		router.POST("/auth/token", tokenHandler.IssueToken)
	}

	executeHandler := handlers.NewExecuteHandler(executions)
	sessionHandler := handlers.NewSessionHandler(registry)
	fileHandler := handlers.NewFileHandler(files)
	browserHandler := handlers.NewBrowserHandler(executions)

	v1 := router.Group("/v1")
	if tokens != nil {
		v1.Use(handlers.AuthRequired(tokens))
	}
	{
		v1.POST("/execute/shell", executeHandler.ExecuteShell)
		v1.POST("/execute/script", executeHandler.ExecuteScript)

		v1.GET("/sessions", sessionHandler.List)
		v1.DELETE("/sessions/:id", sessionHandler.Teardown)
		v1.GET("/sessions/:id/executions", executeHandler.History)

		v1.GET("/sessions/:id/files", fileHandler.List)
		v1.GET("/sessions/:id/files/content", fileHandler.Read)
		v1.PUT("/sessions/:id/files/content", fileHandler.Write)
		v1.DELETE("/sessions/:id/files", fileHandler.Delete)
		v1.POST("/sessions/:id/files/directories", fileHandler.MakeDirectory)

		v1.POST("/browser/task", browserHandler.RunTask)
		v1.POST("/browser/screenshot", browserHandler.Screenshot)
	}
}

// runMaintenanceJobs periodically reaps idle sessions and prunes old
// execution history until ctx is cancelled. Idle reaping is skipped
// entirely when SESSION_IDLE_HOURS is zero.
func runMaintenanceJobs(ctx context.Context, registry *services.SessionRegistry, store *storage.Store, cfg *Config) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)

		if cfg.SessionIdleHours > 0 {
			idle, err := store.ListIdleSessions(jobCtx, cfg.SessionIdleHours)
			if err != nil {
				log.Printf("maintenance: listing idle sessions: %v", err)
			}
			for _, row := range idle {
				if err := registry.Teardown(jobCtx, row.SessionID); err != nil {
					log.Printf("maintenance: reaping idle session %s: %v", row.SessionID, err)
					continue
				}
				log.Printf("maintenance: reaped idle session %s", row.SessionID)
			}
		}

		if cfg.ExecutionRetentionDays > 0 {
			if err := store.CleanupOldExecutions(jobCtx, cfg.ExecutionRetentionDays*24); err != nil {
				log.Printf("maintenance: pruning execution history: %v", err)
			}
		}

		cancel()
	}
}
