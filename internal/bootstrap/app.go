package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/olivere/elastic/v7"

	"github.com/locvowork/pivotgrid/internal/config"
	"github.com/locvowork/pivotgrid/internal/database"
	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/internal/handler"
	"github.com/locvowork/pivotgrid/internal/logger"
	"github.com/locvowork/pivotgrid/internal/repository"
	"github.com/locvowork/pivotgrid/internal/service"
	"github.com/locvowork/pivotgrid/pkg/googlecloud"
	"github.com/locvowork/pivotgrid/pkg/pivotexcel"
)

type App struct {
	Echo    *echo.Echo
	DB      *sql.DB
	GCP     *googlecloud.Client
	Elastic *elastic.Client
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	repo, err := a.reportRepository(ctx)
	if err != nil {
		return err
	}

	var index domain.ReportIndex
	if cfg.ELASTIC_URL != "" {
		index, err = a.reportIndex(ctx)
		if err != nil {
			// Search falls back to scanning the catalog.
			logger.ErrorLog(ctx, "report search index disabled: %v", err)
		}
	}

	var tmpl *pivotexcel.ExportTemplate
	if cfg.EXPORT_TEMPLATE_PATH != "" {
		if tmpl, err = pivotexcel.LoadTemplate(cfg.EXPORT_TEMPLATE_PATH); err != nil {
			return fmt.Errorf("failed to load export template: %w", err)
		}
	}

	pivotSvc := service.NewPivotService(service.PivotOptions{
		PeriodField: cfg.PERIOD_FIELD,
		AppName:     cfg.APP_NAME,
		RowHeight:   cfg.VIEWPORT_ROW_HEIGHT,
		Overscan:    cfg.VIEWPORT_OVERSCAN,
		Template:    tmpl,
	})
	reportSvc := service.NewReportService(repo, index)

	a.Echo.Validator = handler.NewRequestValidator()
	a.RegisterMiddlewares()
	a.RegisterRoutes(handler.NewPivotHandler(pivotSvc), handler.NewReportHandler(reportSvc))

	return nil
}

func (a *App) reportRepository(ctx context.Context) (domain.ReportRepository, error) {
	cfg := config.DefaultEnvConfig
	switch cfg.REPORT_STORE {
	case config.ReportStorePostgres:
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		if err := repository.EnsureReportsTable(ctx, db, repository.DefaultReportsTable); err != nil {
			return nil, err
		}
		logger.InfoLog(ctx, "Reports stored in postgres")
		return repository.NewPostgresReportRepository(db, repository.DefaultReportsTable), nil

	case config.ReportStoreDatastore:
		gcpClient, err := googlecloud.NewClient(ctx, cfg.GCP_PROJECT_ID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCP client: %w", err)
		}
		a.GCP = gcpClient
		logger.InfoLog(ctx, "Reports stored in datastore project %s", cfg.GCP_PROJECT_ID)
		return repository.NewDatastoreReportRepository(gcpClient), nil
	}

	logger.InfoLog(ctx, "Reports stored under %s", cfg.REPORTS_PATH)
	return repository.NewFileReportRepository(cfg.REPORTS_PATH), nil
}

func (a *App) reportIndex(ctx context.Context) (domain.ReportIndex, error) {
	client, err := repository.NewElasticClient(config.DefaultEnvConfig.ELASTIC_URL)
	if err != nil {
		return nil, err
	}
	index, err := repository.NewElasticReportIndex(ctx, client, config.DefaultEnvConfig.ELASTIC_INDEX)
	if err != nil {
		client.Stop()
		return nil, err
	}
	a.Elastic = client
	return index, nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(requestContext)
}

// requestContext tags the request context so service logs carry the request id.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

func (a *App) RegisterRoutes(pivotHandler *handler.PivotHandler, reportHandler *handler.ReportHandler) {
	api := a.Echo.Group("/api/v1")

	pivotGroup := api.Group("/pivot")
	pivotGroup.POST("/view", pivotHandler.ViewHandler)
	pivotGroup.POST("/metrics", pivotHandler.MetricHandler)
	pivotGroup.POST("/export", pivotHandler.ExportHandler)

	reportGroup := api.Group("/reports")
	reportGroup.GET("", reportHandler.ListHandler)
	reportGroup.GET("/config", reportHandler.GetConfigHandler)
	reportGroup.PUT("/config", reportHandler.SaveConfigHandler)
	reportGroup.GET("/search", reportHandler.SearchHandler)
}

// Close releases every backend the app opened.
func (a *App) Close() error {
	var result error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close database: %w", err))
		}
	}
	if a.GCP != nil {
		if err := a.GCP.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close datastore: %w", err))
		}
	}
	if a.Elastic != nil {
		a.Elastic.Stop()
	}
	return result
}

func (a *App) Run() error {
	defer func() {
		if err := a.Close(); err != nil {
			logger.ErrorLog(context.Background(), "shutdown: %v", err)
		}
	}()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
