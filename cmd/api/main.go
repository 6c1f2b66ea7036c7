package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/spare-ledger/internal/application/inventory"
	"github.com/jhoicas/spare-ledger/internal/application/usecase"
	"github.com/jhoicas/spare-ledger/internal/domain/repository"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/spare-ledger/internal/infrastructure/scheduler"
	httpRouter "github.com/jhoicas/spare-ledger/internal/interfaces/http"
	"github.com/jhoicas/spare-ledger/pkg/config"
	"github.com/jhoicas/spare-ledger/pkg/logger"
)

// stores puertos que dependen del driver elegido.
type stores struct {
	txRunner  inventory.TxRunner
	snapshots inventory.SnapshotReader
	records   repository.InventoryRecordRepository
	requests  repository.SpareRequestRepository
	movements repository.StockMovementRepository
	parts     repository.SparePartRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	recorder := inventory.NewMovementRecorder(st.txRunner, st.movements, log.Named("movements"))
	requestUC := inventory.NewSpareRequestUseCase(st.txRunner, st.requests, recorder, log.Named("requests"))
	returnUC := inventory.NewReturnUseCase(st.txRunner, st.requests, recorder, log.Named("returns"))
	reconciliationUC := inventory.NewReconciliationUseCase(st.snapshots, log.Named("reconciliation"))
	sparePartUC := usecase.NewSparePartUseCase(st.parts)
	stockQueryUC := usecase.NewStockQueryUseCase(st.records)

	var sched *scheduler.Scheduler
	if cfg.Reconciliation.Enabled {
		sched = scheduler.New(log.Named("scheduler"))
		if err := sched.Add("reconcile-in-transit", cfg.Reconciliation.Schedule, cfg.Reconciliation.Timeout, reconciliationUC.Run); err != nil {
			log.Fatal().Err(err).Msg("programar conciliación")
		}
		sched.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Named("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Spare Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		SparePartUC:  sparePartUC,
		StockQueryUC: stockQueryUC,
		Recorder:     recorder,
		Requests:     requestUC,
		Returns:      returnUC,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn().Msg("usando almacenamiento en memoria: los datos se pierden al reiniciar")
		m := memory.NewStore()
		return &stores{
			txRunner:  m,
			snapshots: m,
			records:   m.Records(),
			requests:  m.Requests(),
			movements: m.Movements(),
			parts:     m.Parts(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	runner := postgres.NewTxRunner(pool)
	return &stores{
		txRunner:  runner,
		snapshots: runner,
		records:   postgres.NewInventoryRecordRepository(pool),
		requests:  postgres.NewSpareRequestRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		parts:     postgres.NewSparePartRepository(pool),
		close:     pool.Close,
	}, nil
}
