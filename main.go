package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"hozur_backend/internals/configs"
	"hozur_backend/internals/constants"
	database "hozur_backend/internals/databases"
	"hozur_backend/internals/features/attendance/realtime"
	studentService "hozur_backend/internals/features/attendance/students/service"
	"hozur_backend/internals/helpers/photo"
	middlewares "hozur_backend/internals/middlewares"
	routes "hozur_backend/internals/route"
	"hozur_backend/internals/seeds"
)

func main() {
	seed := flag.Bool("seed", false, "load the demo attendance data after migrating")
	flag.Parse()

	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		// 🚀 fast JSON
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
		BodyLimit:               (configs.PhotoMaxKB + 512) * 1024,
	})

	// ⚙️ base middleware + performance; the event stream must not be buffered
	app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
		Next:  isEventStream,
	}))
	app.Use(etag.New(etag.Config{Next: isEventStream}))

	middlewares.SetupMiddlewares(app)

	// ⏱ timing + timeout guard (aligned with statement_timeout in the DSN)
	app.Use(func(c *fiber.Ctx) error {
		if isEventStream(c) {
			return c.Next()
		}
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		if dur := time.Since(start); dur > time.Second {
			log.Printf("[REQ] slow id=%v %s %s status=%d dur=%s", c.Locals("requestid"), c.Method(), c.OriginalURL(), c.Response().StatusCode(), dur)
		}
		return err
	})

	// 🔌 DB connect + migrate + pool + warm-up
	database.ConnectDB()
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("❌ migrate: %v", err)
	}
	database.TunePool()
	database.WarmUpQueries()

	if *seed {
		seeds.RunAllSeeds(database.DB)
	}

	// 🖼 photo storage
	photos := setupPhotos()

	// 📡 realtime
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	hub := realtime.NewHub(64)
	events := setupRealtime(rootCtx, hub)

	// 🧹 orphan photo reaper, after DB is ready
	if photos != nil {
		if schedule := configs.GetEnv("PHOTO_REAPER_CRON", "@every 6h"); schedule != "off" {
			students := studentService.New(database.DB, nil, photos)
			reaper := &photo.Reaper{
				Service:    photos,
				Referenced: students.ReferencedPhotoKeys,
				Grace:      time.Duration(configs.GetEnvInt("PHOTO_REAPER_GRACE_MIN", 30)) * time.Minute,
				DryRun:     configs.GetEnvBool("PHOTO_REAPER_DRY_RUN", false),
			}
			if c, err := reaper.StartCron(schedule); err != nil {
				log.Printf("⚠️ photo reaper disabled: %v", err)
			} else {
				defer c.Stop()
			}
		}
	}

	// ✅ Routes
	routes.SetupRoutes(app, database.DB, hub, events, photos)

	// 🔒 keep-alive & connection timeouts
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 0 // SSE streams stay open
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + close DB pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopBackground()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func isEventStream(c *fiber.Ctx) bool {
	return c.Path() == "/api/events"
}

func setupPhotos() *photo.Service {
	var (
		store photo.Store
		err   error
	)
	switch configs.PhotoStorage {
	case "oss":
		store, err = photo.NewOSSStoreFromEnv()
	default:
		store, err = photo.NewLocalStore(configs.PhotoDir, configs.PhotoPublicURL)
	}
	if err != nil {
		log.Printf("⚠️ photo storage %q unavailable, uploads disabled: %v", configs.PhotoStorage, err)
		return nil
	}
	log.Printf("✅ photo storage: %s", configs.PhotoStorage)
	return photo.New(store, photo.DefaultOptions(configs.PhotoMaxKB))
}

// setupRealtime returns the publisher services emit to. With REALTIME_PG_NOTIFY on
// a Postgres DB, events go through NOTIFY so every instance's hub receives them.
func setupRealtime(ctx context.Context, hub *realtime.Hub) realtime.Publisher {
	if !configs.GetEnvBool("REALTIME_PG_NOTIFY", false) || database.DB.Dialector.Name() != "postgres" {
		return hub
	}
	bridge, err := realtime.NewPGBridge(strings.TrimSpace(database.PostgresDSN()), constants.RealtimeChannel, hub)
	if err != nil {
		log.Printf("⚠️ [REALTIME] LISTEN failed, using local hub only: %v", err)
		return hub
	}
	go bridge.Run(ctx)
	return &realtime.PGNotifier{DB: database.DB, Channel: constants.RealtimeChannel}
}
