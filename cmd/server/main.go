package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"vitalrite-api/internal/alarm"
	api "vitalrite-api/internal/api/v1"
	"vitalrite-api/internal/booking"
	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/config"
	"vitalrite-api/internal/docstore"
	gweb "vitalrite-api/internal/grpcweb"
	"vitalrite-api/internal/handler"
	"vitalrite-api/internal/jobs"
	"vitalrite-api/internal/memstore"
	"vitalrite-api/internal/middleware"
	"vitalrite-api/internal/notify"
	"vitalrite-api/internal/prescription"
	"vitalrite-api/internal/reminder"
	"vitalrite-api/internal/store"
)

// documents is everything the services need from a document backend.
type documents interface {
	reminder.Store
	booking.Store
	prescription.Store
	handler.Profiles
	handler.Watcher
	jobs.Users
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	var (
		accounts handler.Accounts
		docs     documents
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := memstore.New()
		accounts, docs = mem, mem
		log.Println("using in-memory store")
	default:
		pg := connectPostgres(ctx, cfg)
		defer pg.Close()
		accounts, docs = pg, pg
		if cfg.StoreBackend == config.BackendFirestore {
			fs, err := firestore.NewClient(ctx, cfg.FirestoreProject)
			if err != nil {
				log.Fatalf("firestore: %v", err)
			}
			defer fs.Close()
			docs = docstore.New(fs)
			log.Printf("documents in firestore project %s, accounts in postgres", cfg.FirestoreProject)
		}
	}

	var queue alarm.Queue = alarm.NewMemQueue()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer rdb.Close()
		queue = alarm.NewRedisQueue(rdb)
		log.Println("connected to redis")
	} else {
		log.Println("REDIS_ADDR not set, alarms kept in memory")
	}

	notifiers := notify.Multi{notify.Log{}}
	if cfg.MailEnabled() {
		notifiers = append(notifiers, notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass))
	}

	clk := clock.NewReal()
	rem := reminder.New(docs, queue, clk, cfg.Location)
	book := booking.New(docs, queue, clk, cfg.Location)
	rx := prescription.New(docs, rem, queue, clk, cfg.Location)

	h := handler.New(handler.Deps{
		Accounts:      accounts,
		Profiles:      docs,
		Watcher:       docs,
		Reminders:     rem,
		Booking:       book,
		Prescriptions: rx,
		Secret:        cfg.JWTSecret,
	})

	// background work
	j := jobs.New(docs, alarm.NewDispatcher(queue, notifiers, clk), rem, book, rx, cfg.Location)
	if _, err := j.RestoreAll(ctx); err != nil {
		log.Printf("restore: %v", err)
	}
	if err := j.Start(cfg.DispatchEvery); err != nil {
		log.Fatalf("jobs: %v", err)
	}

	// grpc server
	rl := middleware.NewRateLimiter(5, 10)
	defer rl.Close()
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.Auth(cfg.JWTSecret),
		),
		grpc.ChainStreamInterceptor(
			middleware.StreamAuth(cfg.JWTSecret),
		),
	)
	api.RegisterCareServer(srv, h)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// start grpc on TCP
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("grpc on :%s", cfg.Port)
		if err := srv.Serve(lis); err != nil {
			log.Printf("grpc: %v", err)
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.New("localhost:"+cfg.Port,
		api.FullMethod("WatchReminders"),
		api.FullMethod("WatchAppointments"),
	)
	if err != nil {
		log.Fatalf("bridge: %v", err)
	}
	defer bridge.Close()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           bridge.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("grpc-web on :%s", cfg.WebPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")
	hs.Shutdown()
	j.Stop()

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	srv.GracefulStop()
}

func connectPostgres(ctx context.Context, cfg *config.Config) *store.Store {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	log.Println("connected to postgres")

	st := store.New(pool)
	if err := st.Migrate(ctx, cfg.Migrations); err != nil {
		log.Printf("migration warning: %v", err)
	} else {
		log.Println("migration applied")
	}
	return st
}
