package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"workspace-reservations/internal/availability"
	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/config"
	"workspace-reservations/internal/events"
	gweb "workspace-reservations/internal/grpcweb"
	"workspace-reservations/internal/handler"
	"workspace-reservations/internal/lock"
	"workspace-reservations/internal/middleware"
	"workspace-reservations/internal/model"
	"workspace-reservations/internal/rpc"
	"workspace-reservations/internal/store"
	"workspace-reservations/internal/store/memstore"
)

// backend is what both store drivers provide.
type backend interface {
	booking.Store
	booking.Catalog
	handler.Store
	Desks(ctx context.Context, spaceID string) ([]model.Desk, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	var st backend
	switch cfg.StoreDriver {
	case "memory":
		ms := memstore.New()
		if err := seed(ms); err != nil {
			log.Fatalf("seed: %v", err)
		}
		st = ms
		log.Println("using in-memory store")
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("db ping: %v", err)
		}
		log.Println("connected to postgres")

		pg := store.New(pool)
		if err := pg.Migrate(ctx, cfg.MigrationsPath); err != nil {
			log.Printf("migration warning: %v", err)
		} else {
			log.Println("migration applied")
		}
		st = pg
	}

	opts := []booking.Option{
		booking.WithLocker(booking.NewKeyedMutex()),
		booking.WithTimeouts(cfg.LockTimeout, cfg.CommitTimeout),
	}

	// redis: cross-instance lock + availability cache
	var cache availability.Cache
	if cfg.RedisURL != "" {
		ropt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb := redis.NewClient(ropt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		log.Println("connected to redis")
		opts = append(opts, booking.WithLocker(lock.NewRedis(rdb, cfg.LockTTL)))
		cache = availability.NewRedisCache(rdb)
	}

	avail := availability.New(st, cache, cfg.Location, cfg.AvailTTL)
	opts = append(opts, booking.WithPublisher(avail))

	if cfg.AMQPURL != "" {
		broker, err := events.Dial(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			log.Printf("events disabled: %v", err)
		} else {
			defer broker.Close()
			log.Printf("publishing events to exchange %s", cfg.EventsExchange)
			opts = append(opts, booking.WithPublisher(broker))
		}
	}

	validator := booking.NewValidator(st, booking.RealClock{}, cfg.Location)
	committer := booking.NewCommitter(st, opts...)
	engine := booking.NewEngine(validator, committer, st, cfg.Location)
	h := handler.New(engine, st, avail, cfg.JWTSecret)

	// grpc server
	rl := middleware.NewRateLimiter(5, 10)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.Auth(cfg.JWTSecret),
		),
	)
	rpc.RegisterReservationServiceServer(srv, h)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// start grpc on TCP
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("grpc on :%s", cfg.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			log.Printf("grpc: %v", err)
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.New("localhost:" + cfg.GRPCPort)
	if err != nil {
		log.Fatalf("bridge: %v", err)
	}
	defer bridge.Close()

	httpSrv := &http.Server{
		Addr:    ":" + cfg.WebPort,
		Handler: bridge.Handler(cfg.CORSOrigins),
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
	srv.GracefulStop()
	httpSrv.Close()
}
