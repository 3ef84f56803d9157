package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/vidrelay/internal/adapter/ytdlp"
	"github.com/jgivc/vidrelay/internal/config"
	httphandler "github.com/jgivc/vidrelay/internal/handler/http"
	"github.com/jgivc/vidrelay/internal/limiter"
	srvdownload "github.com/jgivc/vidrelay/internal/service/download"
	srvinfo "github.com/jgivc/vidrelay/internal/service/info"
	"github.com/jgivc/vidrelay/internal/storage/scratch"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 5 * time.Second
)

type App struct {
	cfgPath string
	cfg     *config.Config
	srv     *http.Server
	store   *scratch.Store
	lim     *limiter.MemoryLimiter // nil when the windows live in redis
	rdb     *redis.Client
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	lo := &slog.HandlerOptions{}
	switch a.cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, lo))
	a.log = log

	a.store = scratch.New(a.cfg.DownloadDir, log)
	if err := a.store.EnsureDir(); err != nil {
		panic(err)
	}

	if _, err := a.store.Purge(); err != nil {
		panic(err)
	}

	lim := a.newLimiter(log)

	gw := ytdlp.New(&a.cfg.Extractor, log)
	infoSrv := srvinfo.NewInfoService(gw, log)
	downloadSrv := srvdownload.NewDownloadService(gw, a.store, log)

	limitMw := httphandler.RateLimit(lim, log)
	recoverMw := httphandler.Recover(log)

	http.Handle("GET /info", recoverMw(limitMw(httphandler.NewInfoHandler(infoSrv, log))))
	http.Handle("GET /download", recoverMw(limitMw(httphandler.NewDownloadHandler(downloadSrv, a.store, log))))
	http.Handle("GET /health", recoverMw(httphandler.NewHealthHandler()))

	a.srv = &http.Server{
		Addr: a.cfg.Listen,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

func (a *App) newLimiter(log *slog.Logger) limiter.Limiter {
	var lim limiter.Limiter

	if a.cfg.RedisURL != "" {
		opt, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			panic(err)
		}

		rdb := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			panic(err)
		}

		a.rdb = rdb

		log.Info("Rate limit windows in redis")
		lim = limiter.NewRedisLimiter(rdb, a.cfg.RateLimit.Limit, a.cfg.RateLimit.Window(), log)
	} else {
		mem := limiter.NewMemoryLimiter(a.cfg.RateLimit.Limit, a.cfg.RateLimit.Window(), log)
		mem.StartSweeper(a.cfg.RateLimit.SweepInterval())

		a.lim = mem
		lim = mem
	}

	if a.cfg.RateLimit.GlobalRPS > 0 {
		lim = limiter.NewThrottled(lim, a.cfg.RateLimit.GlobalRPS, a.cfg.RateLimit.GlobalBurst)
	}

	return lim
}

// Sweep drops expired limiter windows right away instead of waiting for the
// periodic sweeper. Signals can arrive before Start has finished wiring, so
// everything it touches is nil-checked.
func (a *App) Sweep() {
	if a.lim == nil {
		if a.rdb != nil {
			fmt.Println("Window expiry is handled by redis.")
		}

		return
	}

	removed := a.lim.Sweep()
	fmt.Printf("Removed %d expired windows, %d still tracked.\n", removed, a.lim.Len())
}

func (a *App) Stats() {
	if a.store == nil {
		return
	}

	count, err := a.store.Count()
	if err != nil {
		a.log.Error("Cannot count spooled files", slog.Any("error", err))

		return
	}

	fmt.Printf("Spooled files: %d\n", count)

	if a.lim != nil {
		fmt.Printf("Tracked addresses: %d\n", a.lim.Len())
	}
}

func (a *App) Stop() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.srv.Shutdown(ctx)
	}

	if a.lim != nil {
		a.lim.Stop()
	}

	if a.rdb != nil {
		a.rdb.Close()
	}
}
