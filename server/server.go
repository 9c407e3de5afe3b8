package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"LumiFM/cache"
	"LumiFM/config"
	"LumiFM/core/audio"
	"LumiFM/core/catalog"
	"LumiFM/core/player"
	"LumiFM/db"
	"LumiFM/logger"
	"LumiFM/model"
	"LumiFM/repository"
	"LumiFM/storage"
)

// Start initializes dependencies, assembles the player core and serves HTTP
// until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxMB,
		MaxBackups: 5,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})

	// 对象存储可选，未配置时音源走静态路径
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.ErrorField(err))
	}
	if err := db.AutoMigrateModels(&model.LyricLine{}); err != nil {
		logger.Fatal("Failed to migrate lyric schema", logger.ErrorField(err))
	}

	// Redis 不可用时设置桥静默降级，播放核心照常工作
	var store cache.SettingsStore
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, settings persist in memory only", logger.ErrorField(err))
		store = cache.NewMemoryStore()
	} else {
		defer cache.CloseRedis()
		store = cache.NewRedisSettingsStore()
	}
	bridge := cache.NewSettingsBridge(store, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 装配曲目目录
	trackRepo := repository.NewMySQLTrackRepository()
	lyricRepo := repository.NewGormLyricRepository()
	cat := catalog.New(trackRepo, lyricRepo, cfg)
	if err := cat.Load(ctx); err != nil {
		logger.Fatal("Failed to load track catalog", logger.ErrorField(err))
	}
	go func() {
		if err := cat.WatchLyricsDir(ctx); err != nil {
			logger.Warn("lyrics watcher stopped", logger.ErrorField(err))
		}
	}()

	// 播放核心：时钟输出 + 预热器 + 持久化设置恢复
	settings := bridge.Load(ctx)
	preloader := audio.NewPreloader(cfg.PreloadFanout, audio.HTTPFetcher(2*time.Minute))
	out := audio.NewClockOutput(time.Duration(cfg.TickIntervalMs) * time.Millisecond)
	pl := player.New(out,
		player.WithPreloader(preloader),
		player.WithLyricFallback(cfg.LyricFallbackSeconds),
		player.WithSettings(settings),
	)
	defer pl.Close()

	pl.SetPlaylist(cat.Tracks())
	cat.OnUpdate(pl.SetPlaylist)
	if settings.CurrentTrackID != 0 {
		pl.Restore(settings.CurrentTrackID, settings.CurrentTime)
	}

	// 设置变更回写：订阅快照，只在持久化子集变化时落盘
	go persistSettings(ctx, pl, bridge)

	apiHandler := NewAPIHandler(pl, cat, preloader, cfg)
	router := mux.NewRouter()
	router.Use(corsMiddleware)
	registerRoutes(router, apiHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("LumiFM server listening", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown error", logger.ErrorField(err))
	}
	bridge.Flush()
	preloader.Wait()
}

// persistSettings 把播放器快照中的持久化子集写入设置桥。
// 订阅因积压被断开时记日志并重新订阅，持久化消费者
// 不随慢 WebSocket 客户端的淘汰策略一起掉线。
func persistSettings(ctx context.Context, pl *player.Player, bridge *cache.SettingsBridge) {
	var last model.PersistedSettings
	for {
		if !pumpSettings(ctx, pl.Subscribe(), bridge, &last) {
			return
		}
		logger.Warn("设置订阅积压被断开，重新订阅")
	}
}

// pumpSettings 消费快照直到通道关闭或 ctx 结束。
// 通道关闭返回 true，调用方据此重新订阅；ctx 结束返回 false。
func pumpSettings(ctx context.Context, ch <-chan player.Snapshot, bridge *cache.SettingsBridge, last *model.PersistedSettings) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return true
			}
			s := snap.Settings()
			if s != *last {
				bridge.Save(s)
				*last = s
			}
		}
	}
}

// corsMiddleware 允许前端跨域访问播放接口。
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// registerRoutes 注册全部路由。歌词修改接口走管理端认证。
func registerRoutes(router *mux.Router, h *APIHandler) {
	// 播放意图与投影
	router.HandleFunc("/api/player", h.GetPlayerHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play", h.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", h.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", h.TogglePlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", h.NextHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", h.PreviousHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", h.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/volume", h.VolumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/mute", h.ToggleMuteHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/mode", h.CycleModeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/select", h.SelectTrackHandler).Methods(http.MethodPost)

	// 曲目与歌词
	router.HandleFunc("/api/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/lyrics", h.GetLyricsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/lyrics/export", h.ExportLyricsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/audio", h.StreamAudioHandler).Methods(http.MethodGet)

	// 管理端：登录 + 曲目维护 + 歌词编辑
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/tracks", h.AuthMiddleware(h.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/tracks/{id}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/admin/tracks/{id}/duration", h.AuthMiddleware(h.SetDurationHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/lyrics", h.AuthMiddleware(h.ImportLyricsHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/lyrics/shift", h.AuthMiddleware(h.ShiftLyricsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/lyrics/retime", h.AuthMiddleware(h.RetimeLyricHandler)).Methods(http.MethodPost)

	// WebSocket 状态推送与意图通道
	router.HandleFunc("/ws/player", h.PlayerSocketHandler)
}
