package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/client"
	"github.com/kube-rca/sage/internal/db"
	"github.com/kube-rca/sage/internal/handler"
	"github.com/kube-rca/sage/internal/knowledge"
	"github.com/kube-rca/sage/internal/metrics"
	"github.com/kube-rca/sage/internal/notify"
	"github.com/kube-rca/sage/internal/service"
	"github.com/kube-rca/sage/internal/stage"
	"github.com/kube-rca/sage/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 저장소: postgres 이면 지식 검색과 웹훅 설정도 사용
	var (
		repo store.Repository
		pg   *db.Postgres
	)
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg = &db.Postgres{Pool: pool}
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pg
	default:
		logger.Warn("using in-memory incident store; incidents are lost on restart")
		repo = db.NewMemory()
	}
	st := store.New(repo)

	m := metrics.New(prometheus.DefaultRegisterer)

	gen, embedder, err := client.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	var (
		retriever stage.Retriever
		searcher  *knowledge.Retriever
		ingester  *knowledge.Ingester
	)
	if pg != nil && embedder != nil {
		searcher = knowledge.NewRetriever(pg, embedder, cfg.Knowledge.QueryCacheTTL)
		defer searcher.Close()
		retriever = searcher
		ingester = knowledge.NewIngester(pg, embedder, cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap, logger)
	} else {
		logger.Info("knowledge retrieval disabled", zap.String("store", cfg.Store.Backend), zap.Bool("embedder", embedder != nil))
	}

	policy := stage.Policy{Retries: cfg.Pipeline.StageRetries, Interval: cfg.Pipeline.StageRetryInterval}
	stages := service.Stages{
		Builder:  stage.NewBuilder(gen, policy, logger),
		Enricher: stage.NewEnricher(gen, retriever, cfg.Knowledge.TopK, policy, logger),
		Analyzer: stage.NewAnalyzer(gen, policy, logger),
	}

	var channels []notify.Channel
	if cfg.Slack.BotToken != "" && cfg.Slack.ChannelID != "" {
		sc := notify.NewSlackChannel(slack.New(cfg.Slack.BotToken), cfg.Slack.ChannelID, cfg.Slack.DashboardURL, cfg.Slack.RatePerMinute)
		defer sc.Close()
		channels = append(channels, sc)
	}
	if pg != nil {
		channels = append(channels, notify.NewWebhookChannel(pg, logger))
	}
	dispatcher := notify.NewDispatcher(logger, m, notify.RetryPolicy{
		Retries:  cfg.Notify.Retries,
		Interval: cfg.Notify.RetryInterval,
	}, channels...)

	orch := service.NewOrchestrator(st, stages, dispatcher, m, logger, cfg.Pipeline.StageTimeout)
	if ingester != nil {
		orch.WithIndexer(ingester)
	}
	alertSvc := service.NewAlertService(orch, logger)

	handlers := handler.Handlers{
		Alert:    handler.NewAlertHandler(orch, alertSvc, logger),
		Incident: handler.NewIncidentHandler(orch),
		Health:   handler.NewHealthHandler(st),
		Metrics:  promhttp.Handler(),
	}
	if ingester != nil {
		handlers.Knowledge = handler.NewKnowledgeHandler(ingester, searcher, cfg.Knowledge.TopK)
	}
	if pg != nil {
		handlers.Webhooks = handler.NewWebhookSettingsHandler(service.NewWebhookService(pg))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.NewRouter(handlers, cfg.Server, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.Int("channels", len(channels)),
			zap.String("version", handler.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	// 진행 중인 분석과 백그라운드 작업이 끝날 때까지 대기 (인덱싱 후 알림)
	alertSvc.Wait()
	orch.Wait()
	dispatcher.Wait()
	return nil
}
