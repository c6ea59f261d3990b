package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dmalikzadeh/ai-interview/config"
	"github.com/dmalikzadeh/ai-interview/internal/api/handlers"
	"github.com/dmalikzadeh/ai-interview/internal/api/middleware"
	"github.com/dmalikzadeh/ai-interview/internal/api/routes"
	"github.com/dmalikzadeh/ai-interview/internal/cache"
	"github.com/dmalikzadeh/ai-interview/internal/events"
	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/logger"
	"github.com/dmalikzadeh/ai-interview/internal/notify"
	"github.com/dmalikzadeh/ai-interview/internal/providers/embedding"
	"github.com/dmalikzadeh/ai-interview/internal/providers/llm"
	"github.com/dmalikzadeh/ai-interview/internal/providers/stt"
	"github.com/dmalikzadeh/ai-interview/internal/providers/tts"
	mongorepo "github.com/dmalikzadeh/ai-interview/internal/repositories/mongo"
	pgrepo "github.com/dmalikzadeh/ai-interview/internal/repositories/postgres"
	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/storage"
	"github.com/dmalikzadeh/ai-interview/internal/voice"
	"github.com/dmalikzadeh/ai-interview/internal/workers"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Datastores
	mongoClient, err := config.InitMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mdb := mongoClient.Database(cfg.MongoDB)
	if err := config.EnsureMongoIndexes(ctx, mdb); err != nil {
		log.WithError(err).Warn("mongo index setup failed")
	}
	log.Info("MongoDB connected")

	pg, err := config.InitPostgres(cfg.PostgresURI)
	if err != nil {
		return err
	}
	if sqlDB, err := pg.DB(); err == nil {
		defer sqlDB.Close()
	}
	if cfg.AutoMigrate {
		if err := config.MigratePostgres(pg); err != nil {
			return err
		}
	}
	log.Info("PostgreSQL connected")

	rdb, err := config.InitRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("Redis connected")

	// Providers
	var provider llm.Provider
	var embedder embedding.Embedder
	if cfg.UseAI {
		gemini, err := llm.NewVertexGemini(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.LLMModel)
		if err != nil {
			return err
		}
		defer gemini.Close()
		provider = gemini

		if cfg.EmbeddingModel != "" {
			e, err := embedding.NewVertexEmbedder(ctx, cfg.GCPProject, cfg.GCPLocation, cfg.EmbeddingModel)
			if err != nil {
				log.WithError(err).Warn("embeddings disabled")
			} else {
				defer e.Close()
				embedder = e
			}
		}
	} else {
		log.Warn("USE_AI is off, interviewer replies are canned")
	}

	var synth voice.Synthesizer
	if g, err := tts.NewGoogleTTS(ctx, cfg.TTSLanguage, cfg.TTSVoice); err != nil {
		// The client speaks text frames with its own synthesizer.
		log.WithError(err).Warn("Google TTS unavailable, sending text prompts")
		synth = &voice.MockSynthesizer{}
	} else {
		defer g.Close()
		synth = g
	}

	speech, err := stt.NewGoogleSpeech(ctx, stt.DefaultLanguage, int32(cfg.STTSampleRate))
	if err != nil {
		return err
	}
	defer speech.Close()
	recognizers := func(language string) voice.Recognizer { return speech.ForLanguage(language) }

	var objects storage.ObjectStore
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("GCS unavailable, CV files are not stored")
		} else {
			defer gcs.Close()
			objects = gcs
		}
	}

	publisher := events.New(&events.Config{
		Brokers:       cfg.KafkaBrokers,
		TopicTurns:    cfg.KafkaTopicTurns,
		TopicSessions: cfg.KafkaTopicSessions,
		Principal:     cfg.KafkaPrincipal,
		Enabled:       cfg.KafkaEnabled,
	}, log)
	defer publisher.Close()

	kv := cache.NewRedisCache(rdb, cfg.RedisPrefix)
	notifier := notify.NewRedisNotifier(rdb)
	queue := workers.NewSummaryQueue(rdb, cfg.SummaryStream)

	// Repositories
	sessionRepo := mongorepo.NewSessionRepo(mdb)
	turnLogRepo := mongorepo.NewTurnLogRepo(mdb)
	profileRepo := pgrepo.NewProfileRepo(pg)
	cvRepo := pgrepo.NewCVFileRepo(pg)
	convoRepo := pgrepo.NewConversationRepo(pg)
	resultRepo := pgrepo.NewResultRepo(pg)

	// Services
	turnLogs := services.NewTurnLogService(turnLogRepo, 0)
	sessionSvc := services.NewSessionService(sessionRepo)
	profileSvc := services.NewProfileService(profileRepo)
	convoSvc := services.NewConversationService(convoRepo, embedder, log)
	summarizer := services.NewDocumentSummarizer(provider, kv, log)
	cvSvc := services.NewCVFileService(cvRepo, profileRepo, objects, summarizer, embedder, log)
	interviewer := services.NewInterviewerService(provider, turnLogs, log)
	summarySvc := services.NewSummaryService(provider, turnLogs, log)

	recorder := services.NewRecorder(convoSvc, sessionSvc, queue, publisher, log)
	liveSvc := services.NewLiveService(sessionSvc, interviewer, recorder, interview.ControllerConfig{
		GraceDelay:     cfg.GraceDelay,
		RequestTimeout: cfg.AIRequestTimeout,
	}, log)
	prepSvc := services.NewPrepService(sessionSvc, profileSvc, cvSvc, summarizer, interviewer, liveSvc, services.PrepConfig{
		DefaultMinutes: cfg.DefaultMinutes,
		MaxMinutes:     cfg.MaxMinutes,
	}, log)
	resultSvc := services.NewResultService(services.ResultDeps{
		Sessions: sessionSvc,
		Convos:   convoSvc,
		Results:  resultRepo,
		Summary:  summarySvc,
		Cache:    kv,
		Notifier: notifier,
		Queue:    queue,
		Events:   publisher,
	}, log)

	// Summary workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pool := &workers.SummaryWorkerPool{
		Redis:      rdb,
		Generator:  resultSvc,
		NumWorkers: cfg.SummaryWorkers,
		Logger:     log,
		Stream:     cfg.SummaryStream,
		JobTimeout: cfg.AIRequestTimeout * 2,
	}
	if err := pool.Start(workerCtx); err != nil {
		stopWorkers()
		return err
	}

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, "/metrics", "/ping"))
	routes.RegisterRoutes(r, routes.Deps{
		Auth: middleware.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		Interview:    handlers.NewInterviewHandler(prepSvc, sessionSvc, liveSvc, resultSvc),
		Profile:      handlers.NewProfileHandler(profileSvc),
		Conversation: handlers.NewConversationHandler(convoSvc),
		CV:           handlers.NewCVHandler(cvSvc),
		Admin:        handlers.NewAdminHandler(liveSvc, turnLogs),
		WS: handlers.NewWSHandler(sessionSvc, liveSvc, synth, recognizers, notifier, handlers.WSConfig{
			FinalSilence:   cfg.FinalSilence,
			MaxPlayback:    cfg.MaxPlayback,
			AllowedOrigins: cfg.AllowedOrigins,
		}, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	// Live sessions end first so their recorder jobs and summary enqueues land.
	if err := liveSvc.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("live sessions did not stop in time")
	}
	recorder.Close()
	stopWorkers()
	pool.Wait()

	return serveErr
}
