package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"inkwell/internal/autosave"
	"inkwell/internal/config"
	"inkwell/internal/registry"
	"inkwell/internal/review"
	"inkwell/internal/reviewlock"
	"inkwell/internal/session"
	"inkwell/internal/sharedstate"
	"inkwell/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var docs store.DocumentStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		docs = pg
	} else {
		log.Printf("No DATABASE_URL set, documents are in-memory only")
		docs = store.NewMemoryStore()
	}

	var shared sharedstate.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := sharedstate.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		shared = redisStore
	} else {
		log.Printf("No REDIS_URL set, running without cross-session coordination")
		shared = sharedstate.NewMemoryStore()
	}

	var reviewer *review.OpenAIReviewer
	if cfg.OpenAIKey != "" {
		r, err := review.NewOpenAIReviewer(cfg.OpenAIKey, cfg.ReviewModel)
		if err != nil {
			log.Fatalf("reviewer setup failed: %v", err)
		}
		reviewer = r
	} else {
		log.Printf("No OPENAI_API_KEY set, autonomous review disabled")
	}

	sessionID := session.LoadID()
	reg := registry.New(shared, cfg.OpenDocTTL)
	locks := reviewlock.New(shared, cfg.LockTTL)

	var loop *review.Loop
	sess := session.New(sessionID, cfg, docs, shared, reg, titleGenerator(reviewer), func() {
		if loop != nil {
			loop.Rearm(ctx)
		}
	})

	if reviewer != nil {
		selector := review.NewSelector(cfg.MinReviewChars, cfg.ErrorCooldown, reg)
		loop = review.NewLoop(sessionID, cfg.ReviewModel, cfg.ReviewTick, docs, reg, locks, reviewer, selector, sess.ActiveDocID)
		loop.Start(ctx)
	}

	log.Printf("inkwell session %s running", sessionID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if loop != nil {
		loop.Stop()
	}
	if err := sess.Close(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// titleGenerator keeps the interface nil when no reviewer is configured.
func titleGenerator(r *review.OpenAIReviewer) autosave.TitleGenerator {
	if r == nil {
		return nil
	}
	return r
}
