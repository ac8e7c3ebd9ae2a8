package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cha-13/vitalis-chatbot-app/internal/config"
	"github.com/cha-13/vitalis-chatbot-app/internal/handler"
	chatmodel "github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	chatservice "github.com/cha-13/vitalis-chatbot-app/internal/service/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessionStore, cleanup, err := buildStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}
	defer cleanup()

	answerer := buildAnswerer(ctx, cfg)

	registry := identity.NewMemoryRegistry()
	chatSvc := chatservice.NewService(sessionStore, answerer, chatservice.Options{
		TitlePolicy: titlePolicy(cfg.Chat),
		MaxSessions: cfg.Chat.MaxSessions,
		AskTimeout:  cfg.Ask.Timeout,
	})

	router := handler.NewRouter(registry, chatSvc, answerer)

	startServer(ctx, cfg.Server, router)
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory session store")
		return store.NewMemory(), func() {}, nil
	}

	if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	log.Println("postgres session store initialized")
	return store.NewPostgres(pool), pool.Close, nil
}

func buildAnswerer(ctx context.Context, cfg *config.Config) ask.Answerer {
	if cfg.Ask.Enabled() {
		log.Printf("answering via remote endpoint %s", cfg.Ask.URL)
		return ask.NewClient(cfg.Ask.URL, cfg.Ask.Timeout)
	}

	if cfg.Ark.Enabled() {
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize Ark model: %v", err)
		} else if llm, err := ask.NewLLM(ctx, chatModel); err != nil {
			log.Printf("warning: failed to build ask chain: %v", err)
		} else {
			log.Println("answering via in-process Ark model")
			return llm
		}
	}

	log.Println("no answer backend configured, questions will fail until ASK_URL or ARK_* is set")
	return ask.Unavailable{}
}

func titlePolicy(cfg config.ChatConfig) chatmodel.TitlePolicy {
	if cfg.TitlePolicy == config.TitlePolicyWords {
		return chatmodel.TitleFirstWords(cfg.TitleWords)
	}
	return chatmodel.TitleFirstChars(cfg.TitleLimit)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Vitalis backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
