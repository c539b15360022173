package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	finalizerx "github.com/careloop/careline/agent/finalizer"
	handlerx "github.com/careloop/careline/agent/handler"
	llmx "github.com/careloop/careline/agent/llm"
	promptx "github.com/careloop/careline/agent/prompt"
	routerx "github.com/careloop/careline/agent/router"
	runnerx "github.com/careloop/careline/agent/runner"
	statex "github.com/careloop/careline/agent/state"
	"github.com/careloop/careline/docstore"
	configx "github.com/careloop/careline/pkg/config"
	_ "github.com/careloop/careline/pkg/logger/autoload"
	mailerx "github.com/careloop/careline/pkg/mailer"
	"github.com/careloop/careline/server"
)

type AppConfig struct {
	// DocumentPath points at a plain-text file used as fallback document
	// context when a chat supplies none.
	DocumentPath   string `envconfig:"DOCUMENT_PATH"`
	MaxPromptChars int    `envconfig:"MAX_PROMPT_CHARS" default:"28000"`

	// Optional backends; in-memory stores are used when unset.
	PostgresDSN       string `envconfig:"POSTGRES_DSN"`
	UpstashRedisURL   string `envconfig:"UPSTASH_REDIS_URL"`
	UpstashRedisToken string `envconfig:"UPSTASH_REDIS_TOKEN"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	oracleCfg := configx.MustNew[llmx.Config]("OPENAI")
	serverCfg := configx.MustNew[server.Config]("SERVER")
	mailCfg := configx.MustNew[mailerx.Config]("MAILER")

	oracle := llmx.MustNewClient(*oracleCfg)
	prompts := promptx.LoadPromptSet()
	fin := finalizerx.New()

	rt, err := routerx.New(
		oracle,
		fin,
		prompts.Router,
		handlerx.NewCandidateLookup(),
		handlerx.NewDocumentQA(oracle, prompts.DocumentQA),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	runnerOpts := []runnerx.Option{runnerx.WithStore(buildStateStore(appCfg))}
	if appCfg.DocumentPath != "" {
		raw, err := os.ReadFile(appCfg.DocumentPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", appCfg.DocumentPath).Msg("load fallback document")
		}
		runnerOpts = append(runnerOpts, runnerx.WithFallbackDocument(docstore.Truncate(string(raw), appCfg.MaxPromptChars)))
		log.Info().Str("path", appCfg.DocumentPath).Msg("fallback document loaded")
	}

	run, err := runnerx.New(rt, fin, runnerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build runner")
	}

	srv, err := server.New(*serverCfg, run, rt, buildDocStore(ctx, appCfg), mailerx.MustNew(*mailCfg))
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func buildStateStore(cfg *AppConfig) statex.Store {
	if cfg.UpstashRedisURL == "" {
		return statex.NewMemoryStore()
	}
	store, err := statex.NewUpstashRedisStore(statex.UpstashRedisConfig{
		URL:   cfg.UpstashRedisURL,
		Token: cfg.UpstashRedisToken,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build upstash state store")
	}
	log.Info().Msg("using upstash redis run-state store")
	return store
}

func buildDocStore(ctx context.Context, cfg *AppConfig) docstore.Store {
	if cfg.PostgresDSN == "" {
		return docstore.NewMemoryStore()
	}
	store, err := docstore.NewPostgresStore(docstore.PostgresConfig{DSN: cfg.PostgresDSN})
	if err != nil {
		log.Fatal().Err(err).Msg("build postgres document store")
	}
	if err := store.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("init postgres document store")
	}
	log.Info().Msg("using postgres document store")
	return store
}
