package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	llmx "github.com/suthimate/offerlens/agent/llm"
	memoryx "github.com/suthimate/offerlens/agent/memory"
	promptx "github.com/suthimate/offerlens/agent/prompt"
	statex "github.com/suthimate/offerlens/agent/state"
	configx "github.com/suthimate/offerlens/pkg/config"
	_ "github.com/suthimate/offerlens/pkg/logger/autoload"
	openrouterx "github.com/suthimate/offerlens/pkg/openrouter"
)

type AppConfig struct {
	// SessionBackend selects where conversation state lives:
	// "memory" or "upstash".
	SessionBackend string `envconfig:"SESSION_BACKEND" split_words:"true" default:"memory"`

	// SemanticRerank enables embedding-based reordering of retrieved
	// similar cases.
	SemanticRerank bool   `envconfig:"SEMANTIC_RERANK" split_words:"true" default:"false"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" split_words:"true"`

	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" split_words:"true" default:"30s"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("OFFERLENS")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	pgCfg := configx.MustNew[memoryx.PostgresConfig]("POSTGRES")
	caseStore := memoryx.NewPostgresCaseStore(*pgCfg)
	if err := caseStore.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("case store unavailable")
	}

	var sessions statex.SessionStore
	switch appCfg.SessionBackend {
	case "upstash":
		upstashCfg := configx.MustNew[statex.UpstashConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashSessionStore(*upstashCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("upstash session store unavailable")
		}
		sessions = store
	default:
		sessions = statex.NewMemorySessionStore()
	}
	_ = sessions

	prompts := promptx.LoadPromptSet()

	interpreterModelCfg := llmCfg.OpenRouterFor(llmx.RoleInterpreter)
	interpreterModel, err := interpreterModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("interpreter model unavailable")
	}
	interpreter, err := llmx.NewInterpreter(ctx, interpreterModel, prompts.Interpreter)
	if err != nil {
		log.Fatal().Err(err).Msg("interpreter graph compile failed")
	}
	_ = interpreter

	summarizerModelCfg := llmCfg.OpenRouterFor(llmx.RoleSummarizer)
	summarizerModel, err := summarizerModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("summarizer model unavailable")
	}
	summarizer, err := llmx.NewSummarizer(ctx, summarizerModel, prompts.Summarizer)
	if err != nil {
		log.Fatal().Err(err).Msg("summarizer graph compile failed")
	}
	_ = summarizer

	var ranker memoryx.CaseRanker
	if appCfg.SemanticRerank {
		embeddingCfg := interpreterModelCfg
		ranker = memoryx.NewEmbeddingRanker(openrouterx.NewClient(embeddingCfg), appCfg.EmbeddingModel)
	}
	_ = ranker

	log.Info().
		Str("session_backend", appCfg.SessionBackend).
		Dur("fetch_timeout", appCfg.FetchTimeout).
		Msg("core components initialized; evidence backends are supplied by the serving layer")
}
