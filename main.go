package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tanpawarit/Chative-Finance-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/aggregator"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/checkpoint"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/dispatcher"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/document"
	llmx "github.com/tanpawarit/Chative-Finance-Assistant/agent/llm"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/memory"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/observers"
	promptx "github.com/tanpawarit/Chative-Finance-Assistant/agent/prompt"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/router"
	statex "github.com/tanpawarit/Chative-Finance-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Finance-Assistant/agent/tool"
	"github.com/tanpawarit/Chative-Finance-Assistant/api"
	configx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/config"
	geminix "github.com/tanpawarit/Chative-Finance-Assistant/pkg/gemini"
	_ "github.com/tanpawarit/Chative-Finance-Assistant/pkg/logger/autoload"
	redisx "github.com/tanpawarit/Chative-Finance-Assistant/pkg/redis"
	"github.com/tanpawarit/Chative-Finance-Assistant/pkg/tavily"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("finance assistant stopped")
	}
}

func run(ctx context.Context) error {
	callbacks.AppendGlobalHandlers(observers.NewModelCallbacks())

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	gemCfg := configx.MustNew[geminix.Config]("GEMINI")
	convCfg := configx.MustNew[orchestrator.Config]("CONVERSATION")
	window := statex.Window{MaxMessages: convCfg.HistoryWindow}

	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return err
	}

	var gemClient *genai.Client
	if gemCfg.Enabled() {
		client, err := gemCfg.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}
		gemClient = client
	}

	models, err := llmx.NewModels(ctx, *llmCfg, *gemCfg, gemClient)
	if err != nil {
		return err
	}

	redisCfg := configx.MustNew[redisx.Config]("REDIS")
	var redisClient *redis.Client
	if redisCfg.Enabled() {
		redisClient, err = redisCfg.New(ctx)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	memCfg := configx.MustNew[memory.Config]("MEMORY")
	backend, turns, closeTurns, err := openTurnStore(ctx, *memCfg, redisClient)
	if err != nil {
		return err
	}
	defer closeTurns()
	memoryManager := memory.NewManager(turns, window, memCfg.MaxTurns)

	catalog, retriever, err := buildCatalog(models, prompts, gemClient, *gemCfg, redisClient)
	if err != nil {
		return err
	}

	planner, err := router.New(models.Router(), prompts.Router, window)
	if err != nil {
		return err
	}
	dispatch, err := dispatcher.New(catalog, window, *configx.MustNew[dispatcher.Config]("DISPATCH"))
	if err != nil {
		return err
	}
	agg, err := aggregator.New(models.Aggregator(), prompts.Aggregator, window)
	if err != nil {
		return err
	}

	deps := orchestrator.Deps{
		Router:     planner,
		Dispatcher: dispatch,
		Aggregator: agg,
		Memory:     memoryManager,
		Documents:  retriever,
	}
	apiDeps := api.Deps{MemoryBackend: string(backend)}

	cpCfg := configx.MustNew[checkpoint.Config]("CHECKPOINT")
	if cpCfg.Enabled {
		store, err := checkpoint.Open(ctx, cpCfg.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Checkpoints = store
		apiDeps.Sessions = store
	}

	orch, err := orchestrator.New(deps, *convCfg)
	if err != nil {
		return err
	}
	apiDeps.Turns = orch

	server, err := api.NewServer(*configx.MustNew[api.Config]("HTTP"), apiDeps)
	if err != nil {
		return err
	}

	log.Info().
		Str("provider", string(llmCfg.Provider)).
		Str("memory_backend", string(backend)).
		Strs("tools", kindNames(catalog)).
		Bool("checkpoints", cpCfg.Enabled).
		Msg("finance assistant ready")
	return server.Run(ctx)
}

func openTurnStore(ctx context.Context, cfg memory.Config, redisClient *redis.Client) (memory.Backend, memory.Store, func(), error) {
	noop := func() {}
	backend, err := memory.ParseBackend(cfg.Backend)
	if err != nil {
		return "", nil, noop, err
	}

	switch backend {
	case memory.BackendRedis:
		if redisClient == nil {
			return "", nil, noop, fmt.Errorf("memory backend %q needs REDIS_URL", backend)
		}
		return backend, memory.NewRedisStore(redisClient, cfg), noop, nil
	case memory.BackendUpstash:
		upCfg := configx.MustNew[memory.UpstashConfig]("UPSTASH")
		store, err := memory.NewUpstashStore(*upCfg,
			memory.WithKeyPrefix(cfg.KeyPrefix),
			memory.WithTTL(cfg.TTL),
			memory.WithMaxTurns(cfg.MaxTurns),
		)
		if err != nil {
			return "", nil, noop, err
		}
		return backend, store, noop, nil
	case memory.BackendPostgres:
		pgCfg := configx.MustNew[memory.PostgresConfig]("POSTGRES")
		store, err := memory.OpenPostgres(ctx, *pgCfg)
		if err != nil {
			return "", nil, noop, err
		}
		return backend, store, func() { _ = store.Close() }, nil
	default:
		return backend, memory.NewInMemoryStore(cfg.MaxTurns), noop, nil
	}
}

func buildCatalog(
	models *llmx.Models,
	prompts promptx.PromptSet,
	gemClient *genai.Client,
	gemCfg geminix.Config,
	redisClient *redis.Client,
) (*tool.Catalog, *document.Retriever, error) {
	adapters := tool.Adapters{
		GeneralQA: tool.NewGeneral(models.General(), prompts.General),
	}

	docCfg := configx.MustNew[document.Config]("DOCUMENT")
	var docStore document.Store = document.NewMemoryStore()
	if redisClient != nil {
		docStore = document.NewRedisStore(redisClient, document.DefaultRedisPrefix, time.Duration(docCfg.TTLHours)*time.Hour)
	}
	retriever := document.NewRetriever(docStore, *docCfg)
	adapters.DocumentQA = tool.NewDocument(retriever, models.Document(), prompts.Document)

	tavilyCfg := configx.MustNew[tavily.Config]("TAVILY")
	if tavilyCfg.Enabled() {
		search, err := tavily.New(*tavilyCfg)
		if err != nil {
			return nil, nil, err
		}
		newsCfg := configx.MustNew[tool.NewsConfig]("NEWS")
		adapters.News = tool.NewNews(search, models.News(), prompts.News, *newsCfg)
	} else {
		log.Warn().Msg("TAVILY_API_KEY not set, news tool disabled")
	}

	if gemClient != nil {
		ocrModel := strings.TrimSpace(gemCfg.OCRModel)
		if ocrModel == "" {
			ocrModel = gemCfg.Model
		}
		ocr, err := geminix.NewOCR(gemClient, ocrModel)
		if err != nil {
			return nil, nil, err
		}
		adapters.ImageQA = tool.NewImage(ocr, models.Image(), prompts.Image)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, image tool disabled")
	}

	lawCfg := configx.MustNew[tool.LawConfig]("LAW")
	if law := tool.NewLaw(*lawCfg, prompts.Law); law != nil {
		adapters.LawQA = law
	} else {
		log.Warn().Msg("LAW_API_KEY not set, law tool disabled")
	}

	breakers := tool.NewBreakerRegistry(*configx.MustNew[tool.BreakerConfig]("BREAKER"))
	return tool.NewCatalog(adapters, breakers), retriever, nil
}

func kindNames(c *tool.Catalog) []string {
	kinds := c.Configured()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}
