package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"dpr_engine/pkg/api/config"
	"dpr_engine/pkg/api/dpr"
	coreConfig "dpr_engine/pkg/core/config"
	"dpr_engine/pkg/core/llm"
	"dpr_engine/pkg/core/narrative"
	"dpr_engine/pkg/core/prompt"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("[CONFIG] No .env file, using process environment")
	}

	configPath := os.Getenv("DPR_CONFIG")
	if configPath == "" {
		configPath = "config/dpr.yaml"
	}
	cfg, err := coreConfig.Load(configPath)
	if err != nil {
		fmt.Printf("[FATAL] Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Scheme knowledge base
	kb := scheme.Default()
	if cfg.KnowledgeFile != "" {
		if kb, err = scheme.Load(cfg.KnowledgeFile); err != nil {
			fmt.Printf("[FATAL] Failed to load knowledge base: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("[SCHEME] Knowledge base %s with %d schemes\n", kb.Version, len(kb.Schemes()))

	// Assumption overrides are re-applied per industry preset on every request
	var overrides []byte
	if cfg.AssumptionsFile != "" {
		if overrides, err = os.ReadFile(cfg.AssumptionsFile); err != nil {
			fmt.Printf("[FATAL] Failed to read assumptions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[CONFIG] Assumption overrides from %s\n", cfg.AssumptionsFile)
	}

	// Prompt library
	if cfg.PromptDir != "" {
		if err := prompt.LoadFromDirectory(cfg.PromptDir); err != nil {
			fmt.Printf("[WARNING] Failed to load prompt library: %v\n", err)
			fmt.Println("  Falling back to built-in prompts")
		}
	}
	fmt.Printf("[PROMPT] %d prompts available\n", prompt.Get().Count())

	repo, cleanup, err := openRepository(cfg.Storage)
	if err != nil {
		fmt.Printf("[FATAL] Storage unavailable: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	provider, err := llm.NewSwitchable(cfg.Narrative.Provider, cfg.Narrative.Model)
	if err != nil {
		fmt.Printf("[FATAL] Invalid narrative provider: %v\n", err)
		os.Exit(1)
	}
	gen := narrative.NewGenerator(provider)
	gen.Language = cfg.Narrative.Language

	mux := http.NewServeMux()

	dprHandler := dpr.NewHandler(kb, cfg, overrides, repo, gen)
	dprHandler.Register(mux)

	configHandler := config.NewHandler(cfg, kb, overrides, provider)
	mux.HandleFunc("/api/config", configHandler.HandleConfig)
	mux.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	fmt.Printf("API server starting on %s...\n", cfg.Server.Addr)
	for _, route := range dpr.Routes() {
		fmt.Println("  - " + route)
	}
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}

// openRepository picks the report store for the configured driver
func openRepository(sc coreConfig.StorageConfig) (store.Repository, func(), error) {
	switch sc.Driver {
	case coreConfig.StoragePostgres:
		if err := store.InitDB(context.Background(), sc.DatabaseURL); err != nil {
			return nil, nil, err
		}
		fmt.Println("[STORE] Using PostgreSQL report store")
		return store.NewReportRepo(store.GetPool()), store.Close, nil
	case coreConfig.StorageFile:
		repo, err := store.NewFileRepo(sc.Dir)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("[STORE] Using file report store at %s\n", sc.Dir)
		return repo, func() {}, nil
	default:
		fmt.Println("[STORE] Using in-memory report store")
		return store.NewMemoryRepo(), func() {}, nil
	}
}
