package main

import (
	"log"

	"github.com/joho/godotenv"

	"alphabot/adapters/excel"
	"alphabot/adapters/llm"
	"alphabot/adapters/llm/heuristic"
	"alphabot/api"
	"alphabot/app"
	"alphabot/internal"
	"alphabot/internal/config"
	"alphabot/internal/ingest"
	"alphabot/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()
	internal.DefaultLogger = logger

	source := excel.NewFolderSource(appConfig.Data.Dir, logger)
	loader := ingest.NewLoader(source, ingest.NewDefaultBuilder(), logger)

	planner, narrator := buildCollaborators(appConfig, logger)

	analysis := app.NewAnalysisService(loader, planner, narrator, logger)

	server := api.NewServer(api.Config{Port: appConfig.Server.Port}, analysis, logger)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildCollaborators wires the LLM planner and narrator with heuristic
// fallbacks. Without an API key the service runs fully offline on the
// heuristics.
func buildCollaborators(appConfig *config.Config, logger *internal.Logger) (ports.Planner, ports.Narrator) {
	fallbackPlanner := heuristic.NewPlanner()
	fallbackNarrator := heuristic.NewNarrator()

	llmConfig := llm.Config{
		Model:               appConfig.AI.Model,
		APIKey:              appConfig.AI.APIKey,
		BaseURL:             appConfig.AI.BaseURL,
		Temperature:         appConfig.AI.Temperature,
		MaxTokens:           appConfig.AI.MaxTokens,
		Timeout:             appConfig.AI.Timeout,
		FallbackToHeuristic: appConfig.AI.FallbackToHeuristic,
	}

	client, err := llm.NewClient(llmConfig)
	if err != nil {
		logger.Warn("LLM client unavailable (%v), using heuristic planner and narrator", err)
		return fallbackPlanner, fallbackNarrator
	}

	planner := llm.NewPlannerAdapter(llmConfig, client, fallbackPlanner, logger)
	narrator := llm.NewNarratorAdapter(llmConfig, client, fallbackNarrator, logger)
	return planner, narrator
}
