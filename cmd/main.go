package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lumina-rag/internal/chromemdb"
	"lumina-rag/internal/config"
	"lumina-rag/internal/db"
	"lumina-rag/internal/embedding"
	"lumina-rag/internal/imagesearch"
	"lumina-rag/internal/llmservice"
	"lumina-rag/internal/normalize"
	"lumina-rag/internal/rag"
	"lumina-rag/internal/server"
	"lumina-rag/internal/server/middleware"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
	logger := log.Logger

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	// Session/message store
	sqldb := db.ConnectDB(cfg.Database.URL, cfg.Database.Key)
	store := db.NewStore(sqldb, cfg.Database.Debug)
	defer store.Close()
	if err := store.Init(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	// Vector index
	index, err := chromemdb.NewManager(cfg.RAG.DBPath, cfg.RAG.Collection, cfg.RAG.InMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector database manager")
	}

	// Capabilities
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat llm")
	}
	vision, err := llmservice.New(&cfg.Vision)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vision llm")
	}
	searcher := imagesearch.NewClient(&logger)

	normalizer := normalize.New(vision, &logger)
	ragService, err := rag.NewService(normalizer, embedder, index, generator, searcher, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating rag service")
	}
	defer ragService.Close()

	// HTTP surface
	handler := server.NewHandler(ragService, store, &logger)
	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	server.RegisterRoutes(container, handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	httpServer := http.Server{
		Addr:    cfg.Server.Addr,
		Handler: corsHandler.Handler(container),
	}

	log.Info().Str("address", cfg.Server.Addr).Msg("Starting Lumina notebook API")
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
