package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"sarathi-be/internal/config"
	"sarathi-be/internal/entity"
	"sarathi-be/internal/model"
	"sarathi-be/internal/repository/implementation"
	"sarathi-be/pkg/database"
	"sarathi-be/pkg/embedding"
	embeddingJina "sarathi-be/pkg/embedding/jina"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// seedPassage is the on-disk corpus format: one JSON array of verses.
type seedPassage struct {
	RefKey     string   `json:"ref_key"`
	Text       string   `json:"text"`
	Collection string   `json:"collection"`
	Tags       []string `json:"tags,omitempty"`
}

func main() {
	corpusPath := flag.String("corpus", "data/passages.json", "path to the passages JSON file")
	flag.Parse()

	cfg := config.Load()

	color.Cyan("🌱 Seeding passage corpus from %s\n", *corpusPath)

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.EnsureVectorExtension(db); err != nil {
		color.Red("Failed to ensure pgvector extension: %v", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&model.Passage{}); err != nil {
		color.Red("Failed to migrate passages table: %v", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*corpusPath)
	if err != nil {
		color.Red("Failed to read corpus file: %v", err)
		os.Exit(1)
	}

	var seeds []seedPassage
	if err := json.Unmarshal(raw, &seeds); err != nil {
		color.Red("Failed to parse corpus file: %v", err)
		os.Exit(1)
	}
	color.Yellow("Found %d passages", len(seeds))

	var provider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		provider = embeddingJina.NewJinaProvider(cfg.Keys.Jina)
	default:
		provider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	repo := implementation.NewPassageRepository(db)
	ctx := context.Background()

	created, skipped := 0, 0
	batch := make([]*entity.Passage, 0, 50)
	for i, seed := range seeds {
		existing, err := repo.FindByRefKey(ctx, seed.RefKey)
		if err != nil {
			color.Red("Lookup failed for %s: %v", seed.RefKey, err)
			os.Exit(1)
		}
		if existing != nil {
			skipped++
			continue
		}

		res, err := provider.Generate(ctx, seed.Text, embedding.TaskRetrievalDocument)
		if err != nil {
			color.Red("Embedding failed for %s: %v", seed.RefKey, err)
			os.Exit(1)
		}

		batch = append(batch, &entity.Passage{
			Id:         uuid.New(),
			RefKey:     seed.RefKey,
			Text:       seed.Text,
			Collection: seed.Collection,
			Tags:       seed.Tags,
			Embedding:  res.Embedding.Values,
			CreatedAt:  time.Now().UTC(),
		})

		if len(batch) == cap(batch) || i == len(seeds)-1 {
			if err := repo.CreateBulk(ctx, batch); err != nil {
				color.Red("Bulk insert failed: %v", err)
				os.Exit(1)
			}
			created += len(batch)
			log.Printf("Inserted %d/%d passages", created, len(seeds)-skipped)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := repo.CreateBulk(ctx, batch); err != nil {
			color.Red("Bulk insert failed: %v", err)
			os.Exit(1)
		}
		created += len(batch)
	}

	color.Green("✅ Seeding complete: %d created, %d skipped (already present)", created, skipped)
}
