package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"livechat/backend/internal/auth"
	"livechat/backend/internal/config"
	"livechat/backend/internal/knowledge"
	"livechat/backend/internal/models"
	"livechat/backend/internal/storage"

	"github.com/joho/godotenv"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-admin <email> <name> <password>
  set-mode <conversation_id> <automated|human>
  set-status <conversation_id> <active|pending|closed>
  seed-kb <dataset.json> [--clear]
  clear-kb`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	if cfg.StorageDriver == "memory" {
		log.Fatal("The admin CLI needs a database; STORAGE_DRIVER=memory is not supported")
	}

	db, err := storage.OpenDB(cfg.StorageDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	command := os.Args[1]

	switch command {
	case "create-admin":
		if len(os.Args) != 5 {
			fmt.Println("Usage: admin create-admin <email> <name> <password>")
			os.Exit(1)
		}
		user, err := auth.CreateAdmin(storageSvc, os.Args[2], os.Args[3], os.Args[4])
		if err != nil {
			log.Fatalf("Error creating admin: %v", err)
		}
		fmt.Printf("Admin %s (%s) is ready.\n", user.Email, user.ID)

	case "set-mode":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-mode <conversation_id> <automated|human>")
			os.Exit(1)
		}
		mode := models.ResponseMode(os.Args[3])
		if !mode.Valid() {
			fmt.Println("Mode must be automated or human.")
			os.Exit(1)
		}
		if err := storageSvc.UpdateConversationMode(os.Args[2], mode); err != nil {
			log.Fatalf("Error updating mode: %v", err)
		}
		fmt.Printf("Conversation %s is now in %s mode.\n", os.Args[2], mode)

	case "set-status":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-status <conversation_id> <active|pending|closed>")
			os.Exit(1)
		}
		status := models.ConversationStatus(os.Args[3])
		if !status.Valid() {
			fmt.Println("Status must be active, pending or closed.")
			os.Exit(1)
		}
		if err := storageSvc.UpdateConversationStatus(os.Args[2], status); err != nil {
			log.Fatalf("Error updating status: %v", err)
		}
		fmt.Printf("Conversation %s is now %s.\n", os.Args[2], status)

	case "seed-kb":
		if len(os.Args) < 3 || len(os.Args) > 4 || (len(os.Args) == 4 && os.Args[3] != "--clear") {
			fmt.Println("Usage: admin seed-kb <dataset.json> [--clear]")
			os.Exit(1)
		}
		seeder := newSeeder(cfg, storageSvc)
		ctx := context.Background()
		if len(os.Args) == 4 {
			if err := seeder.Clear(ctx); err != nil {
				log.Fatalf("Error clearing knowledge base: %v", err)
			}
		}
		ds, err := knowledge.LoadDataset(os.Args[2])
		if err != nil {
			log.Fatalf("Error loading dataset: %v", err)
		}
		n, err := seeder.Seed(ctx, ds)
		if err != nil {
			log.Fatalf("Error seeding knowledge base: %v", err)
		}
		fmt.Printf("Seeded %d of %d documents into %s.\n", n, len(ds.Documents), cfg.RAGStorePath)

	case "clear-kb":
		if err := newSeeder(cfg, storageSvc).Clear(context.Background()); err != nil {
			log.Fatalf("Error clearing knowledge base: %v", err)
		}
		fmt.Println("Knowledge base cleared.")

	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func newSeeder(cfg *config.Config, catalog knowledge.Catalog) *knowledge.Seeder {
	embedder, err := knowledge.NewEmbedder(cfg.RAGEmbeddingProvider, knowledge.EmbedderOptions{
		Model:   cfg.RAGEmbeddingModel,
		BaseURL: cfg.RAGEmbeddingURL,
		APIKey:  cfg.RAGAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to configure embeddings: %v", err)
	}
	store, err := knowledge.OpenTinySQLStore(cfg.RAGStorePath)
	if err != nil {
		log.Fatalf("Failed to open knowledge index: %v", err)
	}
	return knowledge.NewSeeder(embedder, store, catalog)
}
