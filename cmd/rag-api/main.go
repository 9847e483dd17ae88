package main

import (
	"log"

	"github.com/zhang-liz/Enterprise-rag-system/internal/config"
	"github.com/zhang-liz/Enterprise-rag-system/internal/infrastructure/server"
)

func main() {
	log.Println("Starting Enterprise RAG API...")

	cfg := config.Load()

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
