// Package main provides the MCP server entry point for buildmail.
// This server implements the Model Context Protocol, letting an assistant
// preview build notifications and inspect mail threads over stdio.
package main

import (
	"context"
	"os"

	"buildmail-agent/src/broker"
	"buildmail-agent/src/config"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/mcp"
	"buildmail-agent/src/pipeline"
)

func main() {
	// stdout carries the protocol, so logs go to stderr
	log := logger.NewZerologLogger(os.Stderr, "mcp-server")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Error("Configuration error: %v", err)
		os.Exit(1)
	}

	// Previews never publish, so the server needs no Redpanda connection.
	pl, err := pipeline.New(context.Background(), cfg, log, pipeline.WithBroker(broker.NewInMemoryBroker()))
	if err != nil {
		log.Error("Failed to create pipeline: %v", err)
		os.Exit(1)
	}
	defer pl.Close()

	// Run server over stdin/stdout (stdio transport)
	if err := mcp.NewServer(pl).Run(); err != nil {
		log.Error("MCP server error: %v", err)
		pl.Close()
		os.Exit(1)
	}
}
