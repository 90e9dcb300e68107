//go:build integration

package buildkite

import (
	"context"
	"os"
	"testing"

	"buildmail-agent/src/provider"
)

func TestBuildkiteIntegration(t *testing.T) {
	token := os.Getenv("BUILDKITE_API_TOKEN")
	if token == "" {
		t.Skip("BUILDKITE_API_TOKEN not set, skipping integration test")
	}

	url := os.Getenv("TEST_BUILDKITE_URL")
	if url == "" {
		t.Skip("TEST_BUILDKITE_URL not set, skipping integration test")
	}

	graph, build, err := provider.FetchURL(context.Background(), url, NewProvider(token))
	if err != nil {
		t.Fatalf("FetchURL failed: %v", err)
	}

	if _, err := graph.Lookup(build.Project().Name(), build.Number()); err != nil {
		t.Errorf("Lookup of the fetched build failed: %v", err)
	}

	depth := 0
	for b := build.Previous(); b != nil; b = b.Previous() {
		depth++
	}
	t.Logf("Fetched %s (%s) with %d earlier builds and %d culprits", build.FullDisplayName(), build.Result(), depth, len(build.Culprits()))
}
