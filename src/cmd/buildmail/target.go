package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"buildmail-agent/src/history"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
)

// loadBuild resolves target to a build and the history it belongs to. Without
// --history target is a build URL, otherwise project#number.
func loadBuild(ctx context.Context, pl *pipeline.Pipeline, target string) (provider.Graph, provider.Build, error) {
	if historyFile == "" {
		graph, build, err := provider.FetchURL(ctx, target, pl.Providers...)
		if err != nil {
			return nil, nil, provider.WrapError(err)
		}
		return graph, build, nil
	}

	g, err := history.LoadFile(historyFile)
	if err != nil {
		return nil, nil, err
	}
	build, err := fixtureBuild(g, target)
	if err != nil {
		return nil, nil, provider.WrapError(err)
	}
	return g, build, nil
}

// fixtureBuild looks target up in g. A target without a number selects the
// project's newest build.
func fixtureBuild(g *history.Graph, target string) (provider.Build, error) {
	project, number, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	if number == 0 {
		return g.Latest(project)
	}
	return g.Lookup(project, number)
}

// parseTarget splits project#number. The number is 0 when absent.
func parseTarget(target string) (string, int, error) {
	target = strings.TrimSpace(target)
	i := strings.LastIndex(target, "#")
	if i < 0 {
		if target == "" {
			return "", 0, fmt.Errorf("empty build name")
		}
		return target, 0, nil
	}

	project := target[:i]
	number, err := strconv.Atoi(target[i+1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid build number in %q", target)
	}
	if project == "" {
		return "", 0, fmt.Errorf("missing project in %q", target)
	}
	return project, number, nil
}
