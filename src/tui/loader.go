package tui

import (
	"context"

	"buildmail-agent/src/decision"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
)

// ChainLoader previews build and up to limit-1 of its predecessors, newest
// first. A limit of 0 previews the whole loaded history. Builds that need no
// mail skip the composing phase.
func ChainLoader(pl *pipeline.Pipeline, graph provider.Graph, build provider.Build, limit int) Loader {
	return func(ctx context.Context, progress func(ProgressMsg)) ([]Item, error) {
		var builds []provider.Build
		for b := build; b != nil && (limit <= 0 || len(builds) < limit); b = b.Previous() {
			builds = append(builds, b)
		}

		items := make([]Item, 0, len(builds))
		for i, b := range builds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			step := ProgressMsg{Number: b.Number(), Current: i, Total: len(builds)}

			step.Phase = PhaseDeciding
			progress(step)
			project := b.Project()
			job := pl.Jobs.Lookup(project.FullName(), project.Name())
			if decision.ForBuild(b, job.NotifyEveryUnstable).Send() {
				step.Phase = PhaseComposing
				progress(step)
			}

			result, err := pl.Preview(ctx, graph, b, "")
			if err != nil {
				return nil, err
			}
			item := NewItem(b, result)
			items = append(items, item)

			step.Phase = PhasePreviewed
			step.Mail = item.MailLabel()
			progress(step)
		}
		return items, nil
	}
}
