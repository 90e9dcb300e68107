package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/history"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
)

// printOutcome writes a one-glance summary of a notification attempt.
func printOutcome(w io.Writer, out contracts.NotificationOutcome) {
	build := fmt.Sprintf("%s #%d", out.Project, out.Number)
	switch out.Status {
	case contracts.StatusSent:
		fmt.Fprintf(w, "✅ Sent %s (%s) to %s\n", build, out.Variant, strings.Join(out.Recipients, ", "))
		fmt.Fprintf(w, "   Message-Id: <%s>\n", out.MessageID)
		if out.InReplyTo != "" {
			fmt.Fprintf(w, "   In-Reply-To: <%s>\n", out.InReplyTo)
		}
	case contracts.StatusSkipped:
		fmt.Fprintf(w, "⏭️  Skipped %s: %s\n", build, out.Reason)
	default:
		fmt.Fprintf(w, "❌ Failed %s: %s\n", build, out.Reason)
		if out.Error != "" {
			fmt.Fprintf(w, "   Error: %s\n", out.Error)
		}
	}
}

// printPreview writes the decision and the message a build would get. With
// raw the message is rendered as it would be sent.
func printPreview(w io.Writer, r *pipeline.PreviewResult, raw bool) error {
	out := r.Outcome
	fmt.Fprintf(w, "Build:       %s #%d (%s)\n", out.Project, out.Number, out.Result)
	if r.Message == nil {
		reason := out.Reason
		if out.Error != "" {
			reason += ": " + out.Error
		}
		fmt.Fprintf(w, "Decision:    no mail (%s)\n", reason)
	} else {
		fmt.Fprintf(w, "Decision:    send %s\n", out.Variant)
		fmt.Fprintf(w, "To:          %s\n", strings.Join(r.Message.Recipients(), ", "))
		if id := r.Message.InReplyTo(); id != "" {
			fmt.Fprintf(w, "In-Reply-To: <%s>\n", id)
		}
		fmt.Fprintf(w, "Subject:     %s\n", r.Message.Subject())
	}

	if len(r.Transcript) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Build log:")
		for _, line := range r.Transcript {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	if r.Message == nil {
		return nil
	}
	fmt.Fprintln(w)
	if raw {
		_, err := r.Message.WriteTo(w)
		return err
	}
	fmt.Fprint(w, r.Message.Body)
	if !strings.HasSuffix(r.Message.Body, "\n") {
		fmt.Fprintln(w)
	}
	return nil
}

// printHistory lists the builds of projects newest first.
func printHistory(w io.Writer, g *history.Graph, projects []string) {
	t := newTable("Project", "Build", "Result", "Culprits", "Changes")
	for _, name := range projects {
		p, err := g.Project(name)
		if err != nil {
			continue
		}
		last, err := g.Latest(name)
		if err != nil {
			t.Row(p.FullName(), "-", "", "", "")
			continue
		}
		for b := last; b != nil; b = b.Previous() {
			t.Row(p.FullName(), "#"+strconv.Itoa(b.Number()), resultLabel(b), userNames(b.Culprits()), strconv.Itoa(len(b.ChangeSet())))
		}
	}
	fmt.Fprintln(w, t.String())
}

// printRecords lists notification records in build order.
func printRecords(w io.Writer, records []contracts.NotificationRecord) {
	t := newTable("Build", "Sent", "Variant", "Subject", "Message-Id")
	for _, rec := range records {
		t.Row("#"+strconv.Itoa(rec.Number), formatTime(rec.SentAt), rec.Variant, rec.Subject, rec.MessageID)
	}
	fmt.Fprintln(w, t.String())
}

// printRecord shows every field of one record.
func printRecord(w io.Writer, rec *contracts.NotificationRecord) {
	fmt.Fprintf(w, "Build:       %s #%d\n", rec.Project, rec.Number)
	fmt.Fprintf(w, "Message-Id:  <%s>\n", rec.MessageID)
	fmt.Fprintf(w, "Subject:     %s\n", rec.Subject)
	fmt.Fprintf(w, "Variant:     %s\n", rec.Variant)
	fmt.Fprintf(w, "Recipients:  %s\n", strings.Join(rec.Recipients, ", "))
	fmt.Fprintf(w, "Sent:        %s\n", formatTime(rec.SentAt))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func resultLabel(b provider.Build) string {
	if b.IsBuilding() {
		return "building"
	}
	return b.Result().String()
}

func userNames(users []provider.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName())
	}
	return strings.Join(names, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
