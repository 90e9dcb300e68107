package githubactions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"buildmail-agent/src/provider"
)

func TestGitHubProvider_Name(t *testing.T) {
	p := NewProvider("fake-token")
	if p.Name() != "github" {
		t.Errorf("Name() = %v, want github", p.Name())
	}
}

func TestGitHubProvider_ParseURL(t *testing.T) {
	p := NewProvider("fake-token")

	ref, err := p.ParseURL("https://github.com/owner/repo/actions/runs/123")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}

	if ref.Provider != "github" {
		t.Errorf("Provider = %v, want github", ref.Provider)
	}
	if ref.BuildID != "123" {
		t.Errorf("BuildID = %v, want 123", ref.BuildID)
	}
	if ref.Metadata["owner"] != "owner" {
		t.Errorf("owner = %v, want owner", ref.Metadata["owner"])
	}
	if ref.Metadata["repo"] != "repo" {
		t.Errorf("repo = %v, want repo", ref.Metadata["repo"])
	}
}

func TestMapConclusion(t *testing.T) {
	tests := []struct {
		status, conclusion string
		wantResult         provider.Result
		wantBuilding       bool
	}{
		{"completed", "success", provider.ResultSuccess, false},
		{"completed", "failure", provider.ResultFailure, false},
		{"completed", "timed_out", provider.ResultFailure, false},
		{"completed", "cancelled", provider.ResultAborted, false},
		{"completed", "skipped", provider.ResultNotBuilt, false},
		{"completed", "neutral", provider.ResultNotBuilt, false},
		{"completed", "action_required", provider.ResultUnstable, false},
		{"in_progress", "", provider.ResultNone, true},
		{"queued", "", provider.ResultNone, true},
	}

	for _, tt := range tests {
		result, building := MapConclusion(&WorkflowRun{Status: tt.status, Conclusion: tt.conclusion})
		if result != tt.wantResult || building != tt.wantBuilding {
			t.Errorf("MapConclusion(%s, %s) = %v, %v; want %v, %v",
				tt.status, tt.conclusion, result, building, tt.wantResult, tt.wantBuilding)
		}
	}
}

func run(id int64, number int, conclusion, author string) WorkflowRun {
	r := WorkflowRun{
		ID:         id,
		Name:       "CI",
		WorkflowID: 77,
		Path:       ".github/workflows/ci.yml",
		RunNumber:  number,
		Status:     "completed",
		Conclusion: conclusion,
		HeadBranch: "main",
		CreatedAt:  time.Date(2026, 1, 1, 0, number, 0, 0, time.UTC),
	}
	if author != "" {
		r.HeadCommit = &HeadCommit{
			Message: "change by " + author,
			Author:  CommitSig{Name: author, Email: author + "@example.com"},
		}
	}
	return r
}

func TestGitHubProvider_FetchGraph(t *testing.T) {
	current := run(1005, 5, "failure", "carol")
	runs := []WorkflowRun{current, run(1004, 4, "failure", "bob"), run(1003, 3, "success", "alice"), run(1002, 2, "failure", "")}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/owner/repo/actions/runs/1005":
			json.NewEncoder(w).Encode(current)
		case "/repos/owner/repo/actions/workflows/77/runs":
			if r.URL.Query().Get("branch") != "main" {
				t.Errorf("branch = %q, want main", r.URL.Query().Get("branch"))
			}
			json.NewEncoder(w).Encode(WorkflowRunsResponse{TotalCount: len(runs), WorkflowRuns: runs})
		case "/repos/owner/repo/actions/runs/1005/jobs":
			json.NewEncoder(w).Encode(WorkflowJobsResponse{TotalCount: 2, Jobs: []WorkflowJob{
				{ID: 11, Name: "test", Status: "completed", Conclusion: "failure"},
				{ID: 12, Name: "lint", Status: "completed", Conclusion: "success"},
			}})
		case "/repos/owner/repo/actions/jobs/11/logs":
			http.Redirect(w, r, server.URL+"/storage/11", http.StatusFound)
		case "/storage/11":
			w.Write([]byte("2026-01-01T10:00:00.1234567Z Error: boom\r\n2026-01-01T10:00:01.0000000Z done\n"))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewProviderWithClient(NewClient("t").WithBaseURL(server.URL))
	ref, err := p.ParseURL("https://github.com/owner/repo/actions/runs/1005")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}

	g, b, err := p.FetchGraph(context.Background(), ref)
	if err != nil {
		t.Fatalf("FetchGraph() error = %v", err)
	}

	if got := b.FullDisplayName(); got != "owner/repo/ci #5" {
		t.Errorf("FullDisplayName() = %q", got)
	}
	if got := b.URL(); got != "owner/repo/actions/runs/1005/" {
		t.Errorf("URL() = %q", got)
	}
	if got := b.Project().URL(); got != "owner/repo/actions/workflows/ci.yml/" {
		t.Errorf("Project().URL() = %q", got)
	}
	if b.Result() != provider.ResultFailure {
		t.Errorf("Result() = %v", b.Result())
	}

	prev := b.Previous()
	if prev == nil || prev.Number() != 4 {
		t.Fatalf("Previous() = %v", prev)
	}
	if first := prev.Previous(); first == nil || first.Number() != 3 || first.Previous() != nil {
		t.Errorf("history should stop at the successful run #3")
	}

	var culprits []string
	for _, u := range b.Culprits() {
		culprits = append(culprits, u.Email)
	}
	if strings.Join(culprits, ",") != "carol@example.com,bob@example.com" {
		t.Errorf("Culprits() = %v", culprits)
	}

	lines, err := b.Log(0)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if strings.Join(lines, "|") != "Error: boom|done" {
		t.Errorf("Log() = %q", lines)
	}

	if _, err := g.Project("repo/ci"); err != nil {
		t.Errorf("Project(repo/ci) error = %v", err)
	}
}

func TestGitHubProvider_FetchGraphInProgressHistory(t *testing.T) {
	current := run(2002, 2, "success", "dan")
	running := run(2001, 1, "", "")
	running.Status = "in_progress"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/owner/repo/actions/runs/2002":
			json.NewEncoder(w).Encode(current)
		case "/repos/owner/repo/actions/workflows/77/runs":
			json.NewEncoder(w).Encode(WorkflowRunsResponse{WorkflowRuns: []WorkflowRun{current, running}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewProviderWithClient(NewClient("t").WithBaseURL(server.URL))
	_, b, err := p.FetchGraph(context.Background(), &provider.BuildRef{
		Provider: "github",
		BuildID:  "2002",
		Metadata: map[string]string{"owner": "owner", "repo": "repo"},
	})
	if err != nil {
		t.Fatalf("FetchGraph() error = %v", err)
	}
	prev := b.Previous()
	if prev == nil || !prev.IsBuilding() {
		t.Fatalf("Previous() = %v, want a running build", prev)
	}
	if lines, _ := b.Log(0); len(lines) != 0 {
		t.Errorf("logs are only fetched for failures, got %v", lines)
	}
}
