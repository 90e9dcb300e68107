package githubactions

import "time"

// WorkflowRun represents a GitHub Actions workflow run
type WorkflowRun struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	WorkflowID   int64       `json:"workflow_id"`
	Path         string      `json:"path"`
	RunNumber    int         `json:"run_number"`
	Event        string      `json:"event"`
	Status       string      `json:"status"`
	Conclusion   string      `json:"conclusion"`
	HeadBranch   string      `json:"head_branch"`
	HeadSHA      string      `json:"head_sha"`
	HTMLURL      string      `json:"html_url"`
	CreatedAt    time.Time   `json:"created_at"`
	Actor        *Account    `json:"actor"`
	HeadCommit   *HeadCommit `json:"head_commit"`
	Repository   *Repository `json:"repository"`
	PullRequests []struct {
		Number int `json:"number"`
	} `json:"pull_requests"`
}

// Account is a GitHub user.
type Account struct {
	Login string `json:"login"`
}

// HeadCommit is the commit a run was triggered for.
type HeadCommit struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Author  CommitSig `json:"author"`
}

// CommitSig is a commit author or committer.
type CommitSig struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository identifies the repository of a run.
type Repository struct {
	FullName string `json:"full_name"`
}

// WorkflowJob represents a job within a workflow run
type WorkflowJob struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	StartedAt  time.Time `json:"started_at"`
	Steps      []Step    `json:"steps"`
}

// Step represents a step within a job
type Step struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	Number     int    `json:"number"`
}

// WorkflowJobsResponse is the API response for listing jobs
type WorkflowJobsResponse struct {
	TotalCount int           `json:"total_count"`
	Jobs       []WorkflowJob `json:"jobs"`
}

// WorkflowRunsResponse is the API response for listing runs
type WorkflowRunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}
