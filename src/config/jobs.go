package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"buildmail-agent/src/notifier"
	"buildmail-agent/src/recipients"
)

// JobConfig is the YAML form of one project's notification options.
type JobConfig struct {
	notifier.Job `yaml:",inline"`
	// Exclude lists address globs that never receive mail for this project.
	Exclude []string `yaml:"exclude"`
}

// Jobs maps project names to their options. Projects without an entry use
// Defaults.
type Jobs struct {
	Defaults JobConfig            `yaml:"defaults"`
	Projects map[string]JobConfig `yaml:"projects"`
}

// LoadJobsFile reads a jobs file. A missing path yields empty Jobs.
func LoadJobsFile(path string) (*Jobs, error) {
	if path == "" {
		return &Jobs{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jobs file: %w", err)
	}
	defer f.Close()
	return LoadJobs(f)
}

// LoadJobs decodes a jobs document. Unknown keys are rejected.
func LoadJobs(r io.Reader) (*Jobs, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var j Jobs
	if err := dec.Decode(&j); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse jobs file: %w", err)
	}
	for name, jc := range j.Projects {
		if _, err := recipients.NewPatternFilter(jc.Exclude...); err != nil {
			return nil, fmt.Errorf("project %s: %w", name, err)
		}
	}
	if _, err := recipients.NewPatternFilter(j.Defaults.Exclude...); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	return &j, nil
}

// Lookup returns the options of the first name with an entry, or the
// defaults. Callers pass the full name before the short name.
func (j *Jobs) Lookup(names ...string) notifier.Job {
	jc := j.Defaults
	for _, name := range names {
		if c, ok := j.Projects[name]; ok {
			jc = c
			break
		}
	}

	job := jc.Job
	if len(jc.Exclude) > 0 {
		// Patterns were validated on load.
		f, _ := recipients.NewPatternFilter(jc.Exclude...)
		job.Filters = recipients.FilterChain{f}
	}
	return job
}
