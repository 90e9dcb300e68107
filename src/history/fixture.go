package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"buildmail-agent/src/provider"
)

// fixtureFile is the on-disk shape of a build history.
type fixtureFile struct {
	Projects []fixtureProject `yaml:"projects"`
}

type fixtureProject struct {
	Name      string         `yaml:"name"`
	FullName  string         `yaml:"full_name"`
	URL       string         `yaml:"url"`
	Artifacts string         `yaml:"artifacts"`
	Workspace string         `yaml:"workspace"`
	Builds    []fixtureBuild `yaml:"builds"`
}

type fixtureBuild struct {
	Number    int                    `yaml:"number"`
	Result    string                 `yaml:"result"`
	Building  bool                   `yaml:"building"`
	Changes   []provider.ChangeEntry `yaml:"changes"`
	Upstream  map[string]int         `yaml:"upstream"`
	Workspace string                 `yaml:"workspace"`
	Log       string                 `yaml:"log"`
	LogError  string                 `yaml:"log_error"`
}

// LoadFile reads a YAML history fixture from path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	g, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load decodes a YAML history fixture.
func Load(r io.Reader) (*Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file fixtureFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	g := NewGraph()
	for _, fp := range file.Projects {
		if fp.Name == "" {
			return nil, fmt.Errorf("project without a name")
		}
		var opts []ProjectOption
		if fp.FullName != "" {
			opts = append(opts, WithFullName(fp.FullName))
		}
		if fp.URL != "" {
			opts = append(opts, WithURL(fp.URL))
		}
		if fp.Artifacts != "" {
			opts = append(opts, WithArtifacts(fp.Artifacts))
		}
		p := g.AddProject(fp.Name, opts...)

		for _, fb := range fp.Builds {
			result, err := provider.ParseResult(fb.Result)
			if err != nil {
				return nil, fmt.Errorf("%s #%d: %w", fp.Name, fb.Number, err)
			}
			workspace := fb.Workspace
			if workspace == "" {
				workspace = fp.Workspace
			}
			spec := BuildSpec{
				Number:    fb.Number,
				Result:    result,
				Building:  fb.Building,
				Changes:   fb.Changes,
				Upstream:  fb.Upstream,
				Workspace: workspace,
				Log:       splitLog(fb.Log),
			}
			if fb.LogError != "" {
				spec.LogErr = errors.New(fb.LogError)
			}
			if _, err := p.AddBuild(spec); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func splitLog(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
