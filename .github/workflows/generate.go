package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

type Trigger struct {
	Push        PushTrigger `yaml:"push,omitempty"`
	PullRequest struct{}    `yaml:"pull_request"`
}

type Args map[string]interface{}

type Step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	With Args              `yaml:"with,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type Service struct {
	Image   string            `yaml:"image"`
	Env     map[string]string `yaml:"env,omitempty"`
	Ports   []string          `yaml:"ports,omitempty"`
	Options string            `yaml:"options,omitempty"`
}

type Strategy struct {
	Matrix map[string][]string `yaml:"matrix"`
}

type Job struct {
	RunsOn   string             `yaml:"runs-on"`
	Strategy *Strategy          `yaml:"strategy,omitempty"`
	Services map[string]Service `yaml:"services,omitempty"`
	Steps    []Step             `yaml:"steps"`
}

type Workflow struct {
	Name string         `yaml:"name"`
	On   Trigger        `yaml:"on"`
	Jobs map[string]Job `yaml:"jobs"`
}

const goVersion = "1.21"

func setup() []Step {
	return []Step{{
		Name: "Checkout",
		Uses: "actions/checkout@v4",
	}, {
		Name: "Set up Go",
		Uses: "actions/setup-go@v5",
		With: Args{"go-version": goVersion},
	}}
}

// JobTest runs the whole suite against a throwaway postgres so the
// `pgvolume` tests aren't skipped.
func JobTest() Job {
	return Job{
		RunsOn: "ubuntu-latest",
		Services: map[string]Service{
			"postgres": {
				Image: "postgres:15",
				Env:   map[string]string{"POSTGRES_PASSWORD": "postgres"},
				Ports: []string{"5432:5432"},
				Options: "--health-cmd pg_isready --health-interval 10s " +
					"--health-timeout 5s --health-retries 5",
			},
		},
		Steps: append(setup(), Step{
			Name: "Test",
			Run:  "go test ./...",
			Env: map[string]string{
				"PG_HOST": "localhost",
				"PG_PASS": "postgres",
			},
		}),
	}
}

func JobBuild(target string) Job {
	return Job{
		RunsOn: "ubuntu-latest",
		Strategy: &Strategy{
			Matrix: map[string][]string{"goarch": {"amd64", "arm64"}},
		},
		Steps: append(setup(), Step{
			Name: "Build",
			Run: fmt.Sprintf(
				"go build -o bin/%s-${{ matrix.goarch }} ./cmd/%s",
				target,
				target,
			),
			Env: map[string]string{
				"GOOS":        "linux",
				"GOARCH":      "${{ matrix.goarch }}",
				"CGO_ENABLED": "0",
			},
		}),
	}
}

func WorkflowCI() Workflow {
	return Workflow{
		Name: "ci",
		On: Trigger{
			Push: PushTrigger{Branches: []string{"*"}, Tags: []string{"*"}},
		},
		Jobs: map[string]Job{
			"test":  JobTest(),
			"build": JobBuild("blockfs"),
		},
	}
}

func MarshalToWriter(w io.Writer, v interface{}) error {
	yamlEncoder := yaml.NewEncoder(w)
	defer yamlEncoder.Close()
	if err := yamlEncoder.Encode(v); err != nil {
		return fmt.Errorf("marshaling to YAML: %w", err)
	}
	return nil
}

func main() {
	if err := MarshalToWriter(os.Stdout, WorkflowCI()); err != nil {
		log.Fatalf("marshaling ci workflow: %v", err)
	}
}
