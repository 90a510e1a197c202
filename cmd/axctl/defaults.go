package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultsFile is the optional --defaults FILE override for the session
// orchestrator's fixed phase durations (spec.md §5), parsed the way
// cmd/warren/apply.go parses its YAML resource file.
type defaultsFile struct {
	ProbeTimeoutSeconds int `yaml:"probeTimeoutSeconds"`
	DialDeadlineSeconds int `yaml:"dialDeadlineSeconds"`
	UploadSettleSeconds int `yaml:"uploadSettleSeconds"`
}

func loadDefaults(path string) (defaultsFile, error) {
	if path == "" {
		return defaultsFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaultsFile{}, fmt.Errorf("reading defaults file: %w", err)
	}

	var d defaultsFile
	if err := yaml.Unmarshal(data, &d); err != nil {
		return defaultsFile{}, fmt.Errorf("parsing defaults file: %w", err)
	}
	return d, nil
}

func (d defaultsFile) probeTimeout() time.Duration {
	if d.ProbeTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.ProbeTimeoutSeconds) * time.Second
}

func (d defaultsFile) dialDeadline() time.Duration {
	if d.DialDeadlineSeconds <= 0 {
		return 0
	}
	return time.Duration(d.DialDeadlineSeconds) * time.Second
}

func (d defaultsFile) uploadSettle() time.Duration {
	if d.UploadSettleSeconds <= 0 {
		return 0
	}
	return time.Duration(d.UploadSettleSeconds) * time.Second
}
