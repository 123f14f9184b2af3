package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// settings is the resolved configuration of one invocation.
type settings struct {
	Inputs       []string `yaml:"inputs"`
	Batch        int      `yaml:"batch"`
	Output       string   `yaml:"output"`
	Workers      int      `yaml:"workers"`
	WorkingDir   string   `yaml:"workingDir"`
	MaxOpenFiles int      `yaml:"maxOpenFiles"`
	Compress     bool     `yaml:"compress"`
	Mmap         bool     `yaml:"mmap"`
	Verbose      bool     `yaml:"verbose"`
}

func defaultSettings() settings {
	return settings{
		Workers:      1,
		WorkingDir:   os.TempDir(),
		MaxOpenFiles: 10000,
	}
}

// loadSettingsFile reads a YAML config file. Unknown keys are rejected.
func loadSettingsFile(path string) (settings, error) {
	var s settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, nil
}

// newFlagSet registers every flag, with defaults taken from d.
func newFlagSet(d settings) (*pflag.FlagSet, *settings, *string) {
	fs := pflag.NewFlagSet("bigsort", pflag.ContinueOnError)
	s := d
	fs.StringArrayVarP(&s.Inputs, "input", "i", nil, "input file or directory (repeatable)")
	fs.IntVarP(&s.Batch, "batch", "b", d.Batch, "max lines held in memory across all workers (required)")
	fs.StringVarP(&s.Output, "output", "o", d.Output, "result file (required)")
	fs.IntVarP(&s.Workers, "workers", "w", d.Workers, "number of parallel chunk sorters")
	fs.StringVarP(&s.WorkingDir, "working-dir", "d", d.WorkingDir, "directory for temporary run files")
	fs.IntVarP(&s.MaxOpenFiles, "max-open-files", "m", d.MaxOpenFiles, "max files open at once while merging, output included")
	fs.BoolVar(&s.Compress, "compress", d.Compress, "zstd-compress temporary runs")
	fs.BoolVar(&s.Mmap, "mmap", d.Mmap, "read input files through mmap")
	fs.BoolVarP(&s.Verbose, "verbose", "v", d.Verbose, "debug logging")
	configPath := fs.StringP("config", "c", "", "YAML config file; explicit flags override it")
	return fs, &s, configPath
}

// overlay copies every field set in file into s unless the matching flag was
// given on the command line. File inputs apply only when none were given.
func overlay(s *settings, file settings, fs *pflag.FlagSet) {
	unset := func(name string) bool { return !fs.Changed(name) }
	if len(s.Inputs) == 0 {
		s.Inputs = file.Inputs
	}
	if unset("batch") && file.Batch != 0 {
		s.Batch = file.Batch
	}
	if unset("output") && file.Output != "" {
		s.Output = file.Output
	}
	if unset("workers") && file.Workers != 0 {
		s.Workers = file.Workers
	}
	if unset("working-dir") && file.WorkingDir != "" {
		s.WorkingDir = file.WorkingDir
	}
	if unset("max-open-files") && file.MaxOpenFiles != 0 {
		s.MaxOpenFiles = file.MaxOpenFiles
	}
	if unset("compress") && file.Compress {
		s.Compress = true
	}
	if unset("mmap") && file.Mmap {
		s.Mmap = true
	}
	if unset("verbose") && file.Verbose {
		s.Verbose = true
	}
}

// parseSettings parses args, then fills unset flags from the config file.
func parseSettings(args []string) (settings, error) {
	fs, s, configPath := newFlagSet(defaultSettings())
	if err := fs.Parse(args); err != nil {
		return settings{}, err
	}
	s.Inputs = append(s.Inputs, fs.Args()...)

	if *configPath != "" {
		file, err := loadSettingsFile(*configPath)
		if err != nil {
			return settings{}, err
		}
		overlay(s, file, fs)
	}
	return *s, s.validate()
}

func (s settings) validate() error {
	var errs []error
	if len(s.Inputs) == 0 {
		errs = append(errs, errors.New("at least one input is required"))
	}
	switch {
	case s.Batch == 0:
		errs = append(errs, errors.New("batch is required (-b)"))
	case s.Batch < 2:
		errs = append(errs, fmt.Errorf("batch must be at least 2, got %d", s.Batch))
	}
	if s.Output == "" {
		errs = append(errs, errors.New("output is required (-o)"))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", s.Workers))
	}
	if s.MaxOpenFiles < 3 {
		errs = append(errs, fmt.Errorf("max-open-files must be at least 3, got %d", s.MaxOpenFiles))
	}
	return errors.Join(errs...)
}
