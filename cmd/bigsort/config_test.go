package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bigsort.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSettingsDefaults(t *testing.T) {
	s, err := parseSettings([]string{"-b", "100", "-o", "out.txt", "in.txt"})
	if err != nil {
		t.Fatal(err)
	}
	d := defaultSettings()
	if s.Workers != d.Workers || s.MaxOpenFiles != d.MaxOpenFiles || s.WorkingDir != d.WorkingDir {
		t.Errorf("got %+v, want defaults %+v", s, d)
	}
	if !slices.Equal(s.Inputs, []string{"in.txt"}) {
		t.Errorf("inputs = %v", s.Inputs)
	}
}

func TestParseSettingsFlags(t *testing.T) {
	s, err := parseSettings([]string{
		"-i", "a.txt", "--input", "dir", "-b", "50", "-w", "4",
		"-o", "out.txt", "-m", "8", "-d", "/work", "--compress", "--mmap", "-v", "c.txt",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(s.Inputs, []string{"a.txt", "dir", "c.txt"}) {
		t.Errorf("inputs = %v", s.Inputs)
	}
	if s.Batch != 50 || s.Workers != 4 || s.MaxOpenFiles != 8 || s.Output != "out.txt" || s.WorkingDir != "/work" {
		t.Errorf("unexpected settings %+v", s)
	}
	if !s.Compress || !s.Mmap || !s.Verbose {
		t.Errorf("boolean flags not applied: %+v", s)
	}
}

func TestParseSettingsConfigFile(t *testing.T) {
	cfg := writeConfig(t, `
inputs: [x.txt, y.txt]
batch: 500
workers: 3
maxOpenFiles: 16
compress: true
output: sorted.txt
`)

	t.Run("file fills unset flags", func(t *testing.T) {
		s, err := parseSettings([]string{"-c", cfg})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(s.Inputs, []string{"x.txt", "y.txt"}) {
			t.Errorf("inputs = %v", s.Inputs)
		}
		if s.Batch != 500 || s.Workers != 3 || s.MaxOpenFiles != 16 || !s.Compress {
			t.Errorf("unexpected settings %+v", s)
		}
		if s.Output != "sorted.txt" {
			t.Errorf("output = %q, want sorted.txt from file", s.Output)
		}
		if s.WorkingDir != defaultSettings().WorkingDir {
			t.Errorf("working dir = %q, want default", s.WorkingDir)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		s, err := parseSettings([]string{"-c", cfg, "-b", "7", "-w", "1", "z.txt"})
		if err != nil {
			t.Fatal(err)
		}
		if s.Batch != 7 || s.Workers != 1 {
			t.Errorf("flags overridden by file: %+v", s)
		}
		if !slices.Equal(s.Inputs, []string{"z.txt"}) {
			t.Errorf("inputs = %v, want command line inputs only", s.Inputs)
		}
		if s.MaxOpenFiles != 16 {
			t.Errorf("max open files = %d, want 16 from file", s.MaxOpenFiles)
		}
	})
}

func TestParseSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no inputs", []string{"-b", "10", "-o", "out"}, "at least one input"},
		{"batch missing", []string{"-o", "out", "a"}, "batch is required"},
		{"output missing", []string{"-b", "10", "a"}, "output is required"},
		{"batch too small", []string{"-b", "1", "-o", "out", "a"}, "batch must be at least 2"},
		{"no workers", []string{"-b", "10", "-o", "out", "-w", "0", "a"}, "workers must be at least 1"},
		{"max open too small", []string{"-b", "10", "-o", "out", "-m", "2", "a"}, "max-open-files must be at least 3"},
		{"unknown flag", []string{"--nope", "a"}, "unknown flag"},
		{"missing config", []string{"-c", "/no/such/file.yaml", "a"}, "read config"},
		{"unknown config key", []string{"-c", writeConfig(t, "bogus: 1\n"), "a"}, "parse config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSettings(tc.args)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte("c\nb\na\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.txt")

	var stdout bytes.Buffer
	code := run([]string{"-i", in, "-o", out, "-b", "2", "-d", t.TempDir()}, &stdout)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Errorf("result = %q", data)
	}
	if !strings.Contains(stdout.String(), "Sorted 3 lines") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunRequiresBatchAndOutput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(in, []byte("b\na\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout bytes.Buffer
	if code := run([]string{"-i", in}, &stdout); code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if _, err := os.Stat("sorted.txt"); !os.IsNotExist(err) {
		t.Errorf("a result was written to the current directory: %v", err)
	}
}

func TestRunFailure(t *testing.T) {
	var stdout bytes.Buffer
	code := run([]string{"-i", filepath.Join(t.TempDir(), "missing"), "-b", "10", "-o", "out.txt"}, &stdout)
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
}
