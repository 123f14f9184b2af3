package bigsort

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/tamirms/bigsort/internal/tempfiles"
)

// writeInput writes lines, each terminated by '\n', to dir/name.
func writeInput(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// readResult returns the lines of a result file. Every line must end in '\n'.
func readResult(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		return nil
	}
	if data[len(data)-1] != '\n' {
		t.Fatalf("%s does not end with a newline", path)
	}
	return strings.Split(string(data[:len(data)-1]), "\n")
}

// descendingDigits returns "9", "8", ..., "0".
func descendingDigits() []string {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fmt.Sprint(9 - i)
	}
	return lines
}

// randomLines returns n deterministic pseudo-random lines of 1..maxLen
// printable characters. Duplicates are likely for small alphabets.
func randomLines(rng *rand.Rand, n, maxLen int) []string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 .,-"
	lines := make([]string, n)
	for i := range lines {
		b := make([]byte, 1+rng.IntN(maxLen))
		for j := range b {
			b[j] = alphabet[rng.IntN(len(alphabet))]
		}
		lines[i] = string(b)
	}
	return lines
}

// sortedConcat returns all lines of all groups in sorted order.
func sortedConcat(groups ...[]string) []string {
	var all []string
	for _, g := range groups {
		all = append(all, g...)
	}
	slices.Sort(all)
	return all
}

// assertNoJobFiles fails if any file in dir still carries prefix.
func assertNoJobFiles(t *testing.T, dir, prefix string) {
	t.Helper()
	left, err := tempfiles.List(dir, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) > 0 {
		t.Errorf("%d temp files left behind: %v", len(left), left)
	}
}

// assertSameLines compares two line slices and reports the first difference.
func assertSameLines(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
