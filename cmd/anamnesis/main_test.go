package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGraph = `
id: discharge
text: Is there discharge?
yes:
  id: pain
  text: Is there pain?
  yes:
    id: acute
    text: Acute conjunctivitis
  no:
    id: allergic
    text: Allergic conjunctivitis
no:
  id: healthy
  text: No abnormality
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "anamnesis version "))
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeGraph(t, testGraph))
	require.NoError(t, err)
	assert.Contains(t, out, "Graph is valid! 5 nodes")

	broken := writeGraph(t, `
root: a
nodes:
  - {id: a, question: "A?", yes: b, no: ghost}
  - {id: b, diagnosis: "B"}
`)
	out, err = execute(t, "validate", broken)
	require.Error(t, err)
	assert.Contains(t, out, "ghost")
}

func TestDiagnosesCommand(t *testing.T) {
	out, err := execute(t, "diagnoses", writeGraph(t, testGraph))
	require.NoError(t, err)
	assert.Contains(t, out, "- Acute conjunctivitis (acute): discharge=yes → pain=yes")
	assert.Contains(t, out, "- No abnormality (healthy): discharge=no")
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", writeGraph(t, testGraph))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "Acute conjunctivitis")
}
