package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleA = "SampleA: {paired_aligned_none: 10, paired_aligned_one: 80, paired_aligned_multi: 5}\n"

// execute runs the root command with args, resetting flag state from any
// previous run first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOSTMETRICS_DATA_DIR", "")
	t.Setenv("HOSTMETRICS_OUTPUT", "")
	t.Setenv("HOSTMETRICS_SINGLE_END", "")
	t.Setenv("HOSTMETRICS_LOG_LEVEL", "error")

	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func workspace(t *testing.T, report string) (dataDir, outPath string) {
	t.Helper()
	ws := t.TempDir()
	dataDir = filepath.Join(ws, "multiqc_data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	if report != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, "multiqc_bowtie2.yaml"), []byte(report), 0644))
	}
	return dataDir, filepath.Join(ws, "host_removal_metrics.tsv")
}

func TestRootCmd_PairedEnd(t *testing.T) {
	dataDir, outPath := workspace(t, sampleA)

	_, err := execute(t, "--multiqc_data_dir", dataDir, "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t,
		"Sample\tPE reads not mapped concordantly (kept)\tPE reads mapped concordantly (discarded)\nSampleA\t10\t85\n",
		string(data))
}

func TestRootCmd_SingleEndAlias(t *testing.T) {
	dataDir, outPath := workspace(t, "S1: {unpaired_aligned_none: 4, unpaired_aligned_one: 1, unpaired_aligned_multi: 1}\n")

	_, err := execute(t, "--multiqc-data-dir", dataDir, "--single-end", "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "Sample\tSE reads not mapped (kept)\tSE reads mapped (discarded)\nS1\t4\t2\n", string(data))
}

func TestRootCmd_ShortFlags(t *testing.T) {
	dataDir, outPath := workspace(t, "S1: {unpaired_aligned_none: 4, unpaired_aligned_one: 1, unpaired_aligned_multi: 1}\n")

	_, err := execute(t, "-d", dataDir, "-s", "-o", outPath)
	require.NoError(t, err)
	_, err = os.Stat(outPath)
	assert.NoError(t, err)
}

func TestRootCmd_MissingInputSucceeds(t *testing.T) {
	dataDir, outPath := workspace(t, "")

	_, err := execute(t, "-d", dataDir, "-o", outPath)
	require.NoError(t, err)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRootCmd_MalformedYAMLFails(t *testing.T) {
	dataDir, outPath := workspace(t, "SampleA: [\n")

	_, err := execute(t, "-d", dataDir, "-o", outPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiqc_bowtie2.yaml")
}

func TestRootCmd_Summary(t *testing.T) {
	dataDir, outPath := workspace(t, sampleA)

	stdout, err := execute(t, "-d", dataDir, "-o", outPath, "--summary")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SampleA")
	assert.Contains(t, stdout, "85")
}

func TestRootCmd_NoSummaryByDefault(t *testing.T) {
	dataDir, outPath := workspace(t, sampleA)

	stdout, err := execute(t, "-d", dataDir, "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dataDir, outPath := workspace(t, "S1: {unpaired_aligned_none: 4, unpaired_aligned_one: 1, unpaired_aligned_multi: 1}\n")

	cfgPath := filepath.Join(t.TempDir(), "hostmetrics.yaml")
	cfgYAML := "multiqc_data_dir: " + dataDir + "\nsingle_end: true\noutput: " + outPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0644))

	_, err := execute(t, "--config", cfgPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Sample\tSE reads"))
}

func TestRootCmd_FlagsBeatConfigFile(t *testing.T) {
	dataDir, outPath := workspace(t, sampleA)

	cfgPath := filepath.Join(t.TempDir(), "hostmetrics.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("multiqc_data_dir: /nonexistent\noutput: /nonexistent/out.tsv\n"), 0644))

	_, err := execute(t, "-c", cfgPath, "-d", dataDir, "-o", outPath)
	require.NoError(t, err)
	_, err = os.Stat(outPath)
	assert.NoError(t, err)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "hostmetrics.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  format: xml\n"), 0644))

	_, err := execute(t, "-c", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "extra")
	assert.Error(t, err)
}
