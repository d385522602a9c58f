// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/sbom"
)

// executeCommandNoPreRun is for testing argument and flag validation without
// triggering the config loading in PersistentPreRunE.
func executeCommandNoPreRun(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.PersistentPreRunE = nil // Disable config loading for simple validation tests.
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestCollectCmd_RequiredArgs(t *testing.T) {
	output, err := executeCommandNoPreRun(t, "collect")
	require.Error(t, err)
	assert.Contains(t, output, "accepts 1 arg(s), received 0")
}

func TestCompareCmd_RejectsExtraArgs(t *testing.T) {
	_, err := executeCommandNoPreRun(t, "compare", "a.json", "b.json")
	require.Error(t, err)
}

func TestSnapshotsCmd_HasSubcommands(t *testing.T) {
	var snapshots []string
	for _, c := range rootCmd.Commands() {
		if c.Use == "snapshots" {
			for _, sub := range c.Commands() {
				snapshots = append(snapshots, sub.Name())
			}
		}
	}
	assert.ElementsMatch(t, []string{"list", "prune", "archive"}, snapshots)
}

func TestRenderSBOMFormats(t *testing.T) {
	g := sbom.NewGenerator("demo", "1.0.0")
	for _, format := range []string{"cyclonedx-json", "cyclonedx-xml", "spdx-json", "spdx-yaml"} {
		out, err := renderSBOM(g, format, nil)
		require.NoError(t, err, format)
		assert.NotEmpty(t, out, format)
	}

	_, err := renderSBOM(g, "sarif", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported SBOM format")
}

func TestScanConcurrencyFlag(t *testing.T) {
	t.Run("flag overrides loaded config", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)

		cmd := newScanCmd()
		require.NoError(t, cmd.Flags().Set("concurrency", "7"))
		require.NoError(t, v.BindPFlag("scan.concurrency", cmd.Flags().Lookup("concurrency")))

		got := effectiveScanConfig(config.NewDefaultConfig().Scan, v.GetInt("scan.concurrency"))
		assert.Equal(t, 7, got.Concurrency)
	})

	t.Run("unset flag keeps config value", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)
		v.Set("scan.concurrency", 5)

		cmd := newScanCmd()
		require.NoError(t, v.BindPFlag("scan.concurrency", cmd.Flags().Lookup("concurrency")))

		base := config.NewDefaultConfig().Scan
		base.Concurrency = 5
		got := effectiveScanConfig(base, v.GetInt("scan.concurrency"))
		assert.Equal(t, 5, got.Concurrency)
	})

	t.Run("zero override is ignored", func(t *testing.T) {
		base := config.NewDefaultConfig().Scan
		got := effectiveScanConfig(base, 0)
		assert.Equal(t, base.Concurrency, got.Concurrency)
	})
}

func TestGateVerdict(t *testing.T) {
	cases := []struct {
		overall schemas.Status
		failOn  string
		wantErr bool
	}{
		{schemas.StatusWithin, "critical", false},
		{schemas.StatusWarning, "critical", false},
		{schemas.StatusCritical, "critical", true},
		{schemas.StatusWithin, "warning", false},
		{schemas.StatusWarning, "warning", true},
		{schemas.StatusCritical, "warning", true},
		{schemas.StatusCritical, "none", false},
	}

	for _, tc := range cases {
		err := gateVerdict(tc.overall, tc.failOn)
		if tc.wantErr {
			require.Error(t, err, "%s/%s", tc.overall, tc.failOn)
			assert.ErrorIs(t, err, errGateFailed)
		} else {
			assert.NoError(t, err, "%s/%s", tc.overall, tc.failOn)
		}
	}
}
