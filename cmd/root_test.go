package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"analyze", "dbrun", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "site-analysis-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	flag := analyzeCmd.Flags().Lookup("input")
	require.NotNil(t, flag, "analyze command should have --input flag")

	format := analyzeCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "auto", format.DefValue)

	outFormat := analyzeCmd.Flags().Lookup("output-format")
	require.NotNil(t, outFormat)
	assert.Equal(t, "csv", outFormat.DefValue)

	presets := analyzeCmd.Flags().Lookup("presets-file")
	require.NotNil(t, presets)
	assert.Equal(t, "presets.yaml", presets.DefValue)
}

func TestDbrunCommand_Flags(t *testing.T) {
	for _, name := range []string{"driver", "dsn", "table", "output", "output-format", "write-table"} {
		assert.NotNil(t, dbrunCmd.Flags().Lookup(name), "dbrun should have --%s flag", name)
	}

	publish := dbrunCmd.Flags().Lookup("publish")
	require.NotNil(t, publish)
	assert.Equal(t, "false", publish.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
