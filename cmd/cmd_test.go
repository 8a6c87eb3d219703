package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
)

// cmdEnv points the commands at a private database and config file
type cmdEnv struct {
	dir    string
	db     string
	config string
}

func newCmdEnv(t *testing.T) *cmdEnv {
	t.Helper()
	dir := t.TempDir()
	return &cmdEnv{
		dir:    dir,
		db:     filepath.Join(dir, "msghelp.db"),
		config: filepath.Join(dir, "config.yaml"),
	}
}

// run executes the root command with the env's store and config appended
func (e *cmdEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	full := append(append([]string{}, args...), "--config", e.config, "--db", e.db)
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(full)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), err
}

// resetFlags restores flag variables that survive between Execute calls
func resetFlags() {
	verbose = false
	configPath, storeType, storePath, redisAddr = "", "", "", ""
	historyYes = false
	format, outputPath, sessionID = "json", "", ""
	healthcheckDetails = false
	inspectPreview = 200
	pageURL = "https://web.whatsapp.com/"
	scanSuggest = false
	selftestRequest = false
	suggestMode = ""
	listenAddr, quiet = "", false
}
