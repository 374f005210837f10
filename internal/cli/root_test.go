package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdor/preview/internal/cli/config"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

// inTempDir runs the test from an empty directory so no docdor.yaml or .env leaks in.
func inTempDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, name := range []string{config.ViteBackendURLEnv, "DOCDOR_BACKEND_URL", "DOCDOR_DOCTOR_ID", "DOCDOR_OUTPUT"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "metrics", "render", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "backend-url", "doctor", "output", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCommand_MetricsEndToEnd(t *testing.T) {
	inTempDir(t)

	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte(`{"totals":{"appointments":7,"completed":2}}`))
	}))
	t.Cleanup(srv.Close)

	out, err := runRoot(t, "metrics", "--backend-url", srv.URL, "--doctor", "dr-root", "-o", "json")
	require.NoError(t, err)

	var report struct {
		DoctorID string `json:"doctor_id"`
		State    string `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "dr-root", report.DoctorID)
	assert.Equal(t, "loaded", report.State)
	assert.Equal(t, "/metrics/doctor/dr-root", gotPath.Load())
}

func TestRootCommand_ViteEnvFile(t *testing.T) {
	inTempDir(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totals":{"appointments":9}}`))
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, os.WriteFile(".env", []byte("VITE_BACKEND_URL="+srv.URL+"\n"), 0600))

	out, err := runRoot(t, "metrics", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"appointments": "9"`)
}

func TestRootCommand_InvalidBackendURL(t *testing.T) {
	inTempDir(t)

	_, err := runRoot(t, "metrics", "--backend-url", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend_url")
}

func TestRootCommand_Version(t *testing.T) {
	out, err := runRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "docdor "+Version)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := runRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "docdor")
		})
	}

	_, err := runRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}
