package rv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.jsonc")
	content := `[
  // plate for comp
  {"objectName": "plate", "representation": "6f0c1b2a"},
  /* review movie */
  {"representation": "9d1e", "extension": "mov"},
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	requests, err := readBatch(path)
	require.NoError(t, err)
	assert.Equal(t, []protocol.LoadRequest{
		{ObjectName: "plate", Representation: "6f0c1b2a"},
		{Representation: "9d1e", Extension: "mov"},
	}, requests)
}

func TestReadBatch_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readBatch(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "read batch file")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"representation": "a"}`), 0o644))
	_, err = readBatch(bad)
	assert.ErrorContains(t, err, "parse batch file")

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`[{"objectName": "a"}]`), 0o644))
	_, err = readBatch(noID)
	assert.ErrorContains(t, err, "has no representation")
}

func TestClientFlags_Apply(t *testing.T) {
	base := config.Client{Name: "from-file"}
	require.NoError(t, base.ApplyDefaults())

	var flags clientFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "45200", "--timeout", "1s"}))

	cfg := base
	require.NoError(t, flags.Apply(&cfg))
	assert.Equal(t, 45200, cfg.Port)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "from-file", cfg.Name, "unset flags keep file values")
	assert.Equal(t, base.Host, cfg.Host)

	require.NoError(t, fs.Parse([]string{"--port", "70000"}))
	assert.Error(t, flags.Apply(&cfg))
}
