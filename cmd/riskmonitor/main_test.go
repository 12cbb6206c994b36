package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/riskmonitor/internal/config"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

const volatileSnapshot = `
market:
  price: 450
  vix: 42
  volume: 1000000
trades:
  - id: call-1
    type: CALL
    status: active
    strikePrice: 455
    entryPrice: 5
    currentPrice: 6
    quantity: 2
    expirationDate: 2024-04-19T00:00:00Z
  - id: put-1
    type: PUT
    status: active
    strikePrice: 440
    entryPrice: 4
    currentPrice: 3
    quantity: 1
    expirationDate: 2024-04-19T00:00:00Z
options:
  - id: p-445
    type: PUT
    strikePrice: 445
    premium: 3.2
    expirationDate: 2024-04-19T00:00:00Z
`

// testEnv is a temporary directory holding a config file and inputs
type testEnv struct {
	dir     string
	logPath string
	config  string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{dir: dir, logPath: filepath.Join(dir, "data", "log.json")}

	body := fmt.Sprintf(`
app:
  log_level: error
monitoring:
  risk_tolerance: conservative
metrics:
  enabled: false
alerts:
  enabled: false
persistence:
  backends: [file]
  file_path: %s
%s`, env.logPath, extra)
	env.config = env.write(t, "riskmonitor.yaml", body)
	return env
}

func (e *testEnv) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (e *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.config, "--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *testEnv) persistedLog(t *testing.T) monitoring.MonitoringLog {
	t.Helper()
	data, err := os.ReadFile(e.logPath)
	require.NoError(t, err)
	parsed, err := monitoring.ParseLog(data)
	require.NoError(t, err)
	return parsed
}

func decodeResult(t *testing.T, out string) monitoring.CycleResult {
	t.Helper()
	var result monitoring.CycleResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "riskmonitor "+config.Version)
}

func TestRunCmdPersistsLog(t *testing.T) {
	env := newTestEnv(t, "")
	snapshot := env.write(t, "snapshot.yaml", volatileSnapshot)

	out, err := env.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)

	result := decodeResult(t, out)
	require.NotEmpty(t, result.Signals)
	require.NotEmpty(t, result.Actions)
	assert.Equal(t, monitoring.ToleranceConservative, result.Actions[0].UserRiskTolerance)
	assert.False(t, result.Applied)

	first := env.persistedLog(t)
	assert.Len(t, first.Signals, len(result.Signals))

	// The second run restores the first run's log before appending
	_, err = env.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)
	assert.Len(t, env.persistedLog(t).Signals, 2*len(result.Signals))
}

func TestRunCmdApply(t *testing.T) {
	env := newTestEnv(t, "")
	snapshot := env.write(t, "snapshot.yaml", volatileSnapshot)

	out, err := env.execute(t, "run", "--input", snapshot, "--apply")
	require.NoError(t, err)
	assert.True(t, decodeResult(t, out).Applied)
}

func TestRunCmdAcceptsJSON(t *testing.T) {
	env := newTestEnv(t, "")
	snapshot := env.write(t, "snapshot.json", `{"market":{"price":450,"vix":12},"riskTolerance":"aggressive"}`)

	out, err := env.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)
	result := decodeResult(t, out)
	require.NotEmpty(t, result.Signals)
	assert.Equal(t, monitoring.DirectionBullish, result.Signals[0].Direction)
}

func TestRunCmdRejectsInvalidSnapshot(t *testing.T) {
	env := newTestEnv(t, "")
	snapshot := env.write(t, "snapshot.yaml", "market:\n  price: -1\n")

	_, err := env.execute(t, "run", "--input", snapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid snapshot")
	assert.NoFileExists(t, env.logPath)

	_, err = env.execute(t, "run")
	assert.Error(t, err, "input is required")
}

func TestLearnCmd(t *testing.T) {
	env := newTestEnv(t, "")
	snapshot := env.write(t, "snapshot.yaml", volatileSnapshot)
	_, err := env.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)

	outcomes := env.write(t, "outcomes.yaml", `
trades:
  - id: call-1
    status: closed
    profit: 120
  - id: put-1
    status: closed
    profit: 40
`)
	out, err := env.execute(t, "learn", "--input", outcomes)
	require.NoError(t, err)

	var insights []monitoring.LearningInsight
	require.NoError(t, json.Unmarshal([]byte(out), &insights))
	require.NotEmpty(t, insights)
	assert.Equal(t, 1.0, insights[0].SuccessRate)
	assert.Len(t, env.persistedLog(t).LearningInsights, len(insights))
}

func TestExportImportCmds(t *testing.T) {
	source := newTestEnv(t, "")
	snapshot := source.write(t, "snapshot.yaml", volatileSnapshot)
	_, err := source.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)

	exportPath := filepath.Join(source.dir, "export.json")
	_, err = source.execute(t, "export", "--output", exportPath)
	require.NoError(t, err)

	target := newTestEnv(t, "")
	_, err = target.execute(t, "import", "--input", exportPath)
	require.NoError(t, err)

	out, err := target.execute(t, "export")
	require.NoError(t, err)
	exported, err := monitoring.ParseLog([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, source.persistedLog(t).Signals, exported.Signals)
}

func TestImportCmdRejectsInvalidLog(t *testing.T) {
	env := newTestEnv(t, "")
	bad := env.write(t, "bad.json", `{"version":"2.0.0","signals":[],"actions":[],"learningInsights":[]}`)

	_, err := env.execute(t, "import", "--input", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing import")
	assert.NoFileExists(t, env.logPath)
}

func TestExportCmdEmptyLog(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.execute(t, "export")
	require.NoError(t, err)
	exported, err := monitoring.ParseLog([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, exported.Signals)
}

func TestRunCmdWithRedisAndEvents(t *testing.T) {
	mr := miniredis.RunT(t)

	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	go ns.Start()
	t.Cleanup(ns.Shutdown)
	require.True(t, ns.ReadyForConnections(5*time.Second))

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	received := make(chan *nats.Msg, 64)
	_, err = nc.ChanSubscribe("riskmonitor.>", received)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	env := newTestEnv(t, fmt.Sprintf(`
redis:
  enabled: true
  host: %s
  port: %s
  key: test:log
nats:
  enabled: true
  url: %s
`, mr.Host(), mr.Port(), ns.ClientURL()))
	// Overrides the file-only backend list above
	env.config = env.write(t, "riskmonitor.yaml",
		strings.Replace(mustRead(t, env.config), "backends: [file]", "backends: [file, redis]", 1))

	snapshot := env.write(t, "snapshot.yaml", volatileSnapshot)
	out, err := env.execute(t, "run", "--input", snapshot)
	require.NoError(t, err)
	result := decodeResult(t, out)

	stored, err := mr.Get("test:log")
	require.NoError(t, err)
	parsed, err := monitoring.ParseLog([]byte(stored))
	require.NoError(t, err)
	assert.Len(t, parsed.Signals, len(result.Signals))

	subjects := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for !subjects["riskmonitor.cycles"] || !subjects["riskmonitor.signals.volatility"] {
		select {
		case msg := <-received:
			subjects[msg.Subject] = true
		case <-deadline:
			t.Fatalf("cycle and volatility signal events not both received, got %v", subjects)
		}
	}
}

func TestOpenBackendsRejectsUnknown(t *testing.T) {
	cfg := &config.Config{Persistence: config.PersistenceConfig{Backends: []string{"s3"}}}
	_, err := openBackends(t.Context(), cfg)
	assert.ErrorContains(t, err, `unknown persistence backend "s3"`)

	cfg.Persistence.Backends = nil
	_, err = openBackends(t.Context(), cfg)
	assert.Error(t, err)
}

func TestDecodeSnapshotKeepsDefaults(t *testing.T) {
	defaults := monitoring.CycleInput{
		Settings:      monitoring.DefaultSettings(),
		RiskTolerance: monitoring.ToleranceModerate,
	}

	in, err := decodeSnapshot([]byte("market:\n  price: 100\nsettings:\n  defaultStopLossPct: 0.1\n"), defaults)
	require.NoError(t, err)
	assert.Equal(t, 100.0, in.Market.Price)
	assert.Equal(t, 0.1, in.Settings.DefaultStopLossPct)
	assert.Equal(t, 0.5, in.Settings.DefaultTakeProfitPct)
	assert.True(t, in.Settings.AutoAdjustVolatility)
	assert.Equal(t, monitoring.ToleranceModerate, in.RiskTolerance)

	in, err = decodeSnapshot([]byte(`{"market":{"price":101},"riskTolerance":"aggressive"}`), defaults)
	require.NoError(t, err)
	assert.Equal(t, 101.0, in.Market.Price)
	assert.Equal(t, monitoring.ToleranceAggressive, in.RiskTolerance)

	_, err = decodeSnapshot([]byte("  "), defaults)
	assert.Error(t, err)
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
