package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/config"
	"github.com/ssargent/minewatch/pkg/di"
	"github.com/ssargent/minewatch/pkg/ingest"
	"github.com/ssargent/minewatch/pkg/pattern"
	"github.com/ssargent/minewatch/pkg/table"
)

const sampleReading = `{"GroundNum":"ABC_123_4567","HelmetNum":"0001","Spo2Level":97,"Temperature":36,"GasLevel":120,"HeartRate":72}`

// scriptedBroker delivers queued payloads on Subscribe, then calls done
type scriptedBroker struct {
	mu        sync.Mutex
	payloads  []string
	published []string
	done      func()
}

func (b *scriptedBroker) Subscribe(topic string, _ byte, handler ingest.MessageHandler) error {
	for _, p := range b.payloads {
		handler(topic, []byte(p))
	}
	if b.done != nil {
		b.done()
	}
	return nil
}

func (b *scriptedBroker) Unsubscribe(...string) error { return nil }

func (b *scriptedBroker) Publish(_ string, _ byte, _ bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, string(payload))
	return nil
}

func (b *scriptedBroker) Disconnect() {}

// resetCommand clears flag state and contexts left over from earlier executions
func resetCommand(c *cobra.Command, ctx context.Context) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		resetCommand(sub, ctx)
	}
}

func setup(t *testing.T, broker ingest.Broker) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	opts := []di.Option{
		di.WithLogger(zap.NewNop()),
		di.WithCodec(codec.NewReadingCodec(pattern.NewSeeded(3))),
	}
	if broker != nil {
		opts = append(opts, di.WithBrokerFactory(func(config.MQTT, *zap.Logger) (ingest.Broker, error) {
			return broker, nil
		}))
	}
	SetContainerOptions(opts...)
	t.Cleanup(func() { SetContainerOptions() })
}

func run(ctx context.Context, stdin string, args ...string) (string, error) {
	resetCommand(rootCmd, ctx)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := executeContext(ctx)
	return buf.String(), err
}

func execute(args ...string) (string, error) {
	return run(context.Background(), "", args...)
}

func lines(out string) []string {
	return strings.Split(strings.TrimSpace(out), "\n")
}

func decodeLines(t *testing.T, out string) []codec.WorkerReading {
	t.Helper()

	rc := codec.NewReadingCodec(nil)
	var readings []codec.WorkerReading
	for _, line := range lines(out) {
		r, err := rc.DecodeText([]byte(line))
		require.NoError(t, err, line)
		readings = append(readings, r)
	}
	return readings
}

func TestGenerate(t *testing.T) {
	setup(t, nil)

	out, err := execute("generate", "-n", "3")
	require.NoError(t, err)
	readings := decodeLines(t, out)
	require.Len(t, readings, 3)
	for _, r := range readings {
		assert.NoError(t, r.Validate())
	}

	out, err = execute("generate", "--format", "attributes")
	require.NoError(t, err)
	var attrs codec.AttributeMap
	require.NoError(t, attrs.UnmarshalJSON([]byte(strings.TrimSpace(out))))
	assert.ElementsMatch(t, codec.Fields, attrs.Keys())

	_, err = execute("generate", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestTableCommands(t *testing.T) {
	setup(t, nil)
	dir := t.TempDir()

	out, err := execute("--data-dir", dir, "table", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Created table WorkerReadings (partition key PrimKey, sort key GroundNum)")

	_, err = execute("--data-dir", dir, "table", "create")
	assert.ErrorIs(t, err, table.ErrTableExists)

	_, err = execute("--data-dir", dir, "table", "create", "NightShift")
	require.NoError(t, err)

	out, err = execute("--data-dir", dir, "table", "list")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NightShift", "WorkerReadings"}, lines(out))

	out, err = execute("--data-dir", dir, "table", "delete", "NightShift")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted table NightShift")

	_, err = execute("--data-dir", dir, "table", "delete", "NightShift")
	assert.ErrorIs(t, err, table.ErrTableNotFound)

	out, err = execute("--data-dir", dir, "table", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"WorkerReadings"}, lines(out))
}

func TestReadingCommands(t *testing.T) {
	setup(t, nil)
	dir := t.TempDir()

	_, err := execute("--data-dir", dir, "put", sampleReading)
	assert.ErrorIs(t, err, table.ErrTableNotFound)

	_, err = execute("--data-dir", dir, "table", "create")
	require.NoError(t, err)

	out, err := execute("--data-dir", dir, "put", sampleReading)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored reading ABC_123_45670001")

	_, err = run(context.Background(), `{"GroundNum":"XYZ_987_6543","HelmetNum":"0002","Spo2Level":90,"Temperature":40,"GasLevel":500,"HeartRate":88}`,
		"--data-dir", dir, "put", "-")
	require.NoError(t, err)

	_, err = execute("--data-dir", dir, "put")
	require.NoError(t, err)

	out, err = execute("--data-dir", dir, "scan")
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, out), 3)

	out, err = execute("--data-dir", dir, "query", "ABC_123_45670001")
	require.NoError(t, err)
	found := decodeLines(t, out)
	require.Len(t, found, 1)
	assert.Equal(t, codec.WorkerReading{
		GroundNum: "ABC_123_4567", HelmetNum: "0001", Spo2Level: 97, Temperature: 36, GasLevel: 120, HeartRate: 72,
	}, found[0])

	out, err = execute("--data-dir", dir, "delete", "ABC_123_45670001", "ABC_123_4567")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted reading ABC_123_45670001")

	_, err = execute("--data-dir", dir, "query", "ABC_123_45670001")
	assert.ErrorContains(t, err, "no readings for key")
}

func TestPutRejectsBadReadings(t *testing.T) {
	setup(t, nil)
	dir := t.TempDir()
	_, err := execute("--data-dir", dir, "table", "create")
	require.NoError(t, err)

	_, err = execute("--data-dir", dir, "put", `{"GroundNum":"abc","HelmetNum":"0001","Spo2Level":1,"Temperature":1,"GasLevel":1,"HeartRate":1}`)
	assert.ErrorIs(t, err, codec.ErrInvalidReading)

	_, err = execute("--data-dir", dir, "put", `{"GroundNum":"ABC_123_4567"}`)
	var malformed *codec.MalformedTextError
	assert.ErrorAs(t, err, &malformed)
}

func TestConfigFlags(t *testing.T) {
	setup(t, nil)

	_, err := execute("--backend", "sqlite", "generate")
	assert.ErrorContains(t, err, "unknown backend")

	_, err = execute("--table", "x", "generate")
	assert.ErrorContains(t, err, "invalid table name")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Table = "FromFile"
	cfg.Pebble.DataDir = t.TempDir()
	require.NoError(t, config.SaveConfig(cfg, configPath))

	out, err := execute("--config", configPath, "table", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Created table FromFile")
}

func TestSimulateIntoStore(t *testing.T) {
	setup(t, nil)
	dir := t.TempDir()

	out, err := execute("--data-dir", dir, "simulate", "--count", "5", "--interval", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "sent 5, failed 0")

	out, err = execute("--data-dir", dir, "scan")
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, out), 5)

	_, err = execute("--data-dir", dir, "simulate", "--count", "-1")
	assert.ErrorContains(t, err, "must not be negative")
}

func TestSimulateOntoMQTT(t *testing.T) {
	broker := &scriptedBroker{}
	setup(t, broker)

	out, err := execute("--in-memory", "simulate", "--sink", "mqtt", "-n", "4", "--interval", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "sent 4, failed 0")
	assert.Len(t, decodeLines(t, strings.Join(broker.published, "\n")), 4)
}

func TestIngest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := &scriptedBroker{
		payloads: []string{sampleReading, `{"GroundNum":`},
		done:     cancel,
	}
	setup(t, broker)
	dir := t.TempDir()

	out, err := run(ctx, "", "--data-dir", dir, "ingest", "--topic", "site-7/helmets")
	require.NoError(t, err)
	assert.Contains(t, out, "Received 2, stored 1, rejected 1, failed 0")

	out, err = execute("--data-dir", dir, "query", "ABC_123_45670001")
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, out), 1)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe(t *testing.T) {
	setup(t, nil)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := run(ctx, "", "--in-memory", "serve", "--port", fmt.Sprint(port), "--api-key", "secret")
		errCh <- err
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("X-API-Key", "secret")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestInitCommand(t *testing.T) {
	setup(t, nil)
	configPath := filepath.Join(t.TempDir(), "minewatch", "config.yaml")
	dataDir := filepath.Join(t.TempDir(), "data")

	out, err := execute("init", "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration to "+configPath)
	assert.Contains(t, out, "API key: ")

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.Pebble.DataDir)
	assert.Len(t, cfg.Server.APIKey, 64)
	assert.Contains(t, out, cfg.Server.APIKey)

	_, err = execute("init", "--config", configPath)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute("init", "--config", configPath, "--force")
	require.NoError(t, err)
	reloaded, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Server.APIKey, reloaded.Server.APIKey)
}

func TestInitDefaultPath(t *testing.T) {
	setup(t, nil)

	_, err := execute("init")
	require.NoError(t, err)
	assert.True(t, config.ConfigExists(config.GetDefaultConfigPath()))
	assert.True(t, strings.HasPrefix(config.GetDefaultConfigPath(), os.Getenv("HOME")))
}

func TestUpBootstrapsConfig(t *testing.T) {
	setup(t, nil)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	dataDir := t.TempDir()
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := run(ctx, "", "up", "--config", configPath, "--data-dir", dataDir, "--port", fmt.Sprint(port))
	require.NoError(t, err)
	assert.Contains(t, out, "Created new configuration at "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.Pebble.DataDir)
	assert.Len(t, cfg.Server.APIKey, 64)
}

func TestRenderSystemdUnit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pebble.DataDir = "/var/lib/minewatch"

	unit := renderSystemdUnit(cfg, "/etc/minewatch/config.yaml", "minewatch", "/usr/local/bin/minewatch")
	assert.Contains(t, unit, "User=minewatch")
	assert.Contains(t, unit, "Group=minewatch")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/minewatch up --config /etc/minewatch/config.yaml")
	assert.Contains(t, unit, "ReadWritePaths=/etc/minewatch\n")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/minewatch\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target")

	cfg.Backend = config.BackendRedis
	unit = renderSystemdUnit(cfg, "/etc/minewatch/config.yaml", "minewatch", "/usr/local/bin/minewatch")
	assert.NotContains(t, unit, "/var/lib/minewatch")
}

func TestCreateSystemdUnit(t *testing.T) {
	old := unitPath
	unitPath = filepath.Join(t.TempDir(), serviceName)
	t.Cleanup(func() { unitPath = old })

	require.NoError(t, createSystemdUnit(config.DefaultConfig(), "/etc/minewatch/config.yaml", "ops", "/opt/minewatch"))

	content, err := os.ReadFile(unitPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "User=ops")
	info, err := os.Stat(unitPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJournalArgs(t *testing.T) {
	assert.Equal(t, []string{"-u", serviceName}, journalArgs(false, 0))
	assert.Equal(t, []string{"-u", serviceName, "-f", "-n50"}, journalArgs(true, 50))
}
