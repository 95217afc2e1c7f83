package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrpinto/gridastar"
	"github.com/pdrpinto/gridastar/internal/config"
)

func init() {
	color.NoColor = true
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func smallConfig(width, height int) config.Config {
	cfg := config.Default()
	cfg.Grid.Width = width
	cfg.Grid.Height = height
	cfg.Search.StepDelay = 0
	return cfg
}

func TestRenderGrid(t *testing.T) {
	grid, err := gridastar.NewGrid(4, 2, gridastar.Point{X: 0, Y: 0}, gridastar.Point{X: 3, Y: 0})
	require.NoError(t, err)
	require.NoError(t, grid.SetWall(1, 1, true))

	var out bytes.Buffer
	path := []gridastar.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	renderGrid(&out, grid.Snapshot(), path)
	assert.Equal(t, "S**T\n.#..\n", out.String())
}

func TestRunSolve_Text(t *testing.T) {
	cfg := smallConfig(5, 3)

	var out bytes.Buffer
	require.NoError(t, runSolve(context.Background(), &out, cfg, discardLogger(), false))

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, byte('S'), lines[0][0])
	assert.Equal(t, byte('T'), lines[2][4])
	assert.Contains(t, out.String(), "path found")
	assert.Contains(t, out.String(), "Cost: 4.828")
}

func TestRunSolve_JSON(t *testing.T) {
	cfg := smallConfig(4, 1)

	var out bytes.Buffer
	require.NoError(t, runSolve(context.Background(), &out, cfg, discardLogger(), true))

	var result solveResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, "found", result.State)
	assert.Equal(t, 3.0, result.Cost)
	assert.Len(t, result.Path, 4)
	assert.NotEmpty(t, result.RunID)
}

func TestRunSolve_NoPath(t *testing.T) {
	cfg := smallConfig(6, 6)
	cfg.Randomize.Enabled = true
	cfg.Randomize.Probability = 1
	cfg.Search.Frontier = "heap"

	var out bytes.Buffer
	require.NoError(t, runSolve(context.Background(), &out, cfg, discardLogger(), true))

	var result solveResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.False(t, result.Found)
	assert.Equal(t, "exhausted", result.State)
	assert.Empty(t, result.Path)
	assert.Contains(t, out.String(), `"path": []`)
}

func TestRunSolve_AlreadyAtTarget(t *testing.T) {
	cfg := smallConfig(3, 3)
	cfg.Grid.Start = config.Point{X: 2, Y: 2}

	err := runSolve(context.Background(), io.Discard, cfg, discardLogger(), false)
	require.ErrorIs(t, err, gridastar.ErrAlreadyAtTarget)
}

func TestRunServe(t *testing.T) {
	cfg := smallConfig(5, 5)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, &out, cfg, discardLogger(), ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/search/start", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Contains(t, out.String(), "serving on http://")
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "1.2.3\n", out.String())
}

func TestSolveCommand_Flags(t *testing.T) {
	t.Setenv("GRIDASTAR_WIDTH", "6")
	t.Setenv("GRIDASTAR_HEIGHT", "4")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"solve", "--json", "--frontier", "heap", "--heuristic", "octile", "--workers", "2"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	var result solveResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, gridastar.Point{X: 5, Y: 3}, result.Path[len(result.Path)-1])
	assert.InDelta(t, 2+3*math.Sqrt2, result.Cost, 1e-9)
}

func TestSolveCommand_BadFrontier(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"solve", "--frontier", "bucket"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.ErrorContains(t, Execute(), "unknown frontier")
}

func TestSolveCommand_BadHeuristic(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"solve", "--heuristic", "manhattan"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.ErrorContains(t, Execute(), "unknown heuristic")
}
