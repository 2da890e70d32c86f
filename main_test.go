package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/swarf/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cli(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, log.New(io.Discard, "", 0))
	return out.String(), err
}

func writeCube(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cube.stl")
	require.NoError(t, mesh.Save(path, mesh.Cuboid("cube", v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 2})))
	return path
}

func TestCLISTLToGCode(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)

	out, err := cli(t, "--first-layer", "0.5", "--report", in)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "cube.gcode"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "G21\nG90\n"))
	assert.Contains(t, string(data), "G1 Z1.5")
	assert.Contains(t, out, "segments:       16 [8 8]")
}

func TestCLITopOrigin(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)

	_, err := cli(t, "--first-layer", "0.5", "--z-origin", "top", in)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "cube.gcode"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "G0 Z5\n")
	assert.Contains(t, string(data), "G1 Z-1.5")
}

func TestCLIOutputFlagAndProfile(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)
	profile := filepath.Join(dir, "machine.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("safe-z: 12\ntool-number: 4\nfirst-layer: 0.5\n"), 0o644))
	out := filepath.Join(dir, "custom.nc")

	_, err := cli(t, "--config", profile, "-o", out, "--annotate", in)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "T4 M6\nG0 Z14\n")
	assert.Contains(t, text, "; layer 0 z=0.5")
}

func TestCLIPlanningErrorLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)

	_, err := cli(t, "--depth-per-pass", "0", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth-per-pass")
	assert.NoFileExists(t, filepath.Join(dir, "cube.gcode"))
}

func TestCLIScript(t *testing.T) {
	dir := t.TempDir()
	writeCube(t, dir)
	script := filepath.Join(dir, "jobs.swarf")
	require.NoError(t, os.WriteFile(script, []byte(`
(def cutter (tool :diameter 2 :total-depth 1 :depth-per-pass 0.5))
(job :name "outline" :input "cube.stl" :tool cutter :compensation :outside :first-layer 0.5)
(job :name "pocket" :input "cube.stl" :tool cutter :strategy :pocket :compensation :inside
     :output "out/pocket.nc")
`), 0o644))

	previews := filepath.Join(dir, "plots")
	_, err := cli(t, "--preview", previews, script)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "outline.gcode"))
	assert.FileExists(t, filepath.Join(dir, "out", "pocket.nc"))
	assert.FileExists(t, filepath.Join(previews, "outline_000.png"))
	assert.FileExists(t, filepath.Join(previews, "pocket_001.png"))
}

func TestCLIJSON(t *testing.T) {
	dir := t.TempDir()
	writeCube(t, dir)
	script := filepath.Join(dir, "jobs.swarf")
	require.NoError(t, os.WriteFile(script, []byte(`
(job :name "outline" :input "cube.stl" :first-layer 0.5)
(job :name "missing" :input "nope.stl")
`), 0o644))

	out, err := cli(t, "--json", script)
	require.NoError(t, err)

	var res EvalResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Jobs, 2)
	assert.Empty(t, res.Jobs[0].Error)
	assert.Equal(t, filepath.Join(dir, "cube.stl"), res.Jobs[0].Source)
	assert.Contains(t, res.Jobs[0].GCode, "G1 Z0.5")
	assert.NotEmpty(t, res.Jobs[1].Error)
	assert.NoFileExists(t, filepath.Join(dir, "outline.gcode"))

	_, err = cli(t, "--json", filepath.Join(dir, "cube.stl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--json needs")
}

func TestCLIScriptErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.swarf")
	require.NoError(t, os.WriteFile(bad, []byte(`(job :speed 3)`), 0o644))
	_, err := cli(t, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keyword :speed")

	empty := filepath.Join(dir, "empty.swarf")
	require.NoError(t, os.WriteFile(empty, []byte(`;; nothing`), 0o644))
	_, err = cli(t, empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no jobs")
}

func TestCLIHeightmap(t *testing.T) {
	dir := t.TempDir()
	in := writeCube(t, dir)
	hm := filepath.Join(dir, "cube.png")

	_, err := cli(t, "--heightmap", hm, "--width", "32", "--height", "16", in)
	require.NoError(t, err)
	assert.FileExists(t, hm)
	assert.NoFileExists(t, filepath.Join(dir, "cube.gcode"))
}

func TestCLIStock(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "stock.stl")

	_, err := cli(t, "--cells", "20", "--stock", "20x10x4", "-o", out)
	require.NoError(t, err)

	m, err := mesh.Load(out)
	require.NoError(t, err)
	b := m.Bounds()
	assert.InDelta(t, 0, b.Max.Z, 0.5)
	assert.InDelta(t, -4, b.Min.Z, 0.5)
}

func TestCLIUsageErrors(t *testing.T) {
	_, err := cli(t)
	assert.ErrorContains(t, err, "expected one input file")

	_, err = cli(t, "--no-such-flag", "x.stl")
	assert.Error(t, err)

	_, err = cli(t, "--stock", "20x10")
	assert.ErrorContains(t, err, "want WxHxD")

	out, err := cli(t, "--help")
	assert.NoError(t, err)
	assert.Contains(t, out, "--depth-per-pass")
}

func TestParseSize(t *testing.T) {
	x, y, z, err := parseSize("20x10.5X 4")
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 10.5, 4}, []float64{x, y, z})

	_, _, _, err = parseSize("axbxc")
	assert.Error(t, err)
}
