package scene

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForPointCloudPly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := ForPointCloud(filepath.Join(dir, "Rice-10.ply"), filepath.Join(dir, "Rice-10.fo3d"), UpNegY)
	require.NoError(t, err)

	assert.Equal(t, UpNegY, s.Camera.Up)
	require.Len(t, s.Children, 1)
	mesh, ok := s.Children[0].(*PlyMesh)
	require.True(t, ok, "expected *PlyMesh, got %T", s.Children[0])
	assert.Equal(t, "mesh", mesh.Name)
	assert.Equal(t, "Rice-10.ply", mesh.PlyPath)
	assert.True(t, mesh.IsPointCloud)
	assert.True(t, mesh.CenterGeometry)
	assert.NotNil(t, mesh.DefaultMaterial)
}

func TestForPointCloudPcdAndUnsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := ForPointCloud(filepath.Join(dir, "clouds", "a.pcd"), filepath.Join(dir, "a.fo3d"), UpZ)
	require.NoError(t, err)
	pc, ok := s.Children[0].(*PointCloud)
	require.True(t, ok)
	assert.Equal(t, "clouds/a.pcd", pc.PcdPath)

	_, err = ForPointCloud(filepath.Join(dir, "a.obj"), filepath.Join(dir, "a.fo3d"), UpZ)
	assert.True(t, errors.Is(err, ErrUnsupportedAsset))

	_, err = ForPointCloud(filepath.Join(dir, "a.ply"), filepath.Join(dir, "a.fo3d"), "up")
	assert.Error(t, err)
}

func TestWriteProducesViewerFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Maize-1.fo3d")
	s, err := ForPointCloud(filepath.Join(dir, "Maize-1.ply"), path, UpNegY)
	require.NoError(t, err)
	require.NoError(t, s.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "Scene", doc["_type"])
	camera := doc["camera"].(map[string]any)
	assert.Equal(t, "-Y", camera["up"])
	child := doc["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "PlyMesh", child["_type"])
	assert.Equal(t, true, child["is_point_cloud"])
	assert.Equal(t, true, child["center_geometry"])
	assert.Equal(t, "Maize-1.ply", child["ply_path"])
}

func TestWriteOverwritesAndReadRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Rice-10.fo3d")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	s, err := ForPointCloud(filepath.Join(dir, "Rice-10.ply"), path, UpNegY)
	require.NoError(t, err)
	require.NoError(t, s.Write(path))

	got, err := Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatalf("scene mismatch after round trip (-want +got):\n%s", diff)
	}
}
