package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/fbxdoc/document"
)

func writeDocument(t *testing.T, path string, doc *document.Document) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, document.Encode(f, doc, documentFormat(path)))
}

func TestJobOutPath(t *testing.T) {
	for _, tc := range []struct {
		job  Job
		want string
	}{
		{Job{In: "a/scene.fbx"}, "a/scene.json"},
		{Job{In: "scene.FBX", Out: "x.yaml"}, "x.yaml"},
		{Job{In: "scene.json"}, "scene.fbx"},
		{Job{In: "scene.yaml", Export: ExportOptions{Format: FormatGLB}}, "scene.glb"},
		{Job{In: "scene.gltf", Export: ExportOptions{Format: FormatGLTF}}, "scene.out.gltf"},
	} {
		assert.Equal(t, tc.want, tc.job.OutPath(), tc.job.In)
	}
}

func TestJobBothDirections(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.yaml")
	writeDocument(t, src, triangleDocument())

	out, err := Job{In: src, Export: ExportOptions{Format: FormatASCII}}.Run()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tri.fbx"), out)

	back := filepath.Join(dir, "back.json")
	out, err = Job{In: out, Out: back}.Run()
	require.NoError(t, err)
	assert.Equal(t, back, out)

	doc, err := Job{In: back}.Document()
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	assert.Len(t, doc.Meshes[0].Positions, 3)
}

func TestJobErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Job{In: filepath.Join(dir, "missing.json")}.Run()
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.fbx")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))
	_, err = Job{In: bad}.Run()
	var le *LoadError
	assert.ErrorAs(t, err, &le)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan error, 16)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, Job{In: src}, func(out string, err error) {
			select {
			case results <- err:
			default:
			}
		})
	}()

	// the watcher may start after the first write, so keep writing until a
	// conversion is reported
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case err := <-results:
			if err == nil {
				done = true
			}
		case <-ticker.C:
			writeDocument(t, src, triangleDocument())
		case <-deadline:
			require.FailNow(t, "no conversion reported")
		}
	}
	assert.FileExists(t, filepath.Join(dir, "tri.fbx"))

	cancel()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "watch did not stop")
	}
}
