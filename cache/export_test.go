package cache

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/kjk/scancache/u"
)

func TestExportImport(t *testing.T) {
	conf, clock := newTestConfig(t)
	src := Open(conf, "integrity", true)
	assert.NoError(t, src.Set("a", "1"))
	assert.NoError(t, src.Set("b", map[string]any{"x": true}))
	assert.NoError(t, src.Set("a", "dup"))

	var buf bytes.Buffer
	assert.NoError(t, src.Export(&buf))
	assert.Equal(t, readStoreFile(t, src), buf.String())

	clock.Advance(time.Minute)
	dst := Open(conf, "backup", true)
	assert.NoError(t, dst.Set("old", 1))
	created := mustInfo(t, dst).Header[AttrCreatedOn]
	assert.NoError(t, dst.Import(&buf))

	h := mustInfo(t, dst).Header
	assert.Equal(t, "backup", h[AttrDatastore])
	assert.Equal(t, created, h[AttrCreatedOn])
	assert.Equal(t, "1760868060", h[AttrUpdatedOn])
	keys, err := dst.Keys()
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	var v string
	assert.NoError(t, dst.GetInto("a", 0, &v))
	assert.Equal(t, "1", v)

	assert.Error(t, dst.Import(strings.NewReader("nothing here\n")))
}

func TestExportImportCompressed(t *testing.T) {
	conf, _ := newTestConfig(t)
	src := Open(conf, "integrity", true)
	for _, k := range []string{"k1", "k2", "k3"} {
		assert.NoError(t, src.Set(k, fileStatus{FilePath: "/" + k + ".php", FileStatus: "modified"}))
	}
	for _, name := range []string{"dump.zst", "dump.br", "dump.gz"} {
		path := filepath.Join(t.TempDir(), name)
		w, err := u.CreateFileMaybeCompressed(path)
		assert.NoError(t, err)
		assert.NoError(t, src.Export(w))
		assert.NoError(t, w.Close())

		r, err := u.OpenFileMaybeCompressed(path)
		assert.NoError(t, err)
		dst := Open(conf, "restored", true)
		assert.NoError(t, dst.Import(r))
		assert.NoError(t, r.Close())

		var got map[string]fileStatus
		assert.NoError(t, dst.GetAllInto(0, &got))
		assert.Equal(t, 3, len(got))
		assert.Equal(t, "/k2.php", got["k2"].FilePath)
		assert.NoError(t, dst.Flush())
	}
}
