package styles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/pkg/csl"
)

const sampleCSL = `<?xml version="1.0" encoding="utf-8"?>
<style xmlns="http://purl.org/net/xbiblio/csl" version="1.0">
  <info><title>  My Style </title></info>
  <bibliography>
    <layout>
      <names variable="author editor"/>
      <text variable="title-short"/>
      <text variable="page"/>
      <text variable="collection-title"/>
    </layout>
  </bibliography>
</style>`

func writeStyle(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestReadTitle(t *testing.T) {
	dir := t.TempDir()
	p := writeStyle(t, dir, "mine.csl", sampleCSL)
	assert.Equal(t, "My Style", ReadTitle(p))

	broken := writeStyle(t, dir, "broken.csl", "not xml <")
	assert.Equal(t, "broken", ReadTitle(broken))

	untitled := writeStyle(t, dir, "untitled.csl", `<style><info/></style>`)
	assert.Equal(t, "untitled", ReadTitle(untitled))

	assert.Equal(t, "APA Lite (author-date)", ReadTitle(csl.EmbeddedPrefix+"apa-lite.csl"))
}

func TestEditorFieldsForCSL(t *testing.T) {
	p := writeStyle(t, t.TempDir(), "fields.csl", sampleCSL)

	used := CSLVariablesUsed(p)
	assert.Equal(t, map[string]bool{
		"author": true, "editor": true, "title-short": true, "page": true, "collection-title": true,
	}, used)

	assert.Equal(t, map[string]bool{
		"authors": true, "title_alt": true, "pages": true, "container_title": true,
	}, EditorFieldsForCSL(p))

	assert.Empty(t, EditorFieldsForCSL(filepath.Join(t.TempDir(), "missing.csl")))
}

func TestDiscoverCSL_FirstStemWins(t *testing.T) {
	user := t.TempDir()
	app := t.TempDir()
	writeStyle(t, user, "B.csl", sampleCSL)
	writeStyle(t, user, "apa-lite.csl", `<style><info><title>User APA</title></info></style>`)
	writeStyle(t, app, "b.csl", `<style><info><title>App B</title></info></style>`)
	writeStyle(t, app, "a.csl", `<style><info><title>App A</title></info></style>`)
	writeStyle(t, app, "notes.txt", "x")

	got := DiscoverCSL(user, app, filepath.Join(user, "nope"))

	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"User APA", "My Style", "App A", "KCI Lite (국문 학술지)"}, names)
}

func TestListStyles(t *testing.T) {
	dir := t.TempDir()
	p := writeStyle(t, dir, "zeta.csl", `<style><info><title>aardvark</title></info></style>`)

	got := ListStyles(Options{IncludeBuiltin: true, IncludeCSL: true, Dirs: []string{dir}})
	require.GreaterOrEqual(t, len(got), 4)

	assert.Equal(t, KindBuiltin, got[0].Kind)
	assert.Equal(t, "builtin:kr_default", got[0].Selector())

	assert.Equal(t, KindCSL, got[1].Kind)
	assert.Equal(t, "aardvark", got[1].Name)
	assert.Equal(t, "csl:"+p, got[1].Selector())

	only := ListStyles(Options{IncludeBuiltin: true})
	for _, s := range only {
		assert.Equal(t, KindBuiltin, s.Kind)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	p := writeStyle(t, dir, "House.csl", sampleCSL)

	assert.Equal(t, "csl:"+p, Resolve("csl:house", dir))
	assert.Equal(t, "csl:"+p, Resolve("csl:house.csl", dir))
	assert.Equal(t, "csl:"+csl.EmbeddedPrefix+"apa-lite.csl", Resolve("csl:apa-lite", dir))

	assert.Equal(t, "csl:"+p, Resolve("csl:"+p), "existing files are kept")
	assert.Equal(t, "builtin:kr_default", Resolve("builtin:kr_default", dir))
	assert.Equal(t, "kr_default", Resolve("kr_default", dir))
	assert.Equal(t, "csl:nothing", Resolve("csl:nothing", dir))
}
