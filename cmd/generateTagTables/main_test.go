package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stephenlclarke/fixcodec/decoder"
	"github.com/stephenlclarke/fixcodec/fix"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	return func() { _ = os.Chdir(wd) }
}

// evalSymlink normalizes paths (fixes /private prefix on macOS temp dirs)
func evalSymlink(t *testing.T, p string) string {
	t.Helper()
	q, err := filepath.EvalSymlinks(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return q
}

const sampleXML = `
<fix>
  <fields>
    <field number="49" name="SenderCompID" type="STRING"/>
    <field number="56" name="TargetCompID" type="STRING"/>
    <field number="1"  name="Account" type="STRING"/>
    <field number="95" name="RawDataLength" type="LENGTH"/>
    <field number="96" name="RawData" type="DATA"/>
    <field number="999" name="NotSensitive" type="STRING"/>
    <field number="0"  name="IgnoredZero" type="STRING"/>
    <field number="2"  name="" type="STRING"/>
  </fields>
</fix>`

// repoWith lays out go.mod and the dictionaries directory.
func repoWith(t *testing.T, xmls map[string]string) string {
	t.Helper()
	repo := t.TempDir()
	mustWriteFile(t, filepath.Join(repo, "go.mod"), "module example.com/x\n")
	if err := os.MkdirAll(filepath.Join(repo, dictionariesDir), 0o755); err != nil {
		t.Fatalf("mkdir dictionaries: %v", err)
	}
	for name, body := range xmls {
		mustWriteFile(t, filepath.Join(repo, dictionariesDir, name), body)
	}
	return repo
}

func TestExistsAndIsDir(t *testing.T) {
	tmp := t.TempDir()

	f := filepath.Join(tmp, "a.txt")
	mustWriteFile(t, f, "x")
	if !exists(f) || isDir(f) {
		t.Error("expected a plain file")
	}
	if !isDir(tmp) {
		t.Error("isDir(dir) = false, want true")
	}

	ne := filepath.Join(tmp, "nope")
	if exists(ne) || isDir(ne) {
		t.Error("expected nothing at a missing path")
	}
}

func TestFindRepoRoot(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, dictionariesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	runFrom := filepath.Join(tmp, "sub", "child")
	if err := os.MkdirAll(runFrom, 0o755); err != nil {
		t.Fatal(err)
	}
	defer chdir(t, runFrom)()

	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("findRepoRoot error: %v", err)
	}
	if got, want := evalSymlink(t, root), evalSymlink(t, tmp); got != want {
		t.Errorf("findRepoRoot = %q, want %q", got, want)
	}
}

func TestFindRepoRootWithGoMod(t *testing.T) {
	tmp := t.TempDir()
	mustWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/x\n")
	defer chdir(t, tmp)()

	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("findRepoRoot error: %v", err)
	}
	if got, want := evalSymlink(t, root), evalSymlink(t, tmp); got != want {
		t.Errorf("findRepoRoot = %q, want %q", got, want)
	}
}

func TestParseFixXML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fix44.xml")
	mustWriteFile(t, p, sampleXML)

	fields, err := parseFixXML(p)
	if err != nil {
		t.Fatalf("parseFixXML error: %v", err)
	}
	if len(fields) != 6 {
		t.Errorf("len(fields)=%d, want 6", len(fields))
	}

	if _, err := parseFixXML(filepath.Join(t.TempDir(), "nope.xml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.xml")
	mustWriteFile(t, bad, "<fix><fields><field></fix>")
	if _, err := parseFixXML(bad); err == nil || !strings.Contains(err.Error(), "bad.xml") {
		t.Errorf("expected XML decode error naming the file, got %v", err)
	}
}

func TestLoadAllFieldsFirstWinsForDuplicates(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "a.xml")
	b := filepath.Join(tmp, "b.xml")

	mustWriteFile(t, a, `<fix><fields><field number="100" name="Foo" type="STRING"/></fields></fix>`)
	mustWriteFile(t, b, `<fix><fields><field number="200" name="Baz" type="STRING"/><field number="100" name="Bar" type="STRING"/></fields></fix>`)

	got, err := loadAllFields([]string{a, b})
	if err != nil {
		t.Fatalf("loadAllFields error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Foo" || got[1].Name != "Baz" {
		t.Errorf("unexpected fields %+v", got)
	}
}

func TestFilterSensitive(t *testing.T) {
	fields := []decoder.Field{
		{Number: 1, Name: "Account", Type: "STRING"},
		{Number: 2, Name: "UserName", Type: "STRING"},
		{Number: 3, Name: "passwordHash", Type: "string"},
		{Number: 4, Name: "SenderCompID", Type: "STRING"},
		{Number: 5, Name: "TargetSubID", Type: "STRING"},
		{Number: 6, Name: "locationIdOverride", Type: "STRING"},
		{Number: 7, Name: "NotSensitive", Type: "STRING"},
		{Number: 8, Name: "NoPartySubIDs", Type: "NUMINGROUP"},
		{Number: 9, Name: "PartySubIDType", Type: "INT"},
	}
	got := filterSensitive(fields)

	want := map[int]string{1: "Account", 2: "UserName", 3: "passwordHash", 4: "SenderCompID", 5: "TargetSubID", 6: "locationIdOverride"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterSensitive() = %v, want %v", got, want)
	}
}

func TestWriteGeneratedFileFormatsAndSorts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fix", "tags_gen.go")

	sensitive := map[int]string{56: "TargetCompID", 1: "Account", 49: "SenderCompID"}
	pairs := map[uint32]uint32{354: 355, 95: 96}
	if err := writeGeneratedFile(out, sensitive, pairs); err != nil {
		t.Fatalf("writeGeneratedFile error: %v", err)
	}

	got := mustReadFile(t, out)
	if !strings.HasPrefix(got, "// Code generated by generateTagTables; DO NOT EDIT.\n\npackage fix\n") {
		t.Errorf("unexpected header:\n%s", got)
	}

	order := []*regexp.Regexp{
		regexp.MustCompile(`\n\t1:\s+"Account",`),
		regexp.MustCompile(`\n\t49:\s+"SenderCompID",`),
		regexp.MustCompile(`\n\t56:\s+"TargetCompID",`),
		regexp.MustCompile(`\n\t95:\s+96,`),
		regexp.MustCompile(`\n\t354:\s+355,`),
	}
	last := -1
	for _, re := range order {
		loc := re.FindStringIndex(got)
		if loc == nil {
			t.Fatalf("missing %s in:\n%s", re, got)
		}
		if loc[0] < last {
			t.Errorf("%s out of order", re)
		}
		last = loc[0]
	}
}

func TestWriteSections(t *testing.T) {
	var buf bytes.Buffer
	writeSensitive(&buf, map[int]string{56: "TargetCompID", 49: "SenderCompID"})
	writePairs(&buf, map[uint32]uint32{93: 89})

	want := "\nvar SensitiveTagNames = map[int]string{\n\t49: \"SenderCompID\",\n\t56: \"TargetCompID\",\n}\n"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("map body not as expected.\nGot:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "codec.DataPairsOf(map[uint32]uint32{\n\t93: 89,\n})\n") {
		t.Errorf("pairs body not as expected.\nGot:\n%s", buf.String())
	}
}

func TestWriteGeneratedFileErrors(t *testing.T) {
	tmp := t.TempDir()

	parentAsFile := filepath.Join(tmp, "not-a-dir")
	mustWriteFile(t, parentAsFile, "x")
	err := writeGeneratedFile(filepath.Join(parentAsFile, "tags_gen.go"), map[int]string{1: "Account"}, nil)
	if err == nil || !strings.Contains(err.Error(), "mkdir") {
		t.Errorf("expected mkdir error, got: %v", err)
	}

	target := filepath.Join(tmp, "fix", "tags_gen.go")
	if err := os.MkdirAll(target+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	err = writeGeneratedFile(target, map[int]string{1: "Account"}, nil)
	if err == nil || !strings.Contains(err.Error(), "write temp") {
		t.Errorf("expected 'write temp' error, got: %v", err)
	}
}

func TestWriteGeneratedFileFormatSourceErrorFallsBack(t *testing.T) {
	old := formatSource
	defer func() { formatSource = old }()

	called := 0
	formatSource = func(b []byte) ([]byte, error) {
		called++
		return nil, errors.New("boom")
	}

	target := filepath.Join(t.TempDir(), "fix", "tags_gen.go")
	tags := map[int]string{1: "Account", 49: "SenderCompID"}
	pairs := map[uint32]uint32{95: 96}

	if err := writeGeneratedFile(target, tags, pairs); err != nil {
		t.Fatalf("writeGeneratedFile error: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected formatSource to be called once, got %d", called)
	}

	var buf bytes.Buffer
	writeHeader(&buf)
	writeSensitive(&buf, tags)
	writePairs(&buf, pairs)
	if got := mustReadFile(t, target); got != buf.String() {
		t.Fatalf("fallback content mismatch\n--- got ---\n%s\n--- want ---\n%s", got, buf.String())
	}
}

func TestRelOrSame(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "x", "y", "z.txt")

	if rel := relOrSame(a, tmp); filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		t.Errorf("expected relative path, got %q", rel)
	}

	outside := filepath.Join(filepath.Dir(tmp), "q.txt")
	if got := relOrSame(outside, tmp); got != outside {
		t.Errorf("expected unchanged path, got %q", got)
	}
}

func TestRunEndToEnd(t *testing.T) {
	repo := repoWith(t, map[string]string{"FIX44.xml": sampleXML})
	runFrom := filepath.Join(repo, "deep", "nest")
	if err := os.MkdirAll(runFrom, 0o755); err != nil {
		t.Fatal(err)
	}
	defer chdir(t, runFrom)()

	if err := run(); err != nil {
		t.Fatalf("run error: %v", err)
	}

	data := mustReadFile(t, filepath.Join(repo, outputFile))
	for _, re := range []string{`\n\t1:\s+"Account",`, `\n\t49:\s+"SenderCompID",`, `\n\t95:\s+96,`} {
		if !regexp.MustCompile(re).MatchString(data) {
			t.Errorf("missing %s in generated file:\n%s", re, data)
		}
	}
	if strings.Contains(data, "NotSensitive") || strings.Contains(data, "IgnoredZero") {
		t.Error("unexpected non-sensitive field in generated file")
	}
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T) string
		want  string
	}{
		{"no root", func(t *testing.T) string { return t.TempDir() }, "cannot locate repo root"},
		{"no dictionaries", func(t *testing.T) string {
			repo := t.TempDir()
			mustWriteFile(t, filepath.Join(repo, "go.mod"), "module x\n")
			return repo
		}, "dictionaries directory not found"},
		{"no xml", func(t *testing.T) string { return repoWith(t, nil) }, "no FIX XML files"},
		{"bad xml", func(t *testing.T) string {
			return repoWith(t, map[string]string{"bad.xml": "<fix><fields><field></fix>"})
		}, "bad.xml"},
		{"nothing sensitive", func(t *testing.T) string {
			return repoWith(t, map[string]string{"FIX44.xml": `<fix><fields><field number="10" name="CheckSum" type="STRING"/></fields></fix>`})
		}, "no sensitive tags found"},
		{"unwritable output", func(t *testing.T) string {
			repo := repoWith(t, map[string]string{"FIX44.xml": sampleXML})
			mustWriteFile(t, filepath.Join(repo, "fix", "tags_gen.go.tmp", "block"), "x")
			return repo
		}, "write temp"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer chdir(t, c.setup(t))()
			if err := run(); err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("want %q error, got: %v", c.want, err)
			}
		})
	}
}

func TestRunGlobError(t *testing.T) {
	defer chdir(t, repoWith(t, nil))()

	old := filepathGlob
	defer func() { filepathGlob = old }()
	filepathGlob = func(string) ([]string, error) { return nil, errors.New("glob fail") }

	if err := run(); err == nil || !strings.Contains(err.Error(), "glob dictionaries") {
		t.Fatalf("want glob dictionaries error, got: %v", err)
	}
}

// The checked-in tables must match what the embedded dictionaries produce.
func TestGeneratedTablesUpToDate(t *testing.T) {
	root, err := findRepoRoot()
	if err != nil {
		t.Fatalf("findRepoRoot: %v", err)
	}
	paths, err := filepath.Glob(filepath.Join(root, dictionariesDir, "*.xml"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("no dictionaries under %s: %v", root, err)
	}
	fields, err := loadAllFields(paths)
	if err != nil {
		t.Fatalf("loadAllFields: %v", err)
	}

	if got := filterSensitive(fields); !reflect.DeepEqual(got, fix.SensitiveTagNames) {
		t.Errorf("fix.SensitiveTagNames is stale; run go generate ./fix\nwant %v\ngot  %v", got, fix.SensitiveTagNames)
	}

	pairs := decoder.DataFieldPairs(fields)
	if fix.StandardDataPairs.Len() != len(pairs) {
		t.Errorf("fix.StandardDataPairs has %d pairs, dictionaries give %d", fix.StandardDataPairs.Len(), len(pairs))
	}
	for length, data := range pairs {
		got, ok := fix.StandardDataPairs.DataTag([]byte(strconv.FormatUint(uint64(length), 10)))
		if !ok || string(got) != strconv.FormatUint(uint64(data), 10) {
			t.Errorf("pair %d -> %d missing from fix.StandardDataPairs", length, data)
		}
	}
}
