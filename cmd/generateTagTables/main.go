// Command generateTagTables derives fix/tags_gen.go from the embedded
// dictionaries: the sensitive tag names used by the obfuscator and the
// LENGTH to DATA pairs used by the codec.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stephenlclarke/fixcodec/decoder"
	"github.com/stephenlclarke/fixcodec/internal/logging"
)

const (
	dictionariesDir = "fix/dictionaries"
	outputFile      = "fix/tags_gen.go"
)

// Test hooks.
var (
	filepathGlob = filepath.Glob
	formatSource = format.Source
)

// sensitivePatterns match, case-insensitively, the names of STRING fields
// that identify a firm, trader or account.
var sensitivePatterns = []string{
	"account",
	"username",
	"password",
	"compid",
	"subid",
	"locationid",
	"partyid",
}

func main() {
	logging.ConfigureRuntime()
	if err := run(); err != nil {
		log.Error().Err(err).Msg("generateTagTables failed")
		os.Exit(1)
	}
}

func run() error {
	root, err := findRepoRoot()
	if err != nil {
		return fmt.Errorf("cannot locate repo root: %w", err)
	}

	dir := filepath.Join(root, dictionariesDir)
	if !isDir(dir) {
		return fmt.Errorf("dictionaries directory not found: %s", dir)
	}

	paths, err := filepathGlob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return fmt.Errorf("glob dictionaries: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no FIX XML files in %s", dir)
	}
	slices.Sort(paths)

	fields, err := loadAllFields(paths)
	if err != nil {
		return err
	}

	sensitive := filterSensitive(fields)
	if len(sensitive) == 0 {
		return errors.New("no sensitive tags found")
	}
	pairs := decoder.DataFieldPairs(fields)

	out := filepath.Join(root, outputFile)
	if err := writeGeneratedFile(out, sensitive, pairs); err != nil {
		return err
	}

	log.Info().
		Str("file", relOrSame(out, root)).
		Int("dictionaries", len(paths)).
		Int("sensitive", len(sensitive)).
		Int("pairs", len(pairs)).
		Msg("generated")
	return nil
}

// findRepoRoot walks up from the working directory to the first directory
// holding go.mod or the dictionaries.
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if exists(filepath.Join(dir, "go.mod")) || isDir(filepath.Join(dir, dictionariesDir)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod or " + dictionariesDir + " above the working directory")
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func relOrSame(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// parseFixXML returns the usable field definitions of one dictionary.
func parseFixXML(path string) ([]decoder.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dict, err := decoder.ParseXML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	fields := make([]decoder.Field, 0, len(dict.Fields))
	for _, fd := range dict.Fields {
		if fd.Number <= 0 || fd.Name == "" {
			continue
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

// loadAllFields merges the fields of every dictionary; the first
// definition of a tag wins.
func loadAllFields(paths []string) ([]decoder.Field, error) {
	seen := make(map[int]bool)
	var all []decoder.Field

	for _, p := range paths {
		fields, err := parseFixXML(p)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if seen[f.Number] {
				continue
			}
			seen[f.Number] = true
			all = append(all, f)
		}
	}

	slices.SortFunc(all, func(a, b decoder.Field) int { return a.Number - b.Number })
	return all, nil
}

func filterSensitive(fields []decoder.Field) map[int]string {
	out := make(map[int]string)
	for _, f := range fields {
		if !strings.EqualFold(f.Type, "STRING") {
			continue
		}
		name := strings.ToLower(f.Name)
		for _, p := range sensitivePatterns {
			if strings.Contains(name, p) {
				out[f.Number] = f.Name
				break
			}
		}
	}
	return out
}

func writeGeneratedFile(path string, sensitive map[int]string, pairs map[uint32]uint32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	var buf bytes.Buffer
	writeHeader(&buf)
	writeSensitive(&buf, sensitive)
	writePairs(&buf, pairs)

	src, err := formatSource(buf.Bytes())
	if err != nil {
		log.Warn().Err(err).Msg("gofmt failed, writing unformatted source")
		src = buf.Bytes()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, src, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeHeader(w io.Writer) {
	fmt.Fprint(w, "// Code generated by generateTagTables; DO NOT EDIT.\n\n")
	fmt.Fprint(w, "package fix\n\n")
	fmt.Fprint(w, "import \"github.com/stephenlclarke/fixcodec/codec\"\n")
}

func writeSensitive(w io.Writer, tags map[int]string) {
	fmt.Fprint(w, "\n// SensitiveTagNames holds the STRING fields whose values identify firms,\n")
	fmt.Fprint(w, "// traders or accounts.\n")
	fmt.Fprint(w, "var SensitiveTagNames = map[int]string{\n")
	keys := make([]int, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "\t%d: %q,\n", k, tags[k])
	}
	fmt.Fprint(w, "}\n")
}

func writePairs(w io.Writer, pairs map[uint32]uint32) {
	fmt.Fprint(w, "\n// StandardDataPairs maps every LENGTH field of the embedded dictionaries\n")
	fmt.Fprint(w, "// to the DATA field it announces.\n")
	fmt.Fprint(w, "var StandardDataPairs = codec.DataPairsOf(map[uint32]uint32{\n")
	keys := make([]uint32, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "\t%d: %d,\n", k, pairs[k])
	}
	fmt.Fprint(w, "})\n")
}
