/*
fixcodec — FIX tag=value codec and decoder tools
Copyright (C) 2025 Steve Clarke <stephenlclarke@mac.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.

In accordance with section 13 of the AGPL, if you modify this program,
your modified version must prominently offer all users interacting with it
remotely through a computer network an opportunity to receive the source
code of your version.
*/
package decoder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/fix"
	"github.com/stephenlclarke/fixcodec/frame"
	"golang.org/x/term"
	"golang.org/x/text/encoding/htmlindex"
)

const messageEncodingTag = 347

// maxLineSize bounds one log line; frames with large DATA fields can run
// well past bufio's default.
const maxLineSize = 4 << 20

var (
	loadDictionary   = DictionaryForMessage
	streamLogFunc    = streamLog
	getTermSize      = term.GetSize // allow override in tests
	enableValidation = false        // controlled by -validate flag
)

var (
	ColourReset = "\033[0m"
	ColourLine  = "\033[38;5;244m"
	ColourTag   = "\033[38;5;81m"
	ColourName  = "\033[38;5;151m"
	ColourValue = "\033[38;5;228m"
	ColourEnum  = "\033[38;5;214m"
	ColourFile  = "\033[95m"
	ColourError = "\033[31m"
	ColourMsg   = "\033[97m"
	ColourTitle = "\033[31m"
)

func DisableColours() {
	ColourReset = ""
	ColourLine = ""
	ColourTag = ""
	ColourName = ""
	ColourValue = ""
	ColourEnum = ""
	ColourFile = ""
	ColourError = ""
	ColourMsg = ""
	ColourTitle = ""
}

// SetDictionary makes every frame decode with d instead of the embedded
// dictionary matching its BeginString. A nil d restores the default.
func SetDictionary(d *Dictionary) {
	if d == nil {
		loadDictionary = DictionaryForMessage
		return
	}
	loadDictionary = func([]byte) *Dictionary { return d }
}

func SetValidation(enabled bool) {
	enableValidation = enabled
}

func PrettifySimple(msg string) string {
	return Prettify(msg, loadDictionary([]byte(msg)))
}

// Prettify prints one field per line. Group instances are numbered and
// indented under their count field; EncodedXxx data is shown in the
// MessageEncoding(347) of the frame.
func Prettify(msg string, dict *Dictionary) string {
	raw := []byte(msg)
	if dict == nil {
		dict = DictionaryForMessage(raw)
	}

	nodes, err := DecodeNodes(raw, dict)

	var sb strings.Builder
	p := printer{sb: &sb, dict: dict, encoding: messageEncoding(nodes)}
	p.nodes(nodes, 0)

	if err != nil {
		fmt.Fprintf(&sb, "    %s== %s%s\n", ColourError, describeError(err, raw), ColourReset)
	}
	return sb.String()
}

type printer struct {
	sb       *strings.Builder
	dict     *Dictionary
	encoding string
}

func (p *printer) nodes(ns []codec.Node, depth int) {
	indent := strings.Repeat("    ", depth)

	for _, n := range ns {
		tag := nodeTag(n)
		desc := p.dict.GetEnumDescription(tag, string(n.Value))

		fmt.Fprintf(p.sb, "%s    %s%4d%s (%s%s%s): %s%s%s",
			indent,
			ColourTag, tag, ColourReset,
			ColourName, p.dict.GetFieldName(tag), ColourReset,
			ColourValue, p.value(n, tag), ColourReset,
		)

		if desc != "" {
			fmt.Fprintf(p.sb, " (%s%s%s)", ColourEnum, desc, ColourReset)
		}

		p.sb.WriteString("\n")

		for i, inst := range n.Instances {
			fmt.Fprintf(p.sb, "%s      %s[%d]%s\n", indent, ColourLine, i+1, ColourReset)
			p.nodes(inst, depth+1)
		}
	}
}

func (p *printer) value(n codec.Node, tag int) string {
	if !p.dict.IsDataField(n.Tag) {
		return string(n.Value)
	}
	if p.encoding != "" && strings.HasPrefix(p.dict.GetFieldName(tag), "Encoded") {
		if s, err := transcode(n.Value, p.encoding); err == nil {
			return s
		}
	}
	if bytes.ContainsFunc(n.Value, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return strconv.Quote(string(n.Value))
	}
	return string(n.Value)
}

func messageEncoding(nodes []codec.Node) string {
	for _, n := range nodes {
		if nodeTag(n) == messageEncodingTag {
			return string(n.Value)
		}
	}
	return ""
}

// transcode converts b from the named character set to UTF-8.
func transcode(b []byte, label string) (string, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// PrettifyFiles decodes every path in turn; "-" or no paths at all
// reads stdin. It returns 1 if any input could not be read.
func PrettifyFiles(paths []string, out io.Writer, errOut io.Writer, obfuscator *fix.Obfuscator) int {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	rc := 0
	for _, path := range paths {
		if err := prettifyPath(path, len(paths) > 1 || path != "-", out, errOut, obfuscator); err != nil {
			fmt.Fprintln(errOut, ColourError+err.Error()+ColourReset)
			rc = 1
		}
	}
	return rc
}

func prettifyPath(path string, announce bool, out, errOut io.Writer, obfuscator *fix.Obfuscator) error {
	if path == "-" {
		if announce {
			fmt.Fprint(out, "Processing: (stdin)\n\n")
		}
		if err := streamLogFunc(os.Stdin, out, errOut, obfuscator); err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}
		return nil
	}

	fmt.Fprint(out, "Processing: ", ColourFile, path, ColourReset, "\n\n")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	if err := streamLogFunc(f, out, errOut, obfuscator); err != nil {
		return fmt.Errorf("error reading file %s: %w", path, err)
	}
	return nil
}

func streamLog(in io.Reader, out io.Writer, errOut io.Writer, obfuscator *fix.Obfuscator) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	termWidth := getTerminalWidth()
	separator := ColourTitle + strings.Repeat("=", termWidth) + ColourReset + "\n"

	for scanner.Scan() {
		line := obfuscator.Enabled(scanner.Text(), errOut)
		handleLogLine(line, out, separator)
	}

	return scanner.Err()
}

func handleLogLine(line string, out io.Writer, separator string) {
	matches := findFixMessageIndices(line)

	if len(matches) == 0 {
		fmt.Fprint(out, ColourLine, line, ColourReset, "\n")
		return
	}

	fixMessages, colouredLine := extractFixMessagesAndFormat(line, matches)
	fmt.Fprint(out, colouredLine)
	fmt.Fprint(out, separator)

	for _, msg := range fixMessages {
		processFixMessage(msg, out, separator)
	}
}

func processFixMessage(msg string, out io.Writer, separator string) {
	dict := loadDictionary([]byte(msg))
	fmt.Fprint(out, Prettify(msg, dict))

	// Validation
	if enableValidation {
		errors := ValidateFixMessage(msg, dict)
		if len(errors) > 0 {
			fmt.Fprint(out, separator)

			for _, err := range errors {
				fmt.Fprintf(out, "%s== %s%s\n", ColourError, err, ColourReset)
			}
		}
	}

	fmt.Fprint(out, separator)
}

func getTerminalWidth() int {
	if w, _, err := getTermSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

func findFixMessageIndices(line string) [][]int {
	return frame.Find([]byte(line))
}

func extractFixMessagesAndFormat(line string, matches [][]int) ([]string, string) {
	var (
		output      strings.Builder
		lastIndex   int
		fixMessages []string
	)

	for _, match := range matches {
		start, end := match[0], match[1]
		before := line[lastIndex:start]
		fixPart := line[start:end]

		output.WriteString(ColourLine + before + ColourMsg + fixPart)
		fixMessages = append(fixMessages, fixPart)
		lastIndex = end
	}

	// Append remaining part of the line after last FIX message
	output.WriteString(ColourLine + line[lastIndex:] + ColourReset + "\n")

	return fixMessages, output.String()
}
