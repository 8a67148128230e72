package decoder

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// PrintSchemaSummary prints the counts behind a dictionary.
func PrintSchemaSummary(w io.Writer, d *Dictionary) {
	fmt.Fprintf(w, "  FIX Version:  %s\n", d.Version)
	fmt.Fprintf(w, "  Service Pack: %s\n", d.ServicePack)
	fmt.Fprintf(w, "  Messages:     %d\n", len(d.Messages))
	fmt.Fprintf(w, "  Components:   %d\n", len(d.Components))
	fmt.Fprintf(w, "  Fields:       %d\n", len(d.fields))
	fmt.Fprintf(w, "  Groups:       %d\n", len(d.groups))
	fmt.Fprintf(w, "  Data pairs:   %d\n", d.pairs.Len())
}

// MessageLines describes each message as "MsgType: Name (category)",
// sorted by MsgType.
func MessageLines(d *Dictionary) []string {
	types := make([]string, 0, len(d.Messages))
	for mt := range d.Messages {
		types = append(types, mt)
	}
	slices.Sort(types)

	lines := make([]string, len(types))
	for i, mt := range types {
		m := d.Messages[mt]
		lines[i] = fmt.Sprintf("%2s: %s (%s)", m.MsgType, m.Name, m.MsgCat)
	}
	return lines
}

func ListAllMessages(w io.Writer, d *Dictionary) {
	for _, l := range MessageLines(d) {
		fmt.Fprintln(w, l)
	}
}

// DisplayMessage prints the member tree of m, optionally framed by the
// header and trailer.
func DisplayMessage(w io.Writer, d *Dictionary, m *MessageDef, verbose, includeHeader, includeTrailer bool) {
	fmt.Fprintf(w, "Message: %s (%s)\n", m.Name, m.MsgType)

	if includeHeader {
		fmt.Fprintln(w, "  Header:")
		printMembers(w, d.Header, verbose, 4)
	}

	printMembers(w, m.Members, verbose, 2)

	if includeTrailer {
		fmt.Fprintln(w, "  Trailer:")
		printMembers(w, d.Trailer, verbose, 4)
	}
}

// DisplayComponent prints a component's members; false if unknown.
func DisplayComponent(w io.Writer, d *Dictionary, name string, verbose bool) bool {
	members, ok := d.Components[name]
	if !ok {
		return false
	}
	fmt.Fprintf(w, "Component: %s\n", name)
	printMembers(w, members, verbose, 2)
	return true
}

func ComponentNames(d *Dictionary) []string {
	names := make([]string, 0, len(d.Components))
	for name := range d.Components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ListAllComponents(w io.Writer, d *Dictionary) {
	for _, name := range ComponentNames(d) {
		fmt.Fprintln(w, name)
	}
}

func printMembers(w io.Writer, members []MemberDef, verbose bool, indent int) {
	for _, m := range members {
		if m.Group != nil {
			printIndent(w, indent)
			fmt.Fprintf(w, "Group: %s%s\n", m.Field.Name, formatRequired(m.Required))
			printField(w, m.Field, false, indent+4)
			printMembers(w, m.Group.Members, verbose, indent+4)
			continue
		}

		printField(w, m.Field, m.Required, indent)
		if verbose {
			printEnums(w, m.Field, indent+2)
		}
	}
}

func printField(w io.Writer, f *FieldDef, required bool, indent int) {
	printIndent(w, indent)
	fmt.Fprintf(w, "%-4d: %s (%s)%s\n", f.Tag, f.Name, f.Type, formatRequired(required))
}

func printEnums(w io.Writer, f *FieldDef, indent int) {
	for _, v := range f.Values {
		printIndent(w, indent+4)
		fmt.Fprintf(w, "%s : %s\n", v.Enum, v.Description)
	}
}

func printIndent(w io.Writer, level int) {
	io.WriteString(w, strings.Repeat(" ", level))
}

func formatRequired(required bool) string {
	if required {
		return " - (Y)"
	}
	return ""
}

// TagLines describes each field as "tag: Name (TYPE)", by tag number.
func TagLines(d *Dictionary) []string {
	fields := d.SortedFields()
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("%-4d: %s (%s)", f.Tag, f.Name, f.Type)
	}
	return lines
}

func ListAllTags(w io.Writer, d *Dictionary) {
	for _, l := range TagLines(d) {
		fmt.Fprintln(w, l)
	}
}

// PrintTagDetails prints a field and, if verbose, its enum values.
func PrintTagDetails(w io.Writer, f *FieldDef, verbose bool) {
	printField(w, f, false, 0)
	if verbose {
		printEnums(w, f, 0)
	}
}

// PrintStringColumns lays items out down then across, as many columns as
// the terminal width allows.
func PrintStringColumns(w io.Writer, items []string) {
	width := getTerminalWidth()

	maxLen := 0
	for _, s := range items {
		maxLen = max(maxLen, len(s))
	}

	cols := max(width/(maxLen+2), 1)
	rows := (len(items) + cols - 1) / cols

	for r := range rows {
		for c := range cols {
			if i := c*rows + r; i < len(items) {
				fmt.Fprintf(w, "%-*s", maxLen+2, items[i])
			}
		}
		fmt.Fprintln(w)
	}
}
