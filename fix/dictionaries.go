package fix

import (
	_ "embed"
	"strings"
)

//go:generate go run ../cmd/generateTagTables

var (
	//go:embed dictionaries/FIX42.xml
	fix42XML string

	//go:embed dictionaries/FIX44.xml
	fix44XML string
)

// DefaultFixVersion is used when a version is unknown.
const DefaultFixVersion = "44"

var embedded = []struct {
	version string
	xml     *string
}{
	{"42", &fix42XML},
	{"44", &fix44XML},
}

// ChooseEmbeddedXML returns the dictionary for version ("42", "44"),
// falling back to FIX 4.4.
func ChooseEmbeddedXML(version string) string {
	for _, e := range embedded {
		if e.version == version {
			return *e.xml
		}
	}
	return fix44XML
}

// SupportedFixVersions lists the embedded versions, comma separated.
func SupportedFixVersions() string {
	versions := make([]string, 0, len(embedded))
	for _, e := range embedded {
		versions = append(versions, e.version)
	}
	return strings.Join(versions, ",")
}

// VersionOf maps a BeginString such as "FIX.4.2" to its embedded version
// key. ok is false when no dictionary is embedded for it.
func VersionOf(beginString string) (version string, ok bool) {
	v := strings.TrimPrefix(beginString, "FIX.")
	v = strings.ReplaceAll(v, ".", "")
	for _, e := range embedded {
		if e.version == v {
			return v, true
		}
	}
	return DefaultFixVersion, false
}
