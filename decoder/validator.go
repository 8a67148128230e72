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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/frame"
)

// ValidateFixMessage checks a frame against dict and returns one line per
// problem: envelope, decoding, MsgType, required fields (group instances
// included), enum values, value types and body field order.
func ValidateFixMessage(msg string, dict *Dictionary) []string {
	raw := []byte(msg)
	var errors []string

	if _, err := frame.Split(raw); err != nil {
		errors = append(errors, fmt.Sprintf("Invalid frame: %v", err))
	}

	nodes, err := DecodeNodes(raw, dict)
	if err != nil {
		errors = append(errors, "Decode error: "+describeError(err, raw))
	}

	msgTypeErrors, msgDef := validateMsgType(nodes, dict)
	errors = append(errors, msgTypeErrors...)

	if msgDef == nil {
		return errors // can't continue without a known MsgType
	}

	errors = append(errors, validateRequiredFields(dict.Header, nodes, "")...)
	errors = append(errors, validateRequiredFields(msgDef.Members, nodes, "")...)
	errors = append(errors, validateFieldEnumsAndTypes(nodes, dict)...)
	errors = append(errors, validateFieldOrdering(nodes, msgDef.Members, dict)...)

	return errors
}

func nodeTag(n codec.Node) int {
	tag, _ := codec.ParseTagNumber(n.Tag)
	return int(tag)
}

func validateMsgType(nodes []codec.Node, dict *Dictionary) ([]string, *MessageDef) {
	for _, n := range nodes {
		if nodeTag(n) != msgTypeTag {
			continue
		}
		msgDef, ok := dict.Messages[string(n.Value)]
		if !ok {
			return []string{fmt.Sprintf("Unknown MsgType: %s", n.Value)}, nil
		}
		return nil, msgDef
	}
	return []string{"Missing required tag 35 (MsgType)"}, nil
}

// validateRequiredFields checks members against one level of nodes and
// recurses into every instance of the groups found there.
func validateRequiredFields(members []MemberDef, nodes []codec.Node, where string) []string {
	seen := make(map[int]codec.Node, len(nodes))
	for _, n := range nodes {
		seen[nodeTag(n)] = n
	}

	var errors []string
	for _, m := range members {
		n, ok := seen[m.Field.Tag]
		if !ok {
			if m.Required {
				errors = append(errors, fmt.Sprintf("Missing required tag %d (%s)%s", m.Field.Tag, m.Field.Name, where))
			}
			continue
		}
		if m.Group == nil {
			continue
		}
		for i, inst := range n.Instances {
			in := fmt.Sprintf(" in %s[%d]", m.Field.Name, i+1)
			errors = append(errors, validateRequiredFields(m.Group.Members, inst, in)...)
		}
	}
	return errors
}

func validateFieldEnumsAndTypes(nodes []codec.Node, dict *Dictionary) []string {
	var errors []string

	for _, n := range codec.Flatten(nodes) {
		tag := nodeTag(n)
		f, ok := dict.Field(tag)
		if !ok {
			continue
		}
		val := string(n.Value)

		// Enums
		if tag != msgTypeTag && !f.validEnum(val) {
			errors = append(errors, fmt.Sprintf("Invalid enum value '%s' for tag %d", val, tag))
		}

		// Types
		if !IsValidType(val, f.Type) {
			errors = append(errors, fmt.Sprintf("Invalid type for tag %d: expected %s, got '%s'", tag, f.Type, val))
		}
	}
	return errors
}

// validateFieldOrdering compares the top level body fields with the
// declared member order. Header and trailer fields are skipped.
func validateFieldOrdering(nodes []codec.Node, members []MemberDef, dict *Dictionary) []string {
	orderIndex := make(map[int]int, len(members))
	for i, m := range members {
		if _, dup := orderIndex[m.Field.Tag]; !dup {
			orderIndex[m.Field.Tag] = i
		}
	}

	var errors []string
	lastIdx := -1
	for _, n := range nodes {
		tag := nodeTag(n)
		if dict.isHeaderTag(tag) {
			continue
		}
		if idx, ok := orderIndex[tag]; ok {
			if idx < lastIdx {
				errors = append(errors, fmt.Sprintf("Tag %d out of order", tag))
			}
			lastIdx = idx
		}
	}
	return errors
}

var monthYear = regexp.MustCompile(`^\d{6}([0-9]{2}|(-[0-9]{1,2})|(-?w[1-5]))?$`)

// IsValidType checks val against a dictionary type name. Unknown and
// free text types are accepted.
func IsValidType(val string, typ string) bool {
	b := []byte(val)

	switch strings.ToUpper(typ) {
	case "INT", "DAYOFMONTH":
		_, err := codec.ParseInt(b, 64)
		return err == nil
	case "LENGTH", "NUMINGROUP", "SEQNUM":
		_, err := codec.ParseUint(b, 64)
		return err == nil
	case "FLOAT", "QTY", "PRICE", "PRICEOFFSET", "AMT", "PERCENTAGE":
		_, err := codec.ParseFloat(b, 64)
		return err == nil
	case "BOOLEAN":
		_, err := codec.ParseBool(b)
		return err == nil
	case "CHAR":
		_, err := codec.ParseChar(b)
		return err == nil
	case "CURRENCY":
		_, err := codec.ParseFixed(b, 3)
		return err == nil
	case "UTCTIMESTAMP":
		_, err := codec.ParseTimestamp(b)
		return err == nil
	case "UTCDATEONLY":
		_, err := time.Parse("20060102", val)
		return err == nil
	case "UTCTIMEONLY":
		layouts := []string{"15:04", "15:04:05", "15:04:05.000"}
		for _, layout := range layouts {
			if _, err := time.Parse(layout, val); err == nil {
				return true
			}
		}
		return false
	case "MONTHYEAR":
		return monthYear.MatchString(val)
	case "STRING", "DATA", "EXCHANGE", "COUNTRY", "MULTIPLEVALUESTRING", "MULTIPLESTRINGVALUE":
		return true
	default:
		return true // assume valid for unknown/custom types
	}
}

// CalculateChecksum returns the checksum a frame should carry, or -1
// when it has no CheckSum field.
func CalculateChecksum(msg string) int {
	cutoff := strings.LastIndex(msg, "\x0110=")
	if cutoff == -1 {
		return -1
	}
	return int(frame.Checksum([]byte(msg[:cutoff+1])))
}
