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
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stephenlclarke/fixcodec/decoder"
)

func fix44(t *testing.T) *decoder.Dictionary {
	t.Helper()
	d, err := decoder.EmbeddedDictionary("44")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func run(t *testing.T, h func(*bytes.Buffer) bool) (string, bool) {
	t.Helper()
	var buf bytes.Buffer
	ok := h(&buf)
	return buf.String(), ok
}

func TestHandlersNotTriggered(t *testing.T) {
	d := fix44(t)
	var buf bytes.Buffer
	if runHandlers(&buf, CLIOptions{}, d) || buf.Len() != 0 {
		t.Errorf("Expected no handler to fire, got %q", buf.String())
	}
}

func TestHandleInfo(t *testing.T) {
	d := fix44(t)
	out, ok := run(t, func(b *bytes.Buffer) bool { return handleInfo(b, CLIOptions{Info: true}, d) })
	if !ok || !strings.Contains(out, "Available FIX Dictionaries: 42,44") || !strings.Contains(out, "FIX Version:  4.4") {
		t.Errorf("Unexpected info output\n%s", out)
	}
}

func TestHandleMessage(t *testing.T) {
	d := fix44(t)

	cases := []struct {
		opts CLIOptions
		want string
	}{
		{CLIOptions{Message: optionalFlag{"true", true}}, " D: NewOrderSingle (app)\n"},
		{CLIOptions{Message: optionalFlag{"", true}}, "Usage: fixdecoder"},
		{CLIOptions{Message: optionalFlag{"Logon", true}}, "Message: Logon (A)\n"},
		{CLIOptions{Message: optionalFlag{"D", true}, Verbose: true}, "        1 : BUY\n"},
		{CLIOptions{Message: optionalFlag{"Nope", true}}, "Message not found: Nope\n"},
	}
	for _, c := range cases {
		out, ok := run(t, func(b *bytes.Buffer) bool { return handleMessage(b, c.opts, d) })
		if !ok || !strings.Contains(out, c.want) {
			t.Errorf("%+v: expected %q in\n%s", c.opts.Message, c.want, out)
		}
	}
}

func TestHandleMessageColumns(t *testing.T) {
	d := fix44(t)
	out, _ := run(t, func(b *bytes.Buffer) bool {
		return handleMessage(b, CLIOptions{Message: optionalFlag{"true", true}, ColumnOutput: true}, d)
	})
	if !strings.Contains(out, "Heartbeat") || !strings.Contains(out, "News") {
		t.Errorf("Unexpected column output\n%s", out)
	}
}

func TestHandleTag(t *testing.T) {
	d := fix44(t)

	cases := []struct {
		opts CLIOptions
		want string
	}{
		{CLIOptions{Tag: optionalFlag{"true", true}}, "55  : Symbol (STRING)\n"},
		{CLIOptions{Tag: optionalFlag{"true", true}, ColumnOutput: true}, "55  : Symbol (STRING)"},
		{CLIOptions{Tag: optionalFlag{"", true}}, "Usage: fixdecoder"},
		{CLIOptions{Tag: optionalFlag{"54", true}, Verbose: true}, "54  : Side (CHAR)\n    1 : BUY\n"},
		{CLIOptions{Tag: optionalFlag{"54", true}, Verbose: true, ColumnOutput: true}, "1: BUY"},
		{CLIOptions{Tag: optionalFlag{"abc", true}}, "Invalid tag: abc\n"},
		{CLIOptions{Tag: optionalFlag{"99999", true}}, "Tag not found: 99999\n"},
	}
	for _, c := range cases {
		out, ok := run(t, func(b *bytes.Buffer) bool { return handleTag(b, c.opts, d) })
		if !ok || !strings.Contains(out, c.want) {
			t.Errorf("%+v: expected %q in\n%s", c.opts.Tag, c.want, out)
		}
	}
}

func TestHandleComponent(t *testing.T) {
	d := fix44(t)

	cases := []struct {
		opts CLIOptions
		want string
	}{
		{CLIOptions{Component: optionalFlag{"true", true}}, "Instrument\nOrderQtyData\nParties\nPtysSubGrp\n"},
		{CLIOptions{Component: optionalFlag{"true", true}, ColumnOutput: true}, "Parties"},
		{CLIOptions{Component: optionalFlag{"", true}}, "Usage: fixdecoder"},
		{CLIOptions{Component: optionalFlag{"Parties", true}}, "Component: Parties\n  Group: NoPartyIDs\n"},
		{CLIOptions{Component: optionalFlag{"Nope", true}}, "Component not found: Nope\n"},
	}
	for _, c := range cases {
		out, ok := run(t, func(b *bytes.Buffer) bool { return handleComponent(b, c.opts, d) })
		if !ok || !strings.Contains(out, c.want) {
			t.Errorf("%+v: expected %q in\n%s", c.opts.Component, c.want, out)
		}
	}
}

func TestHandleXML(t *testing.T) {
	d := fix44(t)

	out, ok := run(t, func(b *bytes.Buffer) bool { return handleXML(b, CLIOptions{}, d) })
	if ok || out != "" {
		t.Errorf("Expected nothing without -xml, got %q", out)
	}

	out, ok = run(t, func(b *bytes.Buffer) bool { return handleXML(b, CLIOptions{XMLPath: "my.xml"}, d) })
	if !ok || !strings.Contains(out, "Dictionary loaded from: my.xml") || !strings.Contains(out, "Messages:     8") {
		t.Errorf("Unexpected output\n%s", out)
	}
}

func TestRunHandlersCombines(t *testing.T) {
	d := fix44(t)
	opts := CLIOptions{Info: true, Tag: optionalFlag{"35", true}}

	var buf bytes.Buffer
	if !runHandlers(&buf, opts, d) {
		t.Fatal("Expected handlers to fire")
	}
	if !strings.Contains(buf.String(), "Current Schema:") || !strings.Contains(buf.String(), "35  : MsgType (STRING)") {
		t.Errorf("Unexpected output\n%s", buf.String())
	}
}
