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
	"fmt"
	"io"
	"strconv"

	"github.com/stephenlclarke/fixcodec/decoder"
	"github.com/stephenlclarke/fixcodec/fix"
)

// handleXML is triggered when the user supplied -xml=FILE.
// It prints a short description of the external dictionary that has just
// been loaded, then returns true so runHandlers knows a handler fired.
func handleXML(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	if opts.XMLPath == "" {
		return false
	}

	fmt.Fprintf(out, "Dictionary loaded from: %s%s%s\n\n", decoder.ColourError, opts.XMLPath, decoder.ColourReset)
	decoder.PrintSchemaSummary(out, dict)
	fmt.Fprintln(out)

	return true
}

// handleInfo prints a summary of the dictionary. Returns true if handled.
func handleInfo(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	if !opts.Info {
		return false
	}

	fmt.Fprintf(out, "Available FIX Dictionaries: %s\n", fix.SupportedFixVersions())
	fmt.Fprintf(out, "Current Schema:\n")
	decoder.PrintSchemaSummary(out, dict)

	return true
}

// handleMessage processes the -message flag. Returns true if handled.
func handleMessage(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	if !opts.Message.isSet {
		return false
	}

	switch {
	case opts.Message.listAll():
		if opts.ColumnOutput {
			decoder.PrintStringColumns(out, decoder.MessageLines(dict))
		} else {
			decoder.ListAllMessages(out, dict)
		}
	case opts.Message.value == "":
		PrintUsage(out)
	default:
		m, ok := dict.MessageByName(opts.Message.value)
		if !ok {
			fmt.Fprintf(out, "Message not found: %s\n", opts.Message.value)
			return true
		}
		decoder.DisplayMessage(out, dict, m, opts.Verbose, opts.IncludeHeader, opts.IncludeTrailer)
	}

	return true
}

// handleTag processes the -tag flag. Returns true if handled.
func handleTag(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	if !opts.Tag.isSet {
		return false
	}

	switch {
	case opts.Tag.listAll():
		if opts.ColumnOutput {
			decoder.PrintStringColumns(out, decoder.TagLines(dict))
		} else {
			decoder.ListAllTags(out, dict)
		}
	case opts.Tag.value == "":
		PrintUsage(out)
	default:
		handleSpecificTag(out, opts, dict)
	}

	return true
}

func handleSpecificTag(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) {
	id, err := strconv.Atoi(opts.Tag.value)
	if err != nil {
		fmt.Fprintf(out, "Invalid tag: %s\n", opts.Tag.value)
		return
	}

	field, found := dict.Field(id)
	if !found {
		fmt.Fprintf(out, "Tag not found: %d\n", id)
		return
	}

	if !opts.ColumnOutput {
		decoder.PrintTagDetails(out, field, opts.Verbose)
		return
	}

	// enums laid out in columns
	decoder.PrintTagDetails(out, field, false)
	if opts.Verbose {
		enums := make([]string, len(field.Values))
		for i, v := range field.Values {
			enums[i] = fmt.Sprintf("%s: %s", v.Enum, v.Description)
		}
		decoder.PrintStringColumns(out, enums)
	}
}

// handleComponent processes the -component flag. Returns true if handled.
func handleComponent(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	if !opts.Component.isSet {
		return false
	}

	switch {
	case opts.Component.listAll():
		if opts.ColumnOutput {
			decoder.PrintStringColumns(out, decoder.ComponentNames(dict))
		} else {
			decoder.ListAllComponents(out, dict)
		}
	case opts.Component.value == "":
		PrintUsage(out)
	default:
		if !decoder.DisplayComponent(out, dict, opts.Component.value, opts.Verbose) {
			fmt.Fprintf(out, "Component not found: %s\n", opts.Component.value)
		}
	}
	return true
}

// runHandlers invokes each of the "-info", "-message", "-tag", and "-component" handlers.
// It returns true if any handler succeeded.
func runHandlers(out io.Writer, opts CLIOptions, dict *decoder.Dictionary) bool {
	handleXML(out, opts, dict)

	handled := false

	for _, h := range []func(io.Writer, CLIOptions, *decoder.Dictionary) bool{
		handleInfo, handleMessage, handleTag, handleComponent,
	} {
		if h(out, opts, dict) {
			handled = true
		}
	}

	return handled
}
