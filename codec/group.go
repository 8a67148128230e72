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

package codec

import (
	"bytes"
)

// Step is the outcome of matching a tag against a group's member list.
type Step uint8

const (
	// StepContinue means the tag belongs to the current instance.
	StepContinue Step = iota
	// StepNewInstance means the tag repeats or precedes a member already
	// seen, so the current instance is complete.
	StepNewInstance
	// StepEnd means the tag is not a member; the group is over.
	StepEnd
)

func (s Step) String() string {
	switch s {
	case StepContinue:
		return "continue"
	case StepNewInstance:
		return "new-instance"
	default:
		return "end"
	}
}

// GroupScanner holds the scan state for one instance of a repeating
// group: the declared member order and the position of the last member
// matched. Instances end only by tag order, as the wire has no markers.
// Each nesting level owns its own scanner.
type GroupScanner struct {
	members [][]byte
	last    int
}

// NewGroupScanner creates a scanner over the declared member tags.
func NewGroupScanner(members [][]byte) *GroupScanner {
	return &GroupScanner{members: members, last: -1}
}

// Reset starts a new instance.
func (g *GroupScanner) Reset() {
	g.last = -1
}

// Last returns the position of the last matched member, or -1.
func (g *GroupScanner) Last() int {
	return g.last
}

// Match searches the members for tag, starting after the last matched
// position and wrapping around to the start. A hit after the last
// position continues the instance and is recorded; a hit at or before it
// starts a new instance; no hit ends the group.
func (g *GroupScanner) Match(tag []byte) (Step, int) {
	n := len(g.members)
	for i := g.last + 1; i < n; i++ {
		if bytes.Equal(g.members[i], tag) {
			g.last = i
			return StepContinue, i
		}
	}
	for i := 0; i <= g.last && i < n; i++ {
		if bytes.Equal(g.members[i], tag) {
			return StepNewInstance, i
		}
	}
	return StepEnd, -1
}

// Advance classifies a member position found by other means, such as a
// tag index, using the same rule as Match.
func (g *GroupScanner) Advance(pos int) Step {
	if pos < 0 {
		return StepEnd
	}
	if pos <= g.last {
		return StepNewInstance
	}
	g.last = pos
	return StepContinue
}
