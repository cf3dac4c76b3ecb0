// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import "strings"

// EventKind classifies what a line meant to the extractor.
type EventKind int

const (
	EventNone      EventKind = iota // noise, blank, or ignored
	EventStart                      // block opened (or reopened)
	EventParameter                  // Key/Value hold a parameter
	EventHeader                     // data section opened
	EventRecord                     // Line is a record candidate
	EventMotionEnd                  // end token seen, records still to come
	EventEnd                        // block closed
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventParameter:
		return "parameter"
	case EventHeader:
		return "header"
	case EventRecord:
		return "record"
	case EventMotionEnd:
		return "motion_end"
	case EventEnd:
		return "end"
	default:
		return "none"
	}
}

// Event is the outcome of feeding one line.
type Event struct {
	Kind  EventKind
	Key   string
	Value string
	Line  string
}

type state int

const (
	stateWaiting state = iota
	stateParams
	stateData
	stateDraining
	stateDone
)

// Extractor recognises the framing of one capture block. It does no I/O;
// the caller feeds it decoded lines and calls Idle when the link goes quiet.
type Extractor struct {
	v     Variant
	state state
}

func NewExtractor(v Variant) *Extractor {
	return &Extractor{v: v}
}

// Done reports whether the block has been closed.
func (x *Extractor) Done() bool { return x.state == stateDone }

// Started reports whether a start marker has been seen.
func (x *Extractor) Started() bool { return x.state != stateWaiting }

// Draining reports whether the extractor is collecting records that follow
// the end token.
func (x *Extractor) Draining() bool { return x.state == stateDraining }

// Reset returns the extractor to its initial state.
func (x *Extractor) Reset() { x.state = stateWaiting }

// Feed classifies one line. Lines are expected without their trailing
// newline; surrounding whitespace is ignored.
func (x *Extractor) Feed(raw string) Event {
	line := strings.TrimSpace(raw)
	if x.state == stateDone || line == "" {
		return Event{Kind: EventNone, Line: line}
	}

	// A start marker while draining is firmware chatter after the dump, not
	// a new block.
	if x.v.isStart(line) && x.state != stateDraining {
		x.state = stateParams
		return Event{Kind: EventStart, Line: line}
	}

	switch x.state {
	case stateWaiting:
		return Event{Kind: EventNone, Line: line}

	case stateParams:
		if x.v.isEnd(line) {
			return x.end(line)
		}
		if x.v.Header != "" && line == x.v.Header {
			x.state = stateData
			return Event{Kind: EventHeader, Line: line}
		}
		if x.v.isTagged(line) {
			x.state = stateData
			return Event{Kind: EventRecord, Line: line}
		}
		// Exactly one ": " separator; anything else is not a parameter.
		if parts := strings.Split(line, ": "); len(parts) == 2 {
			return Event{Kind: EventParameter, Key: strings.TrimSpace(parts[0]), Value: strings.TrimSpace(parts[1]), Line: line}
		}
		return Event{Kind: EventNone, Line: line}

	case stateData:
		if x.v.isEnd(line) {
			return x.end(line)
		}
		return Event{Kind: EventRecord, Line: line}

	case stateDraining:
		if x.v.isTagged(line) {
			return Event{Kind: EventRecord, Line: line}
		}
		return Event{Kind: EventNone, Line: line}
	}
	return Event{Kind: EventNone, Line: line}
}

// Idle tells the extractor the link has been quiet for the drain window.
// Only a draining block closes on idle.
func (x *Extractor) Idle() Event {
	if x.state == stateDraining {
		x.state = stateDone
		return Event{Kind: EventEnd}
	}
	return Event{Kind: EventNone}
}

func (x *Extractor) end(line string) Event {
	if x.v.DataAfterEnd {
		x.state = stateDraining
		return Event{Kind: EventMotionEnd, Line: line}
	}
	x.state = stateDone
	return Event{Kind: EventEnd, Line: line}
}
