// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/dekk_tester/internal/telemetry"
)

// SkipReason says why a record candidate was dropped.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipMissingTag
	SkipArity
	SkipNumber
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "ok"
	case SkipMissingTag:
		return "missing tag"
	case SkipArity:
		return "wrong field count"
	case SkipNumber:
		return "non-numeric field"
	default:
		return "unknown"
	}
}

// ParseResult is either a sample (Skip == SkipNone) or the reason the line
// was dropped. Malformed records are routine on a noisy link, so they are
// reported as values rather than errors.
type ParseResult struct {
	Sample telemetry.Sample
	Skip   SkipReason
	Detail string
}

func (r ParseResult) OK() bool { return r.Skip == SkipNone }

func skip(reason SkipReason, format string, args ...any) ParseResult {
	return ParseResult{Skip: reason, Detail: fmt.Sprintf(format, args...)}
}

// Parse converts one record candidate using v's layout.
func Parse(line string, v Variant) ParseResult {
	line = strings.TrimSpace(line)
	if v.Tag != "" {
		rest, ok := strings.CutPrefix(line, v.Tag)
		if !ok {
			return skip(SkipMissingTag, "expected prefix %q", v.Tag)
		}
		line = rest
	}

	fields := strings.Split(line, ",")
	if len(fields) != v.Arity() {
		return skip(SkipArity, "got %d fields, want %d", len(fields), v.Arity())
	}

	var ts float64
	tsField := strings.TrimSpace(fields[0])
	if v.IntegerTimestamp {
		n, err := strconv.ParseInt(tsField, 10, 64)
		if err != nil {
			return skip(SkipNumber, "timestamp %q", tsField)
		}
		ts = float64(n)
	} else {
		f, err := strconv.ParseFloat(tsField, 64)
		if err != nil {
			return skip(SkipNumber, "timestamp %q", tsField)
		}
		ts = f
	}

	values := make([]float64, 0, len(fields)-1)
	for i, f := range fields[1:] {
		f = strings.TrimSpace(f)
		val, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return skip(SkipNumber, "%s %q", v.Channels[i], f)
		}
		values = append(values, val)
	}

	return ParseResult{Sample: telemetry.Sample{Timestamp: ts, Values: values}}
}
