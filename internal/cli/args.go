// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits subcommand arguments into flags and positionals.
//
// Supported forms:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (only for names listed as boolean)
//	--               Everything after is positional
//
// Names passed as boolean never consume the following argument, so
// "--confirm show" keeps "show" as a positional.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. boolNames lists the flags that take no value.
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[strings.TrimLeft(n, "-")] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if isBool[k] {
				b, err := strconv.ParseBool(v)
				p.boolFlags[k] = err == nil && b
			} else {
				p.flags[k] = v
			}
			continue
		}

		if isBool[name] {
			p.boolFlags[name] = true
			continue
		}
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		// A value flag with nothing after it reads as a boolean
		p.boolFlags[name] = true
	}

	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	if len(p.positional) == 0 {
		return ""
	}
	return p.positional[0]
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// Rest returns the positionals from index on, joined with spaces.
func (p *ArgParser) Rest(index int) string {
	if index >= len(p.positional) {
		return ""
	}
	return strings.Join(p.positional[index:], " ")
}

// Flag returns the first non-empty value among the given names.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[strings.TrimLeft(n, "-")]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag reports whether any of the given boolean flags is set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[strings.TrimLeft(n, "-")] {
			return true
		}
	}
	return false
}

// IntFlag returns a flag parsed as an integer, or def when absent.
func (p *ArgParser) IntFlag(def int, names ...string) (int, error) {
	v := p.Flag(names...)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &UsageError{Msg: fmt.Sprintf("--%s must be an integer (got %q)", strings.TrimLeft(names[0], "-"), v)}
	}
	return n, nil
}
