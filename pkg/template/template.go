/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package template renders job specifications. Templates carry two classes
// of placeholders: ${UPPERCASE} values substituted here before submission,
// and ${lowercase...} / ${meta...} values the Scheduler resolves at launch,
// which must pass through untouched.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

type FragmentKind int

const (
	// Literal text, emitted verbatim. Includes `$${...}` escapes.
	Literal FragmentKind = iota
	// UserPlaceholder is a ${NAME} with an all-uppercase name; Text holds
	// the bare name.
	UserPlaceholder
	// RuntimePlaceholder is any other ${...}; Text holds the raw bytes.
	RuntimePlaceholder
)

type Fragment struct {
	Kind FragmentKind
	Text string
}

var userNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type MissingPlaceholderError struct {
	Name string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("missing-placeholder(%s)", e.Name)
}

// Parse tokenizes a template. Malformed placeholders (unclosed braces) are
// kept as literals, matching safe-substitution semantics.
func Parse(tpl string) []Fragment {
	var frags []Fragment
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			frags = append(frags, Fragment{Kind: Literal, Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(tpl); {
		c := tpl[i]
		if c != '$' {
			literal.WriteByte(c)
			i++
			continue
		}
		// `$$` escapes the dollar; the pair stays literal for the Scheduler.
		if i+1 < len(tpl) && tpl[i+1] == '$' {
			literal.WriteString("$$")
			i += 2
			continue
		}
		if i+1 >= len(tpl) || tpl[i+1] != '{' {
			literal.WriteByte('$')
			i++
			continue
		}
		end := strings.IndexByte(tpl[i+2:], '}')
		if end < 0 {
			literal.WriteString(tpl[i:])
			i = len(tpl)
			continue
		}
		name := tpl[i+2 : i+2+end]
		raw := tpl[i : i+3+end]
		flush()
		if userNameRe.MatchString(name) {
			frags = append(frags, Fragment{Kind: UserPlaceholder, Text: name})
		} else {
			frags = append(frags, Fragment{Kind: RuntimePlaceholder, Text: raw})
		}
		i += 3 + end
	}
	flush()
	return frags
}

// EscapeValue makes a user-supplied value inert: every dollar is doubled, so
// a re-parse of the rendered output can never find a placeholder inside it.
// The Scheduler collapses `$$` back to `$` at launch.
func EscapeValue(v string) string {
	return strings.ReplaceAll(v, "$", "$$")
}

// Render substitutes user placeholders and leaves runtime placeholders
// untouched. Every user placeholder in the template must have an entry in
// vars. Rendering is deterministic: same inputs, same bytes.
func Render(tpl string, vars map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(tpl))
	for _, frag := range Parse(tpl) {
		switch frag.Kind {
		case UserPlaceholder:
			val, ok := vars[frag.Text]
			if !ok {
				return "", &MissingPlaceholderError{Name: frag.Text}
			}
			out.WriteString(EscapeValue(val))
		default:
			out.WriteString(frag.Text)
		}
	}
	return out.String(), nil
}

// Placeholders returns the distinct user-placeholder names in a template, in
// order of first appearance.
func Placeholders(tpl string) []string {
	seen := map[string]bool{}
	var names []string
	for _, frag := range Parse(tpl) {
		if frag.Kind == UserPlaceholder && !seen[frag.Text] {
			seen[frag.Text] = true
			names = append(names, frag.Text)
		}
	}
	return names
}
