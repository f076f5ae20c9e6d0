// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"strings"
)

// Rendered is the display form of a chain.
type Rendered struct {
	// Title is the innermost access, e.g. "bar" or "getBars()".
	Title string

	// Body is the full dotted chain, e.g. "getFoo().getBars()[]".
	Body string
}

// Render formats c for display.
//
// Methods render with their parameter names, fields and variables by name,
// and a type reference by its simple name. When the last hop carries more
// array dimensions than the chain qualified under, one "[]" is appended
// per surplus dimension.
func Render(c *Chain) Rendered {
	if c.Len() == 0 {
		return Rendered{}
	}

	parts := make([]string, c.Len())
	for i, e := range c.Elements {
		parts[i] = renderElement(e)
	}

	body := strings.Join(parts, ".")
	if surplus := c.Tail().Type().Dims - c.ExpectedDims; surplus > 0 {
		body += strings.Repeat("[]", surplus)
	}
	return Rendered{
		Title: parts[len(parts)-1],
		Body:  body,
	}
}

func renderElement(e *Element) string {
	switch e.Kind() {
	case ElementType:
		return e.Type().SimpleName()
	case ElementMethod:
		return e.Name() + "(" + strings.Join(e.Symbol().Params, ", ") + ")"
	default:
		return e.Name()
	}
}
