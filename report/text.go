package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Text renders the report as a human-readable plain-text document. Scalar
// fields render as "Name: value"; mappings render as indented sub-lists and
// sequences as bulleted sub-lists.
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString("SEO Audit Report\n")
	b.WriteString("==================\n")
	for _, f := range r.fields {
		writeField(&b, f)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, f Field) {
	v := f.Value
	switch v.kind {
	case KindString:
		fmt.Fprintf(b, "%s: %s\n", f.Name, v.str)
	case KindInt:
		fmt.Fprintf(b, "%s: %d\n", f.Name, v.num)
	case KindStringMap:
		fmt.Fprintf(b, "%s:\n", f.Name)
		if len(v.strings) == 0 {
			b.WriteString("  - " + NotFound + "\n")
			return
		}
		for _, it := range v.strings {
			fmt.Fprintf(b, "  - %s: %s\n", it.Key, it.Value)
		}
	case KindCountMap:
		fmt.Fprintf(b, "%s:\n", f.Name)
		if len(v.counts) == 0 {
			b.WriteString("  - " + NotFound + "\n")
			return
		}
		for _, it := range v.counts {
			fmt.Fprintf(b, "  - %s: %d\n", it.Key, it.Count)
		}
	case KindGroupMap:
		fmt.Fprintf(b, "%s:\n", f.Name)
		if len(v.groups) == 0 {
			b.WriteString("  - " + NotFound + "\n")
			return
		}
		for _, it := range v.groups {
			if len(it.Members) == 0 {
				fmt.Fprintf(b, "  - %s\n", it.Key)
				continue
			}
			fmt.Fprintf(b, "  - %s:\n", it.Key)
			for _, m := range it.Members {
				fmt.Fprintf(b, "      - %s\n", m)
			}
		}
	case KindLinks:
		fmt.Fprintf(b, "%s:\n", f.Name)
		if len(v.links) == 0 {
			b.WriteString("  - None\n")
			return
		}
		for _, l := range v.links {
			anchor := l.Anchor
			if anchor == "" {
				anchor = l.URL
			}
			fmt.Fprintf(b, "  - %s: %s\n", anchor, l.URL)
		}
	case KindJSON:
		if s, ok := v.raw.(string); ok {
			fmt.Fprintf(b, "%s: %s\n", f.Name, s)
			return
		}
		fmt.Fprintf(b, "%s:\n", f.Name)
		blocks, ok := v.raw.([]any)
		if !ok || len(blocks) == 0 {
			b.WriteString("  - " + NotFound + "\n")
			return
		}
		for _, block := range blocks {
			data, err := json.Marshal(block)
			if err != nil {
				continue
			}
			fmt.Fprintf(b, "  - %s\n", data)
		}
	}
}
