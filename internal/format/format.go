// Package format holds display formatting helpers shared by the PDF and
// email renderers.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Currency formats a value as Brazilian Real: R$ 1.234,56.
func Currency(value float64) string {
	s := fmt.Sprintf("%.2f", value)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.SplitN(s, ".", 2)
	intPart, decPart := parts[0], parts[1]
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := "R$ " + b.String() + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}

// Date formats a time as DD/MM/YYYY.
func Date(t time.Time) string {
	return t.Format("02/01/2006")
}
