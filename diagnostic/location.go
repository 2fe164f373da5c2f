// Package diagnostic carries source locations and typed diagnostic records
// for every pass of the SQL front-end (lexer, parser, schema, type checker).
package diagnostic

import "fmt"

// Location is a half-open byte range into a single source text, with an
// optional line/column pair computed lazily by the caller that owns the
// text (the lexer stamps these in as it scans).
type Location struct {
	Start int
	End   int

	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Spanning returns the smallest location enclosing both l and other.
func (l Location) Spanning(other Location) Location {
	start, startLine, startCol := l.Start, l.StartLine, l.StartCol
	if other.Start < start {
		start, startLine, startCol = other.Start, other.StartLine, other.StartCol
	}
	end, endLine, endCol := l.End, l.EndLine, l.EndCol
	if other.End > end {
		end, endLine, endCol = other.End, other.EndLine, other.EndCol
	}
	return Location{Start: start, End: end, StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}
}

// UpTo returns the location that starts where l starts and ends where other
// begins.
func (l Location) UpTo(other Location) Location {
	return Location{
		Start:     l.Start,
		End:       other.Start,
		StartLine: l.StartLine,
		StartCol:  l.StartCol,
		EndLine:   other.StartLine,
		EndCol:    other.StartCol,
	}
}

// Text returns the substring of src covered by l.
func (l Location) Text(src string) string {
	if l.Start < 0 || l.End > len(src) || l.Start > l.End {
		return ""
	}
	return src[l.Start:l.End]
}

func (l Location) String() string {
	if l.StartLine == 0 {
		return fmt.Sprintf("[%d,%d)", l.Start, l.End)
	}
	return fmt.Sprintf("%d:%d", l.StartLine, l.StartCol)
}
