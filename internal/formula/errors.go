package formula

import "fmt"

// ParseError wraps a tokenizer or parser failure with the content location
// the formula came from, so a broken card file is reported by name.
type ParseError struct {
	File string
	Line int
	Src  string
	Err  error
}

func (e *ParseError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<formula>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	return fmt.Sprintf("%s: parse error in %q: %v", loc, e.Src, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
