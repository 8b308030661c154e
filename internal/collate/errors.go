package collate

import "fmt"

// ParseFailure reports that one document could not be parsed. Nothing about
// the session changes when it is returned.
type ParseFailure struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ParseFailure) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Filename, e.Reason)
}

func (e *ParseFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
