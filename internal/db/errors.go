package db

import "fmt"

// QueryError reports a failed read against one table or collection.
type QueryError struct {
	Source string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Source, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func wrapQuery(source string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Source: source, Err: err}
}
