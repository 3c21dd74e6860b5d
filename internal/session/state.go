package session

import (
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
)

type ErrorKind int

const (
	ErrorValidation ErrorKind = iota
	ErrorProvider
)

func (k ErrorKind) String() string {
	if k == ErrorProvider {
		return "provider"
	}
	return "validation"
}

// Error is the message the presentation layer shows. Err keeps the cause for
// logging.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// State is a snapshot of the session. Loaded is false until the first fetch
// commits. Seq is the sequence number of the latest dispatch.
type State struct {
	Query    query.Query
	Articles []news.Article
	Loaded   bool
	Loading  bool
	Err      *Error
	Seq      uint64
}

func (s State) clone() State {
	c := s
	c.Query = s.Query.Clone()
	if s.Articles != nil {
		c.Articles = make([]news.Article, len(s.Articles))
		copy(c.Articles, s.Articles)
	}
	if s.Err != nil {
		e := *s.Err
		c.Err = &e
	}
	return c
}
