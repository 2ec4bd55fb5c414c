package parser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConfig is returned by New for an unusable configuration.
	ErrConfig = errors.New("invalid parser configuration")
	// ErrUnresolved is the root of every resolution failure.
	ErrUnresolved = errors.New("unresolved type reference")
	// ErrContract is the root of every structural contract violation.
	ErrContract = errors.New("structural contract violation")
)

// Unresolved is one reference that was never satisfied.
type Unresolved struct {
	Resource string // id of the resource that made the request
	URL      string // requested url, after renaming
}

// UnresolvedError is returned when the scheduler stalls or when a late-bound
// candidate type was never registered.
type UnresolvedError struct {
	Refs []Unresolved
}

// URLs returns the distinct unresolved urls, sorted.
func (e *UnresolvedError) URLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, r := range e.Refs {
		if !seen[r.URL] {
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}
	sort.Strings(urls)
	return urls
}

func (e *UnresolvedError) Error() string {
	requesters := make(map[string][]string)
	for _, r := range e.Refs {
		requesters[r.URL] = append(requesters[r.URL], r.Resource)
	}

	var parts []string
	for _, url := range e.URLs() {
		parts = append(parts, fmt.Sprintf("%s (required by %s)", url, strings.Join(requesters[url], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrUnresolved, strings.Join(parts, "; "))
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

// ContractError reports input the parser cannot process without producing an
// inconsistent type graph.
type ContractError struct {
	Resource string // id of the resource being parsed
	Element  string // element id or path, if any
	Reason   string
}

func (e *ContractError) Error() string {
	var b strings.Builder
	b.WriteString(ErrContract.Error())
	if e.Resource != "" {
		b.WriteString(" [" + e.Resource + "]")
	}
	if e.Element != "" {
		b.WriteString(" " + e.Element)
	}
	b.WriteString(": " + e.Reason)
	return b.String()
}

func (e *ContractError) Unwrap() error {
	return ErrContract
}

// pendingError suspends a task until url is registered.
type pendingError struct {
	url string
}

func (e *pendingError) Error() string {
	return "waiting on " + e.url
}
