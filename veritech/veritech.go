// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package veritech models the request/response protocol spoken to the
// external sandboxed function executor ("veritech/cyclone" in the
// governing design). It shapes requests, results, and the structured
// output stream; it does not open a real message-bus connection — no
// component in this module needs the transport binding itself, only its
// contract.
package veritech

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Subject names one of the function kinds the executor dispatches on.
type Subject string

const (
	SubjectQualificationCheck Subject = "qualification_check"
	SubjectResolverFunction   Subject = "resolver_function"
	SubjectCodeGeneration     Subject = "code_generation"
	SubjectResourceSync       Subject = "resource_sync"
	SubjectWorkflowResolve    Subject = "workflow_resolve"
)

// DefaultFinalMessageHeader is the header key a response's terminal
// output-stream message carries, unless the caller configures a different
// one.
const DefaultFinalMessageHeader = "X-Final-Message"

// ErrUnexpectedSubscriptionClosed is returned when an output stream's
// channel closes before a final message bearing the configured header key
// was observed.
var ErrUnexpectedSubscriptionClosed = errors.New("veritech: output stream closed before a final message was seen")

// Request is one invocation of a function by the executor, addressed by
// Subject and carrying caller-supplied, component-specific data.
type Request struct {
	ExecutionID string
	Handler     string
	CodeBase64  string
	Subject     Subject
	Data        map[string]any
}

// Result is the tagged union FunctionResult = Success{...} | Failure{...}.
// Exactly one of Success / Failure is non-nil.
type Result struct {
	Success *Success
	Failure *Failure
}

// Success carries the executor's successful function output.
type Success struct {
	ExecutionID string
	Value       map[string]any
}

// Failure carries the executor's reported error for a function invocation.
type Failure struct {
	ExecutionID string
	Message     string
}

// OutputLine is one structured log line on a request's parallel output
// stream; Final marks the message that terminated the stream (the one
// bearing the configured final-message header).
type OutputLine struct {
	Stream string
	Line   string
	Final  bool
}

// Dispatcher sends a Request to the executor and returns its Result
// together with the channel carrying its output stream. The channel is
// closed by the implementation once a message with Final set has been
// delivered; a close with no prior Final message is
// ErrUnexpectedSubscriptionClosed, surfaced to the caller via the
// returned error rather than silently dropped.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Result, <-chan OutputLine, error)
}

// DrainOutput reads out to completion, validating that the stream ends
// with a Final message rather than an unexpected close. Callers that
// don't need the individual lines can use this instead of ranging over
// the channel themselves.
func DrainOutput(out <-chan OutputLine) ([]OutputLine, error) {
	var lines []OutputLine
	sawFinal := false
	for line := range out {
		lines = append(lines, line)
		if line.Final {
			sawFinal = true
		}
	}
	if !sawFinal {
		return lines, ErrUnexpectedSubscriptionClosed
	}
	return lines, nil
}
