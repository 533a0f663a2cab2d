// Package audit provides the session layer's structured audit event model
// and the asynchronous dispatcher that forwards events to a caller-supplied
// sink.
//
// # Architecture boundaries
//
// This package owns event buffering and delivery. Event vocabulary (which
// lifecycle transitions emit what) belongs to the coordinator; sinks belong
// to the host application.
//
// # What this package must NOT do
//
//   - Block a coordinator operation on a slow sink when DropIfFull is set.
//   - Import ssokit or any sibling package.
package audit
