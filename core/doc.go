// Package core defines the shared data model of the Chronicler agent
// engine: sessions and their append-only reasoning steps, the event
// vocabulary streamed to clients, the error taxonomy shared by every
// component, and the synchronous query result shape.
//
// The package has no behavior beyond thread-safe bookkeeping; the
// reasoning loop itself lives in the engine package.
package core
