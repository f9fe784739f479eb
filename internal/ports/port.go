// Package ports provides latest-value data channels between the control
// loop and its host.
package ports

import (
	"sync"

	"github.com/san-kum/pidloop/internal/joints"
)

// FlowStatus tells a reader whether a value is available and whether it was
// written since the previous read.
type FlowStatus int

const (
	NoData FlowStatus = iota
	OldData
	NewData
)

func (s FlowStatus) String() string {
	switch s {
	case NoData:
		return "no-data"
	case OldData:
		return "old-data"
	case NewData:
		return "new-data"
	}
	return "unknown"
}

// Latest keeps the most recent value written to it. Values are copied on
// write and on read so neither side can alias the other's storage.
type Latest[T any] struct {
	lock   sync.Mutex
	name   string
	copyFn func(dst *T, src T)
	value  T
	status FlowStatus
}

// NewLatest creates a port. copyFn copies src into dst, reusing dst's
// storage where possible.
func NewLatest[T any](name string, copyFn func(dst *T, src T)) *Latest[T] {
	return &Latest[T]{name: name, copyFn: copyFn}
}

func (p *Latest[T]) Name() string { return p.name }

// Write stores a copy of v.
func (p *Latest[T]) Write(v T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.copyFn(&p.value, v)
	p.status = NewData
}

// Read copies the latest value into dst. Reading marks the value old.
func (p *Latest[T]) Read(dst *T) FlowStatus {
	p.lock.Lock()
	defer p.lock.Unlock()

	status := p.status
	if status == NoData {
		return NoData
	}
	p.copyFn(dst, p.value)
	p.status = OldData
	return status
}

// Peek returns the latest value without changing its freshness.
func (p *Latest[T]) Peek(dst *T) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.status == NoData {
		return false
	}
	p.copyFn(dst, p.value)
	return true
}

// Clear drops the stored value so the next reader sees NoData.
func (p *Latest[T]) Clear() {
	p.lock.Lock()
	var zero T
	p.value = zero
	p.status = NoData
	p.lock.Unlock()
}

type (
	CommandPort    = Latest[joints.CommandSample]
	StatusPort     = Latest[joints.StatusSample]
	OutputPort     = Latest[joints.OutputSample]
	DiagnosticPort = Latest[joints.DiagnosticSample]
)

func NewCommandPort(name string) *CommandPort {
	return NewLatest(name, func(dst *joints.CommandSample, src joints.CommandSample) { src.CopyTo(dst) })
}

func NewStatusPort(name string) *StatusPort {
	return NewLatest(name, func(dst *joints.StatusSample, src joints.StatusSample) { src.CopyTo(dst) })
}

func NewOutputPort(name string) *OutputPort {
	return NewLatest(name, func(dst *joints.OutputSample, src joints.OutputSample) { src.CopyTo(dst) })
}

func NewDiagnosticPort(name string) *DiagnosticPort {
	return NewLatest(name, func(dst *joints.DiagnosticSample, src joints.DiagnosticSample) { src.CopyTo(dst) })
}
