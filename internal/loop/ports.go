package loop

import (
	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/ports"
	"github.com/san-kum/pidloop/internal/settings"
)

// CommandReader supplies the latest command sample.
type CommandReader interface {
	Read(dst *joints.CommandSample) ports.FlowStatus
}

// StatusReader supplies the latest status sample.
type StatusReader interface {
	Read(dst *joints.StatusSample) ports.FlowStatus
}

// OutputWriter publishes output samples. The sample is reused by the loop
// after the call returns.
type OutputWriter interface {
	Write(s joints.OutputSample)
}

// DiagnosticWriter publishes diagnostic samples. The sample is reused by the
// loop after the call returns.
type DiagnosticWriter interface {
	Write(s joints.DiagnosticSample)
}

// SettingsSource holds the settings sequence. *settings.Store implements it.
type SettingsSource interface {
	Snapshot() ([]settings.Channel, uint64)
	Version() uint64
	Bind(n int) error
	Unbind()
	Replace(next []settings.Channel) error
}
