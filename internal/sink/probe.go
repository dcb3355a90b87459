package sink

import (
	"github.com/juju/errors"

	"download-sink/internal/registry"
)

// Strategy selects how a sink stores content
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyRegistry Strategy = "registry"
	StrategyDirect   Strategy = "direct"
)

// RegistryMinLevel is the first host capability level that provides the
// mediated downloads registry.
const RegistryMinLevel = 29

// SelectStrategy maps a host capability level to a strategy
func SelectStrategy(level int) Strategy {
	if level >= RegistryMinLevel {
		return StrategyRegistry
	}
	return StrategyDirect
}

// ParseStrategy parses a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyRegistry, StrategyDirect:
		return Strategy(s), nil
	}
	return "", errors.NotValidf("strategy %q", s)
}

// Resolve turns a configured strategy into a concrete one, probing the host
// level for auto.
func (s Strategy) Resolve(level int) Strategy {
	if s == StrategyAuto || s == "" {
		return SelectStrategy(level)
	}
	return s
}

// Options configure New
type Options struct {
	Strategy     Strategy
	HostLevel    int
	DownloadsDir string
	Subdir       string
	MimeType     string
	// Registry backs the registry strategy; unused for direct
	Registry registry.Registry
}

// New builds the sink selected by opts
func New(opts Options) (DownloadSink, error) {
	switch opts.Strategy.Resolve(opts.HostLevel) {
	case StrategyRegistry:
		if opts.Registry == nil {
			return nil, errors.NotValidf("registry strategy without a registry")
		}
		return NewRegistrySink(opts.Registry, opts.MimeType), nil
	case StrategyDirect:
		return NewDirectFileSink(opts.DownloadsDir, opts.Subdir)
	}
	return nil, errors.NotValidf("strategy %q", opts.Strategy)
}
