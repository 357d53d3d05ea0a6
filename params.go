package jana2

import (
	"strconv"
	"sync"
)

// Ncores is the sentinel value for the "nthreads" parameter meaning "use
// every available core".
const Ncores = -1

// Recognized parameter keys, for an embedder's CLI or config file. Params
// only stores values under these keys: no engine type reads a Params
// registry, and the engine takes its settings as Go arguments instead
// (the thread count passed to ProcessingController.Run, PoolConfig, ...).
const (
	ParamNThreads                  = "nthreads"
	ParamNEvents                   = "jana:nevents"
	ParamNSkip                     = "jana:nskip"
	ParamEventSourceChunkSize      = "jana:event_source_chunksize"
	ParamEventProcessorChunkSize   = "jana:event_processor_chunksize"
	ParamTickerIntervalMs          = "jana:ticker_interval"
	ParamExtendedReport            = "jana:extended_report"
	ParamLogLevel                  = "jana:loglevel"
	ParamAffinity                  = "jana:affinity"
	ParamMaxInflightEvents         = "jana:max_inflight_events"
)

// Params is a small typed parameter registry, read and written under a
// mutex so it is safe to use from several goroutines.
type Params struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewParams creates an empty Params registry.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// SetString sets a raw string parameter value.
func (p *Params) SetString(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// SetInt sets an integer parameter value.
func (p *Params) SetInt(key string, value int) {
	p.SetString(key, strconv.Itoa(value))
}

// SetBool sets a boolean parameter value.
func (p *Params) SetBool(key string, value bool) {
	p.SetString(key, strconv.FormatBool(value))
}

// GetString returns the raw string value, or ok=false if unset.
func (p *Params) GetString(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// GetIntOr returns the integer value for key, or def if unset or unparsable.
func (p *Params) GetIntOr(key string, def int) int {
	v, ok := p.GetString(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBoolOr returns the boolean value for key, or def if unset or unparsable.
func (p *Params) GetBoolOr(key string, def bool) bool {
	v, ok := p.GetString(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
