// Package worker implements the bootstrap protocol of the remote side:
// a control loop that accepts initialize/run messages and evaluates
// scripts with an embedded CUE evaluator. Globals injected into a run
// are typically read through a proxy before the message is built, so
// the evaluator itself never blocks on the channel.
package worker

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("syncbridge.worker")

// Message kinds accepted by Handle.
const (
	KindInitialize = "initialize"
	KindRun        = "run"
)

// Event kinds emitted by Handle.
const (
	EventInitialized = "initialized"
	EventResult      = "result"
)

// Options carries the initialize-time options bag.
type Options struct {
	// ArtifactPath names a CUE source file whose declarations become
	// part of the evaluation scope of every subsequent run.
	ArtifactPath string `json:"artifactPath,omitempty"`
}

// Message is one control frame handed to the worker.
type Message struct {
	Kind    string         `json:"kind"`
	ID      string         `json:"id,omitempty"`
	Source  string         `json:"source,omitempty"`
	Globals map[string]any `json:"globals,omitempty"`
	Options Options        `json:"options,omitempty"`
}

// Event is the worker's reply to a message.
type Event struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Worker evaluates run messages after a single initialize. All message
// handling is serialized; callers may share a Worker across goroutines.
type Worker struct {
	mu          sync.Mutex
	cctx        *cue.Context
	artifact    cue.Value
	hasArtifact bool
	initialized bool
}

// New creates a worker with a fresh evaluator context.
func New() *Worker {
	return &Worker{cctx: cuecontext.New()}
}

// Handle processes one control message and returns the resulting event.
// Unknown kinds are an error; every kind the protocol defines has a case
// here.
func (w *Worker) Handle(msg Message) (Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch msg.Kind {
	case KindInitialize:
		return w.initialize(msg)
	case KindRun:
		return w.run(msg)
	default:
		return Event{}, fmt.Errorf("worker: unknown message kind %q", msg.Kind)
	}
}

// initialize loads the artifact once. Repeated initialize messages are
// acknowledged without reloading.
func (w *Worker) initialize(msg Message) (Event, error) {
	if w.initialized {
		log.Debugf("already initialized, acknowledging %q", msg.ID)
		return Event{Kind: EventInitialized, ID: msg.ID}, nil
	}
	if path := msg.Options.ArtifactPath; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Event{}, fmt.Errorf("worker: read artifact: %w", err)
		}
		artifact := w.cctx.CompileBytes(data, cue.Filename(path))
		if err := artifact.Err(); err != nil {
			return Event{}, fmt.Errorf("worker: compile artifact: %w", err)
		}
		w.artifact = artifact
		w.hasArtifact = true
		log.Infof("loaded artifact %q", path)
	}
	w.initialized = true
	return Event{Kind: EventInitialized, ID: msg.ID}, nil
}

// run compiles the message source against the artifact scope plus the
// injected globals and decodes the concrete result.
func (w *Worker) run(msg Message) (Event, error) {
	if !w.initialized {
		return Event{}, fmt.Errorf("worker: run %q before initialize", msg.ID)
	}

	scope, ok, err := w.scopeFor(msg.Globals)
	if err != nil {
		return Event{}, err
	}
	var opts []cue.BuildOption
	if ok {
		opts = append(opts, cue.Scope(scope))
	}

	result := w.cctx.CompileString(msg.Source, opts...)
	if err := result.Err(); err != nil {
		return Event{}, fmt.Errorf("worker: run %q: %w", msg.ID, err)
	}
	var value any
	if err := result.Decode(&value); err != nil {
		return Event{}, fmt.Errorf("worker: run %q: decode result: %w", msg.ID, err)
	}
	log.Debugf("run %q done", msg.ID)
	return Event{Kind: EventResult, ID: msg.ID, Value: value}, nil
}

// scopeFor unifies the artifact scope with the run's globals. The bool
// reports whether any scope applies at all.
func (w *Worker) scopeFor(globals map[string]any) (cue.Value, bool, error) {
	if len(globals) == 0 {
		return w.artifact, w.hasArtifact, nil
	}
	scope := w.cctx.Encode(globals)
	if err := scope.Err(); err != nil {
		return cue.Value{}, false, fmt.Errorf("worker: encode globals: %w", err)
	}
	if w.hasArtifact {
		scope = w.artifact.Unify(scope)
		if err := scope.Err(); err != nil {
			return cue.Value{}, false, fmt.Errorf("worker: merge globals into artifact scope: %w", err)
		}
	}
	return scope, true, nil
}
