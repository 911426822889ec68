// Syncbridge CLI - evaluates a script against shared state served over
// the object bridge.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/threadware/syncbridge/config"
	"github.com/threadware/syncbridge/host"
	"github.com/threadware/syncbridge/proxy"
	"github.com/threadware/syncbridge/shmem"
	"github.com/threadware/syncbridge/transport"
	"github.com/threadware/syncbridge/wire"
	"github.com/threadware/syncbridge/worker"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (overrides syncbridge.toml)")
	configDir := flag.String("c", ".", "Directory to search for syncbridge.toml")
	expr := flag.String("e", "", "Evaluate an inline expression instead of a script file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: syncbridge [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Serves the configured state table over the object bridge and\n")
		fmt.Fprintf(os.Stderr, "evaluates the script with the state injected as globals.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  syncbridge script.cue          # Evaluate a script file\n")
		fmt.Fprintf(os.Stderr, "  syncbridge -e 'limit * 2'      # Evaluate an inline expression\n")
		fmt.Fprintf(os.Stderr, "  syncbridge -c ./proj -v 1 run.cue\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fatal(err)
	}
	if *verbosity != 0 {
		cfg.Log.Verbosity = *verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.Log.Path)

	source := *expr
	if source == "" {
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fatal(err)
		}
		source = string(data)
	}

	ch, err := shmem.New(cfg.Channel.Capacity)
	if err != nil {
		fatal(err)
	}
	remote, owner := transport.Pair()
	defer remote.Close()

	h := host.New(ch, owner)
	stateID := h.Registry().RegisterRoot(cfg.State)
	if err := h.BindToken(wire.TokenGlobal, cfg.State); err != nil {
		fatal(err)
	}
	go h.Serve()

	bridge := proxy.NewBridge(ch, remote)
	globals, err := readGlobals(bridge.Object(stateID))
	if err != nil {
		fatal(err)
	}

	w := worker.New()
	if _, err := w.Handle(worker.Message{
		Kind:    worker.KindInitialize,
		ID:      "boot",
		Options: worker.Options{ArtifactPath: cfg.Runtime.Artifact},
	}); err != nil {
		fatal(err)
	}

	ev, err := w.Handle(worker.Message{
		Kind:    worker.KindRun,
		ID:      "main",
		Source:  source,
		Globals: globals,
	})
	if err != nil {
		fatal(err)
	}

	out, err := json.MarshalIndent(ev.Value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

// readGlobals pulls every scalar member of the state object through the
// bridge. Nested objects stay on the owner side; scripts that need them
// should flatten the state table instead.
func readGlobals(state *proxy.Proxy) (map[string]any, error) {
	keys, err := state.Keys()
	if err != nil {
		return nil, err
	}
	globals := make(map[string]any, len(keys))
	for _, key := range keys {
		v, err := state.Get(key)
		if err != nil {
			return nil, err
		}
		if _, nested := v.(*proxy.Proxy); nested {
			continue
		}
		globals[key] = v
	}
	return globals, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
