// chainverify opens a dagstore, rebuilds the causal DAG and proves the
// lineage of one digest (or of every leaf) back to its root.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cimkit/contextgraph/internal/config"
	"github.com/cimkit/contextgraph/pkg/ciddag"
	"github.com/cimkit/contextgraph/pkg/dagstore"
	"github.com/cimkit/contextgraph/pkg/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	from := flag.String("from", "", "hex digest to verify (default: all leaves)")
	to := flag.String("to", "", "hex digest to stop at (default: root)")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(logging.ParseLevel(conf.LogLevel))

	store, err := dagstore.New(dagstore.Config{
		Paths:         []string{conf.DataDir},
		MinimumFreeGB: conf.MinimumFreeGB,
	})
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	dag, err := store.LoadDag(nil)
	if err != nil {
		log.Error("load dag", "err", err)
		os.Exit(1)
	}
	log.Info("dag loaded", "entries", dag.Len(), "roots", len(dag.Roots()))

	var toDigest ciddag.Digest
	if *to != "" {
		toDigest, err = ciddag.ParseDigest(*to)
		if err != nil {
			log.Error("parse -to", "err", err)
			os.Exit(1)
		}
	}

	starts := dag.Leaves()
	if *from != "" {
		d, err := ciddag.ParseDigest(*from)
		if err != nil {
			log.Error("parse -from", "err", err)
			os.Exit(1)
		}
		starts = []ciddag.Digest{d}
	}

	failed := false
	for _, start := range starts {
		chain, err := dag.VerifyChain(start, toDigest)
		if err != nil {
			log.Error("chain verification failed", "from", start.Short(), "err", err)
			failed = true
			continue
		}
		fmt.Printf("chain %s (%d entries):\n", start.Short(), len(chain))
		for _, d := range chain {
			fmt.Printf("  %s\n", d)
		}
	}
	if failed {
		os.Exit(1)
	}
}
