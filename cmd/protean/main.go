// protean - inspect a class manifest and its snapshot database
//
// Build: go build ./cmd/protean
// Usage:
//   protean info                         # load ./protean.toml, print classes
//   protean -manifest DIR info           # load DIR/protean.toml
//   protean -db snapshots.db snapshots   # list stored snapshots
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/protean/manifest"
	"github.com/chazu/protean/runtime"
	"github.com/chazu/protean/snapshot"
	"github.com/chazu/protean/widget"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	manifestDir := flag.String("manifest", "", "Directory holding protean.toml (default: search upward from cwd)")
	dbPath := flag.String("db", "", "Snapshot database path")
	withWidgets := flag.Bool("widgets", false, "Also register the built-in widget classes")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: protean [options] [command]\n\n")
		fmt.Fprintf(os.Stderr, "Loads class definitions from a protean.toml manifest and inspects them.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  info        Print every class with its base and ancestry (default)\n")
		fmt.Fprintf(os.Stderr, "  snapshots   List snapshots in the database given by -db\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  protean info                        # Classes from the nearest protean.toml\n")
		fmt.Fprintf(os.Stderr, "  protean -manifest ./game info       # Classes from game/protean.toml\n")
		fmt.Fprintf(os.Stderr, "  protean -db world.db snapshots      # Stored snapshots\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("protean")

	command := flag.Arg(0)
	if command == "" {
		command = "info"
	}

	space := runtime.NewObjectSpace()
	if *withWidgets {
		if err := widget.Register(space); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering widget classes: %v\n", err)
			os.Exit(1)
		}
	}

	m, err := loadManifest(*manifestDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	if m != nil {
		log.Infof("loaded manifest %q (%d classes)", m.Project, len(m.Classes))
		if err := m.Apply(space); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying manifest: %v\n", err)
			os.Exit(1)
		}
	}

	switch command {
	case "info":
		err = printInfo(space)
	case "snapshots":
		err = printSnapshots(space, *dbPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		// Inspecting snapshots or built-in classes works without one.
		return nil, nil
	}
	return m, nil
}

func printInfo(space *runtime.ObjectSpace) error {
	names := space.ClassNames()
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Println("No classes defined.")
		return nil
	}

	for _, name := range names {
		lin, err := space.Linearization(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %s\n", name, strings.Join(lin, " -> "))
	}
	fmt.Printf("\n%d classes\n", len(names))
	return nil
}

func printSnapshots(space *runtime.ObjectSpace, dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("snapshots command requires -db")
	}
	store, err := snapshot.Open(dbPath, space)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No snapshots.")
		return nil
	}

	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)
	for _, id := range ordered {
		fmt.Printf("%s  %s\n", id, ids[id])
	}
	fmt.Printf("\n%d snapshots\n", len(ordered))
	return nil
}
