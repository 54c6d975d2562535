// Command scancache inspects and edits scanner cache stores.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kjk/scancache/cache"
	"github.com/kjk/scancache/config"
	"github.com/kjk/scancache/log"
)

type app struct {
	configPath string
	dataDir    string
	verbose    bool

	cfg *config.Config
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.verbose {
		cfg.Verbose = true
	}
	log.Verbose = cfg.Verbose
	log.Init(&log.Config{Dir: cfg.LogDir})
	a.cfg = cfg
	return nil
}

// openStore opens an existing store, or creates it if create is true
func (a *app) openStore(name string, create bool) (*cache.Store, error) {
	if !cache.IsValidKey(name) {
		return nil, fmt.Errorf("invalid store name '%s'", name)
	}
	s := cache.Open(a.cfg.CacheConfig(), name, create)
	if !s.Usable() {
		return nil, fmt.Errorf("store '%s' is not usable (%s)", name, s.Path())
	}
	return s, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "scancache",
		Short: "Inspect and edit scanner cache stores",
		Long: `scancache manages file-backed cache stores used by the security
scanner to remember integrity-scan results and ignored files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default is ./"+config.DefaultConfigFile+")")
	flags.StringVar(&a.dataDir, "data-dir", "", "directory with store files")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newIgnoreCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newInfoCmd(a),
		newCountCmd(a),
		newCompactCmd(a),
		newFlushCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return rootCmd
}

// run executes the command line and closes the logs, also when the
// command failed
func run(args []string, out io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	err := cmd.Execute()
	log.Close()
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		os.Exit(1)
	}
}
