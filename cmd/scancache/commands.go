package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/kjk/scancache/cache"
	"github.com/kjk/scancache/u"
)

// lifetime returns --ttl if given, configured lifetime otherwise
func (a *app) lifetime(cmd *cobra.Command) time.Duration {
	if cmd.Flags().Changed("ttl") {
		d, err := cmd.Flags().GetDuration("ttl")
		u.PanicIf(err != nil, "--ttl flag not registered for '%s'", cmd.Name())
		return d
	}
	return a.cfg.Lifetime
}

func addTTLFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("ttl", 0, "treat store older than this as expired (e.g. 24h)")
}

func printJSON(w io.Writer, d []byte) {
	w.Write(pretty.Pretty(d))
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <store> <key>",
		Short: "Print value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			v, err := s.Get(args[1], a.lifetime(cmd))
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), v)
			return nil
		},
	}
	addTTLFlag(cmd)
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <store> <key> <json>",
		Short: "Append a key with a JSON value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(args[2])) {
				return fmt.Errorf("value is not valid JSON: %s", args[2])
			}
			s, err := a.openStore(args[0], true)
			if err != nil {
				return err
			}
			return s.Set(args[1], json.RawMessage(args[2]))
		},
	}
}

// ignoredFile is what the integrity scanner stores for ignored files
type ignoredFile struct {
	FilePath  string `json:"file_path"`
	IgnoredAt int64  `json:"ignored_at"`
}

func newIgnoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <store> <path>...",
		Short: "Mark files as ignored by the integrity scanner",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], true)
			if err != nil {
				return err
			}
			now := time.Now().Unix()
			for _, path := range args[1:] {
				key := cache.KeyForPath(path)
				exists, err := s.Exists(key)
				if err != nil {
					return err
				}
				if exists {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already ignored\n", path)
					continue
				}
				if err = s.Set(key, ignoredFile{FilePath: path, IgnoredAt: now}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key, path)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <store> <key>...",
		Short: "Delete keys (rewrites the store)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			for _, key := range args[1:] {
				if err = s.Delete(key); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <store>",
		Short: "Print all entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			c, err := s.LoadContent(false)
			if err != nil {
				return err
			}
			if s.HasExpired(a.lifetime(cmd), c) {
				return fmt.Errorf("store '%s' expired", s.Name())
			}
			w := cmd.OutOrStdout()
			for _, k := range c.Keys {
				fmt.Fprintf(w, "%s: %s\n", k, pretty.Ugly(c.Entries[k]))
			}
			return nil
		},
	}
	addTTLFlag(cmd)
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <store>",
		Short: "Print store header and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			info, err := s.Info()
			if err != nil {
				return err
			}
			n, err := s.Count(nil)
			if err != nil {
				return err
			}
			h := info.Header
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "datastore:  %s\n", h[cache.AttrDatastore])
			fmt.Fprintf(w, "path:       %s\n", info.Path)
			fmt.Fprintf(w, "size:       %s\n", u.FormatSize(s.Size()))
			fmt.Fprintf(w, "entries:    %d\n", n)
			fmt.Fprintf(w, "created_on: %s (%s)\n", h.CreatedOn().Format(time.RFC3339), humanize.Time(h.CreatedOn()))
			fmt.Fprintf(w, "updated_on: %s (%s)\n", h.UpdatedOn().Format(time.RFC3339), humanize.Time(h.UpdatedOn()))
			if lt := a.cfg.Lifetime; lt > 0 {
				fmt.Fprintf(w, "expired:    %v\n", s.HasExpired(lt, nil))
			}
			return nil
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <store>",
		Short: "Print number of unique entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			n, err := s.Count(nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return nil
		},
	}
}

func newCompactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <store>",
		Short: "Rewrite the store without duplicate entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			before := s.Size()
			if err = s.Compact(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", u.FormatSize(before), u.FormatSize(s.Size()))
			return nil
		},
	}
}

func newFlushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "flush <store>",
		Short: "Delete the store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			return s.Flush()
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <store> <file>",
		Short: "Copy the store file, compressed if file ends with .zst, .br or .gz",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			w, err := u.CreateFileMaybeCompressed(args[1])
			if err != nil {
				return err
			}
			if err = s.Export(w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <store> <file>",
		Short: "Replace entries of the store with entries from an exported file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := u.OpenFileMaybeCompressed(args[1])
			if err != nil {
				return err
			}
			defer r.Close()
			s, err := a.openStore(args[0], true)
			if err != nil {
				return err
			}
			return s.Import(r)
		},
	}
}
