package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pbaille/wts/internal/api"
	"github.com/pbaille/wts/internal/archive"
	"github.com/pbaille/wts/internal/classifier"
	"github.com/pbaille/wts/internal/codec"
	"github.com/pbaille/wts/internal/config"
	"github.com/pbaille/wts/internal/domain"
	"github.com/pbaille/wts/internal/store"
)

var (
	cfgPath  string
	filePath string
	verbose  bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wts",
		Short:         "Inspect and edit Warcraft III trigger-string files",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if filePath != "" {
				cfg.File = filePath
			}

			logger, err = newLogger(cfg.Logging.Level, verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "string file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(fmtCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(surveyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(snapshotsCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

func newLogger(level string, debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if debug {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openFile() (*store.File, error) {
	f, err := store.OpenFile(cfg.File)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded string file", zap.String("file", f.Path()), zap.Int("strings", f.Store().Len()))
	return f, nil
}

func saveFile(f *store.File) error {
	if err := f.Save(); err != nil {
		return err
	}
	logger.Debug("saved string file", zap.String("file", f.Path()), zap.Int("strings", f.Store().Len()))
	return nil
}

func getArchive(path string) (*archive.Archive, error) {
	if path == "" {
		path = cfg.Archive.Path
	}
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return archive.New(path)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func keyLabel(e *domain.Entry) string {
	if key, ok := classifier.KeyOf(e); ok {
		return key.String()
	}
	return "-"
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List strings in id order",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			entries := f.Store().Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No strings yet. Use 'wts add' to create one.")
				return nil
			}
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}

			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%6d  %-28s  %s\n", e.ID, keyLabel(e), domain.Truncate(e.Content, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of strings to show (0 for all)")
	return cmd
}

func printEntry(cmd *cobra.Command, e *domain.Entry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:      %d\n", e.ID)
	fmt.Fprintf(out, "Key:     %s\n", keyLabel(e))
	if c := strings.TrimSpace(e.Comment()); c != "" {
		fmt.Fprintf(out, "Comment: %s\n", c)
	}
	fmt.Fprintf(out, "Content:\n%s", e.Content)
}

func showCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			f, err := openFile()
			if err != nil {
				return err
			}

			e, err := f.Store().Get(id)
			if err != nil {
				return err
			}

			if raw {
				fmt.Fprint(cmd.OutOrStdout(), codec.Format(e))
				return nil
			}
			printEntry(cmd, e)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the record as it is stored in the file")
	return cmd
}

func findCmd() *cobra.Command {
	var level int

	cmd := &cobra.Command{
		Use:   "find [category] [entity] [field]",
		Short: "Find the string of an object field, e.g. 'find Unit H000 Hotkey'",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := domain.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("unknown category: %s", args[0])
			}
			field, ok := domain.ParseField(args[2])
			if !ok {
				return fmt.Errorf("unknown field: %s", args[2])
			}
			key := domain.Key{Category: category, Entity: args[1], Field: field}

			f, err := openFile()
			if err != nil {
				return err
			}

			e, err := f.Store().Find(key, level)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("no string for %s", key)
			}

			printEntry(cmd, e)
			return nil
		},
	}

	cmd.Flags().IntVarP(&level, "level", "l", 1, "level of the field (1-based)")
	return cmd
}

func addCmd() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a new string",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if err := codec.CheckContent(content); err != nil {
				return err
			}
			if comment != "" && !strings.HasPrefix(comment, "// ") {
				comment = "// " + comment
			}
			if err := codec.CheckComment(comment); err != nil {
				return err
			}

			f, err := openFile()
			if err != nil {
				return err
			}

			e := f.Store().Add(content, comment)
			if err := saveFile(f); err != nil {
				return err
			}

			logger.Info("string added", zap.Int("id", e.ID), zap.String("key", keyLabel(e)))
			fmt.Fprintf(cmd.OutOrStdout(), "Added string: %d\n", e.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "c", "", "comment line, e.g. \"Units: H000 (Paladin), Name (Name)\"")
	return cmd
}

func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [id] [content]",
		Short: "Replace the content of a string",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			content := strings.Join(args[1:], " ")
			if err := codec.CheckContent(content); err != nil {
				return err
			}

			f, err := openFile()
			if err != nil {
				return err
			}
			if err := f.Store().SetContent(id, content); err != nil {
				return err
			}
			if err := saveFile(f); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated string: %d\n", id)
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id...]",
		Aliases: []string{"remove"},
		Short:   "Remove strings",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				if err := f.Store().Remove(id); err != nil {
					return err
				}
				logger.Info("string removed", zap.Int("id", id))
			}

			if err := saveFile(f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d string(s)\n", len(args))
			return nil
		},
	}
}

func fmtCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fmt",
		Short: "Rewrite the file in id order with a byte order mark",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			if output != "" {
				err = f.SaveAs(output)
			} else {
				err = saveFile(f)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Formatted %d strings\n", f.Store().Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to another file")
	return cmd
}

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List classification keys and their levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			keys := f.Store().Keys()
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No classified strings.")
				return nil
			}
			for _, kc := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %d\n", kc.Key, kc.Levels)
			}
			return nil
		},
	}
}

func surveyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "survey",
		Short: "Report comment categories and fields, and comments that cannot be classified",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			report := classifier.Survey(f.Store().Entries())
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Strings:    %d\n", f.Store().Len())
			fmt.Fprintf(out, "Classified: %d\n", report.Classified)
			fmt.Fprintf(out, "Next id:    %d\n", f.Store().NextID())
			fmt.Fprintf(out, "\nCategories:\n")
			for _, c := range report.Categories {
				fmt.Fprintf(out, "  %s\n", c)
			}
			fmt.Fprintf(out, "\nFields:\n")
			for _, field := range report.Fields {
				fmt.Fprintf(out, "  %s\n", field)
			}
			if len(report.Failures) > 0 {
				fmt.Fprintf(out, "\nUnclassified:\n")
				for _, fail := range report.Failures {
					fmt.Fprintf(out, "  %d: %s\n", fail.ID, fail.Reason)
				}
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save a snapshot of the string file to the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			a, err := getArchive(dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.Export(f.Store(), f.Path())
			if err != nil {
				return err
			}

			logger.Info("snapshot exported", zap.String("snapshot", snap.ID), zap.Int("strings", snap.EntryCount))
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s (%d strings)\n", snap.ID[:8], snap.EntryCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "archive database (overrides config)")
	return cmd
}

func snapshotsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List archived snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getArchive(dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			snaps, err := a.ListSnapshots()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots yet. Use 'wts export' to create one.")
				return nil
			}

			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %5d  %s\n",
					s.ID[:8], s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.EntryCount, s.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "archive database (overrides config)")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		dbPath string
		output string
	)

	cmd := &cobra.Command{
		Use:   "import [snapshot]",
		Short: "Write an archived snapshot back to a string file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getArchive(dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			// Find snapshot by prefix
			snap, err := a.Resolve(args[0])
			if err != nil {
				return err
			}

			s, err := a.Restore(snap.ID)
			if err != nil {
				return err
			}

			target := output
			if target == "" {
				target = cfg.File
			}
			if err := s.Save(target); err != nil {
				return err
			}

			logger.Info("snapshot imported", zap.String("snapshot", snap.ID), zap.String("file", target))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d strings to %s\n", s.Len(), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "archive database (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (defaults to the configured file)")
	return cmd
}

func searchCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search string content across archived snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getArchive(dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			matches, err := a.Search(args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching strings found.")
				return nil
			}

			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %6d  %s\n", m.SnapshotID[:8], m.Entry.ID, domain.Truncate(m.Entry.Content, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "archive database (overrides config)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openFile()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.Server.Addr
			}
			server := api.New(f, addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", cfgPath)
			}
			if err := cfg.Save(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	cmd.AddCommand(initCmd)
	return cmd
}
