// Package codemod provides the command line that rewrites NestJS module sources.
package codemod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/goaux/contextvalue"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/takumakei/nestfix/editor"
	"github.com/takumakei/nestfix/execpipe"
	"github.com/takumakei/nestfix/nest"
	"go.uber.org/zap"
)

// configFile is read from the backend root when present.
const configFile = ".nestfix.yaml"

// Main runs the command line and exits the process on error.
func Main(ctx context.Context, config Config) {
	cmd := NewCommand(config)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err.Error())
		os.Exit(1)
	}
}

// NewCommand builds the root command and its subcommands.
func NewCommand(config Config) *cobra.Command {
	if config.DefaultRoot == "" {
		config.DefaultRoot = "."
	}
	if config.DefaultFormatter == "" {
		config.DefaultFormatter = "prettier --stdin-filepath {}"
	}
	if config.DefaultLogLevel == "" {
		config.DefaultLogLevel = "warn"
	}

	cmd := &cobra.Command{
		Use:     config.Use,
		Short:   config.Short,
		Long:    render(config.Long),
		Version: config.Version,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pflag.ErrHelp
		},

		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fl := cmd.PersistentFlags()
	fl.SortFlags = false
	fl.StringP("root", "C", config.DefaultRoot, "backend `dir` holding src/modules")
	fl.String("tables", "", "YAML `file` replacing built-in name tables")
	fl.BoolP("diff", "n", false, "print diffs instead of writing files")
	fl.BoolP("format", "F", false, "pipe rewritten files through the formatter")
	fl.String("formatter", config.DefaultFormatter, "formatter `command`, {} is the file path")
	fl.Bool("check", false, "do not write files that no longer parse as TypeScript")
	fl.String("log-level", config.DefaultLogLevel, "log `level`: debug, info, warn or error")
	fl.String("log-format", "console", "log `format`: console or json")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.MarkPersistentFlagDirname("root")
	cmd.MarkPersistentFlagFilename("tables", "yaml", "yml")

	cmd.AddCommand(
		fixModulesCommand(),
		fixTypesCommand(),
		auditCommand(),
		addUserIDCommand(),
		tablesCommand(),
	)
	return cmd
}

func render(usage string) string {
	if isTTY(os.Stdout) {
		r, err := glamour.NewTermRenderer(
			glamour.WithEnvironmentConfig(),
			glamour.WithWordWrap(100),
		)
		if err == nil { // if NO error
			if s, err := r.Render(usage); err == nil { // if NO error
				return s
			}
		}
	}
	return usage
}

func isTTY(v any) bool {
	if f, ok := v.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// options are the persistent flags as resolved by settings.
type options struct {
	Root      string
	Tables    string
	DryRun    bool
	Format    bool
	Formatter string
	Check     bool
	LogLevel  string
	LogFormat string
}

// session is what the subcommands run with. setup stores it in the
// command context.
type session struct {
	runner *nest.Runner
	log    *zap.Logger
	out    io.Writer
}

// settings resolves the persistent flags against NESTFIX_* environment
// variables and the config file in the backend root. Flags set on the
// command line win, then the environment, then the file. A relative tables
// path in the file is relative to the file.
func settings(cmd *cobra.Command) (options, error) {
	fl := cmd.Root().PersistentFlags()
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fl); err != nil {
		return options{}, err
	}

	path := filepath.Join(v.GetString("root"), configFile)
	inFile := false
	if _, err := os.Stat(path); err == nil { // if NO error
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return options{}, fmt.Errorf("%s: %w", path, err)
		}
		inFile = fromFile(fl, "tables")
	}

	tables := v.GetString("tables")
	if inFile && tables != "" && !filepath.IsAbs(tables) {
		tables = filepath.Join(filepath.Dir(path), tables)
	}

	return options{
		Root:      v.GetString("root"),
		Tables:    tables,
		DryRun:    v.GetBool("diff"),
		Format:    v.GetBool("format"),
		Formatter: v.GetString("formatter"),
		Check:     v.GetBool("check"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
	}, nil
}

const envPrefix = "NESTFIX"

// fromFile reports whether the value of the named setting comes from the
// config file, that is, neither the flag nor its environment variable is set.
func fromFile(fl *pflag.FlagSet, name string) bool {
	if fl.Changed(name) {
		return false
	}
	_, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	return !ok
}

func setup(cmd *cobra.Command, args []string) error {
	s, err := settings(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
	if err != nil {
		return err
	}

	tables, err := loadTables(s.Tables)
	if err != nil {
		return err
	}

	ed := &editor.Editor{
		DryRun: s.DryRun,
		Check:  s.Check,
		Root:   s.Root,
		Stdout: cmd.OutOrStdout(),
		Log:    log,
	}
	if s.Format {
		argv := strings.Fields(s.Formatter)
		if len(argv) == 0 {
			return errors.New("--format needs a --formatter command")
		}
		if err := execpipe.CheckPath(argv[0]); err != nil {
			return fmt.Errorf("%s was not found, consider using `--format=false`", argv[0])
		}
		ed.Formatter = argv
	}

	log.Debug("settings",
		zap.String("root", s.Root),
		zap.String("tables", s.Tables),
		zap.Bool("diff", s.DryRun),
		zap.Strings("formatter", ed.Formatter),
		zap.Bool("check", s.Check),
	)

	cmd.SetContext(contextvalue.With(cmd.Context(), &session{
		runner: &nest.Runner{
			Layout: nest.Layout{Root: s.Root},
			Tables: tables,
			Editor: ed,
			Log:    log,
		},
		log: log,
		out: cmd.OutOrStdout(),
	}))
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if sess, ok := contextvalue.From[*session](cmd.Context()); ok {
		_ = sess.log.Sync()
	}
	return nil
}

func loadTables(path string) (*nest.Tables, error) {
	if path == "" {
		return nest.DefaultTables()
	}
	return nest.LoadTables(path)
}

func sessionOf(cmd *cobra.Command) *session {
	sess, ok := contextvalue.From[*session](cmd.Context())
	if !ok {
		panic("never")
	}
	return sess
}
