package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/observe"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is the CLI version.
const Version = "0.3.0"

// wrapWidth is the number of characters help text is wrapped at.
const wrapWidth = 50

// wrapString wraps text at wrapWidth characters.
func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrapWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// app holds the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	logger  *zap.Logger
	metrics *metrics.Set
	store   anystore.Store
}

// execute runs one invocation of the CLI and closes the store it opened.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{v: viper.New()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.store != nil {
		err = errors.Join(err, anystore.Close(a.store))
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "anystore",
		Short: "hierarchical key-value access to many storage backends",
		Long: fmt.Sprintf(`anystore (v%s)

Get, set, delete, list and walk values addressed by '/'-separated paths
in memory, the filesystem, SQLite, bbolt, Redis, DynamoDB or Airtable.`, Version),
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("backend", "fs", wrapString("storage backend (memory, fs, sqlite, tiered, bolt, redis, dynamo, airtable)"))
	flags.String("codec", "raw", wrapString("value format used to validate input and render output (raw, string, json, yaml)"))
	flags.String("path", "", wrapString("directory for fs, database file for sqlite, tiered and bolt"))
	flags.String("redis-addr", "localhost:6379", wrapString("Redis address; a comma-separated list selects a cluster client"))
	flags.String("redis-prefix", "anystore", wrapString("prefix of every Redis key"))
	flags.String("dynamo-table", "anystore", wrapString("DynamoDB table with string keys parent (partition) and name (sort)"))
	flags.String("aws-region", "", wrapString("AWS region; the SDK default chain applies when empty"))
	flags.String("aws-endpoint", "", wrapString("DynamoDB endpoint override, e.g. for DynamoDB Local"))
	flags.String("aws-access-key-id", "", wrapString("static AWS access key; the SDK default chain applies when empty"))
	flags.String("aws-secret-access-key", "", wrapString("static AWS secret key"))
	flags.String("airtable-token", "", wrapString("Airtable personal access token"))
	flags.Int("airtable-rate", 5, wrapString("Airtable requests per second"))
	flags.Int("rate-limit", 0, wrapString("operations per second allowed against any backend; 0 disables the limit"))
	flags.String("scope", "", wrapString("address every command is relative to"))
	flags.String("log-level", "warn", wrapString("log level (debug, info, warn, error)"))
	flags.Bool("metrics", false, wrapString("print Prometheus metrics to stderr after the command"))

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		switch cmd.Name() {
		case "version", "help":
			return nil
		}
		if err := a.init(cmd); err != nil {
			return err
		}
		s, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		a.store = s
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, _ []string) {
		if a.store != nil && a.v.GetBool("metrics") {
			a.metrics.WritePrometheus(cmd.ErrOrStderr())
		}
	}

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.deleteCmd(),
		a.listCmd(),
		a.walkCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of anystore",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "anystore v%s\n", Version)
			},
		},
	)
	return root
}

// init loads .env files, binds flags and environment variables and builds
// the logger.
func (a *app) init(cmd *cobra.Command) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix("anystore")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := newLogger(a.v.GetString("log-level"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	a.metrics = metrics.NewSet()
	return nil
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s", level)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// observed wraps s with logging and metrics under the backend's name.
func (a *app) observed(s anystore.Store, name string) anystore.Store {
	return observe.Wrap(s, name, observe.WithLogger(a.logger), observe.WithMetricsSet(a.metrics))
}
