package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/internal/cliconfig"
	"github.com/MrEthical07/goShop/internal/output"
	"github.com/spf13/cobra"
)

// app holds the state shared by one command invocation.
type app struct {
	cfgFile   string
	server    string
	verbose   bool
	quiet     bool
	jsonOut   bool
	colorMode string

	cfg     *cliconfig.Config
	logger  *slog.Logger
	printer *output.Printer
	input   *bufio.Reader
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "goshop",
		Short: "Terminal storefront client",
		Long: `goshop signs in to the storefront backend, browses the catalog and
manages the wishlist from the terminal.

Example usage:
  goshop signin --email ada@example.com   # Sign in (prompts for the password)
  goshop signup --email ada@example.com   # Create an account and verify the OTP
  goshop home                             # Banners and products side by side
  goshop wishlist toggle 42               # Add product 42 to the wishlist
  goshop whoami                           # Show the stored session`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .goshop.yaml)")
	flags.StringVar(&a.server, "server", "", "backend base URL")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only print errors and requested data")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON where supported")
	flags.StringVar(&a.colorMode, "color", "", "color output: auto, always, or never")

	root.AddCommand(
		newSignInCmd(a),
		newSignUpCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProductsCmd(a),
		newBannersCmd(a),
		newHomeCmd(a),
		newWishlistCmd(a),
		newDeviceCmd(a),
		newMetricsCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// run executes one invocation and returns the process exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return output.ExitSuccess
	}

	printer := a.printer
	if printer == nil {
		printer = output.NewPrinter(output.PrinterOptions{ColorMode: output.ColorNever, Out: out, Err: errOut})
	}

	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		code := output.ExitGeneral
		if strings.HasPrefix(err.Error(), "unknown command") {
			code = output.ExitUsageError
		}
		cliErr = &output.CLIError{Summary: err.Error(), ExitCode: code}
	}
	printer.FormatError(cliErr)
	return cliErr.ExitCode
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(a.cfgFile, a.server)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "check .goshop.yaml and GOSHOP_* variables",
			ExitCode:   output.ExitConfigError,
		}
	}
	a.cfg = cfg

	mode := cfg.Output.Color
	if a.colorMode != "" {
		mode = a.colorMode
	}
	colorMode, err := output.ParseColorMode(mode)
	if err != nil {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError}
	}
	a.printer = output.NewPrinter(output.PrinterOptions{
		ColorMode:    colorMode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        a.quiet || a.jsonOut,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.input = bufio.NewReader(cmd.InOrStdin())

	a.logger.Debug("configuration loaded",
		"server", cfg.Server,
		"storage", cfg.Storage.Backend,
		"audit", cfg.Audit.Enabled,
	)
	return nil
}

// openClient builds a client and restores the stored session.
func (a *app) openClient(ctx context.Context, cmd *cobra.Command) (*goShop.Client, error) {
	b := goShop.New().
		WithConfig(a.cfg.ClientConfig()).
		WithLogger(a.logger)
	if a.cfg.Audit.Enabled {
		b.WithAuditSink(goShop.NewJSONWriterSink(cmd.ErrOrStderr()))
	}

	client, err := b.Build()
	if err != nil {
		return nil, &output.CLIError{
			Summary:  "cannot start client",
			Detail:   err.Error(),
			ExitCode: output.ExitConfigError,
		}
	}
	client.Restore(ctx)
	return client, nil
}

func (a *app) writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readLine reads one trimmed line of input. io.EOF is returned only when
// nothing was read.
func (a *app) readLine() (string, error) {
	line, err := a.input.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return line, nil
}

func usageError(format string) *output.CLIError {
	return &output.CLIError{Summary: format, ExitCode: output.ExitUsageError}
}

// withUsage turns positional argument errors into usage errors.
func withUsage(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, in []string) error {
		if err := args(cmd, in); err != nil {
			return usageError(err.Error())
		}
		return nil
	}
}
