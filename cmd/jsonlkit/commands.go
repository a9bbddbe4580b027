package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"jsonlkit/internal/app"
	"jsonlkit/internal/config"
	"jsonlkit/internal/converter"
	"jsonlkit/internal/version"
	"jsonlkit/pkg/configutil"
	"jsonlkit/pkg/console"
	"jsonlkit/pkg/human"
	"jsonlkit/pkg/jsonl"
)

// cli carries state shared by subcommands once flags are parsed.
type cli struct {
	configPath string
	colorMode  string
	cfg        *config.Config
	printer    *console.Printer
}

const maxDecimals = 100

var negativeNumber = regexp.MustCompile(`^-\.?[0-9]`)

func newRootCommand() *cobra.Command {
	return (&cli{}).rootCommand()
}

func (s *cli) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jsonlkit",
		Short:         "JSONL conversion and byte size formatting tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "Path to YAML configuration")
	rootCmd.PersistentFlags().StringVar(&s.colorMode, "color", "", "Color output: auto, always or never")

	rootCmd.AddCommand(
		newSizeCommand(s),
		newConvertCommand(s),
		newCatCommand(s),
		newServeCommand(s),
		newVersionCommand(),
	)
	return rootCmd
}

func (s *cli) init(cmd *cobra.Command) error {
	cfg, err := config.LoadFromEnvOrFile(s.configPath)
	if err != nil {
		return err
	}
	mode := cfg.ColorMode()
	if s.colorMode != "" {
		mode, err = console.ParseMode(s.colorMode)
		if err != nil {
			return err
		}
	}
	s.cfg = cfg
	s.printer = console.New(cmd.ErrOrStderr(), console.WithColorMode(mode))
	return nil
}

// errorPrinter returns the printer built from flags and config, or one
// honoring --color alone when initialization never completed.
func (s *cli) errorPrinter(w io.Writer) *console.Printer {
	if s.printer != nil {
		return s.printer
	}
	mode, err := console.ParseMode(s.colorMode)
	if err != nil {
		mode = console.ModeAuto
	}
	return console.New(w, console.WithColorMode(mode))
}

// execute runs root with args, keeping negative numbers such as -500 from
// being parsed as shorthand flags.
func execute(root *cobra.Command, args []string) error {
	root.SetArgs(protectNegativeNumbers(root, args))
	return root.Execute()
}

// protectNegativeNumbers moves positional arguments from the first negative
// number onwards behind a "--" terminator. Flags and their values keep their
// place. Arguments already containing "--" are returned unchanged.
func protectNegativeNumbers(root *cobra.Command, args []string) []string {
	takesValue := valueFlags(root)
	var (
		head       []string
		tail       []string
		protecting bool
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			if !protecting {
				return args
			}
			tail = append(tail, args[i+1:]...)
			i = len(args)
		case negativeNumber.MatchString(arg):
			protecting = true
			tail = append(tail, arg)
		case strings.HasPrefix(arg, "--"):
			head = append(head, arg)
			if !strings.Contains(arg, "=") && takesValue[arg] && i+1 < len(args) {
				i++
				head = append(head, args[i])
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			head = append(head, arg)
			if shorthandNeedsNext(arg, takesValue) && i+1 < len(args) {
				i++
				head = append(head, args[i])
			}
		case protecting:
			tail = append(tail, arg)
		default:
			head = append(head, arg)
		}
	}
	if !protecting {
		return args
	}
	return append(append(head, "--"), tail...)
}

// shorthandNeedsNext reports whether a shorthand group such as -md ends with
// a flag whose value is the following argument.
func shorthandNeedsNext(arg string, takesValue map[string]bool) bool {
	group := arg[1:]
	for i := 0; i < len(group); i++ {
		if takesValue["-"+group[i:i+1]] {
			return i == len(group)-1
		}
	}
	return false
}

func valueFlags(root *cobra.Command) map[string]bool {
	out := make(map[string]bool)
	collect := func(f *pflag.Flag) {
		if f.NoOptDefVal != "" {
			return
		}
		out["--"+f.Name] = true
		if f.Shorthand != "" {
			out["-"+f.Shorthand] = true
		}
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.PersistentFlags().VisitAll(collect)
		c.Flags().VisitAll(collect)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)
	return out
}

func newSizeCommand(state *cli) *cobra.Command {
	var (
		metric   bool
		decimals int
	)
	cmd := &cobra.Command{
		Use:   "size <bytes>...",
		Short: "Format byte counts as human readable sizes",
		Long:  "Format byte counts as human readable sizes. Values may be plain numbers, including negative ones, or unit strings such as 1.5GiB.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metric") {
				metric = state.cfg.Format.Metric
			}
			if !cmd.Flags().Changed("decimals") {
				decimals = state.cfg.Format.DecimalPlaces
			}
			if decimals < 0 || decimals > maxDecimals {
				return fmt.Errorf("decimals must be within 0-%d, got %d", maxDecimals, decimals)
			}
			for _, arg := range args {
				value, err := configutil.ParseByteCount(arg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), human.Format(value, metric, decimals))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&metric, "metric", "m", false, "Use powers of 1000 (kB, MB, ...) instead of 1024")
	cmd.Flags().IntVarP(&decimals, "decimals", "d", human.DefaultDecimalPlaces, "Digits after the decimal point")
	return cmd
}

func newConvertCommand(state *cli) *cobra.Command {
	var (
		from   string
		to     string
		indent bool
	)
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert records between JSON, JSONL and YAML files",
		Long:  "Convert records between JSON, JSONL and YAML. Formats are inferred from file extensions unless --from/--to are set. Use - as output for stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			fromFormat, err := resolveFormat(from, input)
			if err != nil {
				return err
			}
			toFormat := converter.FormatJSONL
			if to != "" || output != "-" {
				toFormat, err = resolveFormat(to, output)
				if err != nil {
					return err
				}
			}

			source, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			conv := converter.New()
			records, err := conv.Decode(source, fromFormat)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			if len(records) == 0 {
				state.printer.Warningf("%s contains no records", input)
			}

			if output == "-" {
				payload, err := conv.Encode(records, toFormat, indent)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSuffix(string(payload), "\n"))
				return err
			}
			if err := writeOutput(conv, output, records, toFormat, indent); err != nil {
				return err
			}
			info, err := os.Stat(output)
			if err != nil {
				return err
			}
			state.printer.Infof("wrote %d records to %s (%s)", len(records), output,
				human.Format(float64(info.Size()), state.cfg.Format.Metric, state.cfg.Format.DecimalPlaces))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Input format: json, jsonl or yaml")
	cmd.Flags().StringVar(&to, "to", "", "Output format: json, jsonl or yaml")
	cmd.Flags().BoolVar(&indent, "indent", false, "Indent JSON output")
	return cmd
}

func writeOutput(conv *converter.Converter, path string, records []any, format converter.Format, indent bool) error {
	if format == converter.FormatJSONL {
		return jsonl.WriteFile(path, records)
	}
	payload, err := conv.Encode(records, format, indent)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func resolveFormat(flag, path string) (converter.Format, error) {
	if flag != "" {
		return converter.ParseFormat(flag)
	}
	return converter.FormatFromPath(path)
}

func newCatCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file>",
		Short: "Validate a JSONL file and print its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := jsonl.ReadFile[any](args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				state.printer.Warningf("%s contains no records", args[0])
				return nil
			}
			text, err := jsonl.Marshal(records)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), text); err != nil {
				return err
			}
			state.printer.Infof("%d records", len(records))
			return nil
		},
	}
}

func newServeCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.Build(state.cfg)
			application.Run()
			return application.Err()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Identifier())
		},
	}
}
