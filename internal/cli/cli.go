package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sokinpui/ask.go/internal/config"
)

// Config holds all the command-line flag values.
type Config struct {
	ConfigPath  string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	NvimAddress string
	Yes         bool
	DryRun      bool
	NoAnimation bool
	NoRender    bool
	Verbose     bool

	// Files are the positional arguments.
	Files []string

	flags *pflag.FlagSet
}

// BindFlags defines the flags shared by every command on fs.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ConfigPath, "config", "c", "", "Path to a YAML or TOML config file (default: .ask.yaml or ~/.config/ask/config.yaml).")
	fs.StringVarP(&cfg.Model, "model", "m", "", "Model to ask (overrides the config file).")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Base URL of an OpenAI-compatible API (overrides the config file).")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Timeout for one model request, e.g. 90s (0 means none).")
	fs.StringVar(&cfg.NvimAddress, "nvim", "", "Address of a running Neovim to reload changed buffers in (default: $NVIM or $NVIM_LISTEN_ADDRESS).")
	fs.BoolVarP(&cfg.Yes, "yes", "y", false, "Apply proposed changes without asking.")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "List proposed changes without applying them.")
	fs.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable the loading spinner.")
	fs.BoolVar(&cfg.NoRender, "no-render", false, "Print replies as raw markdown.")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging.")
}

// Changed reports whether the named flag was set on the command line.
func (c *Config) Changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

// Merge overlays flags that were set explicitly onto file.
func (c *Config) Merge(file *config.Config) {
	if c.Changed("model") {
		file.Model = c.Model
	}
	if c.Changed("base-url") {
		file.BaseURL = c.BaseURL
	}
	if c.Changed("timeout") {
		file.Timeout = c.Timeout
	}
	if c.Changed("nvim") {
		file.NvimAddress = c.NvimAddress
	}
}

// Handlers are the actions behind each command.
type Handlers struct {
	Chat  func(cmd *cobra.Command, cfg *Config) error
	Apply func(cmd *cobra.Command, cfg *Config) error
}

// NewRootCommand builds the command tree.
func NewRootCommand(h Handlers) *cobra.Command {
	cfg := &Config{}

	root := &cobra.Command{
		Use:   "ask [flags] FILE...",
		Short: "Ask a language model about local files and apply the edits it proposes",
		Long: `Load the given files, send them with your question to a language model,
and apply any full-file replacements it proposes. Every overwritten file keeps
its previous content next to it with an .orig suffix.

Example: ask main.go util.go`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Files = args
			return h.Chat(cmd, cfg)
		},
	}

	apply := &cobra.Command{
		Use:   "apply [flags] FILE...",
		Short: "Apply a reply read from stdin (pipe) or the clipboard",
		Long: `Parse a model reply from stdin (if piped) or the clipboard and apply the
changes it proposes for the given files, without calling a model.

Example: pbpaste | ask apply -y main.go`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Files = args
			return h.Apply(cmd, cfg)
		},
	}

	BindFlags(root.PersistentFlags(), cfg)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg.flags = cmd.Flags()
		if cfg.Timeout < 0 {
			return fmt.Errorf("error: --timeout must not be negative")
		}
		return nil
	}
	root.AddCommand(apply)
	return root
}
