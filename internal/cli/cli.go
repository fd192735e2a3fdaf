// Package cli implements the offline triage command line tool.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/config"
	"github.com/mediscan-triage-server/internal/domain"
	"github.com/mediscan-triage-server/internal/logging"
	"github.com/mediscan-triage-server/internal/service"
)

// CLI holds the flags and output streams shared by all commands.
type CLI struct {
	configFile  string
	catalogFile string

	out    io.Writer
	errOut io.Writer
}

// NewRootCommand builds the triage command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &CLI{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "triage",
		Short: "Offline symptom triage",
		Long: `triage runs the same keyword classifier as the MediScan HTTP server
against symptom text given on the command line. It is a triage aid,
not a medical diagnosis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default searches ., ./config and /etc/mediscan-triage/)")
	rootCmd.PersistentFlags().StringVar(&c.catalogFile, "catalog", "", "keyword catalog file, overrides catalog.path from config")

	rootCmd.AddCommand(c.classifyCommand(), c.catalogCommand(), c.validateCommand())

	return rootCmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the command tree with args. Triage errors have already been
// written to errOut as JSON; any other failure is printed as a single
// "Error:" line.
func Run(args []string, out, errOut io.Writer) error {
	cmd := NewRootCommand(out, errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		var triageErr *domain.TriageError
		if !errors.As(err, &triageErr) {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
	return err
}

func (c *CLI) classifyCommand() *cobra.Command {
	var (
		imagePath   string
		contentType string
		explain     bool
	)

	cmd := &cobra.Command{
		Use:   "classify <symptoms>",
		Short: "Classify a symptom report and print the diagnosis response",
		Example: `  triage classify "high fever and chills"
  triage classify "swollen wound" --image wound.jpg
  triage classify "persistent cough" --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symptoms := strings.Join(args, " ")
			return c.runClassify(cmd.Context(), symptoms, imagePath, contentType, explain)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "optional image file to validate alongside the symptoms")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type of --image (default guessed from the file extension)")
	cmd.Flags().BoolVar(&explain, "explain", false, "include the catalog category and phrase that matched")

	return cmd
}

type explanation struct {
	MatchedCategory string `json:"matched_category"`
	MatchedPhrase   string `json:"matched_phrase"`
}

type classifyOutput struct {
	*domain.DiagnosisResponse
	Explanation *explanation `json:"explanation,omitempty"`
}

func (c *CLI) runClassify(ctx context.Context, symptoms, imagePath, contentType string, explain bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	cat, err := c.loadCatalog(cfg)
	if err != nil {
		return err
	}

	var upload *domain.ImageUpload
	if imagePath != "" {
		upload, err = fileUpload(imagePath, contentType)
		if err != nil {
			return err
		}
	}

	svc := service.NewTriageService(logger, cat)
	resp, err := svc.Diagnose(ctx, symptoms, upload)
	if err != nil {
		var triageErr *domain.TriageError
		if errors.As(err, &triageErr) {
			_ = writeJSON(c.errOut, map[string]string{
				"detail": triageErr.Message,
				"code":   string(triageErr.Kind),
			})
		}
		return err
	}

	out := classifyOutput{DiagnosisResponse: resp}
	if explain {
		result := svc.Explain(symptoms)
		out.Explanation = &explanation{
			MatchedCategory: result.MatchedCategory,
			MatchedPhrase:   result.MatchedPhrase,
		}
	}

	return writeJSON(c.out, out)
}

// fileUpload opens path lazily, the way the server hands over multipart parts.
func fileUpload(path, contentType string) (*domain.ImageUpload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("image file: %s is a directory", path)
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	return &domain.ImageUpload{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func (c *CLI) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the active keyword catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cat, err := c.loadCatalog(cfg)
			if err != nil {
				return err
			}

			data, err := cat.Marshal()
			if err != nil {
				return err
			}
			_, err = c.out.Write(data)
			return err
		},
	}
}

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and keyword catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.out, "Validating configuration...")

			manager, err := c.configManager()
			if err != nil {
				fmt.Fprintf(c.out, "✗ %v\n", err)
				return err
			}
			if used := manager.ConfigFileUsed(); used != "" {
				fmt.Fprintf(c.out, "  Config file: %s\n", used)
			} else {
				fmt.Fprintln(c.out, "  Config file: none (defaults and environment)")
			}
			if err := manager.Validate(); err != nil {
				fmt.Fprintf(c.out, "✗ Configuration has issues: %v\n", err)
				return err
			}

			cat, err := c.loadCatalog(manager.GetConfig())
			if err != nil {
				fmt.Fprintf(c.out, "✗ Catalog has issues: %v\n", err)
				return err
			}

			fmt.Fprintf(c.out, "  Catalog: %d categories, %d phrases\n", cat.Len(), cat.PhraseCount())
			fmt.Fprintln(c.out, "✓ Configuration is valid!")
			return nil
		},
	}
}

func (c *CLI) configManager() (*config.Manager, error) {
	opts := config.DefaultOptions()
	if c.configFile != "" {
		opts.ConfigFile = c.configFile
	}
	return config.NewManagerWithOptions(opts)
}

func (c *CLI) loadConfig() (*domain.Config, error) {
	manager, err := c.configManager()
	if err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

func (c *CLI) loadCatalog(cfg *domain.Config) (*catalog.Catalog, error) {
	path := cfg.Catalog.Path
	if c.catalogFile != "" {
		path = c.catalogFile
	}
	return catalog.Load(path)
}

// newLogger sends logs to errOut so stdout stays pure JSON. Only warnings
// and above are shown.
func (c *CLI) newLogger(cfg *domain.Config) (*logrus.Logger, error) {
	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(c.errOut)
	if logger.GetLevel() > logrus.WarnLevel {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
