package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mlebedev/verifact/internal/model"
)

var (
	cfgFile   string
	verbose   bool
	outputDir string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "verifact",
	Short: "Verifact - multi-pass scientific fact-checking pipeline",
	Long: `Verifact fact-checks factual assertions extracted from a chapter
against retrieved biomedical and web evidence.

The pipeline runs in three stages:

  1. stage1   - extract assertions, retrieve evidence once, judge each
                assertion in a single pass
  2. verify   - re-run the reasoning N times over the same frozen evidence
                and aggregate into a majority verdict + agreement ratio
  3. summary  - merge both stages into final decisions and a summary

Verdicts come from an external language-model oracle and carry no
guarantee of correctness; the pipeline only aggregates them
deterministically.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("verifact v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.verifact/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "output", "output directory for run artifacts")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.verifact")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match VERIFACT_*
	viper.SetEnvPrefix("VERIFACT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the pipeline configuration from defaults, the
// config file, environment variables, and global flags.
func buildConfig() model.Config {
	cfg := model.DefaultConfig()

	cfg.Output.Dir = outputDir
	cfg.Output.Verbose = verbose

	if v := viper.GetString("oracle.model"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := viper.GetString("oracle.base_url"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if viper.IsSet("oracle.temperature") {
		cfg.Oracle.Temperature = viper.GetFloat64("oracle.temperature")
	}
	if viper.IsSet("oracle.max_tokens") {
		cfg.Oracle.MaxTokens = viper.GetInt("oracle.max_tokens")
	}
	if viper.IsSet("oracle.timeout") {
		cfg.Oracle.Timeout = viper.GetDuration("oracle.timeout")
	}

	// API keys come from the environment only.
	cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("VERIFACT_API_KEY")
	}
	cfg.Retrieval.NCBIEmail = firstEnv("PUBMED_EMAIL", "NCBI_EMAIL")
	cfg.Retrieval.NCBIAPIKey = os.Getenv("NCBI_API_KEY")
	cfg.Retrieval.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")

	if v := viper.GetString("retrieval.tavily_endpoint"); v != "" {
		cfg.Retrieval.TavilyEndpoint = v
	}
	if v := viper.GetString("retrieval.cache_dir"); v != "" {
		cfg.Retrieval.CacheDir = v
	}
	if viper.IsSet("retrieval.max_evidence_docs") {
		cfg.Retrieval.MaxEvidenceDocs = viper.GetInt("retrieval.max_evidence_docs")
	}
	if viper.IsSet("retrieval.expand_snippets") {
		cfg.Retrieval.ExpandSnippets = viper.GetBool("retrieval.expand_snippets")
	}

	if viper.IsSet("index.chunk_size") {
		cfg.Index.ChunkSize = viper.GetInt("index.chunk_size")
	}
	if viper.IsSet("index.chunk_overlap") {
		cfg.Index.ChunkOverlap = viper.GetInt("index.chunk_overlap")
	}

	if viper.IsSet("verify.num_passes") {
		cfg.Verify.NumPasses = viper.GetInt("verify.num_passes")
	}
	if viper.IsSet("verify.temperature") {
		cfg.Verify.Temperature = viper.GetFloat64("verify.temperature")
	}
	if viper.IsSet("verify.pass_workers") {
		cfg.Verify.PassWorkers = viper.GetInt("verify.pass_workers")
	}

	return cfg
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
