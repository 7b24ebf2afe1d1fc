package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pb40development/ifc-normalizer/internal/config"
	"github.com/pb40development/ifc-normalizer/internal/engine"
	"github.com/pb40development/ifc-normalizer/internal/normalize"
	"github.com/pb40development/ifc-normalizer/internal/portal"
	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
	"github.com/pb40development/ifc-normalizer/pkg/logging"
	"github.com/pb40development/ifc-normalizer/pkg/report"
)

var (
	processOutput   string
	processReport   string
	processNoBackup bool
)

var processCmd = &cobra.Command{
	Use:   "process <input.ifc>",
	Short: "Normalize wall properties in an IFC file",
	Long: `Process reads an IFC file, checks every wall's watched properties
against the BIM-Portal catalog and writes the resulting document and a JSON
change report.

By default the document itself is left untouched and the report records
what a normalization would change. With --apply-defaults, walls missing a
watched property get it added with its default value.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output IFC path (default <input>_normalized.ifc)")
	processCmd.Flags().StringVarP(&processReport, "report", "r", "", "report JSON path (default <input>_report.json)")
	processCmd.Flags().BoolVar(&processNoBackup, "no-backup", false, "skip the backup copy when overwriting the input")
	processCmd.Flags().Bool("apply-defaults", false, "write missing watched properties with default values")
	processCmd.Flags().String("pset", "", "property set defaults are written to")
	processCmd.Flags().String("synonyms", "", "YAML synonym table overriding the built-in one")
	processCmd.Flags().String("portal-url", "", "BIM-Portal base URL")

	cobra.CheckErr(viper.BindPFlag(config.KeyEngineApplyDefaults, processCmd.Flags().Lookup("apply-defaults")))
	cobra.CheckErr(viper.BindPFlag(config.KeyEnginePset, processCmd.Flags().Lookup("pset")))
	cobra.CheckErr(viper.BindPFlag(config.KeyEngineSynonyms, processCmd.Flags().Lookup("synonyms")))
	cobra.CheckErr(viper.BindPFlag(config.KeyPortalURL, processCmd.Flags().Lookup("portal-url")))

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.Default()
	input := args[0]

	outputPath := processOutput
	if outputPath == "" {
		outputPath = derivedPath(input, "_normalized.ifc")
	}
	reportPath := processReport
	if reportPath == "" {
		reportPath = derivedPath(input, "_report.json")
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return errors.WrapIO("read", input, err)
	}

	start := time.Now()
	doc, err := ifc.Open(data)
	if err != nil {
		return err
	}
	defer doc.Close()

	logger.Info().
		Str("file", input).
		Str("schema", doc.Schema()).
		Int("entities", doc.Len()).
		Msg("Document loaded")

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	result, err := eng.NormalizeDocument(cmd.Context(), doc)
	if err != nil {
		return err
	}

	output, err := doc.Bytes()
	if err != nil {
		return err
	}

	if outputPath == input && !processNoBackup {
		backup := input + ".backup.ifc"
		if err := os.WriteFile(backup, data, 0o644); err != nil {
			return errors.WrapIO("write", backup, err)
		}
		logger.Info().Str("backup", backup).Msg("Backup written")
	}
	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		return errors.WrapIO("write", outputPath, err)
	}

	full := &report.Full{
		Metadata: report.Metadata{
			ProcessedAt:           utc.Now(),
			ProcessingTimeSeconds: time.Since(start).Seconds(),
			OriginalFile:          filepath.Base(input),
			OriginalFileSize:      len(data),
			OutputFile:            filepath.Base(outputPath),
			OutputFileSize:        len(output),
		},
		Analysis: result.Analysis(),
		Changes:  result.Entries,
	}
	reportJSON, err := full.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportPath, reportJSON, 0o644); err != nil {
		return errors.WrapIO("write", reportPath, err)
	}

	printSummary(cmd, result, outputPath, reportPath)
	return nil
}

// buildEngine assembles the engine from the effective configuration.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	client := portal.New(
		portal.WithBaseURL(cfg.Portal.URL),
		portal.WithToken(cfg.Portal.Token),
		portal.WithRetries(cfg.Portal.Retries),
	)

	opts := []engine.Option{
		engine.WithApplyDefaults(cfg.Engine.ApplyDefaults),
		engine.WithPsetName(cfg.Engine.PsetName),
	}
	if cfg.Engine.SynonymsFile != "" {
		table, err := normalize.LoadTable(cfg.Engine.SynonymsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithExpander(normalize.NewExpander(table)))
	}
	return engine.New(client, opts...), nil
}

func printSummary(cmd *cobra.Command, result *report.Report, outputPath, reportPath string) {
	analysis := result.Analysis()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Walls checked:      %d\n", analysis.Walls)
	fmt.Fprintf(out, "Properties checked: %d\n", analysis.PropertiesChecked)
	fmt.Fprintf(out, "Change entries:     %d\n", analysis.TotalChanges)

	counts := result.CountsByProperty()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-22s %d\n", name, counts[name])
	}

	fmt.Fprintf(out, "Output: %s\n", outputPath)
	fmt.Fprintf(out, "Report: %s\n", reportPath)
}

// derivedPath replaces the input's extension with the given suffix.
func derivedPath(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix
}
