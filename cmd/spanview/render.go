package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andrewh/spanview/pkg/chart"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func renderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <hits.json | otlp.json | ->",
		Short: "Render a captured trace as an SVG Gantt chart",
		Long: "Render a captured trace as an SVG Gantt chart.\n\n" +
			"The input can be a search-backend hits file, an OTLP/JSON trace\n" +
			"export, or - for stdin. OTLP input is detected by its resourceSpans\n" +
			"envelope; anything else is decoded with the configured mode.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", string(chart.ModeDataPrepper), "hit schema mode: jaeger, data_prepper, custom_data_prepper")
	cmd.Flags().StringVar(&opts.format, "format", "svg", "output format: svg, json, table")
	cmd.Flags().Float64Var(&opts.from, "from", 0, "visible window start in ms")
	cmd.Flags().Float64Var(&opts.to, "to", 0, "visible window end in ms (default: full padded range)")
	cmd.Flags().StringVar(&opts.view, "view", "", "saved view preset file (YAML)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}

type renderOptions struct {
	mode   string
	format string
	from   float64
	to     float64
	view   string
	output string
}

// viewPreset is a reusable render configuration, so a window and format
// tuned for one trace can be replayed across captures.
type viewPreset struct {
	From   float64 `yaml:"from"`
	To     float64 `yaml:"to"`
	Format string  `yaml:"format"`
	Title  string  `yaml:"title"`
}

func loadViewPreset(path string) (*viewPreset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied preset path is expected
	if err != nil {
		return nil, fmt.Errorf("reading view preset: %w", err)
	}
	var preset viewPreset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("parsing view preset: %w", err)
	}
	if preset.To != 0 && preset.To < preset.From {
		return nil, fmt.Errorf("view preset: to %v before from %v", preset.To, preset.From)
	}
	return &preset, nil
}

func runRender(cmd *cobra.Command, input string, opts renderOptions) error {
	if opts.view != "" {
		preset, err := loadViewPreset(opts.view)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("from") {
			opts.from = preset.From
		}
		if !cmd.Flags().Changed("to") {
			opts.to = preset.To
		}
		if !cmd.Flags().Changed("format") && preset.Format != "" {
			opts.format = preset.Format
		}
	}

	mode, err := chart.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	data, err := readInput(input)
	if err != nil {
		return err
	}

	model, err := decodeInput(data, mode, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	vp := chart.NewViewport(model.MaxExtentMs)
	if opts.to != 0 {
		vp.SetRange(opts.from, opts.to)
	}

	w := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output) //nolint:gosec // user-supplied output path is expected
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // best-effort close on write
		w = f
	}

	switch opts.format {
	case "svg":
		title := input
		if title != "-" {
			title = filepath.Base(input)
		}
		return renderGanttSVG(w, model, vp, title)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	case "table":
		chart.WriteTable(w, model)
		return nil
	default:
		return fmt.Errorf("unsupported format %q, supported: svg, json, table", opts.format)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied input path is expected
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

// decodeInput accepts three shapes: an OTLP/JSON export, a backend
// hits envelope, or a bare JSON array of hit records.
func decodeInput(data []byte, mode chart.Mode, warnings io.Writer) (chart.ChartModel, error) {
	var envelope struct {
		ResourceSpans json.RawMessage `json:"resourceSpans"`
		Hits          []chart.RawHit  `json:"hits"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if len(envelope.ResourceSpans) > 0 {
			spans, err := chart.ParseOTLP(data)
			if err != nil {
				return chart.ChartModel{}, err
			}
			return chart.ModelFromSpans(spans, warnings), nil
		}
		if envelope.Hits != nil {
			return chart.BuildChartModel(envelope.Hits, mode, warnings)
		}
	}

	var hits []chart.RawHit
	if err := json.Unmarshal(data, &hits); err != nil {
		return chart.ChartModel{}, fmt.Errorf("input is neither an OTLP export, a hits envelope, nor a hit array: %w", err)
	}
	return chart.BuildChartModel(hits, mode, warnings)
}
