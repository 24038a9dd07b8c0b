package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
)

// GenerateCmd creates the generate command
func GenerateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a weekly timetable from a request file",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			strict, _ := cmd.Flags().GetBool("strict")
			maxConsecutive, _ := cmd.Flags().GetInt("max-consecutive")
			raw, _ := cmd.Flags().GetBool("raw")
			name, _ := cmd.Flags().GetString("name")

			req, err := loadRequest(input, raw)
			if err != nil {
				return err
			}
			if strict {
				req.AvailabilityMode = scheduler.AvailabilityStrict
			}
			if cmd.Flags().Changed("max-consecutive") {
				req.MaxConsecutive = maxConsecutive
			}

			body, err := generate(cmd.Context(), app, req, format, name)
			if err != nil {
				return err
			}
			return writeOutput(app, output, body)
		},
	}

	cmd.Flags().StringP("input", "i", "", "Request file (YAML or JSON)")
	cmd.Flags().StringP("format", "f", "json", "Output format: json, csv, pdf or xlsx")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	cmd.Flags().Bool("strict", false, "Parse availability into day sets and time windows instead of substring matching")
	cmd.Flags().Int("max-consecutive", 3, "Maximum consecutive lectures per class before a free period")
	cmd.Flags().Bool("raw", false, "Input uses the string-encoded form payload")
	cmd.Flags().String("name", "Weekly Timetable", "Title used by pdf and xlsx exports")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func generate(ctx context.Context, app *AppContext, req scheduler.Request, format, name string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logr := app.logger()
	timetables := service.NewTimetableService(nil, nil, nil, nil, nil, nil, logr, service.TimetableServiceConfig{})

	proposal, err := timetables.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, warning := range proposal.Warnings {
		logr.Warn(warning.Message, zap.String("code", warning.Code))
	}
	logr.Info("timetable generated",
		zap.String("fingerprint", proposal.Fingerprint),
		zap.Int("entries", proposal.Stats.Entries),
		zap.Int("free", proposal.Stats.Free),
	)

	if format == "" || format == "json" {
		body, err := json.MarshalIndent(scheduler.Output{Timetable: proposal.Timetable}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode timetable: %w", err)
		}
		return append(body, '\n'), nil
	}

	exportFormat, err := service.ParseExportFormat(format)
	if err != nil {
		return nil, err
	}
	doc, err := timetables.Proposal(proposal.ProposalID)
	if err != nil {
		return nil, err
	}
	doc.Name = name
	exports := service.NewExportService(timetables, nil, nil, nil, service.ExportConfig{}, logr)
	file, err := exports.Render(doc, exportFormat)
	if err != nil {
		return nil, err
	}
	return file.Body, nil
}
