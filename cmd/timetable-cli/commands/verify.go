package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/service"
)

// ErrViolations is returned when a verified timetable breaks a hard constraint.
var ErrViolations = errors.New("timetable has violations")

// VerifyCmd creates the verify command
func VerifyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a timetable against the request it was generated for",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			timetablePath, _ := cmd.Flags().GetString("timetable")
			raw, _ := cmd.Flags().GetBool("raw")

			req, err := loadRequest(input, raw)
			if err != nil {
				return err
			}
			schedule, err := loadSchedule(timetablePath)
			if err != nil {
				return err
			}
			return verify(cmd.Context(), app, dto.VerifyTimetableRequest{Request: req, Timetable: schedule})
		},
	}

	cmd.Flags().StringP("input", "i", "", "Request file (YAML or JSON)")
	cmd.Flags().StringP("timetable", "t", "", "Timetable file (YAML or JSON)")
	cmd.Flags().Bool("raw", false, "Input uses the string-encoded form payload")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("timetable")

	return cmd
}

func verify(ctx context.Context, app *AppContext, req dto.VerifyTimetableRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timetables := service.NewTimetableService(nil, nil, nil, nil, nil, nil, app.logger(), service.TimetableServiceConfig{})
	result, err := timetables.Verify(ctx, req)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		app.logger().Warn(warning.Message, zap.String("code", warning.Code))
	}

	out := app.stdout()
	if result.Valid {
		fmt.Fprintln(out, "OK: no violations")
		return nil
	}
	for _, v := range result.Violations {
		location := ""
		if v.Day != "" {
			location = fmt.Sprintf(" [%s %s]", v.Day, v.Time)
		}
		fmt.Fprintf(out, "%s%s: %s\n", v.Code, location, v.Message)
	}
	return fmt.Errorf("%w: %d found", ErrViolations, len(result.Violations))
}
