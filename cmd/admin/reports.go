package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/bootstrap"
	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/scheduler"
	reportingsvc "github.com/mamadbah2/hotelerp/internal/service/reporting"
)

const dateLayout = "2006-01-02"

func (e *env) reportingService(cmd *cobra.Command) (*reportingsvc.Service, error) {
	sheetWriter, err := bootstrap.OpenSheets(cmd.Context(), e.cfg.Sheets, e.logger)
	if err != nil {
		return nil, err
	}
	return reportingsvc.NewService(e.store, sheetWriter, e.cfg.Sheets.LeakageRange, e.logger.Named("svc.reporting")), nil
}

func newExportLeakageCmd(e *env) *cobra.Command {
	var from, to, groupBy, hotel, output string
	var toSheets bool

	cmd := &cobra.Command{
		Use:   "export-leakage",
		Short: "Export the leakage report to an XLSX file or Google Sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(e.cfg.Reporting.Timezone)
			if err != nil {
				return err
			}
			q, err := leakageQuery(from, to, groupBy, hotel, loc)
			if err != nil {
				return err
			}

			svc, err := e.reportingService(cmd)
			if err != nil {
				return err
			}
			report, err := svc.Leakage(cmd.Context(), q)
			if err != nil {
				return err
			}

			if toSheets {
				if err := svc.ExportLeakageToSheets(cmd.Context(), report); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "appended %d rows to %s\n", len(report.Rows)+1, e.cfg.Sheets.LeakageRange)
				return nil
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()
			if err := reportingsvc.WriteLeakageXLSX(f, report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d groups)\n", output, len(report.Rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&groupBy, "group-by", string(models.GroupByHotel), "hotel or item")
	cmd.Flags().StringVar(&hotel, "hotel", "", "restrict to one hotel id")
	cmd.Flags().StringVarP(&output, "output", "o", "leakage.xlsx", "XLSX file to write")
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "append to the configured Google Sheet instead of writing a file")
	return cmd
}

func newDailySnapshotCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "daily-snapshot",
		Short: "Run the nightly leakage snapshot for yesterday now",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.reportingService(cmd)
			if err != nil {
				return err
			}
			sched, err := scheduler.NewScheduler(e.cfg.Reporting, svc, nil, nil, e.logger.Named("scheduler"))
			if err != nil {
				return err
			}
			if err := sched.RunDailySnapshot(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daily snapshot stored")
			return nil
		},
	}
}

// leakageQuery converts the inclusive day range of the flags into a report query.
func leakageQuery(from, to, groupBy, hotel string, loc *time.Location) (models.ReportQuery, error) {
	q := models.ReportQuery{GroupBy: models.GroupBy(groupBy)}
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return q, fmt.Errorf("--from: %w", err)
		}
		q.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return q, fmt.Errorf("--to: %w", err)
		}
		q.To = t.AddDate(0, 0, 1)
	}
	if hotel != "" {
		id, err := primitive.ObjectIDFromHex(hotel)
		if err != nil {
			return q, fmt.Errorf("--hotel: %w", err)
		}
		q.HotelID = &id
	}
	return q, nil
}
