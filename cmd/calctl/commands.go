package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lomoval/sharedcal/api"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/lomoval/sharedcal/internal/holidays"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newSummaryCmd(opts *options) *cobra.Command {
	var (
		from       string
		to         string
		noWeekends bool
	)

	cmd := &cobra.Command{
		Use:   "summary <calendar-id>",
		Short: "Show days per event title for a month or a range of months",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &api.SummarizeRequest{CalendarID: args[0], IncludeWeekends: !noWeekends}
			var err error
			if req.From, err = parseMonth(from); err != nil {
				return err
			}
			if to != "" {
				if req.To, err = date.ParseMonth(to); err != nil {
					return err
				}
			}

			return opts.call(cmd, func(ctx context.Context, client *api.Client) error {
				resp, err := client.Summarize(ctx, req)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return opts.printJSON(cmd.OutOrStdout(), resp.Groups)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TITLE\tCOLOR\tDAYS\tEVENTS")
				for _, g := range resp.Groups {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", g.Title, g.Color, g.Days, len(g.Events))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&from, "month", "", "first month, YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&to, "to", "", "last month, YYYY-MM (default: --month)")
	cmd.Flags().BoolVar(&noWeekends, "no-weekends", false, "do not count Saturdays and Sundays")
	return cmd
}

func newDayCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "day <calendar-id> <YYYY-MM-DD>",
		Short: "List the events occupying a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := date.Parse(args[1])
			if err != nil {
				return err
			}

			return opts.call(cmd, func(ctx context.Context, client *api.Client) error {
				resp, err := client.GetDay(ctx, &api.GetDayRequest{CalendarID: args[0], Day: day, Limit: limit})
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return opts.printJSON(cmd.OutOrStdout(), resp)
				}
				out := cmd.OutOrStdout()
				if resp.Holiday != "" {
					fmt.Fprintf(out, "%s (%s)\n", resp.Day, resp.Holiday)
				} else {
					fmt.Fprintln(out, resp.Day)
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, e := range resp.Events {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Range(), e.AuthorName)
				}
				if resp.More > 0 {
					fmt.Fprintf(w, "+%d more\n", resp.More)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", -1, "events to list before \"+N more\" (default: server setting)")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <calendar-id>",
		Short: "Print the changes of a calendar as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.dial(opts.addr)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", opts.addr, err)
			}
			defer client.Close()

			stream, err := client.Subscribe(cmd.Context(), &api.SubscribeRequest{CalendarID: args[0]})
			if err != nil {
				return err
			}
			for {
				env, err := stream.Recv()
				switch {
				case errors.Is(err, io.EOF), status.Code(err) == codes.Canceled:
					return nil
				case err != nil:
					return err
				}
				if err := printEnvelope(cmd.OutOrStdout(), opts, env); err != nil {
					return err
				}
			}
		},
	}
}

func printEnvelope(w io.Writer, opts *options, env *feed.Envelope) error {
	if opts.output == "json" {
		return opts.printJSON(w, env)
	}
	stamp := time.Now().Format(time.TimeOnly)
	var err error
	switch env.Kind {
	case feed.KindInsert:
		_, err = fmt.Fprintf(w, "%s insert %s %q %s\n", stamp, env.Event.ID, env.Event.Title, env.Event.Range())
	case feed.KindUpdate:
		_, err = fmt.Fprintf(w, "%s update %s\n", stamp, env.ID)
	default:
		_, err = fmt.Fprintf(w, "%s %s %s\n", stamp, env.Kind, env.ID)
	}
	return err
}

func newExportCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export <calendar-id>",
		Short: "Export a calendar as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, func(ctx context.Context, client *api.Client) error {
				resp, err := client.ExportICS(ctx, &api.ExportICSRequest{CalendarID: args[0]})
				if err != nil {
					return err
				}
				if file == "" {
					_, err = io.WriteString(cmd.OutOrStdout(), resp.Calendar)
					return err
				}
				if err := os.WriteFile(file, []byte(resp.Calendar), 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", file, err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "write to file instead of stdout")
	return cmd
}

func newHolidaysCmd(opts *options) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List public holidays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().Year()
			first, last := date.New(year, time.January, 1), date.New(year, time.December, 31)
			var err error
			if from != "" {
				if first, err = date.Parse(from); err != nil {
					return err
				}
			}
			if to != "" {
				if last, err = date.Parse(to); err != nil {
					return err
				}
			}

			calendar := holidays.Default()
			list := calendar.Between(first, last)
			if opts.output == "json" {
				return opts.printJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\n", calendar.Name())
			for _, h := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", h.Date, h.Date.Weekday(), h.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default: January 1st)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: December 31st)")
	return cmd
}

func parseMonth(s string) (date.Month, error) {
	if s == "" {
		return date.Of(time.Now()).MonthOf(), nil
	}
	return date.ParseMonth(s)
}
