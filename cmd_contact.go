package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolio/config"
	"portfolio/contact"
	"portfolio/logging"
	"portfolio/model"
	"portfolio/notify"
	"portfolio/storage"
)

var contactFields model.ContactFields

var (
	exportFormat string
	apiBase      string
	clearQueue   bool
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send contact messages and manage the offline queue",
	Long: "Send a contact message to the backend. Messages that cannot be delivered are kept in " +
		"the data directory and sent by 'contact sync' or 'contact watch' once the backend is reachable.",
}

var contactSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a contact message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, _, cleanup, err := openContactClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		out, err := client.Submit(cmd.Context(), contactFields)
		if contact.IsValidation(err) {
			return fmt.Errorf("%w (see --help)", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
		return nil
	},
}

var contactSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Probe the backend once and send queued messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, queue, cleanup, err := openContactClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if !client.Probe(cmd.Context()) {
			return errors.New("backend unreachable")
		}
		n, err := queue.Len()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%d message(s) still queued", n)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "queue empty")
		return nil
	},
}

var contactWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Probe the backend periodically and send queued messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, _, cleanup, err := openContactClient(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		client.Run(ctx)
		return nil
	},
}

var contactQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List messages waiting to be sent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		queue := storage.NewFallbackQueue(storage.NewLocal(cfg.DataDir))
		pending, err := queue.List()
		if err != nil {
			return err
		}
		if clearQueue {
			if err := queue.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded %s queued message(s)\n", humanize.Comma(int64(len(pending))))
			return nil
		}
		return printQueue(cmd.OutOrStdout(), pending, time.Now())
	},
}

var contactExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the backend's received messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := storage.NewContactLog(cfg.Resolve(cfg.ContactLog))
		records, err := log.Records()
		if err != nil {
			return err
		}

		switch exportFormat {
		case "csv":
			return exportCSV(cmd.OutOrStdout(), records)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if records == nil {
				records = []model.ContactRecord{}
			}
			return enc.Encode(records)
		default:
			return fmt.Errorf("unknown format %q (csv or json)", exportFormat)
		}
	},
}

func init() {
	f := contactSendCmd.Flags()
	f.StringVar(&contactFields.Name, "name", "", "Your name")
	f.StringVar(&contactFields.Email, "email", "", "Your email address")
	f.StringVar(&contactFields.Subject, "subject", "", "Subject (default \""+model.DefaultSubject+"\")")
	f.StringVar(&contactFields.Message, "message", "", "Message text")

	for _, c := range []*cobra.Command{contactSendCmd, contactSyncCmd, contactWatchCmd} {
		c.Flags().StringVar(&apiBase, "api", "", "Backend API base URL (default from config)")
	}
	contactQueueCmd.Flags().BoolVar(&clearQueue, "clear", false, "Discard every queued message instead of listing them")
	contactExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv or json")

	contactCmd.AddCommand(contactSendCmd, contactSyncCmd, contactWatchCmd, contactQueueCmd, contactExportCmd)
}

func openContactClient(cmd *cobra.Command) (*contact.Client, *storage.FallbackQueue, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	logger, err := logging.New(config.LogConfig{Level: "warn"})
	if err != nil {
		return nil, nil, nil, err
	}

	local := storage.NewLocal(cfg.DataDir)
	if err := local.EnsureDirs(); err != nil {
		return nil, nil, nil, fmt.Errorf("ensure data dir: %w", err)
	}
	queue := storage.NewFallbackQueue(local)
	notes := notify.NewQueue(notify.NewTerminalDisplay(cmd.ErrOrStderr()), nil, logger)

	client := contact.NewClient(contact.NewHTTPTransport(cfg.APIBase, nil), queue, notes,
		contact.WithProbeInterval(cfg.ProbeInterval),
		contact.WithLogger(logger),
	)
	logger.Debug("contact client ready", zap.String("api", cfg.APIBase))
	return client, queue, func() { _ = logger.Sync() }, nil
}

func printQueue(w io.Writer, pending []model.PendingContact, now time.Time) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(w, "no queued messages")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUEUED\tFROM\tSUBJECT\tSIZE")
	for _, p := range pending {
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s <%s>\t%s\t%s\n",
			id,
			humanize.RelTime(p.Timestamp, now, "ago", "from now"),
			p.Name, p.Email,
			p.Subject,
			humanize.Bytes(uint64(len(p.Message))),
		)
	}
	fmt.Fprintf(tw, "\n%s queued\n", humanize.Comma(int64(len(pending))))
	return tw.Flush()
}

func exportCSV(w io.Writer, records []model.ContactRecord) error {
	writer := csv.NewWriter(w)

	header := []string{"Timestamp", "Name", "Email", "Subject", "Message", "IP"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Name,
			r.Email,
			r.Subject,
			r.Message,
			r.IP,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
