package cli

import (
	"context"
	"time"

	"github.com/ptgott/fluentmail/email"
	"github.com/ptgott/fluentmail/storage"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/ptgott/fluentmail/transport/ses"
	"github.com/ptgott/fluentmail/transport/stdout"
	"github.com/ptgott/fluentmail/userconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	body    bodyFlags
	config  string
	from    string
	to      []string
	cc      []string
	bcc     []string
	subject string
	dryRun  bool
}

func newSendCmd() *cobra.Command {
	var sf sendFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build an email and send it with the configured transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, &sf)
		},
	}

	cmd.Flags().StringVar(&sf.config, "config", "./config.yaml", "path to a JSON or YAML file containing your configuration")
	cmd.Flags().StringVar(&sf.from, "from", "", "sender address")
	cmd.Flags().StringArrayVar(&sf.to, "to", nil, "recipient address; repeatable")
	cmd.Flags().StringArrayVar(&sf.cc, "cc", nil, "carbon-copy address; repeatable")
	cmd.Flags().StringArrayVar(&sf.bcc, "bcc", nil, "blind-carbon-copy address; repeatable")
	cmd.Flags().StringVar(&sf.subject, "subject", "", "subject line")
	cmd.Flags().StringArrayVar(&sf.body.attach, "attach", nil, "file to attach; repeatable")
	cmd.Flags().BoolVar(&sf.dryRun, "dry-run", false, "print the message instead of sending it")
	sf.body.register(cmd)

	return cmd
}

func runSend(cmd *cobra.Command, sf *sendFlags) error {
	ctx := cmd.Context()

	log.Info().
		Str("configPath", sf.config).
		Msg("loading the config")

	meta, err := userconfig.Load(sf.config)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("level") {
		log.Logger = log.Logger.Level(meta.Logging.Level)
	}
	if sf.dryRun {
		meta.Transport = userconfig.TransportStdout
	}

	body, err := sf.body.buildBody(cmd, meta.Attachments.MaxSize)
	if err != nil {
		return err
	}

	sc, err := meta.SessionConfig()
	if err != nil {
		return err
	}

	b := email.New(sc).From(sf.from).Subject(sf.subject).Body(body)
	for _, a := range sf.to {
		b.To(a)
	}
	for _, a := range sf.cc {
		b.Cc(a)
	}
	for _, a := range sf.bcc {
		b.Bcc(a)
	}
	e, err := b.Build()
	if err != nil {
		return err
	}

	journal, err := openJournal(meta)
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close the journal")
		}
	}()

	if err := deliver(ctx, cmd, meta, e); err != nil {
		return err
	}

	if err := journal.Add(newRecord(e, meta.Transport)); err != nil {
		// The message is already out, so this doesn't fail the command.
		log.Warn().Err(err).Str("messageID", e.MessageID()).Msg("could not record the message")
	}
	return nil
}

func deliver(ctx context.Context, cmd *cobra.Command, meta userconfig.Meta, e *email.Email) error {
	switch meta.Transport {
	case userconfig.TransportStdout:
		return e.SendVia(ctx, stdout.NewWithWriter(cmd.OutOrStdout()))
	case userconfig.TransportSES:
		t, err := ses.New(ctx, meta.SES.Config())
		if err != nil {
			return err
		}
		return e.SendVia(ctx, t)
	default:
		log.Info().Object("session", e.Session()).Msg("sending over SMTP")
		return e.Send(ctx)
	}
}

// openJournal opens the journal unless it's disabled or the message isn't
// really going anywhere.
func openJournal(meta userconfig.Meta) (*storage.Journal, error) {
	if meta.Journal.StorageDir == "" || meta.Transport == userconfig.TransportStdout {
		return storage.NewJournal(&storage.NoOpDB{}), nil
	}

	kv := meta.Journal.KVConfig()
	db, err := storage.NewBadgerDB(&kv)
	if err != nil {
		return nil, err
	}
	return storage.NewJournal(db), nil
}

func newRecord(e *email.Email, transport string) storage.Record {
	addrs := func(list []email.Address) []string {
		r := make([]string, len(list))
		for i, a := range list {
			r[i] = a.String()
		}
		return strutil.NonEmptyOrNil(r)
	}

	return storage.Record{
		MessageID: e.MessageID(),
		From:      e.From().String(),
		To:        addrs(e.To()),
		Cc:        addrs(e.Cc()),
		Bcc:       addrs(e.Bcc()),
		Subject:   e.Subject(),
		Transport: transport,
		SentAt:    time.Now().UTC(),
	}
}
