package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/irrbot/internal/bot"
	"github.com/pitabwire/irrbot/internal/config"
)

// runCheck validates the configuration and the catalog files without
// connecting to Discord or the store.
func runCheck(out io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	questions, rules, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "config:    %s ok (store driver %s)\n", configPath, cfg.Store.Driver)
	fmt.Fprintf(out, "questions: %s ok (%d questions, sha256 %s)\n",
		cfg.Catalog.QuestionsFile, questions.Len(), questions.Checksum())
	if rules != nil {
		fmt.Fprintf(out, "tag rules: %s ok (%d rules, sha256 %s)\n",
			cfg.Catalog.TagRulesFile, rules.Len(), rules.Checksum())
	} else {
		fmt.Fprintln(out, "tag rules: none configured")
	}
	if cfg.Discord.Token == "" {
		fmt.Fprintln(out, "warning:   IRRBOT_DISCORD_TOKEN is not set; run will refuse to start")
	}
	return nil
}

// runPending prints the submissions left in the store. Approvals that failed
// part way keep their record, so this is the operator's recovery list.
func runPending(ctx context.Context, out io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	backend, submissions, sequence, err := openStore(ctx, cfg.Store, nil, zap.NewNop())
	if err != nil {
		return err
	}
	defer backend.Close()

	subs, err := bot.Pending(ctx, submissions)
	if err != nil {
		return err
	}
	last, err := sequence.Current(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tCREATED\tANSWERS")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			s.ID, s.UserID, time.Unix(s.CreatedAt, 0).UTC().Format(time.RFC3339), len(s.Questions))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d pending, last approved IRR #%d\n", len(subs), last)
	return nil
}
