// Command generalinfo runs the general-information entry step against the
// metadata API from a terminal: it optionally logs in, loads the reference
// vocabularies, applies field edits to the local draft and prints the table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"hypda/entry/internal/config"
	"hypda/entry/internal/credentials"
	"hypda/entry/internal/draft"
	"hypda/entry/internal/generalinfo"
	"hypda/entry/internal/guard"
	"hypda/entry/internal/kv"
	"hypda/entry/internal/refdata"
	"hypda/entry/internal/websession"
)

type editList []generalinfo.CellEdit

func (e *editList) String() string {
	parts := make([]string, 0, len(*e))
	for _, edit := range *e {
		parts = append(parts, edit.TargetField+"="+edit.NewValue)
	}
	return strings.Join(parts, ",")
}

func (e *editList) Set(raw string) error {
	edit, err := parseEdit(raw)
	if err != nil {
		return err
	}
	*e = append(*e, edit)
	return nil
}

func parseEdit(raw string) (generalinfo.CellEdit, error) {
	field, value, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return generalinfo.CellEdit{}, fmt.Errorf("edit %q: want field=value", raw)
	}
	return generalinfo.CellEdit{TargetField: field, NewValue: value}, nil
}

func main() {
	var (
		email    = flag.String("email", "", "log in with this email before loading")
		password = flag.String("password", os.Getenv("HYPDA_PASSWORD"), "password for -email (defaults to $HYPDA_PASSWORD)")
		edits    editList
	)
	flag.Var(&edits, "set", "apply an edit as field=value (repeatable)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.LoadClient(), *email, *password, edits, os.Stdout); err != nil {
		log.Printf("generalinfo: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, email, password string, edits []generalinfo.CellEdit, out io.Writer) error {
	storage, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := kv.Close(storage); err != nil {
			log.Printf("generalinfo: close storage: %v", err)
		}
	}()

	opts := []websession.Option{websession.WithStorage(storage)}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, websession.WithTimeout(cfg.RequestTimeout))
	}
	session, err := websession.New(cfg.APIBaseURL, opts...)
	if err != nil {
		return err
	}
	if err := session.RestoreCookies(ctx); err != nil {
		log.Printf("generalinfo: %v", err)
	}

	if email != "" {
		result, err := credentials.New(session, storage).Login(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in (superuser=%t)\n", result.IsSuperuser)
	}

	table := generalinfo.New(draft.NewStore(storage), refdata.New(session), guard.New(session))
	table.Mount(ctx)
	defer table.Unmount()

	select {
	case <-table.Settled():
	case <-ctx.Done():
		return ctx.Err()
	}

	status := table.Status()
	if status.Auth.Allows(false) == guard.False {
		return errors.New("not signed in; run again with -email")
	}

	for _, edit := range edits {
		if !hasField(table.Rows(), edit.TargetField) {
			fmt.Fprintf(out, "ignored edit for unknown field %q\n", edit.TargetField)
			continue
		}
		// Only offered values reach the draft; with no offer nothing does.
		if !slices.Contains(table.Choices(edit.TargetField), edit.NewValue) {
			fmt.Fprintf(out, "ignored edit for field %q: %q is not an offered value\n", edit.TargetField, edit.NewValue)
			continue
		}
		if _, err := table.Apply(ctx, edit); err != nil {
			return fmt.Errorf("apply %s: %w", edit.TargetField, err)
		}
	}

	return render(out, table)
}

func hasField(rows draft.Draft, field string) bool {
	for _, row := range rows {
		if row.Field == field {
			return true
		}
	}
	return false
}

func render(out io.Writer, table *generalinfo.Table) error {
	status := table.Status()
	if status.Message != "" {
		label := "info"
		if status.IsError {
			label = "error"
		}
		fmt.Fprintf(out, "%s: %s\n", label, status.Message)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE\tCHOICES\tDESCRIPTION")
	for _, row := range table.Rows() {
		choices := table.Choices(row.Field)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Field, row.Value, strings.Join(choices, " | "), row.Description)
	}
	return tw.Flush()
}
