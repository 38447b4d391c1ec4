package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/client/importer"
	"github.com/dmitrijs2005/finsync/internal/client/models"
	"github.com/dmitrijs2005/finsync/internal/client/services"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/money"
)

// getSimpleText, getMultiline and getSecret are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getMultiline  = GetMultiline
	getSecret     = GetSecret
)

// Add prompts for the fields of a manual record and queues it.
func (a *App) Add(ctx context.Context) error {
	var in services.ManualInput

	accountPrompt := "Account id"
	if a.config.DefaultAccountID != "" {
		accountPrompt = fmt.Sprintf("Account id [%s]", a.config.DefaultAccountID)
	}

	prompts := []struct {
		dst    *string
		prompt string
	}{
		{&in.AccountID, accountPrompt},
		{&in.Amount, "Amount (negative for spending)"},
		{&in.Currency, fmt.Sprintf("Currency [%s]", a.config.FallbackCurrency)},
		{&in.Category, "Category"},
		{&in.Merchant, "Merchant (optional)"},
		{&in.Note, "Note (optional)"},
	}

	for _, p := range prompts {
		v, err := getSimpleText(a.reader, p.prompt, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}
	if in.Currency == "" {
		in.Currency = a.config.FallbackCurrency
	}

	t, err := a.txService.Capture(ctx, in)
	if err != nil {
		return err
	}

	a.printf("Queued %s %s\n", t.ClientID, money.Format(t.AmountMinor, t.Currency))
	return nil
}

// List prints the records still waiting for the server.
func (a *App) List(ctx context.Context) error {
	pending, err := a.txService.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		a.printf("Queue is empty\n")
		return nil
	}
	for _, t := range pending {
		a.printf("%s\n", formatPending(t))
	}
	return nil
}

func formatPending(t *models.PendingTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %-14s  %s", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.ClientID,
		money.Format(t.AmountMinor, t.Currency), t.Category)
	if t.Merchant != "" {
		fmt.Fprintf(&b, "  @ %s", t.Merchant)
	}
	return b.String()
}

// Import uploads the queue. In background mode the call returns at once and
// the outcome is printed when the import finishes; use "progress" meanwhile.
func (a *App) Import(ctx context.Context, background bool) error {
	if !background {
		s, err := a.engine.StartImport(ctx)
		return a.reportImport(s, err)
	}

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		s, err := a.engine.StartImport(ctx)
		if err := a.reportImport(s, err); err != nil {
			a.printf("Import: %s\n", err.Error())
		}
	}()
	a.printf("Import started\n")
	return nil
}

func (a *App) reportImport(s *importer.Summary, err error) error {
	switch {
	case errors.Is(err, common.ErrNothingToImport):
		a.printf("Nothing to import\n")
		return nil
	case errors.Is(err, common.ErrImportInProgress):
		a.printf("An import is already running\n")
		return nil
	case err != nil:
		return err
	}

	a.printf("Imported %d record(s): %d inserted, %d updated, %d skipped\n",
		s.Total, s.Inserted, s.Updated, s.Skipped)
	if s.Partial() {
		a.printf("Partially failed, %d record(s) stay queued:\n", s.Total-s.MarkedSynced)
		for _, e := range s.Errors {
			a.printf("  %s: %s\n", e.ClientID, e.Error)
		}
		for _, e := range s.LocalErrors {
			a.printf("  local: %s\n", e)
		}
		if s.Unkeyed > 0 {
			a.printf("  %d record(s) without client id are resent on every import\n", s.Unkeyed)
		}
	}
	return nil
}

// ShowProgress prints the state of the current or last import.
func (a *App) ShowProgress(ctx context.Context) error {
	p := a.engine.Progress()

	state := "idle"
	if p.Running {
		state = "running"
	}
	a.printf("Import %s: %d/%d processed, %d inserted, %d updated, %d skipped\n",
		state, p.Processed, p.Total, p.Inserted, p.Updated, p.Skipped)
	for _, e := range p.Errors {
		a.printf("  %s: %s\n", e.ClientID, e.Error)
	}
	if p.LastError != "" {
		a.printf("Last error: %s\n", p.LastError)
	}
	return nil
}

func (a *App) ResetProgress(ctx context.Context) error {
	a.engine.Reset()
	a.printf("Progress cleared\n")
	return nil
}

// Clear removes records the server has accepted.
func (a *App) Clear(ctx context.Context) error {
	n, err := a.txService.ClearSynced(ctx)
	if err != nil {
		return err
	}
	a.printf("Removed %d synced record(s)\n", n)
	return nil
}

// PasteEmail reads an alert's subject and body and queues what it parses.
func (a *App) PasteEmail(ctx context.Context) error {
	subject, err := getSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	body, err := getMultiline(a.reader, "Paste the message body", a.out)
	if err != nil {
		return err
	}

	res, err := a.txService.CaptureEmail(ctx, subject, body)
	if res != nil {
		a.printSignals(res.CardPayment, res.LoanNotice)
	}
	if err != nil {
		return err
	}

	if res.Transaction == nil {
		a.printf("No transaction found in the message\n")
		return nil
	}
	a.printf("Queued %s\n", formatPending(res.Transaction))
	return nil
}

func (a *App) printSignals(card *emailparse.CardPayment, loan *emailparse.LoanNotice) {
	if card != nil {
		msg := "Credit card payment detected"
		if card.CardLast4 != "" {
			msg += " for card ending " + card.CardLast4
		}
		if card.Amount != nil {
			msg += ": " + money.Format(card.Amount.Minor, card.Amount.Currency)
		}
		a.printf("%s\n", msg)
	}
	if loan != nil {
		if loan.Lender != "" {
			a.printf("%s (%s)\n", loan.Hint, loan.Lender)
		} else {
			a.printf("%s\n", loan.Hint)
		}
	}
}

// ImportMbox captures every actionable message of an mbox export.
func (a *App) ImportMbox(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := a.txService.CaptureMbox(ctx, f)
	if r != nil {
		a.printf("Messages: %d, queued: %d, duplicates: %d, unparsed: %d, failed: %d\n",
			r.Messages, r.Captured, r.Duplicates, r.Unparsed, r.Failed)
		if r.CardPayments > 0 || r.LoanNotices > 0 {
			a.printf("Card payments: %d, loan notices: %d\n", r.CardPayments, r.LoanNotices)
		}
	}
	return err
}

// Delete drops an unsynced record.
func (a *App) Delete(ctx context.Context, clientID string) error {
	if err := a.txService.Delete(ctx, clientID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no pending record with client id %q", clientID)
		}
		return err
	}
	a.printf("Deleted %s\n", clientID)
	return nil
}

// SetToken replaces the access token for subsequent calls.
func (a *App) SetToken(ctx context.Context) error {
	token, err := getSecret(a.reader, "Access token", a.out)
	if err != nil {
		return err
	}
	a.apiClient.SetAccessToken(token)
	a.printf("Token updated\n")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	a.checkOnline(ctx)
	a.printf("Server is %s\n", a.Mode())
	return nil
}
