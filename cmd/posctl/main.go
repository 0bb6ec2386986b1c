// Command posctl runs POS maintenance operations from a shell: license
// sequence inspection and repair, menu synchronization, order submission
// and operator token issuing.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	apppos "github.com/rkbridge/backend/internal/application/pos"
	"github.com/rkbridge/backend/internal/bootstrap"
	"github.com/rkbridge/backend/internal/infrastructure/auth"
	"github.com/rkbridge/backend/internal/infrastructure/config"
	"github.com/rkbridge/backend/internal/interfaces/http/dto"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) < 3 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, os.Args[1], os.Args[2], os.Args[3:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "posctl: %v\n", err)
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, group, action string, args []string, out io.Writer) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 1, fmt.Errorf("load configuration: %w", err)
	}

	// token issuing needs no connections
	if group == "token" && action == "issue" {
		return issueToken(cfg, args, out)
	}

	var command func(context.Context, *bootstrap.App, []string, io.Writer) (int, error)
	switch group + " " + action {
	case "license status":
		command = licenseStatus
	case "license reset":
		command = licenseReset
	case "license sync":
		command = licenseSync
	case "menu sync":
		command = menuSync
	case "menu clear":
		command = menuClear
	case "order submit":
		command = orderSubmit
	default:
		usage(os.Stderr)
		return 2, fmt.Errorf("unknown command %q", group+" "+action)
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return 1, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	return command(ctx, app, args, out)
}

func licenseStatus(ctx context.Context, app *bootstrap.App, _ []string, out io.Writer) (int, error) {
	status, err := app.License.Status(ctx)
	if err != nil {
		return 1, err
	}
	if err := printJSON(out, dto.NewLicenseStatusResponse(status)); err != nil {
		return 1, err
	}
	if !status.InSync() {
		return 3, nil
	}
	return 0, nil
}

func licenseReset(ctx context.Context, app *bootstrap.App, _ []string, out io.Writer) (int, error) {
	if err := app.License.Reset(ctx); err != nil {
		return 1, err
	}
	fmt.Fprintln(out, "license sequence cache cleared")
	return 0, nil
}

func licenseSync(ctx context.Context, app *bootstrap.App, _ []string, out io.Writer) (int, error) {
	seq, err := app.License.Sync(ctx)
	if err != nil {
		return 1, err
	}
	return 0, printJSON(out, dto.LicenseSyncResponse{Sequence: seq})
}

func menuSync(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) (int, error) {
	fs := flag.NewFlagSet("menu sync", flag.ContinueOnError)
	var stations stringList
	fs.Var(&stations, "station", "Sync stations whose name contains this text (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2, err
	}

	report, err := app.Menu.SyncAll(ctx, stations)
	if err != nil {
		return 1, err
	}
	if err := printJSON(out, dto.NewMenuSyncResponse(report)); err != nil {
		return 1, err
	}
	if report.Failed() > 0 {
		return 3, nil
	}
	return 0, nil
}

func menuClear(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) (int, error) {
	fs := flag.NewFlagSet("menu clear", flag.ContinueOnError)
	force := fs.Bool("force", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return 2, err
	}

	if !*force && !confirm(os.Stdin, os.Stderr, "Delete all menu items and categories?") {
		fmt.Fprintln(out, "cancelled")
		return 0, nil
	}

	report, err := app.Menu.Clear(ctx)
	if err != nil {
		return 1, err
	}
	return 0, printJSON(out, dto.NewMenuClearResponse(report))
}

// confirm asks a yes/no question; anything but y or yes is a no
func confirm(in io.Reader, prompt io.Writer, question string) bool {
	fmt.Fprintf(prompt, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func orderSubmit(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) (int, error) {
	if len(args) != 1 {
		return 2, errors.New("usage: posctl order submit <order-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return 2, fmt.Errorf("invalid order id: %w", err)
	}

	result := app.Orders.Submit(ctx, id)
	if err := printJSON(out, dto.NewSubmitOrderResponse(result)); err != nil {
		return 1, err
	}
	switch result.Outcome {
	case apppos.OutcomeSubmitted:
		return 0, nil
	case apppos.OutcomePartiallySubmitted:
		return 3, nil
	default:
		return 1, result.Err
	}
}

func issueToken(cfg *config.Config, args []string, out io.Writer) (int, error) {
	fs := flag.NewFlagSet("token issue", flag.ContinueOnError)
	subject := fs.String("subject", "", "Operator or service name the token is issued to")
	ttl := fs.Duration("ttl", 0, "Token lifetime (default: jwt.access_token_expiration)")
	if err := fs.Parse(args); err != nil {
		return 2, err
	}

	svc := auth.NewJWTService(cfg.JWT)
	token, expires, err := svc.Issue(*subject, []string{auth.ScopePOS}, *ttl)
	if err != nil {
		return 1, err
	}
	return 0, printJSON(out, map[string]string{
		"token":      token,
		"expires_at": expires.Format(time.RFC3339),
	})
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  posctl license status           Compare the cached and server sequence numbers (exit 3 when they differ)
  posctl license reset            Clear the cached sequence number
  posctl license sync             Copy the server sequence number into the cache
  posctl menu sync [-station S]   Mirror station menus (exit 3 when a station failed)
  posctl menu clear [-force]      Delete the local menu; items on past orders are kept as unavailable
  posctl order submit <order-id>  Submit a local order (exit 3 on partial submission)
  posctl token issue -subject S   Issue a bearer token for the trigger API`)
}
