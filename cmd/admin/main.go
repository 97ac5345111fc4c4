package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stockflow/stockflow-golang/internal/app"
	"github.com/stockflow/stockflow-golang/internal/client"
	"github.com/stockflow/stockflow-golang/internal/dispatch"
	"github.com/stockflow/stockflow-golang/internal/lifecycle"
	"github.com/stockflow/stockflow-golang/internal/models"
	"github.com/stockflow/stockflow-golang/internal/view"
)

// console wires the core loop together for one admin session:
// store client -> dispatcher (mirror) -> projector -> terminal.
type console struct {
	dispatcher *dispatch.Dispatcher
	projector  *view.Projector
	adminID    int64
	records    []models.RequestRecord
}

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	logger := app.NewLogger(os.Getenv("ENV"))
	defer logger.Sync()

	// 1. --- Store Client ---
	apiURL := os.Getenv("STOCKFLOW_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	storeClient := client.New(apiURL, os.Getenv("STOCKFLOW_TOKEN"))

	ctx := context.Background()

	// 2. --- Authenticate (when no token was provided) ---
	if os.Getenv("STOCKFLOW_TOKEN") == "" {
		email := os.Getenv("STOCKFLOW_ADMIN_EMAIL")
		password := os.Getenv("STOCKFLOW_ADMIN_PASSWORD")
		if email == "" || password == "" {
			log.Fatal("Set STOCKFLOW_TOKEN, or STOCKFLOW_ADMIN_EMAIL and STOCKFLOW_ADMIN_PASSWORD to log in.")
		}
		if _, err := storeClient.Login(ctx, email, password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		logger.Info("logged in", zap.String("email", email))
	}

	adminID, err := strconv.ParseInt(os.Getenv("STOCKFLOW_ADMIN_ID"), 10, 64)
	if err != nil {
		log.Fatal("STOCKFLOW_ADMIN_ID must be set to the administrator's numeric ID.")
	}

	// 3. --- Wire the Core ---
	con := &console{
		dispatcher: dispatch.New(storeClient, logger),
		projector:  view.NewProjector(view.DefaultAlertTTL),
		adminID:    adminID,
	}
	if err := con.refresh(ctx); err != nil {
		log.Fatalf("Initial fetch failed: %v", err)
	}

	con.run(ctx)
}

// refresh refetches the scope and resets the ephemeral view state.
func (con *console) refresh(ctx context.Context) error {
	records, err := con.dispatcher.Refresh(ctx, con.adminID)
	if err != nil {
		return err
	}
	con.records = records
	con.projector.Reset(records)
	return nil
}

// syncLocal re-reads the mirror without touching projector state; used
// after in-place mutations where the row set (and indices) are stable.
func (con *console) syncLocal() {
	con.records = con.dispatcher.Records()
}

func (con *console) run(ctx context.Context) {
	fmt.Println("StockFlow admin console. Type 'help' for commands.")
	con.render()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := fields[0]

		// A pending confirmation intercepts y/n before anything else.
		if index, pending := con.projector.PendingConfirmation(); pending {
			switch cmd {
			case "y", "yes":
				con.confirmPlaceOrder(ctx)
				con.render()
				continue
			case "n", "no":
				con.projector.Cancel()
				fmt.Println("Cancelled.")
				continue
			default:
				fmt.Printf("Confirm placing the order for row %d first (y/n).\n", index)
				continue
			}
		}

		switch cmd {
		case "help":
			con.printHelp()
		case "list":
			con.render()
		case "refresh":
			if err := con.refresh(ctx); err != nil {
				con.projector.SetAlert(fmt.Sprintf("Refresh failed: %v", err))
			}
			con.render()
		case "timeline":
			con.cmdTimeline(fields)
			con.render()
		case "place":
			con.cmdPlace(fields)
		case "advance":
			con.cmdAdvance(ctx, fields)
			con.render()
		case "delete":
			con.cmdDelete(ctx, fields)
			con.render()
		case "quit", "exit":
			return
		default:
			fmt.Printf("Unknown command %q. Type 'help'.\n", cmd)
		}
	}
}

func (con *console) printHelp() {
	fmt.Println(`Commands:
  list          show the requests table
  refresh       refetch requests from the store
  timeline <n>  show/hide the delivery timeline for row n
  place <n>     place the order for row n (asks for confirmation)
  advance <n>   stamp the next delivery milestone for row n
  delete <n>    delete row n (only once delivered)
  quit          leave`)
}

// rowArg parses and bounds-checks the row number argument.
func (con *console) rowArg(fields []string) (int, bool) {
	if len(fields) < 2 {
		fmt.Println("Which row? e.g. 'timeline 0'")
		return 0, false
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil || index < 0 || index >= len(con.records) {
		fmt.Printf("Row must be between 0 and %d.\n", len(con.records)-1)
		return 0, false
	}
	return index, true
}

func (con *console) cmdTimeline(fields []string) {
	index, ok := con.rowArg(fields)
	if !ok {
		return
	}
	rec := con.records[index]
	if !lifecycle.TimelinePermitted(&rec) {
		fmt.Println("Admin not placed the order")
		return
	}
	con.projector.ToggleTimeline(index)
}

func (con *console) cmdPlace(fields []string) {
	index, ok := con.rowArg(fields)
	if !ok {
		return
	}
	rec := con.records[index]
	if !lifecycle.CanPlaceOrder(&rec) {
		fmt.Println("The order for this request is already placed.")
		return
	}
	con.projector.RequestConfirmation(index)
	fmt.Printf("Place the order for %q (%s)? (y/n)\n", rec.ProductName, rec.ProductCode)
}

func (con *console) confirmPlaceOrder(ctx context.Context) {
	err := con.projector.Confirm(func(index int) error {
		return con.dispatcher.PlaceOrder(ctx, con.records[index].ID)
	})
	if err != nil {
		con.projector.SetAlert(fmt.Sprintf("Order confirmation failed: %v", err))
		return
	}
	con.syncLocal()
	con.projector.SetAlert("Order confirmed successfully.")
}

func (con *console) cmdAdvance(ctx context.Context, fields []string) {
	index, ok := con.rowArg(fields)
	if !ok {
		return
	}
	rec := con.records[index]
	field, ok := lifecycle.NextField(&rec)
	if !ok {
		fmt.Println("No milestone can be stamped for this request right now.")
		return
	}
	if err := con.dispatcher.AdvanceStage(ctx, rec.ID, field); err != nil {
		con.projector.SetAlert(fmt.Sprintf("Error updating %s: %v", field, err))
		return
	}
	con.syncLocal()
	con.projector.SetAlert(fmt.Sprintf("Marked %q.", field))
}

func (con *console) cmdDelete(ctx context.Context, fields []string) {
	index, ok := con.rowArg(fields)
	if !ok {
		return
	}
	rec := con.records[index]
	err := con.dispatcher.DeleteRequest(ctx, rec.ProductCode, rec.RequestedEmail)
	if err != nil {
		con.projector.SetAlert(fmt.Sprintf("Error deleting request: %v", err))
		return
	}
	// The row set changed; indices shift, so the view resets like a refetch.
	con.records = con.dispatcher.Records()
	con.projector.Reset(con.records)
	con.projector.SetAlert("Request deleted successfully.")
}

func (con *console) render() {
	if alert := con.projector.Alert(); alert != "" {
		fmt.Printf("*** %s ***\n", alert)
	}

	if len(con.records) == 0 {
		fmt.Println("No requests in this scope.")
		return
	}

	fmt.Printf("%-3s %-24s %-12s %-26s %-9s %-6s %-22s %s\n",
		"#", "Product", "Code", "Email", "Available", "Need", "Stage", "Actions")
	for i := range con.records {
		rec := con.records[i]
		actions := con.actionHints(&rec, i)
		fmt.Printf("%-3d %-24s %-12s %-26s %-9d %-6d %-22s %s\n",
			i, rec.ProductName, rec.ProductCode, rec.RequestedEmail,
			rec.Quantity, rec.RequestedQuantity, lifecycle.StageOf(&rec), actions)

		if con.projector.TimelineOpen(i) {
			for _, entry := range lifecycle.Timeline(&rec) {
				mark := " "
				if entry.Reached {
					mark = "x"
				}
				fmt.Printf("      [%s] %-24s %s\n", mark, entry.Label, lifecycle.FormatDate(entry.Date))
			}
		}
	}
}

// actionHints renders the permitted actions the way the web table
// showed its buttons.
func (con *console) actionHints(rec *models.RequestRecord, index int) string {
	var hints []string
	for _, action := range lifecycle.PermittedActions(rec, con.projector.TimelineOpen(index)) {
		switch action.Kind {
		case lifecycle.ActionPlaceOrder:
			hints = append(hints, "place")
		case lifecycle.ActionShowTimeline:
			hints = append(hints, "timeline")
		case lifecycle.ActionHideTimeline:
			hints = append(hints, "timeline(hide)")
		case lifecycle.ActionAdvanceStage:
			hints = append(hints, "advance->"+string(action.Field))
		case lifecycle.ActionDelete:
			hints = append(hints, "delete")
		}
	}
	if len(hints) == 0 {
		return "-"
	}
	return strings.Join(hints, ", ")
}
