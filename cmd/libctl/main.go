// cmd/libctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"libracatalog/internal/catalog"
	"libracatalog/internal/circulation"
	"libracatalog/internal/clients"
	"libracatalog/internal/journal"
)

const usage = `usage: libctl [-server URL] <command> [flags]

commands:
  list      [-type book|movie] [-title T] [-creator C] [-genre G] [-series S] [-isbn I]
  facets    -field NAME [-type book|movie]
  checkout  -id N -name NAME [-email EMAIL]
  return    -id N
  overdue   [-days N]
  stats
  activity  [-after SEQ] [-limit N] [-item N]
`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "libctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("libctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	serverURL := global.String("server", getEnv("LIBRACATALOG_URL", "http://localhost:8080"), "server base URL")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if global.NArg() == 0 {
		return errors.New(usage)
	}

	base := strings.TrimRight(*serverURL, "/")
	items := clients.NewCatalogClient(base, nil)
	loans := clients.NewLoanClient(base, nil)

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "list":
		return runList(ctx, items, rest, out)
	case "facets":
		return runFacets(ctx, items, rest, out)
	case "checkout":
		return runCheckout(ctx, loans, rest, out)
	case "return":
		return runReturn(ctx, loans, rest, out)
	case "overdue":
		return runOverdue(ctx, loans, rest, out)
	case "stats":
		return runStats(ctx, items, out)
	case "activity":
		return runActivity(ctx, loans, rest, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func runList(ctx context.Context, c *clients.CatalogClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	itemType := fs.String("type", "", "item type")
	values := make(map[catalog.Field]*string, len(catalog.Fields))
	for _, field := range catalog.Fields {
		values[field] = fs.String(field.String(), "", "exact "+field.String())
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := catalog.ParseQueryType(*itemType)
	if err != nil {
		return err
	}
	q := catalog.Query{Type: t, Filters: catalog.Criteria{}}
	for field, v := range values {
		if *v != "" {
			q.Filters[field] = *v
		}
	}

	views, err := c.ListItems(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tCREATOR\tGENRE\tSERIES\tISBN\tSTATUS\tBORROWER\tSINCE")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Type, v.Title, v.Creator, v.Genre, v.Series, v.ISBN, v.Availability, v.BorrowerName, v.LoanDate)
	}
	return tw.Flush()
}

func runFacets(ctx context.Context, c *clients.CatalogClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("facets", flag.ContinueOnError)
	name := fs.String("field", "", "facet field")
	itemType := fs.String("type", "", "item type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	field, err := catalog.ParseField(*name)
	if err != nil {
		return err
	}

	t, err := catalog.ParseQueryType(*itemType)
	if err != nil {
		return err
	}

	values, err := c.FacetChoices(ctx, t, field)
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Fprintln(out, v)
	}
	return nil
}

func runCheckout(ctx context.Context, c *clients.LoanClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	id := fs.Int("id", 0, "item id")
	name := fs.String("name", "", "borrower name")
	email := fs.String("email", "", "borrower email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loan, err := c.Checkout(ctx, circulation.CheckoutRequest{ItemID: *id, BorrowerName: *name, BorrowerEmail: *email})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "checked out %d %q to %s on %s (loan %s)\n",
		loan.ItemID, loan.Title, loan.BorrowerName, loan.LoanDate.Format(catalog.LoanDateLayout), loan.ID)
	return nil
}

func runReturn(ctx context.Context, c *clients.LoanClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("return", flag.ContinueOnError)
	id := fs.Int("id", 0, "item id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ret, err := c.ReturnItem(ctx, *id)
	if err != nil {
		return err
	}
	if !ret.Changed {
		fmt.Fprintf(out, "%d %q was already available\n", ret.ItemID, ret.Title)
		return nil
	}
	fmt.Fprintf(out, "returned %d %q\n", ret.ItemID, ret.Title)
	return nil
}

func runOverdue(ctx context.Context, c *clients.LoanClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("overdue", flag.ContinueOnError)
	days := fs.Int("days", 0, "threshold in days (server default when 0)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	overdue, err := c.OverdueReport(ctx, *days)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tBORROWER\tEMAIL\tSINCE\tDAYS")
	for _, o := range overdue {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", o.ID, o.Title, o.BorrowerName, o.BorrowerEmail, o.LoanDate, o.DaysElapsed)
	}
	return tw.Flush()
}

func runStats(ctx context.Context, c *clients.CatalogClient, out io.Writer) error {
	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "total %d  books %d  movies %d  loaned %d\n", stats.Total, stats.Books, stats.Movies, stats.Loaned)
	return nil
}

func runActivity(ctx context.Context, c *clients.LoanClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	after := fs.Int64("after", 0, "only events after this sequence number")
	limit := fs.Int("limit", 50, "maximum events")
	itemID := fs.Int("item", 0, "show the full history of one item")
	if err := fs.Parse(args); err != nil {
		return err
	}

	byItem := false
	fs.Visit(func(f *flag.Flag) { byItem = byItem || f.Name == "item" })

	var (
		events []journal.Event
		err    error
	)
	if byItem {
		events, err = c.ItemHistory(ctx, *itemID)
	} else {
		events, err = c.Activity(ctx, *after, *limit)
	}
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s\t%s\titem %s\t%s\n",
			strconv.FormatInt(e.Seq, 10), e.CreatedAt.Format(time.RFC3339), strconv.Itoa(e.ItemID), e.EventType)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
