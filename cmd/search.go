package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/sse"
)

const (
	nameColumnWidth   = 40
	urlColumnWidth    = 50
	defaultOutputMode = "table"
)

type searchOptions struct {
	query     string
	countries []string
	level     string
	progType  string
	field     string
	duration  string
	interests []string
	languages []string
	budgetMin float64
	budgetMax float64
	currency  string
	output    string
}

func newSearchCommand(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the ranked programs",
		Long: `Runs the full staged search in-process, printing progress as each stage
starts and the ranked programs when the run completes.

Examples:
  exchange-search search -q "marine biology" --country Australia --type semester
  exchange-search search --field engineering --budget-max 15000 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := opts.request(cmd)
			return runSearch(cmd.Context(), root, req, opts.output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	bindSearchFlags(cmd, opts)
	return cmd
}

func bindSearchFlags(cmd *cobra.Command, opts *searchOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "free-text query")
	f.StringSliceVar(&opts.countries, "country", nil, "preferred country (repeatable)")
	f.StringVar(&opts.level, "level", "", "education level: undergraduate, graduate, postgraduate, any")
	f.StringVar(&opts.progType, "type", "", "program type: semester, summer, year, internship, research")
	f.StringVar(&opts.field, "field", "", "field of study")
	f.StringVar(&opts.duration, "duration", "", "preferred duration")
	f.StringSliceVar(&opts.interests, "interest", nil, "special interest (repeatable)")
	f.StringSliceVar(&opts.languages, "language", nil, "language requirement (repeatable)")
	f.Float64Var(&opts.budgetMin, "budget-min", 0, "minimum budget")
	f.Float64Var(&opts.budgetMax, "budget-max", 0, "maximum budget")
	f.StringVar(&opts.currency, "currency", "", "budget currency (default USD)")
	f.StringVarP(&opts.output, "output", "o", defaultOutputMode, "output format: table or json")
}

func (o *searchOptions) request(cmd *cobra.Command) domain.SearchRequest {
	req := domain.SearchRequest{
		FreeTextQuery:        o.query,
		PreferredCountries:   o.countries,
		EducationLevel:       o.level,
		ProgramType:          o.progType,
		FieldOfStudy:         o.field,
		Duration:             o.duration,
		SpecialInterests:     o.interests,
		LanguageRequirements: o.languages,
	}

	minSet, maxSet := cmd.Flags().Changed("budget-min"), cmd.Flags().Changed("budget-max")
	if minSet || maxSet {
		budget := &domain.BudgetRangeRequest{Currency: o.currency}
		if minSet {
			budget.Min = &o.budgetMin
		}
		if maxSet {
			budget.Max = &o.budgetMax
		}
		req.BudgetRange = budget
	}
	return req
}

func runSearch(ctx context.Context, root *rootOptions, req domain.SearchRequest, output string, stdout, stderr io.Writer) error {
	d, err := newDeps(ctx, depsOptions{
		configPath:  root.resolveConfigPath(),
		debug:       root.debug,
		outputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}
	defer d.Close()

	req.ClientID = "cli-" + uuid.NewString()
	q, err := d.Normalizer.Normalize(req)
	if err != nil {
		return err
	}

	events, err := d.Registry.Register(q.ConnectionID)
	if err != nil {
		return fmt.Errorf("subscribe to progress: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		printProgress(stderr, events)
	}()

	resp := d.Orchestrator.Search(ctx, q)
	d.Registry.Unregister(q.ConnectionID)
	<-done

	if output == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if !resp.Success {
		return fmt.Errorf("search failed (%s): %s", resp.ErrorType, resp.Error)
	}
	renderPrograms(stdout, resp)
	return nil
}

func printProgress(w io.Writer, events <-chan sse.Event) {
	for event := range events {
		switch data := event.Data.(type) {
		case sse.ProgressData:
			fmt.Fprintf(w, "… %s\n", strings.ReplaceAll(data.Stage.String(), "_", " "))
		default:
			if event.Type == sse.EventTypeSearchComplete {
				fmt.Fprintln(w, "✓ complete")
			}
		}
	}
}

func renderPrograms(w io.Writer, resp *domain.SearchResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = true
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: nameColumnWidth},
		{Number: 3, WidthMax: nameColumnWidth},
		{Number: 7, WidthMax: urlColumnWidth},
	})
	t.AppendHeader(table.Row{"#", "Program", "Institution", "Location", "Cost", "Score", "URL"})

	for i, p := range resp.Programs {
		score := "-"
		if p.MatchScore != nil {
			score = fmt.Sprintf("%.1f", *p.MatchScore)
		}
		cost := p.Cost
		if cost == "" {
			cost = "N/A"
		}
		t.AppendRow(table.Row{i + 1, p.ProgramName, p.Institution, p.Location, cost, score, p.ProgramURL})
	}

	caption := "Query: " + resp.SearchQuery
	if resp.Usage != nil {
		caption += fmt.Sprintf(" | %d sources, %d ms, %d AI tokens",
			resp.Usage.SourcesSearched, resp.Usage.SearchTime, resp.Usage.AITokensUsed)
	}
	t.AppendFooter(table.Row{"", "Total", len(resp.Programs)})
	t.SetCaption(caption)
	t.Render()
}
