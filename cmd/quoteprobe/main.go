// Command quoteprobe fetches one quote from the configured provider and
// prints it as JSON. Useful for checking provider credentials.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/internal/dataflows"
)

func main() {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	provider := flag.String("provider", cfg.QuoteProvider, "finnhub, yahoo or longport")
	flag.Parse()
	symbol := "AAPL"
	if flag.NArg() > 0 {
		symbol = flag.Arg(0)
	}
	cfg.QuoteProvider = *provider

	source, err := dataflows.NewQuoteSource(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	quote, err := source.Quote(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", source.Name(), err)
		os.Exit(1)
	}

	payload, _ := json.MarshalIndent(quote, "", "  ")
	fmt.Println(string(payload))
}
