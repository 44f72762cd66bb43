// Command sheets-init verifies Google Sheets credentials and prepares the
// spreadsheet used as the remote store: it checks that the configured
// spreadsheet is reachable and creates the records tab when missing.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	gsheet "haseela/internal/remote/google"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	store, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("initialize sheets store: %v", err)
	}

	if err := store.EnsureRecordsSheet(ctx); err != nil {
		log.Fatalf("prepare records sheet: %v", err)
	}

	fmt.Println("Spreadsheet is reachable and the records sheet is ready.")
}
