package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"haseela/internal/remote"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Store keeps one row per user in a spreadsheet tab:
// column A the user id, column B the write instant (RFC 3339),
// column C the JSON document. Upsert rewrites the whole row, which
// gives last writer wins for free.
type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
}

var _ remote.Store = (*Store)(nil)

// NewFromEnv creates a spreadsheet-backed store using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_RECORDS_SHEET_NAME (default "Records")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Store, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	recordsSheet := strings.TrimSpace(os.Getenv("GOOGLE_RECORDS_SHEET_NAME"))
	if recordsSheet == "" {
		recordsSheet = "Records"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		recordsSheet:  recordsSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// EnsureRecordsSheet creates the records tab when the spreadsheet does
// not have one yet. Used by one-shot setup tooling.
func (s *Store) EnsureRecordsSheet(ctx context.Context) error {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.recordsSheet {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: s.recordsSheet},
		},
	}}}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create sheet %s: %w", s.recordsSheet, err)
	}
	slog.InfoContext(ctx, "Created records sheet", "sheet", s.recordsSheet)
	return nil
}

func (s *Store) Fetch(ctx context.Context, userID string) (remote.Record, error) {
	if s.svc == nil {
		return remote.Record{}, errors.New("sheets service not initialized")
	}

	_, row, err := s.findRow(ctx, userID)
	if err != nil {
		return remote.Record{}, err
	}
	if row == nil {
		return remote.Record{}, remote.ErrNotFound
	}

	rec := remote.Record{}
	if len(row) >= 2 {
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(fmt.Sprint(row[1])))
		if err != nil {
			return remote.Record{}, fmt.Errorf("parse record timestamp for %s: %w", userID, err)
		}
		rec.UpdatedAt = ts
	}
	if len(row) >= 3 {
		rec.Doc = []byte(fmt.Sprint(row[2]))
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, userID string, rec remote.Record) error {
	if s.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rowNum, existing, err := s.findRow(ctx, userID)
	if err != nil {
		return err
	}

	values := &gsheet.ValueRange{Values: [][]any{{
		userID,
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Doc),
	}}}

	if existing == nil {
		rng := fmt.Sprintf("%s!A:C", s.recordsSheet)
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append record for %s: %w", userID, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:C%d", s.recordsSheet, rowNum, rowNum)
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, values).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update record for %s: %w", userID, err)
	}
	return nil
}

// findRow scans the records sheet for the user's row. Returns the 1-based
// row number and the raw row, or a nil row when absent.
func (s *Store) findRow(ctx context.Context, userID string) (int, []any, error) {
	rng := fmt.Sprintf("%s!A:C", s.recordsSheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == userID {
			return i + 1, row, nil
		}
	}
	return 0, nil, nil
}
