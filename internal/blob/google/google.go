// Package google stores blobs in a Google Sheets tab.
//
// Each blob is split into text chunks and written as rows of
// (key, seq, chunk) so a payload can outgrow the per-cell size limit.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"laplog/internal/blob"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheet is the tab used when GOOGLE_SHEET_NAME is unset.
const DefaultSheet = "Blobs"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ blob.Store = (*Client)(nil)

// NewFromEnv creates a Sheets-backed blob store.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Blobs").
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
}

func New(ctx context.Context, spreadsheetID, sheet string) (*Client, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

// newSheetsService initializes a Sheets Service. A user token from
// GOOGLE_OAUTH_TOKEN_FILE wins over Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); tokenFile != "" {
		slog.InfoContext(ctx, "Using OAuth user token", "path", tokenFile)
		httpClient, err := oauthClient(ctx, tokenFile)
		if err != nil {
			return nil, err
		}
		service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
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

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) rangeAll() string {
	return fmt.Sprintf("%s!A:C", c.sheet)
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeAll()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.rangeAll(), err)
	}
	return resp.Values, nil
}

// Get implements blob.Reader.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, false, err
	}
	return decodeRows(rows, key)
}

// Put implements blob.Writer. The whole tab is rewritten: rows of other keys
// are kept in order and the key's chunks replace its previous rows.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	next := encodeRows(rows, key, data)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rangeAll(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.rangeAll(), err)
	}
	if len(next) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:C%d", c.sheet, len(next))
	vr := &gsheet.ValueRange{Values: next}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	slog.DebugContext(ctx, "Blob written to sheet", "sheet", c.sheet, "key", key, "rows", len(next), "bytes", len(data))
	return nil
}
