package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/webforms/sheetsink/creds"
	"github.com/webforms/sheetsink/httpx"
	"github.com/webforms/sheetsink/log"
)

// Sheets appends through the Google Sheets API, authenticating with a
// service account resolved per call. Credentials are re-resolved on
// every request so a rotated secret takes effect without a restart.
type Sheets struct {
	resolver *creds.Resolver
}

func NewSheets(resolver *creds.Resolver) *Sheets {
	return &Sheets{resolver: resolver}
}

func (s *Sheets) service(ctx context.Context) (*sheets.Service, error) {
	c, err := s.resolver.Resolve()
	if err != nil {
		return nil, httpx.Credentials(err)
	}

	conf := &jwt.Config{
		Email:      c.ClientEmail,
		PrivateKey: []byte(c.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	// Fetch a token up front so auth failures report as such instead of
	// surfacing later as a load error.
	if _, err := conf.TokenSource(ctx).Token(); err != nil {
		return nil, httpx.SinkAuth(err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, httpx.SinkAuth(err)
	}
	return svc, nil
}

func (s *Sheets) Append(ctx context.Context, sheetID, tab string, headers []string, values []any) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := ensureTab(ctx, svc, sheetID, tab); err != nil {
		return err
	}
	if err := ensureHeader(ctx, svc, sheetID, tab, headers); err != nil {
		return err
	}

	return appendRows(ctx, svc, sheetID, tab, [][]any{values})
}

func (s *Sheets) AppendObjects(ctx context.Context, sheetID, tab string, rows []map[string]any) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := ensureTab(ctx, svc, sheetID, tab); err != nil {
		return err
	}

	columns, err := headerRow(ctx, svc, sheetID, tab)
	if err != nil {
		return err
	}
	if len(columns) == 0 && len(rows) > 0 {
		// Blank tab: derive a header from the first object's keys.
		for key := range rows[0] {
			columns = append(columns, key)
		}
		sort.Strings(columns)
		if err := writeHeader(ctx, svc, sheetID, tab, columns); err != nil {
			return err
		}
	}

	data := make([][]any, len(rows))
	for i, row := range rows {
		line := make([]any, len(columns))
		for j, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				line[j] = v
			} else {
				line[j] = ""
			}
		}
		data[i] = line
	}
	return appendRows(ctx, svc, sheetID, tab, data)
}

func (s *Sheets) UpdateCells(ctx context.Context, sheetID, tab string, updates []CellUpdate) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := ensureTab(ctx, svc, sheetID, tab); err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, len(updates))
	for i, u := range updates {
		data[i] = &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", quoteTab(tab), columnName(u.Col), u.Row+1),
			Values: [][]any{{u.Value}},
		}
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	if _, err := svc.Spreadsheets.Values.BatchUpdate(sheetID, req).Context(ctx).Do(); err != nil {
		return httpx.SinkWrite(err)
	}
	return nil
}

// ensureTab loads the spreadsheet metadata and creates the worksheet if
// it is not there yet.
func ensureTab(ctx context.Context, svc *sheets.Service, sheetID, tab string) error {
	meta, err := svc.Spreadsheets.Get(sheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return httpx.SinkLoad(err)
	}

	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab {
			return nil
		}
	}

	log.Infof("sink: creating missing tab %q", tab)
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := svc.Spreadsheets.BatchUpdate(sheetID, req).Context(ctx).Do(); err != nil {
		return httpx.SinkWrite(err)
	}
	return nil
}

// ensureHeader writes the canonical header row once per sheet lifetime,
// detected by cell A1 being empty.
func ensureHeader(ctx context.Context, svc *sheets.Service, sheetID, tab string, headers []string) error {
	if len(headers) == 0 {
		return nil
	}

	resp, err := svc.Spreadsheets.Values.Get(sheetID, quoteTab(tab)+"!A1").Context(ctx).Do()
	if err != nil {
		return httpx.SinkLoad(err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	return writeHeader(ctx, svc, sheetID, tab, headers)
}

func headerRow(ctx context.Context, svc *sheets.Service, sheetID, tab string) ([]string, error) {
	resp, err := svc.Spreadsheets.Values.Get(sheetID, quoteTab(tab)+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, httpx.SinkLoad(err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	columns := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		columns = append(columns, fmt.Sprint(v))
	}
	return columns, nil
}

func writeHeader(ctx context.Context, svc *sheets.Service, sheetID, tab string, headers []string) error {
	line := make([]any, len(headers))
	for i, h := range headers {
		line[i] = h
	}

	vr := &sheets.ValueRange{Values: [][]any{line}}
	_, err := svc.Spreadsheets.Values.
		Update(sheetID, quoteTab(tab)+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return httpx.SinkWrite(err)
	}
	return nil
}

func appendRows(ctx context.Context, svc *sheets.Service, sheetID, tab string, data [][]any) error {
	vr := &sheets.ValueRange{Values: data}
	_, err := svc.Spreadsheets.Values.
		Append(sheetID, quoteTab(tab)+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return httpx.SinkWrite(err)
	}
	return nil
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// columnName converts a zero-based column index to its A1 letter form.
func columnName(col int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return name
}
