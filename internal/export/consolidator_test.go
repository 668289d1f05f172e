package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/document-pipeline/internal/repository"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const invoiceResult = `{
    "metadata": {
        "filename": "nf-1.pdf",
        "processed_at": "2024-05-01 10:30:00",
        "classification": {"type": "invoice", "confidence": 0.95}
    },
    "data": {
        "supplier_name": "Fornecedor <Ltda>",
        "items": [{"description": "Parafuso", "quantity": 2, "unit_value": 5, "total_value": 10}],
        "total_amount": 10.0
    }
}`

const unknownResult = `{
    "metadata": {
        "filename": "memo.pdf",
        "processed_at": "2024-05-01 10:31:00",
        "classification": {"type": "unknown", "confidence": 0.9},
        "status": "skipped_unknown"
    },
    "data": null
}`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\xef\xbb\xbf")) {
		t.Fatal("missing UTF-8 byte-order mark")
	}
	recs, err := csv.NewReader(bytes.NewReader(b[3:])).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestConsolidate_FlattensAndOrdersColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nf-1.json", invoiceResult)
	writeFile(t, dir, "memo.json", unknownResult)
	writeFile(t, dir, "broken.json", `{"metadata": {`)
	writeFile(t, dir, "processed_hashes.json", `["abc"]`)
	writeFile(t, dir, "notes.txt", "ignored")

	store := repository.NewResultStore(dir, quiet(), filepath.Join(dir, "processed_hashes.json"))
	out := filepath.Join(t.TempDir(), "consolidated_results.csv")
	n, err := NewConsolidator(store, quiet()).Consolidate(context.Background(), out)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}

	recs := readCSV(t, out)
	header := recs[0]
	wantPrefix := []string{"filename", "doc_type", "confidence", "processed_at", "status"}
	for i, w := range wantPrefix {
		if header[i] != w {
			t.Fatalf("header = %v", header)
		}
	}
	if len(header) != len(wantPrefix)+3 {
		t.Fatalf("header = %v", header)
	}

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q missing in %v", name, header)
		return -1
	}
	// memo.json sorts before nf-1.json.
	memo, nf := recs[1], recs[2]
	if memo[col("status")] != "skipped_unknown" || memo[col("data_items")] != "" {
		t.Errorf("memo row = %v", memo)
	}
	if nf[col("doc_type")] != "invoice" || nf[col("confidence")] != "0.95" {
		t.Errorf("invoice row = %v", nf)
	}
	if got := nf[col("data_items")]; got != `[{"description":"Parafuso","quantity":2,"unit_value":5,"total_value":10}]` {
		t.Errorf("data_items = %q", got)
	}
	if got := nf[col("data_supplier_name")]; got != "Fornecedor <Ltda>" {
		t.Errorf("data_supplier_name = %q", got)
	}
	if got := nf[col("data_total_amount")]; got != "10" {
		t.Errorf("data_total_amount = %q", got)
	}
}

func TestConsolidate_NoResults(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	n, err := NewConsolidator(repository.NewResultStore(filepath.Join(dir, "missing"), quiet()), quiet()).
		Consolidate(context.Background(), out)
	if err != nil || n != 0 {
		t.Fatalf("got %d, %v", n, err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no file should be written without results")
	}
}

func TestConsolidate_WritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nf-1.json", invoiceResult)
	xlsxPath := filepath.Join(t.TempDir(), "report.xlsx")

	c := NewConsolidator(repository.NewResultStore(dir, quiet()), quiet(), WithXLSX(xlsxPath))
	if _, err := c.Consolidate(context.Background(), filepath.Join(t.TempDir(), "out.csv")); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "filename" || rows[1][0] != "nf-1.pdf" {
		t.Errorf("rows = %v", rows)
	}
}

func TestFlattenResult_KeepsDataOrder(t *testing.T) {
	row, err := FlattenResult([]byte(`{"metadata":{"filename":"a.pdf"},"data":{"z":1,"a":"x","m":true}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"filename", "data_z", "data_a", "data_m"}
	if len(row.Keys) != len(want) {
		t.Fatalf("keys = %v", row.Keys)
	}
	for i := range want {
		if row.Keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", row.Keys, want)
		}
	}
	if row.Values["data_m"] != "true" {
		t.Errorf("bool cell = %q", row.Values["data_m"])
	}
}

func TestFlattenResult_RejectsNonObject(t *testing.T) {
	if _, err := FlattenResult([]byte(`["a","b"]`)); err == nil {
		t.Error("expected error for a list document")
	}
}
