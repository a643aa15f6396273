package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pairsbot-go/internal/execution"
)

func TestFillsFileWritesEachFillImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills.jsonl")

	fills, err := OpenFillsFile(path)
	if err != nil {
		t.Fatalf("OpenFillsFile error: %v", err)
	}
	defer fills.Close()

	if err := fills.Record(execution.Fill{Symbol: "TSLA", Side: execution.Sell, Qty: 2, Price: 102}); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := fills.Record(execution.Fill{Symbol: "NVDA", Side: execution.Buy, Qty: 2, Price: 100}); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	// read before Close: lines must already be on disk
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fills file: %v", err)
	}
	defer file.Close()

	var lines []FillLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line FillLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("json decode: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Seq != 1 || lines[0].Symbol != "TSLA" || lines[0].CashFlow != 204 {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Seq != 2 || lines[1].Side != execution.Buy || lines[1].CashFlow != -200 {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
}

func TestFillsFileRejectsAfterClose(t *testing.T) {
	fills, err := OpenFillsFile(filepath.Join(t.TempDir(), "fills.jsonl"))
	if err != nil {
		t.Fatalf("OpenFillsFile error: %v", err)
	}
	if err := fills.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := fills.Record(execution.Fill{Symbol: "NVDA", Side: execution.Buy, Qty: 1, Price: 100}); err == nil {
		t.Fatalf("expected error after close")
	}
}
