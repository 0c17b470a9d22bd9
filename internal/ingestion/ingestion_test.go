package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/guttosm/jpticker/internal/dictionary"
	"github.com/guttosm/jpticker/internal/domain/models"
	"github.com/guttosm/jpticker/internal/storage"
)

// fakeRepo implements storage.TickerRepository for Publish tests.
type fakeRepo struct {
	replaced []models.TickerRecord
	err      error
}

func (f *fakeRepo) ListTickers(context.Context) ([]models.TickerRecord, error) { return nil, nil }
func (f *fakeRepo) ReplaceTickers(_ context.Context, recs []models.TickerRecord) error {
	f.replaced = append([]models.TickerRecord(nil), recs...)
	return f.err
}
func (f *fakeRepo) Ping(context.Context) error { return nil }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestBuildDictionary_MergesAndSorts(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "prime.csv", listingHeader+
		"20250901,9984,ソフトバンクグループ,プライム（内国株式）,-,-,-,-\n"+
		"20250901,7203,トヨタ自動車,プライム（内国株式）,-,-,-,-\n")
	second := writeFile(t, dir, "dup.csv", listingHeader+
		"20250901,7203,別名トヨタ,スタンダード（内国株式）,-,-,-,-\n"+
		"20250901,1301,極洋,プライム（内国株式）,-,-,-,-\n")

	for _, parallel := range []int{0, 1, 8} {
		recs, err := BuildDictionary(context.Background(), []string{first, second}, parallel)
		if err != nil {
			t.Fatalf("parallel=%d: %v", parallel, err)
		}
		var codes []string
		for _, r := range recs {
			codes = append(codes, r.Code)
		}
		if !reflect.DeepEqual(codes, []string{"1301", "7203", "9984"}) {
			t.Fatalf("parallel=%d: codes = %v", parallel, codes)
		}
		if recs[1].Name != "トヨタ自動車" {
			t.Fatalf("first occurrence must win, got %+v", recs[1])
		}
	}
}

func TestBuildDictionary_Errors(t *testing.T) {
	if _, err := BuildDictionary(context.Background(), nil, 1); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}

	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", listingHeader+"20250901,7203,トヨタ自動車,-,-,-,-,-\n")
	bad := writeFile(t, dir, "bad.csv", "foo,bar\n1,2\n")

	_, err := BuildDictionary(context.Background(), []string{good, bad}, 2)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}

	_, err = BuildDictionary(context.Background(), []string{filepath.Join(dir, "missing.csv")}, 1)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteDocument_LoadableByDictionary(t *testing.T) {
	recs := []models.TickerRecord{
		{Code: "7203", Name: "トヨタ自動車", Aliases: []string{"トヨタ自動車"}, Market: "プライム（内国株式）"},
	}
	now := time.Date(2025, 9, 1, 9, 30, 0, 0, time.FixedZone("JST", 9*3600))
	doc := NewDocument(recs, "", now)
	if doc.GeneratedAt != "2025-09-01T00:30:00Z" || doc.Source != DefaultSource {
		t.Fatalf("unexpected envelope: %+v", doc)
	}

	out := filepath.Join(t.TempDir(), "docs", "tickers_jp.json")
	if err := WriteDocument(out, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	got, err := dictionary.Open(context.Background(), dictionary.FileSource{Path: out})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec, ok := got.ByCode("7203"); !ok || rec.Market != "プライム（内国株式）" {
		t.Fatalf("ByCode = %+v, %v", rec, ok)
	}
}

func TestNewDocument_EmptyData(t *testing.T) {
	doc := NewDocument(nil, "custom", time.Now())
	if doc.Data == nil || doc.Source != "custom" {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestPublish_UsesRepository(t *testing.T) {
	orig := repoCtor
	defer func() { repoCtor = orig }()

	fr := &fakeRepo{}
	repoCtor = func(*sql.DB) storage.TickerRepository { return fr }

	recs := []models.TickerRecord{{Code: "7203", Name: "トヨタ自動車"}}
	if err := Publish(context.Background(), nil, recs); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reflect.DeepEqual(fr.replaced, recs) {
		t.Fatalf("replaced = %+v", fr.replaced)
	}

	fr.err = errors.New("copy failed")
	if err := Publish(context.Background(), nil, recs); err == nil || !errors.Is(err, fr.err) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
