package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/jpticker/config"
	"github.com/guttosm/jpticker/internal/dictionary"
)

const testDictionary = `[
  {"code":"7203","name":"トヨタ自動車","kana":"トヨタジドウシャ","aliases":["トヨタ","TOYOTA"]},
  {"code":"6758","name":"ソニーグループ","aliases":["ソニー"]}
]`

func fileConfig(t *testing.T, content string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickers_jp.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dictionary: %v", err)
	}
	return config.Config{
		Server:     config.ServerConfig{Port: "8080", RateLimitPerMinute: 100, SessionIdleTTL: time.Minute},
		Dictionary: config.DictionaryConfig{Source: config.DictSourceFile, Path: path},
		Fuzzy:      config.FuzzyConfig{Threshold: 0.35, MaxCandidates: 8, WeightCode: 0.5, WeightName: 1, WeightKana: 0.7, WeightAliases: 0.9},
		Analysis:   config.AnalysisConfig{Timeout: time.Second},
	}
}

func TestBuildCore_FileSource(t *testing.T) {
	core, cleanup, err := BuildCore(context.Background(), fileConfig(t, testDictionary))
	if err != nil {
		t.Fatalf("BuildCore: %v", err)
	}
	defer cleanup()

	if core.Store.Len() != 2 || core.DB != nil {
		t.Fatalf("unexpected core: len=%d db=%v", core.Store.Len(), core.DB)
	}
	if res := core.Resolver.Resolve("ソニー"); !res.Found() || res.Best.Code != "6758" {
		t.Fatalf("resolve via core: %+v", res)
	}
	if core.Analysis.Configured() {
		t.Fatalf("analysis client must be unconfigured without base url")
	}
	if s := core.NewSession("cli"); s.ID() != "cli" {
		t.Fatalf("session id = %q", s.ID())
	}
}

func TestBuildCore_LoadErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  func(t *testing.T) config.Config
	}{
		{name: "missing file", cfg: func(t *testing.T) config.Config {
			cfg := fileConfig(t, testDictionary)
			cfg.Dictionary.Path = filepath.Join(t.TempDir(), "nope.json")
			return cfg
		}},
		{name: "not an array", cfg: func(t *testing.T) config.Config {
			return fileConfig(t, `{"code":"7203"}`)
		}},
		{name: "http non-2xx", cfg: func(t *testing.T) config.Config {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			t.Cleanup(srv.Close)
			cfg := fileConfig(t, testDictionary)
			cfg.Dictionary = config.DictionaryConfig{Source: config.DictSourceHTTP, Path: srv.URL}
			return cfg
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := BuildCore(context.Background(), tc.cfg(t))
			var le *dictionary.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected LoadError, got %v", err)
			}
		})
	}
}

func TestDictionarySource_HTTPTimeout(t *testing.T) {
	cfg := config.Config{
		Dictionary: config.DictionaryConfig{Source: config.DictSourceHTTP, Path: "http://dict.local/tickers.json", Timeout: 7 * time.Second},
		Analysis:   config.AnalysisConfig{Timeout: 90 * time.Second},
	}
	src, err := dictionarySource(cfg, nil)
	if err != nil {
		t.Fatalf("dictionarySource: %v", err)
	}
	hs, ok := src.(dictionary.HTTPSource)
	if !ok || hs.Client == nil || hs.Client.Timeout != 7*time.Second {
		t.Fatalf("unexpected source %#v", src)
	}

	cfg.Dictionary.Timeout = 0
	src, _ = dictionarySource(cfg, nil)
	if hs := src.(dictionary.HTTPSource); hs.Client != nil {
		t.Fatalf("zero timeout should leave the source default client, got %#v", hs.Client)
	}
}

func TestBuildCore_UnknownSource(t *testing.T) {
	cfg := fileConfig(t, testDictionary)
	cfg.Dictionary.Source = "s3"
	if _, _, err := BuildCore(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "s3") {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}

// TestInitializeApp_DBFailure ensures InitializeApp returns error when DB cannot connect.
func TestInitializeApp_DBFailure(t *testing.T) {
	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig = config.Config{
		Dictionary: config.DictionaryConfig{Source: config.DictSourcePostgres},
		Postgres: config.PostgresConfig{
			Host:     "127.0.0.1",
			Port:     54329, // unlikely mapped
			User:     "x",
			Password: "y",
			DBName:   "z",
			SSLMode:  "disable",
		},
	}

	r, cleanup, err := InitializeApp()
	if err == nil || r != nil || cleanup != nil {
		if cleanup != nil {
			cleanup()
		}
		t.Fatalf("expected error from InitializeApp with invalid DB config")
	}
}

func TestInitializeApp_FileSource(t *testing.T) {
	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig = fileConfig(t, testDictionary)

	router, cleanup, err := InitializeApp()
	if err != nil {
		t.Fatalf("InitializeApp: %v", err)
	}
	defer cleanup()

	for _, path := range []string{"/healthz", "/readyz", "/api/v1/tickers/7203"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, w.Code, w.Body.String())
		}
	}
}

func TestInitializeApp_EmptyDictionaryNotReady(t *testing.T) {
	old := config.AppConfig
	t.Cleanup(func() { config.AppConfig = old })
	config.AppConfig = fileConfig(t, `[]`)

	router, cleanup, err := InitializeApp()
	if err != nil {
		t.Fatalf("InitializeApp: %v", err)
	}
	defer cleanup()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", w.Code)
	}
}

func TestInitializeApp_PostgresSource(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	mock.ExpectQuery(`SELECT code, name, kana, aliases, market, sector33, sector17\s+FROM tickers`).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "kana", "aliases", "market", "sector33", "sector17"}).
			AddRow("7203", "トヨタ自動車", nil, "{トヨタ}", "プライム", nil, nil))
	mock.ExpectPing()
	mock.ExpectClose()

	old := postgresOpener
	postgresOpener = func(cfg config.Config) (*sql.DB, error) { return db, nil }
	oldCfg := config.AppConfig
	t.Cleanup(func() {
		postgresOpener = old
		config.AppConfig = oldCfg
	})
	cfg := fileConfig(t, testDictionary)
	cfg.Dictionary = config.DictionaryConfig{Source: config.DictSourcePostgres}
	config.AppConfig = cfg

	router, cleanup, err := InitializeApp()
	if err != nil || router == nil || cleanup == nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", w.Code, w.Body.String())
	}

	cleanup()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
