package dictionary

import (
	"errors"
	"testing"
)

func TestDecode_TableDriven(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantLen   int
		wantErr   bool
		notArray  bool
		firstCode string
	}{
		{name: "array", raw: `[{"code":"7203","name":"トヨタ自動車","kana":"","aliases":["トヨタ"]}]`, wantLen: 1, firstCode: "7203"},
		{name: "empty array", raw: `[]`, wantLen: 0},
		{name: "envelope", raw: `{"generatedAt":"2025-01-01T00:00:00Z","source":"JPX","data":[{"code":"1301","name":"極洋"},{"code":"7203","name":"トヨタ自動車"}]}`, wantLen: 2, firstCode: "1301"},
		{name: "extra fields kept", raw: `[{"code":"7203","name":"トヨタ自動車","market":"プライム（内国株式）","sector33":"輸送用機器"}]`, wantLen: 1, firstCode: "7203"},
		{name: "object without data", raw: `{"tickers":[]}`, wantErr: true, notArray: true},
		{name: "scalar", raw: `"7203"`, wantErr: true, notArray: true},
		{name: "invalid json", raw: `[{"code":`, wantErr: true},
		{name: "wrong element type", raw: `[1,2]`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if tc.notArray && !errors.Is(err, ErrNotArray) {
					t.Fatalf("expected ErrNotArray, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got == nil || len(got) != tc.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tc.wantLen)
			}
			if tc.firstCode != "" && got[0].Code != tc.firstCode {
				t.Fatalf("first code = %q, want %q", got[0].Code, tc.firstCode)
			}
		})
	}
}
