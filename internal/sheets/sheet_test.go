package sheets_test

import (
	"testing"

	"github.com/finchhealth/denialwatch/internal/sheets"
)

func TestFingerprint(t *testing.T) {
	data := []byte("claim id,code,amount\nCLM-001,BV-01,10.00\n")

	first := sheets.Fingerprint(data)
	if len(first) != 64 {
		t.Fatalf("fingerprint length: got %d, want 64", len(first))
	}
	if second := sheets.Fingerprint(data); second != first {
		t.Errorf("fingerprint not stable: %s vs %s", first, second)
	}

	// metadata never participates; only the bytes do
	renamed := make([]byte, len(data))
	copy(renamed, data)
	if sheets.Fingerprint(renamed) != first {
		t.Error("identical bytes produced a different fingerprint")
	}

	changed := append([]byte(nil), data...)
	changed[len(changed)-2] = '1'
	if sheets.Fingerprint(changed) == first {
		t.Error("different bytes produced the same fingerprint")
	}
}
