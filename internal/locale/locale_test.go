package locale

import "testing"

func TestCheckUTF8(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "")
	t.Setenv("LANG", "")

	t.Run("no locale set is an error", func(t *testing.T) {
		if err := CheckUTF8(); err == nil {
			t.Fatal("expected error when no locale env vars are set")
		}
	})

	t.Run("LANG with UTF-8 passes", func(t *testing.T) {
		t.Setenv("LANG", "en_US.UTF-8")
		if err := CheckUTF8(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("LC_ALL overrides LANG and rejects non-UTF-8", func(t *testing.T) {
		t.Setenv("LANG", "en_US.UTF-8")
		t.Setenv("LC_ALL", "C")
		if err := CheckUTF8(); err == nil {
			t.Fatal("expected error: LC_ALL=C should take precedence over UTF-8 LANG")
		}
	})

	t.Run("case-insensitive utf8 without hyphen passes", func(t *testing.T) {
		t.Setenv("LANG", "C.utf8")
		if err := CheckUTF8(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
