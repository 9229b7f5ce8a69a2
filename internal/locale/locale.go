// Package locale implements the startup locale check. Grounded on
// original_source/src/main.rs's call to locale::check_utf8_locale() at
// startup.
package locale

import (
	"fmt"
	"os"
	"strings"
)

// CheckUTF8 inspects LC_ALL, then LC_CTYPE, then LANG (in that
// precedence) for a UTF-8 indicator. The first of them that is set
// decides: it returns an error if that value does not mention "UTF-8" or
// "utf8" (case-insensitively), or if none is set, which the caller treats
// as a fatal Config-kind error.
func CheckUTF8() error {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if strings.Contains(strings.ToLower(v), "utf-8") || strings.Contains(strings.ToLower(v), "utf8") {
			return nil
		}
		return fmt.Errorf("locale %s=%q is not a UTF-8 locale", name, v)
	}
	return fmt.Errorf("no UTF-8 locale found in LC_ALL, LC_CTYPE, or LANG")
}
