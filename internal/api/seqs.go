package api

import "strings"

// namedKeySequence maps the control API's symbolic key names to the byte
// sequences a terminal expects for them. cursorKeyAppMode selects the
// application-mode (SS3, "\x1bO…") variant for arrow keys when the child
// has switched the terminal into DECCKM, matching real terminal behavior.
func namedKeySequence(name string, cursorKeyAppMode bool) (string, bool) {
	switch name {
	case "Enter":
		return "\r", true
	case "Tab":
		return "\t", true
	case "Escape":
		return "\x1b", true
	case "Backspace":
		return "\x7f", true
	case "Up", "Down", "Right", "Left":
		letter := map[string]string{"Up": "A", "Down": "B", "Right": "C", "Left": "D"}[name]
		if cursorKeyAppMode {
			return "\x1bO" + letter, true
		}
		return "\x1b[" + letter, true
	case "Home":
		return "\x1b[H", true
	case "End":
		return "\x1b[F", true
	case "C-c":
		return "\x03", true
	case "C-d":
		return "\x04", true
	}
	return "", false
}

// SeqsToBytes translates a list of input sequences — each either a
// literal string or a "key:Name" symbolic key reference — into the raw
// bytes to write to the PTY. Unrecognized key names pass through as
// literal text, so a malformed request degrades gracefully instead of
// silently dropping input.
func SeqsToBytes(seqs []string, cursorKeyAppMode bool) string {
	var b strings.Builder
	for _, s := range seqs {
		if name, ok := strings.CutPrefix(s, "key:"); ok {
			if seq, known := namedKeySequence(name, cursorKeyAppMode); known {
				b.WriteString(seq)
				continue
			}
		}
		b.WriteString(s)
	}
	return b.String()
}
