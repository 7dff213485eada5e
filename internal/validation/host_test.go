package validation

import "testing"

func TestValidHostName_Valid(t *testing.T) {
	valids := []string{
		"a",
		"x0",
		"x3000c0s19b1n0",
		"nid000001",
		"Default",
		"compute-3.local",
		"rack:1_node:2",
		// 255 chars (start/end alnum)
		mkLen("a", 255),
	}
	for _, v := range valids {
		if !ValidHostName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidHostName_Invalid(t *testing.T) {
	invalids := []string{
		"",              // empty
		":lead",         // starts with non-alnum
		"trail:",        // ends with non-alnum
		"bad host",      // space
		"semi;colon",    // semicolon
		"back`tick",     // shell metachar
		mkLen("a", 256), // > 255
	}
	for _, v := range invalids {
		if ValidHostName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

// mkLen builds a string of exactly n characters starting with the prefix.
func mkLen(prefix string, total int) string {
	if total <= len(prefix) {
		return prefix[:total]
	}
	out := make([]byte, total)
	copy(out, []byte(prefix))
	for i := len(prefix); i < total; i++ {
		out[i] = 'a'
	}
	return string(out)
}
