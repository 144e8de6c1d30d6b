// File: internal/contract/fuzz_test.go
package contract

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// FuzzClean asserts the cleaner never panics and stays idempotent for
// arbitrary byte soup, including truncated fences and unbalanced braces.
func FuzzClean(f *testing.F) {
	f.Add([]byte("```json\n{\"a\":1}\n```"))
	f.Add([]byte(`prose {"x": "}"} prose`))
	f.Add([]byte(`{"unterminated": "`))
	f.Add([]byte("<|begin_of_box|>{}<|end_of_box|>"))

	f.Fuzz(func(t *testing.T, data []byte) {
		fc := fuzz.NewConsumer(data)
		raw, err := fc.GetString()
		if err != nil {
			raw = string(data)
		}
		once := Clean(raw)
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean not idempotent:\n raw: %q\nonce: %q\ntwice: %q", raw, once, twice)
		}
	})
}

// FuzzParse asserts the full validator tolerates arbitrary input without
// panicking; any outcome other than a clean Command must be a ContractError.
func FuzzParse(f *testing.F) {
	f.Add([]byte(`{"next_action":"CLICK","args":{"x":1,"y":2},"done":false}`))
	f.Add([]byte(`{"next_action":"DONE","done":true}`))
	f.Add([]byte(`{"args": 12}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		cmd, err := Parse(string(data), Gates{OCR: true, UIA: true})
		if err != nil {
			if _, ok := KindOf(err); !ok {
				t.Fatalf("Parse returned a non-taxonomy error: %v", err)
			}
			return
		}
		if cmd.Args == nil {
			t.Fatal("validated Command carries nil Args")
		}
		if !cmd.NextAction.Known() {
			t.Fatalf("validated Command carries unknown action %q", cmd.NextAction)
		}
	})
}
