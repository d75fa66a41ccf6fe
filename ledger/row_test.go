/*
row_test.go - Row field coercion across stored encodings
*/
package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/ledger-engine/ledger"
)

func TestRowBool_AcceptsStoredEncodings(t *testing.T) {
	// The same flag arrives as a native bool from the engine, a number from
	// JSON or SQL, and text or bytes from drivers. All must agree.

	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"native bool", true, true},
		{"sql one", int64(1), true},
		{"sql zero", int64(0), false},
		{"json number", float64(1), true},
		{"string upper", "TRUE", true},
		{"string t", "t", true},
		{"string one", "1", true},
		{"string false", "false", false},
		{"driver bytes", []byte("True"), true},
		{"missing", nil, false},
	}
	for _, tc := range cases {
		r := ledger.Row{"starred": tc.value}
		assert.Equal(t, tc.want, r.Bool("starred"), tc.name)
	}
}
