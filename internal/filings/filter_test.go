package filings

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCELFilter(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := Filing{
		ID:          42,
		Source:      "edgar",
		AccessionNo: "acc",
		Symbol:      "ACME",
		FormType:    "10-Q",
		FiledAt:     now.Add(-24 * time.Hour),
		Payload:     json.RawMessage(`{"revenue": 1500, "segment": {"name": "cloud"}}`),
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`form_type == "10-Q"`, true},
		{`form_type == "10-K"`, false},
		{`symbol.startsWith("AC") && id > 40u`, true},
		{`payload.revenue > 1000.0`, true},
		{`payload.segment.name == "cloud"`, true},
		{`payload.missing == 1`, false},
		{`now_ms - filed_at_ms < 7 * 86400000`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			flt, err := newCELFilter(tt.expr)
			require.NoError(t, err)
			require.Equal(t, tt.want, flt.Eval(f, now))
		})
	}
}

func TestCELFilterRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{`form_type ==`, `symbol + 1`, `unknown_var == 1`, `symbol`} {
		_, err := newCELFilter(expr)
		require.ErrorIs(t, err, ErrInvalid, expr)
	}
}

func TestCELFilterEmptyPayload(t *testing.T) {
	flt, err := newCELFilter(`has(payload.revenue)`)
	require.NoError(t, err)
	require.False(t, flt.Eval(Filing{ID: 1}, time.Now()))
}
