package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(quiet bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	p := NewPrinter(PrinterOptions{ColorMode: ColorNever, Quiet: quiet, Out: out, Err: errOut})
	return p, out, errOut
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		input string
		want  ColorMode
	}{
		{"", ColorAuto},
		{"auto", ColorAuto},
		{"always", ColorAlways},
		{"never", ColorNever},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColorMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}

func TestResolveColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, ResolveColors(ColorAlways, false))
	assert.False(t, ResolveColors(ColorNever, true))
	assert.False(t, ResolveColors(ColorAuto, true))
}

func TestPlainPrefixes(t *testing.T) {
	p, out, errOut := newTestPrinter(false)

	p.Success("signed in as %s", "ada")
	p.Warning("slow backend")
	p.Error("boom")

	assert.Equal(t, "[OK] signed in as ada\n", out.String())
	assert.Contains(t, errOut.String(), "[WARN] slow backend\n")
	assert.Contains(t, errOut.String(), "[ERROR] boom\n")
}

func TestQuietSuppressesAllButErrorsAndPrompts(t *testing.T) {
	p, out, errOut := newTestPrinter(true)

	p.Info("info")
	p.Print("plain")
	p.Header("Products")
	p.Prompt("OTP: ")
	p.Error("still shown")

	assert.Equal(t, "OTP: ", out.String())
	assert.Equal(t, "[ERROR] still shown\n", errOut.String())
}

func TestHeaderUnderline(t *testing.T) {
	p, out, _ := newTestPrinter(false)
	p.Header("Banners")
	assert.Equal(t, "\nBanners\n-------\n", out.String())
}

func TestStateBadgePlain(t *testing.T) {
	p, _, _ := newTestPrinter(false)
	assert.Equal(t, "[READY]", p.StateBadge("READY"))
}

func TestFormatError(t *testing.T) {
	p, _, errOut := newTestPrinter(false)
	p.FormatError(&CLIError{
		Summary:    "sign-in failed",
		Detail:     "Invalid credentials",
		Suggestion: "check the password",
		ExitCode:   ExitGeneral,
	})

	got := errOut.String()
	assert.Contains(t, got, "[ERROR] sign-in failed")
	assert.Contains(t, got, "Cause: Invalid credentials")
	assert.Contains(t, got, "Suggestion: check the password")
}

func TestTableRendersRows(t *testing.T) {
	buf := new(bytes.Buffer)
	table := NewTable(buf, []string{"ID", "Name"}, false)
	table.AddRow("p1", "Runner")
	table.AddRow("p2", "Tote")

	require.NoError(t, table.Render())
	assert.Equal(t, 2, table.Len())
	assert.Contains(t, buf.String(), "Runner")
	assert.Contains(t, buf.String(), "Tote")
}

func TestQuietTableRendersNothing(t *testing.T) {
	buf := new(bytes.Buffer)
	table := NewTable(buf, []string{"ID"}, true)
	table.AddRow("p1")

	require.NoError(t, table.Render())
	assert.Empty(t, buf.String())
}
