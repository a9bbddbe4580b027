package console

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterColors(t *testing.T) {
	tests := []struct {
		name  string
		print func(*Printer, string)
		want  string
	}{
		{"warning", (*Printer).Warning, "\x1b[33mdisk almost full\x1b[0m\n"},
		{"error", (*Printer).Error, "\x1b[31mdisk almost full\x1b[0m\n"},
		{"info", (*Printer).Info, "\x1b[34mdisk almost full\x1b[0m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(New(&buf), "disk almost full")
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinterFormattedVariants(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	p.Warningf("%d skipped", 2)
	p.Errorf("open %s", "a.jsonl")
	p.Infof("%.1f%% done", 50.0)
	assert.Equal(t, "\x1b[33m2 skipped\x1b[0m\n\x1b[31mopen a.jsonl\x1b[0m\n\x1b[34m50.0% done\x1b[0m\n", buf.String())
}

func TestPrinterWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))
	p.Warningf("%d files skipped", 3)
	p.Error("boom")
	assert.Equal(t, "3 files skipped\nboom\n", buf.String())
}

func TestColorModeAutoOnBufferDisablesColor(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColorMode(ModeAuto))
	assert.False(t, p.Colored())
	p.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestColorModeAlways(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColorMode(ModeAlways))
	assert.True(t, p.Colored())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"AUTO", ModeAuto},
		{"always", ModeAlways},
		{" never ", ModeNever},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)
}

func TestDefaultPrinterReplaced(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(New(&buf))
	Warning("w")
	Error("e")
	Info("i")
	assert.Equal(t, Yellow+"w"+Reset+"\n"+Red+"e"+Reset+"\n"+Blue+"i"+Reset+"\n", buf.String())
}

func TestPrinterConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, WithColor(false))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Info("line")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.Equal(t, "line", line)
	}
}
