package logging

import (
	"testing"
	"time"
)

type lines []string

func (l *lines) WriteLineString(s string) { *l = append(*l, s) }
func (l *lines) WriteLineBytes(b []byte)  { *l = append(*l, string(b)) }

func TestLevelsFilter(t *testing.T) {
	var out lines
	log := New(&out, Warn)
	log.now = func() time.Time { return time.Date(2024, 1, 1, 9, 30, 5, 7e6, time.UTC) }

	log.Debugf("hidden")
	log.Infof("hidden")
	log.Warnf("disk %d%% full", 90)
	log.Errorf("boom")

	if len(out) != 2 {
		t.Fatalf("got %d lines: %q", len(out), out)
	}
	if out[0] != "[09:30:05.007] [WARN] disk 90% full" {
		t.Fatalf("line = %q", out[0])
	}

	log.SetLevel(Debug)
	log.Debugf("shown")
	if len(out) != 3 {
		t.Fatalf("debug line missing after SetLevel")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var log *Logger
	log.Infof("nothing %d", 1)
	log.SetLevel(Error)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"DEBUG": Debug, "": Info, "warning": Warn, "error": Error} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel accepted an unknown level")
	}
}
