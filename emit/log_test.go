package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestLogEmitter_TextMode(t *testing.T) {
	t.Run("basic event", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, false)

		emitter.Emit(Event{
			ThreadID: "run-001",
			Seq:      3,
			Step:     "execute_search",
			Msg:      "step_complete",
		})

		got := buf.String()
		want := "[step_complete] thread=run-001 seq=3 step=execute_search\n"
		if got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("meta is appended as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, false)

		emitter.Emit(Event{
			ThreadID: "run-001",
			Msg:      "run_degraded",
			Meta:     map[string]interface{}{"iteration": 2},
		})

		got := buf.String()
		if !strings.Contains(got, `meta={"iteration":2}`) {
			t.Errorf("output missing meta: %q", got)
		}
	})
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		ThreadID: "run-001",
		Seq:      1,
		Step:     "classify_query",
		Msg:      "step_complete",
	})

	var decoded struct {
		ThreadID string `json:"thread"`
		Seq      int    `json:"seq"`
		Step     string `json:"step"`
		Msg      string `json:"msg"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.ThreadID != "run-001" || decoded.Seq != 1 ||
		decoded.Step != "classify_query" || decoded.Msg != "step_complete" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestLogEmitter_ConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			emitter.Emit(Event{ThreadID: "run", Seq: n, Msg: "step_complete"})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[step_complete]") {
			t.Errorf("interleaved line: %q", line)
		}
	}
}

func TestNullEmitter(t *testing.T) {
	emitter := NewNullEmitter()

	// Must not panic, even with nil meta.
	emitter.Emit(Event{})
	emitter.Emit(Event{ThreadID: "run-001", Msg: "step_complete"})
}
