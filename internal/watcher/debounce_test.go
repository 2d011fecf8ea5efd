package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/dshills/exthost/internal/uri"
)

func TestDebounceMerge(t *testing.T) {
	tests := []struct {
		name string
		seq  []Kind
		want []Kind
	}{
		{"single", []Kind{Changed}, []Kind{Changed}},
		{"repeated changes", []Kind{Changed, Changed, Changed}, []Kind{Changed}},
		{"create then change", []Kind{Created, Changed}, []Kind{Created}},
		{"create then delete", []Kind{Created, Changed, Deleted}, nil},
		{"create delete create", []Kind{Created, Deleted, Created}, []Kind{Created}},
		{"delete then create", []Kind{Deleted, Created}, []Kind{Changed}},
		{"change then delete", []Kind{Changed, Deleted}, []Kind{Deleted}},
	}

	u := uri.File("/tmp/a.txt")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Kind
			d := newDebouncer(time.Hour, func(ev FileEvent) { got = append(got, ev.Kind) })
			for _, k := range tt.seq {
				d.push(FileEvent{Kind: k, URI: u})
			}
			if d.Pending() != 1 {
				t.Fatalf("expected one pending uri, got %d", d.Pending())
			}
			d.Flush()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
			if d.Pending() != 0 {
				t.Error("flush must clear pending events")
			}
		})
	}
}

func TestDebouncePerURI(t *testing.T) {
	var got []FileEvent
	d := newDebouncer(time.Hour, func(ev FileEvent) { got = append(got, ev) })
	d.push(FileEvent{Kind: Created, URI: uri.File("/a")})
	d.push(FileEvent{Kind: Changed, URI: uri.File("/b")})
	d.Flush()
	if len(got) != 2 {
		t.Errorf("distinct uris must not coalesce, got %v", got)
	}
}

func TestDebounceTimer(t *testing.T) {
	var (
		mu  sync.Mutex
		got []FileEvent
	)
	done := make(chan struct{})
	d := newDebouncer(10*time.Millisecond, func(ev FileEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		close(done)
	})
	d.push(FileEvent{Kind: Changed, URI: uri.File("/a")})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("debounced event never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != Changed {
		t.Errorf("unexpected events %v", got)
	}
}

func TestDebounceClose(t *testing.T) {
	fired := false
	d := newDebouncer(time.Hour, func(FileEvent) { fired = true })
	d.push(FileEvent{Kind: Changed, URI: uri.File("/a")})
	d.close()
	d.push(FileEvent{Kind: Changed, URI: uri.File("/b")})
	d.Flush()
	if fired || d.Pending() != 0 {
		t.Error("closed debouncer must drop events")
	}
}

func TestDebounceDefaultDelay(t *testing.T) {
	d := newDebouncer(0, func(FileEvent) {})
	if d.delay != DefaultDebounce {
		t.Errorf("expected %v, got %v", DefaultDebounce, d.delay)
	}
}
