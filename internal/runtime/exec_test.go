package runtime

import (
	"sort"
	"strings"
	"testing"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "override existing key",
			base:      []string{"A=1", "B=2"},
			overrides: []string{"A=override"},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "add new key",
			base:      []string{"A=1"},
			overrides: []string{"B=2"},
			want:      []string{"A=1", "B=2"},
		},
		{
			name:      "empty base",
			base:      nil,
			overrides: []string{"A=1"},
			want:      []string{"A=1"},
		},
		{
			name:      "empty overrides",
			base:      []string{"A=1"},
			overrides: nil,
			want:      []string{"A=1"},
		},
		{
			name:      "value with equals sign",
			base:      []string{"DATABASE_URL=postgres://u:p@host/db?a=b"},
			overrides: nil,
			want:      []string{"DATABASE_URL=postgres://u:p@host/db?a=b"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B=2"},
			want:      []string{"A=1", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			sort.Strings(got)
			sort.Strings(tt.want)

			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d\ngot:  %v\nwant: %v", len(got), len(tt.want), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}

func TestLimitedBuffer(t *testing.T) {
	var b limitedBuffer

	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = %d, %v, want 5, nil", n, err)
	}
	if b.String() != "hello" {
		t.Fatalf("String = %q, want hello", b.String())
	}
}

func TestLimitedBufferCap(t *testing.T) {
	var b limitedBuffer

	chunk := strings.Repeat("x", limitedBufferMax)
	if n, _ := b.Write([]byte(chunk)); n != limitedBufferMax {
		t.Fatalf("Write = %d, want full length accepted", n)
	}

	// Past the cap, writes are accepted but discarded.
	if n, _ := b.Write([]byte("overflow")); n != 8 {
		t.Fatalf("Write past cap = %d, want 8", n)
	}
	if len(b.String()) != limitedBufferMax {
		t.Fatalf("captured %d bytes, want cap %d", len(b.String()), limitedBufferMax)
	}
}
