package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		count int
	}{
		{
			name:  "length interpolation wrapped",
			in:    "logger.info(`found ${items.length} items`);",
			want:  "logger.info(`found ${String(items.length)} items`);",
			count: 1,
		},
		{
			name:  "counter identifier wrapped",
			in:    "const msg = `page ${page} of ${total}`;",
			want:  "const msg = `page ${String(page)} of ${String(total)}`;",
			count: 2,
		},
		{
			name:  "zero default becomes nullish",
			in:    "const n = limit || 0;",
			want:  "const n = limit ?? 0;",
			count: 1,
		},
		{
			name:  "empty string default becomes nullish",
			in:    `const s = name || "";`,
			want:  `const s = name ?? "";`,
			count: 1,
		},
		{
			name:  "boolean or is left alone",
			in:    "if (a || b) { run(); }",
			want:  "if (a || b) { run(); }",
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			out := tt.in
			for _, fix := range DefaultFixes() {
				var n int
				out, n = fix.Apply(out)
				total += n
			}
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.count, total)
		})
	}
}

func TestFixesAreIdempotent(t *testing.T) {
	src := "const msg = `got ${rows.length} rows, page ${page}`;\nconst n = count || 0;\n"

	apply := func(s string) string {
		for _, fix := range DefaultFixes() {
			s, _ = fix.Apply(s)
		}
		return s
	}

	once := apply(src)
	assert.NotEqual(t, src, once)
	assert.Equal(t, once, apply(once))
}

func TestRunnerPreviewDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	src := "const n = count || 0;\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	runner := NewRunner(DefaultFixes(), false, nil)
	outcomes := runner.Run([]string{path})
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Changed)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, 1, outcomes[0].Total())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(onDisk))
}

func TestRunnerWriteApplies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("const n = count || 0;\n"), 0o644))

	runner := NewRunner(DefaultFixes(), true, nil)
	outcomes := runner.Run([]string{path})
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "const n = count ?? 0;\n", string(onDisk))
}

func TestRunnerContinuesPastUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.ts")
	require.NoError(t, os.WriteFile(good, []byte("const n = count || 0;\n"), 0o644))

	runner := NewRunner(DefaultFixes(), false, nil)
	outcomes := runner.Run([]string{filepath.Join(dir, "missing.ts"), good})
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)
	assert.True(t, outcomes[1].Changed)
}
