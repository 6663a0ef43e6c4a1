package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

// fakeFFmpeg stands in for ffmpeg: it appends the files of the concat list
// to the output, and refuses an existing output unless -y was given.
const fakeFFmpeg = `#!/bin/sh
list=""; out=""; prev=""; overwrite=0
for a in "$@"; do
  if [ "$prev" = "-i" ]; then list="$a"; fi
  case "$a" in
    -y) overwrite=1 ;;
    *.part) out="$a" ;;
  esac
  prev="$a"
done
if [ -e "$out" ] && [ "$overwrite" != 1 ]; then
  echo "File '$out' already exists. Not overwriting." >&2
  exit 1
fi
: > "$out"
sed -n "s/^file '\(.*\)'\$/\1/p" "$list" | while IFS= read -r f; do cat "$f" >> "$out"; done
`

const brokenFFmpeg = `#!/bin/sh
for a in "$@"; do
  case "$a" in *.part) echo partial > "$a" ;; esac
done
echo "Invalid data found when processing input" >&2
exit 1
`

func writeScript(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for ffmpeg")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSegments(t *testing.T, dir string, parts ...string) []string {
	t.Helper()
	var paths []string
	for i, part := range parts {
		p := filepath.Join(dir, "seg"+string(rune('0'+i)))
		writeFile(t, p, []byte(part))
		paths = append(paths, p)
	}
	return paths
}

func TestByteConcatenator(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, part := range []string{"fLaC", "-one", "-two"} {
		p := filepath.Join(dir, "seg"+string(rune('0'+i)))
		writeFile(t, p, []byte(part))
		paths = append(paths, p)
	}
	out := filepath.Join(dir, "01.flac")

	if err := (ByteConcatenator{}).Concat(context.Background(), paths, out); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fLaC-one-two" {
		t.Errorf("output = %q, want segments in order", data)
	}
	if _, err := os.Stat(partialPath(out)); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestByteConcatenator_Errors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "01.flac")

	tests := []struct {
		name  string
		paths []string
	}{
		{"no segments", nil},
		{"missing segment", []string{filepath.Join(dir, "missing")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (ByteConcatenator{}).Concat(context.Background(), tt.paths, out); err == nil {
				t.Fatal("Concat() expected error")
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Error("output exists after failure")
			}
			if _, err := os.Stat(partialPath(out)); !os.IsNotExist(err) {
				t.Error("partial file left behind")
			}
		})
	}
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.flac"), filepath.Join(dir, "it's.flac")}

	list, err := writeConcatList(paths)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(list)

	data, err := os.ReadFile(list)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "file '"+paths[0]+"'" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], `it'\''s.flac`) {
		t.Errorf("quote not escaped: %q", lines[1])
	}
}

func TestByteConcatenator_Order(t *testing.T) {
	dir := t.TempDir()
	paths := writeSegments(t, dir, "fLaC-A", "-B")

	ab := filepath.Join(dir, "ab.flac")
	ba := filepath.Join(dir, "ba.flac")
	if err := (ByteConcatenator{}).Concat(context.Background(), paths, ab); err != nil {
		t.Fatal(err)
	}
	if err := (ByteConcatenator{}).Concat(context.Background(), []string{paths[1], paths[0]}, ba); err != nil {
		t.Fatal(err)
	}

	first, _ := os.ReadFile(ab)
	second, _ := os.ReadFile(ba)
	if bytes.Equal(first, second) {
		t.Errorf("[A,B] and [B,A] produced the same output %q", first)
	}
}

func TestByteConcatenator_SingleSegment(t *testing.T) {
	dir := t.TempDir()
	want := buildFLAC(t, testAudio)
	seg := filepath.Join(dir, "seg0")
	writeFile(t, seg, want)
	out := filepath.Join(dir, "1.flac")

	if err := (ByteConcatenator{}).Concat(context.Background(), []string{seg}, out); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("single segment output differs from the segment")
	}
}

func TestConcatArgs(t *testing.T) {
	args := concatArgs("list.txt", "out.flac.part")

	for _, want := range [][]string{
		{"-f", "concat", "-safe", "0", "-i", "list.txt"},
		{"-c", "copy"},
		{"-loglevel", "error"},
	} {
		if !containsRun(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if !slices.Contains(args, "-y") {
		t.Errorf("args %q missing -y", args)
	}
	if !slices.Contains(args, "out.flac.part") {
		t.Errorf("args %q missing output", args)
	}
}

func containsRun(args, run []string) bool {
	for i := 0; i+len(run) <= len(args); i++ {
		if slices.Equal(args[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func TestFFmpegConcatenator(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	dir := t.TempDir()
	paths := writeSegments(t, dir, "fLaC-one", "-two", "-three")
	out := filepath.Join(dir, "1.flac")

	// Left over from an interrupted run.
	writeFile(t, partialPath(out), []byte("stale"))

	c := NewFFmpegConcatenator(bin, nil)
	if err := c.Concat(context.Background(), paths, out); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fLaC-one-two-three" {
		t.Errorf("output = %q, want segments in order", data)
	}
	if _, err := os.Stat(partialPath(out)); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
	if lists, _ := filepath.Glob(filepath.Join(dir, "concat-*.txt")); len(lists) != 0 {
		t.Errorf("concat list left behind: %v", lists)
	}
}

func TestFFmpegConcatenator_Failure(t *testing.T) {
	bin := writeScript(t, brokenFFmpeg)
	dir := t.TempDir()
	paths := writeSegments(t, dir, "fLaC", "-x")
	out := filepath.Join(dir, "1.flac")

	err := NewFFmpegConcatenator(bin, nil).Concat(context.Background(), paths, out)
	if err == nil {
		t.Fatal("Concat() expected error")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error = %v, want ffmpeg stderr", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output exists after failure")
	}
	if _, err := os.Stat(partialPath(out)); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestIsRemuxing(t *testing.T) {
	if IsRemuxing(ByteConcatenator{}) || IsRemuxing(&ByteConcatenator{}) {
		t.Error("ByteConcatenator reported as remuxing")
	}
	if !IsRemuxing(NewFFmpegConcatenator("ffmpeg", nil)) {
		t.Error("FFmpegConcatenator not reported as remuxing")
	}
}
