package lyrics

import (
	"strings"
	"testing"

	"LumiFM/model"
)

const sampleLRC = `[ti:星之海]
[ar:Lumi]

[00:12.50]first line
[00:18.25]second line
[01:03.00]third line
`

func TestParseLRC(t *testing.T) {
	lines, err := ParseLRC(sampleLRC)
	if err != nil {
		t.Fatalf("ParseLRC: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].StartTime != 12.5 {
		t.Errorf("line 0 start = %v, want 12.5", lines[0].StartTime)
	}
	if lines[0].EndTime != 18.25 {
		t.Errorf("line 0 end = %v, want 18.25 (next line start)", lines[0].EndTime)
	}
	if lines[2].StartTime != 63 {
		t.Errorf("line 2 start = %v, want 63", lines[2].StartTime)
	}
	if lines[2].EndTime != 0 {
		t.Errorf("line 2 end = %v, want 0 (open)", lines[2].EndTime)
	}
	if lines[1].Text != "second line" {
		t.Errorf("line 1 text = %q", lines[1].Text)
	}
}

func TestParseLRC_NoTimedLines(t *testing.T) {
	if _, err := ParseLRC("[ti:only metadata]\n\nplain text\n"); err == nil {
		t.Error("ParseLRC without timed lines should fail")
	}
}

func TestParseLRC_RejectsUnorderedInput(t *testing.T) {
	raw := "[00:30.00]late\n[00:10.00]early\n"
	if _, err := ParseLRC(raw); err == nil {
		t.Error("ParseLRC with decreasing timestamps should fail")
	}
}

func TestFormatLRC_RoundTrip(t *testing.T) {
	lines, err := ParseLRC(sampleLRC)
	if err != nil {
		t.Fatalf("ParseLRC: %v", err)
	}

	out := FormatLRC(lines)
	again, err := ParseLRC(out)
	if err != nil {
		t.Fatalf("ParseLRC(FormatLRC(...)): %v", err)
	}
	if len(again) != len(lines) {
		t.Fatalf("round trip changed line count: %d -> %d", len(lines), len(again))
	}
	for i := range lines {
		if again[i].StartTime != lines[i].StartTime {
			t.Errorf("line %d start = %v, want %v", i, again[i].StartTime, lines[i].StartTime)
		}
		if again[i].Text != lines[i].Text {
			t.Errorf("line %d text = %q, want %q", i, again[i].Text, lines[i].Text)
		}
	}
}

func TestParsePlain(t *testing.T) {
	lines, err := ParsePlain("one\n\ntwo\nthree\n", 3)
	if err != nil {
		t.Fatalf("ParsePlain: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[1].StartTime != 3 || lines[1].EndTime != 6 {
		t.Errorf("line 1 = [%v,%v], want [3,6]", lines[1].StartTime, lines[1].EndTime)
	}
	if lines[2].Text != "three" {
		t.Errorf("line 2 text = %q", lines[2].Text)
	}
}

func TestParsePlain_RejectsBadInterval(t *testing.T) {
	if _, err := ParsePlain("one\n", 0); err == nil {
		t.Error("ParsePlain with zero interval should fail")
	}
	if _, err := ParsePlain("\n\n", 3); err == nil {
		t.Error("ParsePlain with no content should fail")
	}
}

func TestBundle_ExportImportRoundTrip(t *testing.T) {
	lines, err := ParseLRC(sampleLRC)
	if err != nil {
		t.Fatalf("ParseLRC: %v", err)
	}
	track := &model.Track{Title: "星之海", Artist: "Lumi"}

	data, err := ExportBundle(track, lines)
	if err != nil {
		t.Fatalf("ExportBundle: %v", err)
	}
	if !strings.Contains(string(data), `"version": "`+BundleVersion+`"`) {
		t.Errorf("bundle missing version field: %s", data)
	}

	b, err := ImportBundle(data)
	if err != nil {
		t.Fatalf("ImportBundle: %v", err)
	}
	if b.Track.Title != "星之海" || b.Track.Artist != "Lumi" {
		t.Errorf("bundle track = %+v", b.Track)
	}
	if len(b.Lyrics) != len(lines) {
		t.Fatalf("bundle has %d lines, want %d", len(b.Lyrics), len(lines))
	}
	if b.Lyrics[1].StartTime != lines[1].StartTime {
		t.Errorf("line 1 start = %v, want %v", b.Lyrics[1].StartTime, lines[1].StartTime)
	}
}

func TestImportBundle_RejectsInvalidTiming(t *testing.T) {
	raw := `{"id":"x","track":{"title":"t","artist":"a"},"lyrics":[{"startTime":10,"text":"a"},{"startTime":5,"text":"b"}],"version":"1.0"}`
	if _, err := ImportBundle([]byte(raw)); err == nil {
		t.Error("ImportBundle with unordered lyrics should fail")
	}
	if _, err := ImportBundle([]byte("not json")); err == nil {
		t.Error("ImportBundle with garbage should fail")
	}
}
