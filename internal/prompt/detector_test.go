package prompt

import (
	"testing"
)

func markers() []Marker {
	return []Marker{
		{Name: "ready", Kind: MarkerOSC, Open: "133;A"},
		{Name: "approval", Kind: MarkerText, Open: "Do you want to", Close: "133;A", CloseKind: MarkerOSC, Suppress: true},
		{Name: "composer", Kind: MarkerOSC, Open: "9278;open", Close: "9278;close", Suppress: true},
	}
}

func TestOSCPulseMarker(t *testing.T) {
	d := NewDetector(markers())
	events := d.Feed([]byte("output\x1b]133;A\x07more"))
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != Opened || events[1].Kind != Resolved || events[0].Marker.Name != "ready" {
		t.Fatalf("events = %+v", events)
	}
	if d.Suppressing() {
		t.Fatal("pulse marker should not leave suppression on")
	}
}

func TestOSCOpenCloseSuppression(t *testing.T) {
	d := NewDetector(markers())

	events := d.Feed([]byte("\x1b]9278;open\x1b\\dialog body"))
	if len(events) != 1 || events[0].Kind != Opened || events[0].Marker.Name != "composer" {
		t.Fatalf("events = %+v", events)
	}
	if !d.Suppressing() {
		t.Fatal("composer should suppress while open")
	}

	// Reopening while open is not a new event.
	if events := d.Feed([]byte("\x1b]9278;open\x07")); len(events) != 0 {
		t.Fatalf("duplicate open produced %+v", events)
	}

	events = d.Feed([]byte("\x1b]9278;close\x07"))
	if len(events) != 1 || events[0].Kind != Resolved {
		t.Fatalf("events = %+v", events)
	}
	if d.Suppressing() {
		t.Fatal("suppression should clear on resolve")
	}
}

func TestTextMarkerAcrossChunks(t *testing.T) {
	d := NewDetector(markers())

	// The open pattern arrives split across two reads on one line.
	if events := d.Feed([]byte("Do you wa")); len(events) != 0 {
		t.Fatalf("early match: %+v", events)
	}
	events := d.Feed([]byte("nt to proceed?"))
	if len(events) != 1 || events[0].Kind != Opened || events[0].Marker.Name != "approval" {
		t.Fatalf("events = %+v", events)
	}
	if !d.Suppressing() {
		t.Fatal("approval dialog should suppress")
	}

	// Dialog body does not resolve the marker; the ready pulse does.
	if events := d.Feed([]byte("\n  y/n  esc to cancel\n")); len(events) != 0 {
		t.Fatalf("dialog body resolved the marker: %+v", events)
	}
	if !d.Suppressing() {
		t.Fatal("suppression dropped while the dialog is pending")
	}

	events = d.Feed([]byte("\x1b]133;A\x07"))
	var resolved bool
	for _, ev := range events {
		if ev.Kind == Resolved && ev.Marker.Name == "approval" {
			resolved = true
		}
	}
	if !resolved {
		t.Fatalf("ready pulse did not resolve approval: %+v", events)
	}
	if d.Suppressing() {
		t.Fatal("suppression should clear after resolve")
	}
}

func TestTextMarkerSingleBurstStaysOpen(t *testing.T) {
	d := NewDetector(markers())

	// The whole dialog, footer included, arrives in one read. The
	// marker must stay open until the backend signals the prompt
	// returned.
	dialog := []byte("Do you want to proceed?\n  1. Yes\n  2. No (esc to cancel)\n")
	events := d.Feed(dialog)
	if len(events) != 1 || events[0].Kind != Opened || events[0].Marker.Name != "approval" {
		t.Fatalf("events = %+v", events)
	}
	if !d.Suppressing() {
		t.Fatal("suppression must hold while the dialog is on screen")
	}

	d.Feed([]byte("\x1b]133;A\x07"))
	if d.Suppressing() {
		t.Fatal("suppression should clear on the ready pulse")
	}
}

func TestResolveWithoutOpenIgnored(t *testing.T) {
	d := NewDetector(markers())
	if events := d.Feed([]byte("\x1b]9278;close\x07")); len(events) != 0 {
		t.Fatalf("events = %+v", events)
	}
}

func TestNewlineResetsLineBuffer(t *testing.T) {
	d := NewDetector(markers())
	d.Feed([]byte("Do you\n"))
	if events := d.Feed([]byte("want to")); len(events) != 0 {
		t.Fatalf("pattern split by newline should not match: %+v", events)
	}
}

func TestSetMarkersResolvesVanished(t *testing.T) {
	d := NewDetector(markers())
	d.Feed([]byte("\x1b]9278;open\x07"))
	if !d.Suppressing() {
		t.Fatal("composer open")
	}

	events := d.SetMarkers([]Marker{{Name: "ready", Kind: MarkerOSC, Open: "133;A"}})
	if len(events) != 1 || events[0].Kind != Resolved || events[0].Marker.Name != "composer" {
		t.Fatalf("events = %+v", events)
	}
	if d.Suppressing() {
		t.Fatal("suppression leaked past a table reload")
	}
}

func TestOSCBodyIgnoresTitleNoise(t *testing.T) {
	d := NewDetector(markers())
	if events := d.Feed([]byte("\x1b]0;Do you want to\x07")); len(events) != 0 {
		t.Fatalf("title OSC matched a text marker: %+v", events)
	}
}
