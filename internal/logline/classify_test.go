package logline

import (
	"testing"
	"time"
)

func TestClassifyConnected(t *testing.T) {
	rec := Classify("Connected at 2024-01-15T00:00:00Z")
	if rec.Kind != KindConnected {
		t.Fatalf("Kind = %v, want Connected", rec.Kind)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !rec.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", rec.Time, want)
	}
}

func TestClassifyLegacyTimestamp(t *testing.T) {
	rec := Classify("Connected at Mon Jan 15 00:00:00 2024 UTC")
	if rec.Kind != KindConnected {
		t.Fatalf("Kind = %v, want Connected", rec.Kind)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !rec.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", rec.Time, want)
	}
}

func TestClassifyDisconnectedWithReason(t *testing.T) {
	rec := Classify("Disconnected at 2024-01-15T00:05:00Z (shell_disappeared)")
	if rec.Kind != KindDisconnected {
		t.Fatalf("Kind = %v, want Disconnected", rec.Kind)
	}
	if rec.Reason != "shell_disappeared" {
		t.Errorf("Reason = %q, want shell_disappeared", rec.Reason)
	}
	if rec.LogoutSeen {
		t.Error("LogoutSeen = true, want false")
	}
}

func TestClassifyDisconnectedLogout(t *testing.T) {
	rec := Classify("Disconnected at 2024-01-15T00:05:00Z (logout)")
	if !rec.LogoutSeen {
		t.Error("LogoutSeen = false, want true")
	}
}

func TestClassifyDisconnectedNoReason(t *testing.T) {
	rec := Classify("Disconnected at 2024-01-15T00:05:00Z")
	if rec.Kind != KindDisconnected {
		t.Fatalf("Kind = %v, want Disconnected", rec.Kind)
	}
	if rec.Reason != "" {
		t.Errorf("Reason = %q, want empty", rec.Reason)
	}
}

func TestClassifyMalformedTimestampIsIgnored(t *testing.T) {
	rec := Classify("Connected at not-a-timestamp")
	if rec.Kind != KindIgnored {
		t.Fatalf("Kind = %v, want Ignored", rec.Kind)
	}
}

func TestClassifyUnrecognizedIsIgnored(t *testing.T) {
	rec := Classify("some unrelated log chatter")
	if rec.Kind != KindIgnored {
		t.Fatalf("Kind = %v, want Ignored", rec.Kind)
	}
}

func TestClassifyFileReceived(t *testing.T) {
	rec := Classify("Received file sg042.dat (4096 bytes)")
	if rec.Kind != KindFileReceived {
		t.Fatalf("Kind = %v, want FileReceived", rec.Kind)
	}
	if rec.FileName != "sg042.dat" || rec.FileBytes != 4096 {
		t.Errorf("got (%q, %d), want (sg042.dat, 4096)", rec.FileName, rec.FileBytes)
	}
}

func TestClassifyFileTransferred(t *testing.T) {
	rec := Classify("Transferred 2048 bytes of cmdfile")
	if rec.Kind != KindFileTransferred {
		t.Fatalf("Kind = %v, want FileTransferred", rec.Kind)
	}
	if rec.FileName != "cmdfile" || rec.FileBytes != 2048 {
		t.Errorf("got (%q, %d), want (cmdfile, 2048)", rec.FileName, rec.FileBytes)
	}
}

func TestClassifyInRecovery(t *testing.T) {
	rec := Classify("In Recovery: DEEP_PRESSURE")
	if rec.Kind != KindInRecovery {
		t.Fatalf("Kind = %v, want InRecovery", rec.Kind)
	}
	if rec.Reason != "DEEP_PRESSURE" {
		t.Errorf("Reason = %q, want DEEP_PRESSURE", rec.Reason)
	}
}

func TestClassifyCounterLine(t *testing.T) {
	rec := Classify("Counter: dive=42, gps=4730.1234N,12215.5678W, ts=2024-01-15T00:00:10Z")
	if rec.Kind != KindCounterLine {
		t.Fatalf("Kind = %v, want CounterLine", rec.Kind)
	}
	if rec.Dive != 42 {
		t.Errorf("Dive = %d, want 42", rec.Dive)
	}
	if !rec.GPS.Valid {
		t.Fatal("GPS.Valid = false, want true")
	}
	dddd, err := rec.GPS.Format("dddd")
	if err != nil {
		t.Fatal(err)
	}
	if dddd != "47.5021,-122.2595" {
		t.Errorf("GPS = %q, want 47.5021,-122.2595", dddd)
	}
}

func TestClassifyCounterLineWithRecovCode(t *testing.T) {
	rec := Classify("Counter: dive=7, recov_code=DEEP_PRESSURE, flags=0x03")
	if rec.Kind != KindCounterLine {
		t.Fatalf("Kind = %v, want CounterLine", rec.Kind)
	}
	if rec.Fields["recov_code"] != "DEEP_PRESSURE" {
		t.Errorf("recov_code = %q, want DEEP_PRESSURE", rec.Fields["recov_code"])
	}
	if rec.Fields["flags"] != "0x03" {
		t.Errorf("flags = %q, want 0x03", rec.Fields["flags"])
	}
}

func TestClassifyCounterLineMissingDive(t *testing.T) {
	rec := Classify("Counter: flags=0x00")
	if rec.Kind != KindCounterLine {
		t.Fatalf("Kind = %v, want CounterLine", rec.Kind)
	}
	if rec.Dive != -1 {
		t.Errorf("Dive = %d, want -1 (unknown)", rec.Dive)
	}
}

func TestClassifyCounterLineGPSWithoutTimestampIsNotAFix(t *testing.T) {
	rec := Classify("Counter: dive=7, gps=4730.1234N,12215.5678W")
	if rec.Kind != KindCounterLine {
		t.Fatalf("Kind = %v, want CounterLine", rec.Kind)
	}
	if rec.GPS.Valid {
		t.Error("GPS.Valid = true, want false: a fix requires an explicit ts field, never wall-clock time")
	}
}

func TestClassifyIridiumGeolocation(t *testing.T) {
	rec := Classify("Iridium geolocation: 47.5021,-122.2595,12.5")
	if rec.Kind != KindIridiumGeolocation {
		t.Fatalf("Kind = %v, want IridiumGeolocation", rec.Kind)
	}
	if rec.Lat != 47.5021 || rec.Lon != -122.2595 || rec.CEP != 12.5 {
		t.Errorf("got lat=%v lon=%v cep=%v", rec.Lat, rec.Lon, rec.CEP)
	}
}

func TestClassifyPartialTrailingLineNeverReachesClassify(t *testing.T) {
	// The tailer is responsible for withholding partial lines; Classify
	// itself just treats a truncated prefix as unrecognized structure.
	rec := Classify("Conn")
	if rec.Kind != KindIgnored {
		t.Fatalf("Kind = %v, want Ignored", rec.Kind)
	}
}
