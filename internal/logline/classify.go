package logline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

// Two timestamp forms appear in the wild: RFC 3339 (what this parser
// prefers to write when it synthesizes lines, e.g. on synthetic
// disconnect) and the historical ctime-derived form the glider's own
// logging has always used.
const legacyTimeLayout = "Mon Jan _2 15:04:05 2006 MST"

// parseTimestamp normalizes either accepted form to a UTC time.Time.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(legacyTimeLayout, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ignored builds an Ignored record, preserving the raw line for diagnostics.
func ignored(raw string) Record {
	return Record{Kind: KindIgnored, Raw: raw}
}

// Classify classifies one already-newline-stripped log line into a Record.
// Unrecognized structure, or a recognized prefix with unparsable content
// (e.g. a malformed timestamp), both yield KindIgnored — Classify never
// returns an error, matching the spec's "never aborts the stream" policy.
// Classify does not log. A caller that wants to surface
// malformed-but-recognized lines to an operator log has to compare the
// returned Kind against the line's prefix itself; no caller in this module
// does so, and KindIgnored records are dropped without a log line.
func Classify(line string) Record {
	raw := line
	trimmed := strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(trimmed, "Connected at "):
		return classifyTimestamped(raw, trimmed, "Connected at ", KindConnected)

	case strings.HasPrefix(trimmed, "Reconnected at "):
		return classifyTimestamped(raw, trimmed, "Reconnected at ", KindReconnected)

	case strings.HasPrefix(trimmed, "Disconnected at "):
		return classifyDisconnected(raw, trimmed)

	case strings.HasPrefix(trimmed, "Received file "):
		return classifyFileReceived(raw, trimmed)

	case strings.HasPrefix(trimmed, "Transferred "):
		return classifyFileTransferred(raw, trimmed)

	case strings.HasPrefix(trimmed, "In Recovery: "):
		return Record{Kind: KindInRecovery, Raw: raw, Reason: strings.TrimSpace(strings.TrimPrefix(trimmed, "In Recovery: "))}

	case strings.HasPrefix(trimmed, "Counter: "):
		return classifyCounterLine(raw, trimmed)

	case strings.HasPrefix(trimmed, "Iridium geolocation: "):
		return classifyIridium(raw, trimmed)

	case strings.HasPrefix(trimmed, "Ver:") || strings.HasPrefix(trimmed, "Ver "):
		return Record{Kind: KindVer, Raw: raw}

	default:
		return ignored(raw)
	}
}

func classifyTimestamped(raw, trimmed, prefix string, kind Kind) Record {
	t, ok := parseTimestamp(strings.TrimPrefix(trimmed, prefix))
	if !ok {
		return ignored(raw)
	}
	return Record{Kind: kind, Raw: raw, Time: t}
}

var disconnectedReasonRE = regexp.MustCompile(`^(.*?)\s*\(([^)]*)\)\s*$`)

func classifyDisconnected(raw, trimmed string) Record {
	body := strings.TrimPrefix(trimmed, "Disconnected at ")

	reason := ""
	tsPart := body
	if m := disconnectedReasonRE.FindStringSubmatch(body); m != nil {
		tsPart = m[1]
		reason = m[2]
	}

	t, ok := parseTimestamp(tsPart)
	if !ok {
		return ignored(raw)
	}

	rec := Record{Kind: KindDisconnected, Raw: raw, Time: t, Reason: reason}
	rec.LogoutSeen = strings.EqualFold(reason, "logout")
	return rec
}

var receivedFileRE = regexp.MustCompile(`^Received file (\S+) \((\d+) bytes\)\s*$`)

func classifyFileReceived(raw, trimmed string) Record {
	m := receivedFileRE.FindStringSubmatch(trimmed)
	if m == nil {
		return ignored(raw)
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return ignored(raw)
	}
	return Record{Kind: KindFileReceived, Raw: raw, FileName: m[1], FileBytes: n}
}

var transferredFileRE = regexp.MustCompile(`^Transferred (\d+) bytes of (\S+)\s*$`)

func classifyFileTransferred(raw, trimmed string) Record {
	m := transferredFileRE.FindStringSubmatch(trimmed)
	if m == nil {
		return ignored(raw)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ignored(raw)
	}
	return Record{Kind: KindFileTransferred, Raw: raw, FileName: m[2], FileBytes: n}
}

var iridiumRE = regexp.MustCompile(`^Iridium geolocation: *([-\d.]+), *([-\d.]+), *([-\d.]+)\s*$`)

func classifyIridium(raw, trimmed string) Record {
	m := iridiumRE.FindStringSubmatch(trimmed)
	if m == nil {
		return ignored(raw)
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	cep, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return ignored(raw)
	}
	return Record{Kind: KindIridiumGeolocation, Raw: raw, Lat: lat, Lon: lon, CEP: cep}
}

// counterKeyRE finds each "key=" in a Counter: line's body (at the start or
// after a ", " separator). Each value runs from its key up to the next
// ", key=" boundary (or end of string), so that a gps=<lat>,<lon> value,
// which itself contains a comma, is not split in half.
var counterKeyRE = regexp.MustCompile(`(?:^|, *)(\w+)=`)

func classifyCounterLine(raw, trimmed string) Record {
	body := strings.TrimPrefix(trimmed, "Counter: ")

	fields := make(map[string]string)
	keys := counterKeyRE.FindAllStringSubmatchIndex(body, -1)
	for i, k := range keys {
		end := len(body)
		if i+1 < len(keys) {
			end = keys[i+1][0]
		}
		fields[body[k[2]:k[3]]] = strings.TrimSpace(body[k[1]:end])
	}
	if len(fields) == 0 {
		return ignored(raw)
	}

	rec := Record{Kind: KindCounterLine, Raw: raw, Dive: -1, Fields: fields}

	if diveStr, ok := fields["dive"]; ok {
		if n, err := strconv.Atoi(diveStr); err == nil {
			rec.Dive = n
		}
	}

	if gpsStr, ok := fields["gps"]; ok {
		parts := strings.SplitN(gpsStr, ",", 2)
		if len(parts) == 2 {
			lat, errLat := gpsfix.ParseDDMM(parts[0])
			lon, errLon := gpsfix.ParseDDMM(parts[1])
			if errLat == nil && errLon == nil {
				if ts, ok := fields["ts"]; ok {
					if fixTime, ok := parseTimestamp(ts); ok {
						if fix, err := gpsfix.New(lat, lon, fixTime); err == nil {
							rec.GPS = fix
						}
					}
				}
			}
		}
	}

	return rec
}
