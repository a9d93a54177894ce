package services

import (
	"fmt"
	"strings"
	"time"
)

// tacticEntry binds one MITRE ATT&CK tactic to the keywords that imply it
type tacticEntry struct {
	tactic   string
	keywords []string
}

// tacticTable maps report language to high-level MITRE ATT&CK tactics.
// Declaration order is load-bearing: it fixes the order of tactic lists in
// every output, so entries must not be reordered. The table is immutable
// after process start.
var tacticTable = []tacticEntry{
	{"Initial Access", []string{"phishing", "spearphish", "drive-by", "exploit", "malvertising"}},
	{"Execution", []string{"malware", "payload", "ransomware", "dropper"}},
	{"Persistence", []string{"persistence", "backdoor", "autorun", "registry"}},
	{"Privilege Escalation", []string{"privilege escalation", "elevation"}},
	{"Defense Evasion", []string{"obfuscation", "evas", "anti-debug"}},
	{"Credential Access", []string{"credential", "password", "hashdump", "token"}},
	{"Discovery", []string{"scan", "recon", "enumeration"}},
	{"Lateral Movement", []string{"lateral", "pivot", "remote exec"}},
	{"Collection", []string{"exfil", "collection", "archive"}},
	{"Command and Control", []string{"c2", "command and control", "beacon"}},
	{"Exfiltration", []string{"exfiltration", "data leak", "data breach"}},
	{"Impact", []string{"ddos", "denial of service", "destruction", "encryption"}},
}

// MapTactics returns the tactics whose keywords appear in text. Matching is
// case-insensitive substring search; each tactic appears at most once, in
// table order. Always returns, possibly empty.
func MapTactics(text string) []string {
	lower := strings.ToLower(text)
	var tactics []string
	for _, entry := range tacticTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				tactics = append(tactics, entry.tactic)
				break
			}
		}
	}
	return tactics
}

// TemporalKey buckets a timestamp into a fixed window and returns the
// bucket's string key. Events with equal keys landed in the same window.
func TemporalKey(ts time.Time, windowHours int) string {
	windowSeconds := int64(windowHours) * 3600
	bucket := (ts.Unix() / windowSeconds) * windowSeconds
	return fmt.Sprintf("window_%d", bucket)
}
