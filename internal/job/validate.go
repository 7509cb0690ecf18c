package job

import (
	"fmt"
	"strings"

	"github.com/withObsrvr/sms-stats/internal/aggregate"
	"github.com/withObsrvr/sms-stats/internal/report"
	"github.com/withObsrvr/sms-stats/internal/storage"
)

// ValidationResult contains the outcome of the pre-publish checks.
type ValidationResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
}

// Error joins the failed checks into one message.
func (v ValidationResult) Error() string {
	return strings.Join(v.Errors, "; ")
}

// ValidateRun checks that a run's tallies, contacts and rendered report agree
// with each other before the report is stored:
//   - line, candidate, message and error counts are consistent
//   - per-contact counters add up to no more than the parsed messages
//   - the manifest size, contact count and checksum match the rendered bytes
func ValidateRun(res *aggregate.Result, data []byte, manifest *storage.Manifest) ValidationResult {
	result := ValidationResult{Passed: true}
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		result.Passed = false
	}

	// Check 1: tallies
	if res.Candidates > res.Lines {
		fail("candidate count %d exceeds line count %d", res.Candidates, res.Lines)
	}
	if res.Messages+res.Errors != res.Candidates {
		fail("messages %d + errors %d != candidates %d", res.Messages, res.Errors, res.Candidates)
	}
	var byKind int64
	for _, n := range res.ErrorsByKind {
		byKind += n
	}
	if byKind != res.Errors {
		fail("errors by kind sum to %d, want %d", byKind, res.Errors)
	}

	// Check 2: contacts
	if int64(len(res.Contacts)) > res.Messages {
		fail("%d contacts from %d messages", len(res.Contacts), res.Messages)
	}
	var counted int64
	seen := make(map[string]struct{}, len(res.Contacts))
	for _, c := range res.Contacts {
		if _, dup := seen[c.Address]; dup {
			fail("duplicate contact %s", c.Address)
		}
		seen[c.Address] = struct{}{}
		if c.CountTo < 0 || c.CountFrom < 0 || c.LengthTo < 0 || c.LengthFrom < 0 {
			fail("negative counter for contact %s", c.Address)
		}
		counted += c.Messages()
	}
	if counted > res.Messages {
		fail("contacts account for %d messages, only %d parsed", counted, res.Messages)
	}

	// Check 3: manifest
	if manifest != nil {
		if manifest.Report.ByteSize != int64(len(data)) {
			fail("manifest byte size %d != report size %d", manifest.Report.ByteSize, len(data))
		}
		if manifest.Report.ContactCount != len(res.Contacts) {
			fail("manifest contact count %d != %d", manifest.Report.ContactCount, len(res.Contacts))
		}
		if !strings.HasPrefix(manifest.Report.Checksum, "sha256:") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("checksum may be in non-standard format: %.20s", manifest.Report.Checksum))
		} else if !report.VerifyChecksum(data, manifest.Report.Checksum) {
			fail("manifest checksum %s does not match report", manifest.Report.Checksum)
		}
	}

	if len(data) == 0 && len(res.Contacts) > 0 {
		fail("empty report for %d contacts", len(res.Contacts))
	}

	return result
}
