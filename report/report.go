// Package report serializes QKD session results to JSON and CSV for CLI and
// downstream consumption.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/thorium/qkd/qkd"
)

// A Record is the external, serialization-friendly view of a qkd.Result. The
// JSON field names are the contract consumed by reporting tooling; do not
// rename them.
type Record struct {
	SiftedKeyLength            int     `json:"siftedKeyLength"`
	QBER                       float64 `json:"qber"`
	EavesdropDetected          bool    `json:"eavesdropDetected"`
	ErrorsDetected             int     `json:"errorsDetected"`
	ErrorsCorrected            int     `json:"errorsCorrected"`
	PrivacyAmplificationInput  int     `json:"privacyAmplificationInput"`
	PrivacyAmplificationOutput int     `json:"privacyAmplificationOutput"`
	FinalKeyLength             int     `json:"finalKeyLength"`
	EndToEndEfficiency         float64 `json:"endToEndEfficiency"`
	InfoLeaked                 float64 `json:"infoLeaked"`
	SecurityLevel              string  `json:"securityLevel"`
	Success                    bool    `json:"success"`

	// Supplementary fields for reproduction and triage.
	Seed           int64  `json:"seed"`
	State          string `json:"state"`
	Error          string `json:"error,omitempty"`
	KeyFingerprint string `json:"keyFingerprint,omitempty"`
}

// FromResult flattens a session result into a Record.
func FromResult(r qkd.Result) Record {
	rec := Record{
		SiftedKeyLength:            r.SiftedKeyLength,
		QBER:                       r.Check.ErrorRate,
		EavesdropDetected:          r.Check.Detected,
		ErrorsDetected:             r.Reconciliation.ErrorsDetected,
		ErrorsCorrected:            r.Reconciliation.ErrorsCorrected,
		PrivacyAmplificationInput:  r.Amplification.OriginalLength,
		PrivacyAmplificationOutput: r.Amplification.FinalLength,
		FinalKeyLength:             r.FinalKeyLength,
		EndToEndEfficiency:         r.EndToEndEfficiency,
		InfoLeaked:                 r.TotalInformationLeaked(),
		SecurityLevel:              r.SecurityLevel,
		Success:                    r.Success,
		Seed:                       r.Seed,
		State:                      string(r.State),
		KeyFingerprint:             r.KeyFingerprint,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// WriteJSON writes recs as an indented JSON document: a single object for one
// record, an array otherwise.
func WriteJSON(w io.Writer, recs ...Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(recs) == 1 {
		return enc.Encode(recs[0])
	}
	return enc.Encode(recs)
}

// CSVHeader is the column order used by WriteCSV.
var CSVHeader = []string{
	"siftedKeyLength", "qber", "eavesdropDetected", "errorsDetected",
	"errorsCorrected", "privacyAmplificationInput", "privacyAmplificationOutput",
	"finalKeyLength", "endToEndEfficiency", "infoLeaked", "securityLevel",
	"success", "seed", "state", "error",
}

// WriteCSV writes a header line followed by one row per record.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			fmt.Sprint(r.SiftedKeyLength),
			fmt.Sprintf("%g", r.QBER),
			fmt.Sprint(r.EavesdropDetected),
			fmt.Sprint(r.ErrorsDetected),
			fmt.Sprint(r.ErrorsCorrected),
			fmt.Sprint(r.PrivacyAmplificationInput),
			fmt.Sprint(r.PrivacyAmplificationOutput),
			fmt.Sprint(r.FinalKeyLength),
			fmt.Sprintf("%g", r.EndToEndEfficiency),
			fmt.Sprintf("%g", r.InfoLeaked),
			r.SecurityLevel,
			fmt.Sprint(r.Success),
			fmt.Sprint(r.Seed),
			r.State,
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
