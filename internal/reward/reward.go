// Package reward turns on-chain beneficiary amounts into a human-readable
// reward string for prompt context.
package reward

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opengov-labs/govassist/internal/model"
)

// Asset decimal scales. Polkassembly reports USDC beneficiaries under asset
// id 1337; everything else on the Polkadot treasury pays in DOT planck.
const (
	usdcAssetID  = "1337"
	usdcDecimals = 6
	dotDecimals  = 10
)

var printer = message.NewPrinter(language.English)

// Calculate sums beneficiary amounts into one running total and renders it
// as "1,250.00 DOT". Entries that fail to parse are skipped. Mixed-asset
// lists collapse into a single total labeled with the last-seen currency,
// a known simplification kept in this one function so it can be fixed in
// isolation. Returns the empty string when there is nothing to report.
func Calculate(beneficiaries []model.Beneficiary) string {
	total := 0.0
	currency := "tokens"
	for _, b := range beneficiaries {
		raw, err := strconv.ParseFloat(strings.TrimSpace(b.Amount), 64)
		if err != nil {
			continue
		}
		if b.AssetID == usdcAssetID {
			total += raw / math.Pow10(usdcDecimals)
			currency = "USDC"
		} else {
			total += raw / math.Pow10(dotDecimals)
			currency = "DOT"
		}
	}
	if total <= 0 {
		return ""
	}
	return printer.Sprintf("%.2f %s", total, currency)
}

// Augment fills CalculatedReward on every valid record in place.
func Augment(records []model.ProposalRecord) {
	for i := range records {
		if records[i].Error != "" {
			continue
		}
		records[i].CalculatedReward = Calculate(records[i].Beneficiaries)
	}
}
