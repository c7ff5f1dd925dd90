package banner

import (
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// Print renders the startup banner. It must only be called when stdout is
// not the data sink.
func Print() {
	logo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB("Log", pterm.NewRGB(255, 107, 53)),
		putils.LettersFromStringWithRGB("Sieve", pterm.NewRGB(0, 0, 0))).
		Srender()

	pterm.DefaultCenter.Print(logo)

	pterm.Info.Println(
		"Access-log ingestion: parse, enrich, anonymize, dedup, write." +
			"\nVersion 0.1.0.",
	)
}
