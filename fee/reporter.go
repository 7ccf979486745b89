package fee

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/eip1559-fee-strategy/common/bigint"
)

// Reporter receives the expected-fee preview of every estimation.
type Reporter interface {
	ReportExpectedFee(env *Envelope)
}

type ReporterFunc func(env *Envelope)

func (f ReporterFunc) ReportExpectedFee(env *Envelope) {
	f(env)
}

type NopReporter struct{}

func (NopReporter) ReportExpectedFee(*Envelope) {}

// LogReporter writes the preview to the geth logger in native units.
type LogReporter struct {
	Symbol string
}

func (r LogReporter) ReportExpectedFee(env *Envelope) {
	log.Info("expected fee",
		"strategy", env.Strategy,
		"gasLimit", env.GasLimit,
		"pricePerGas", env.PricePerGas(),
		"fee", bigint.FormatUnits(env.ExpectedFee(), DecimalsWei),
		"symbol", r.Symbol)
}
