package model

// Pair is an exchange trading symbol such as BTCUSDT.
type Pair string

func (p Pair) String() string { return string(p) }

// Valid reports whether p looks like an exchange symbol: 2 to 20 upper-case
// letters or digits.
func (p Pair) Valid() bool {
	if len(p) < 2 || len(p) > 20 {
		return false
	}
	for _, r := range p {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// DefaultPairs is the universe scanned when no pairs are requested explicitly.
var DefaultPairs = []Pair{
	// top 10 - highest market cap
	"BTCUSDT",
	"ETHUSDT",
	"BNBUSDT",
	"XRPUSDT",
	"DOGEUSDT",
	"ADAUSDT",
	"MATICUSDT",
	// high value, high potential
	"TRXUSDT",   // Tron
	"DOTUSDT",   // Polkadot
	"LTCUSDT",   // Litecoin
	"SHIBUSDT",  // Shiba Inu
	"UNIUSDT",   // Uniswap
	"SOLUSDT",   // Solana
	"AVAXUSDT",  // Avalanche
	"LINKUSDT",  // Chainlink
	"ATOMUSDT",  // Cosmos
	"XLMUSDT",   // Stellar
	"ALGOUSDT",  // Algorand
	"ICPUSDT",   // Internet Computer
	"VETUSDT",   // VeChain
	"NEARUSDT",  // Near Protocol
	"CHZUSDT",   // Chiliz
	"XTZUSDT",   // Tezos
	"SNXUSDT",   // Synthetix
	"OPUSDT",    // Optimism
	// low value, high potential
	"PENDLEUSDT",
	"NEXOUSDT",
	"ROSEUSDT",
	"STXUSDT",
	"HOTUSDT",
	"APTUSDT",
	"TIAUSDT",
	"ALTUSDT",
	"ENJUSDT",
}

// ParsePairs converts raw symbols into pairs, dropping empty entries.
func ParsePairs(raw []string) []Pair {
	out := make([]Pair, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		out = append(out, Pair(s))
	}
	return out
}

// KlineInterval is a candlestick interval understood by the exchange.
type KlineInterval string

const (
	Interval1Minute  KlineInterval = "1m"
	Interval3Minute  KlineInterval = "3m"
	Interval5Minute  KlineInterval = "5m"
	Interval15Minute KlineInterval = "15m"
	Interval30Minute KlineInterval = "30m"
	Interval1Hour    KlineInterval = "1h"
	Interval2Hour    KlineInterval = "2h"
	Interval4Hour    KlineInterval = "4h"
	Interval6Hour    KlineInterval = "6h"
	Interval8Hour    KlineInterval = "8h"
	Interval12Hour   KlineInterval = "12h"
	Interval1Day     KlineInterval = "1d"
	Interval3Day     KlineInterval = "3d"
	Interval1Week    KlineInterval = "1w"
	Interval1Month   KlineInterval = "1M"
)

var validIntervals = map[KlineInterval]struct{}{
	Interval1Minute: {}, Interval3Minute: {}, Interval5Minute: {}, Interval15Minute: {},
	Interval30Minute: {}, Interval1Hour: {}, Interval2Hour: {}, Interval4Hour: {},
	Interval6Hour: {}, Interval8Hour: {}, Interval12Hour: {}, Interval1Day: {},
	Interval3Day: {}, Interval1Week: {}, Interval1Month: {},
}

// Valid reports whether the interval is supported by the exchange.
func (i KlineInterval) Valid() bool {
	_, ok := validIntervals[i]
	return ok
}
