package game

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
)

const (
	PriceDecimals = 2

	OrderHistoryLimit = 200
	TickDeltaLimit    = 500
	ChartSampleLimit  = 300
	RecentEventsLimit = 8
	LeaderboardTop    = 10

	LeaderboardNameLimit = 24

	ActiveMissionCount = 3
	PrestigeMinLevel   = 20
	PrestigeLevelDiv   = 5
)

var (
	StarterCash = decimal.NewFromInt(10_000)
	MinPrice    = decimal.NewFromInt(5)
)

var (
	ErrInvalidSymbol       = errors.New("symbol must be 5 or 6 uppercase letters")
	ErrUnknownSymbol       = errors.New("unknown symbol")
	ErrInsufficientFunds   = errors.New("not enough cash")
	ErrInsufficientShares  = errors.New("not enough shares")
	ErrInsufficientCoins   = errors.New("not enough coins")
	ErrUnknownItem         = errors.New("unknown shop item")
	ErrAlreadyOwned        = errors.New("item already owned")
	ErrMissionNotFound     = errors.New("mission not found")
	ErrMissionNotComplete  = errors.New("mission not complete")
	ErrPrestigeNotEligible = errors.New("prestige requires a higher level")
	ErrInvalidSide         = errors.New("side must be buy or sell")
)

var symbolRE = regexp.MustCompile(`^[A-Z]{5,6}$`)

type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

var instruments = []Instrument{
	{"ZOOMX", "Zoomix Technologies", "Electronics"},
	{"FRUIQ", "FruityQ Foods", "Food"},
	{"SOLARO", "Solaro Energy", "Oil & Energy"},
	{"ROBIX", "Robix Robotics", "AI & Robotics"},
	{"DRONZ", "Dronz Delivery", "Transport"},
	{"AQUIX", "Aquix Water Corp", "Water"},
	{"GLOBO", "Globon Airlines", "Transport"},
	{"NUTRO", "Nutro Nutrition", "Food"},
	{"PIXEL", "PixelWave Media", "Electronics"},
	{"VOYZA", "Voyza Travel", "Travel"},
	{"FLEXI", "Flexi Fitness", "Fitness"},
	{"MEDIX", "Medix Health", "Health"},
	{"ECOFY", "Ecofy Solutions", "Energy"},
	{"ASTRO", "Astro Mining", "Mining"},
	{"NEURA", "NeuraTech Labs", "AI & Robotics"},
	{"BERRY", "BerrySoft Drinks", "Food"},
	{"FASHN", "Fashn Apparel", "Fashion"},
	{"SPECT", "Spectra Security", "Electronics"},
	{"INNOV", "Innovado Systems", "AI & Robotics"},
	{"TREND", "Trendify Retail", "Retail"},
}

var instrumentIndex = func() map[string]Instrument {
	out := make(map[string]Instrument, len(instruments))
	for _, in := range instruments {
		out[in.Symbol] = in
	}
	return out
}()

// Instruments returns the fixed catalog in display order.
func Instruments() []Instrument {
	out := make([]Instrument, len(instruments))
	copy(out, instruments)
	return out
}

func InstrumentBySymbol(symbol string) (Instrument, bool) {
	in, ok := instrumentIndex[strings.ToUpper(strings.TrimSpace(symbol))]
	return in, ok
}

func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(strings.TrimSpace(symbol)) {
		return ErrInvalidSymbol
	}
	return nil
}

// LookupInstrument resolves an exact symbol first and falls back to a fuzzy
// match over symbols and names, so "zoom" or "water" find ZOOMX and AQUIX.
func LookupInstrument(query string) (Instrument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Instrument{}, ErrUnknownSymbol
	}
	if in, ok := InstrumentBySymbol(query); ok {
		return in, nil
	}
	haystack := make([]string, len(instruments))
	for i, in := range instruments {
		haystack[i] = in.Symbol + " " + strings.ToUpper(in.Name)
	}
	matches := fuzzy.Find(strings.ToUpper(query), haystack)
	if len(matches) == 0 {
		return Instrument{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, query)
	}
	return instruments[matches[0].Index], nil
}

func symbolsInCategory(category string) []string {
	var out []string
	for _, in := range instruments {
		if in.Category == category {
			out = append(out, in.Symbol)
		}
	}
	return out
}

func RoundCurrency(v decimal.Decimal) decimal.Decimal {
	return v.Round(PriceDecimals)
}

// XPForLevel is the XP needed to advance from level to level+1.
func XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(100 * math.Pow(float64(level), 1.35)))
}

func LevelUpCoins(newLevel int) int64 {
	return 50 + int64(newLevel)*5
}

func LegacyPointsForLevel(level int) int64 {
	return int64(level / PrestigeLevelDiv)
}

func roundHalf(v float64) int64 {
	return int64(math.Round(v))
}
