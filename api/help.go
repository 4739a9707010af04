package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTopic is returned for help topics that do not exist.
var ErrUnknownTopic = errors.New("unknown help topic")

// HelpTopic represents the interpretation help of an indicator.
type HelpTopic struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// helpTopics lists the indicator interpretation help in display order.
var helpTopics = []HelpTopic{
	{
		Topic: "atr",
		Title: "Average true range",
		Text: "ATR measures average true volatility and helps place targets and stop losses. A stop loss " +
			"should sit at least 1 ATR below the entry. Once a position is open, profits can be taken at 1, 2 " +
			"or 3 ATR above the entry. A market trading near 3 ATR is heavily overbought or oversold, so a " +
			"correction or reversal is likely.",
	},
	{
		Topic: "a/d",
		Title: "Accumulation/distribution",
		Text: "A/D tracks volume flowing into and out of a market. Divergences between the A/D line and " +
			"price give very strong trading signals.",
	},
	{
		Topic: "averages",
		Title: "Moving averages",
		Text: "A buy signal appears when the shorter average crosses above the longer one and a sell signal " +
			"when it crosses below. The difference series makes the distance between the averages easier to read.",
	},
	{
		Topic: "rsi",
		Title: "Relative strength index",
		Text: "RSI gives two kinds of signals: divergences between RSI and price, and overbought or oversold " +
			"levels. Bullish or bearish divergences, where price makes a new low or high that RSI does not " +
			"confirm, give the strongest signals. RSI above the overbought line warns of a coming correction and " +
			"below the oversold line of a coming rebound. Instead of the usual 70 and 30, the guide lines are " +
			"drawn at the mean RSI plus and minus one standard deviation over the displayed period, adapting the " +
			"levels to the market.",
	},
	{
		Topic: "so",
		Title: "Stochastic oscillator",
		Text: "The stochastic oscillator gauges momentum by relating each close to the recent price range. " +
			"Crossings of the signal line and the oscillator inside overbought or oversold zones are buy or sell " +
			"signals. It combines well with RSI.",
	},
	{
		Topic: "adx",
		Title: "Average directional index",
		Text: "A rising ADX means a clear trend dominates. ADX below both +DI and -DI suggests there is no " +
			"trend. When ADX crosses one of the directional lines a new trend begins, rising if +DI is above -DI " +
			"and falling otherwise. ADX above both directional lines warns that a correction or reversal is near.",
	},
	{
		Topic: "macd",
		Title: "Moving average convergence divergence",
		Text: "A signal appears when the faster MACD line crosses the slower signal line, from below to buy " +
			"and from above to sell. Divergences between the MACD histogram and price are important: a new price " +
			"high or low not confirmed by the histogram. The histogram must cross zero between the two highs or " +
			"lows for the divergence to count.",
	},
}

// helpAliases maps alternate topic names to their topic.
var helpAliases = map[string]string{
	"ad":         "a/d",
	"accdist":    "a/d",
	"ma":         "averages",
	"ema":        "averages",
	"stochastic": "so",
}

// Help returns the interpretation help of the provided topic, all topics when it is empty.
func Help(topic string) ([]HelpTopic, error) {
	if topic == "" {
		out := make([]HelpTopic, len(helpTopics))
		copy(out, helpTopics)
		return out, nil
	}

	topic = strings.ToLower(topic)
	if alias, ok := helpAliases[topic]; ok {
		topic = alias
	}

	for idx := range helpTopics {
		if helpTopics[idx].Topic == topic {
			return []HelpTopic{helpTopics[idx]}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s, available topics: %s", ErrUnknownTopic, topic, strings.Join(HelpTopics(), ", "))
}

// HelpTopics returns the available help topics.
func HelpTopics() []string {
	topics := make([]string, len(helpTopics))
	for idx := range helpTopics {
		topics[idx] = helpTopics[idx].Topic
	}

	return topics
}
