package smc

import "SmcDesk/internal/domain/models"

type breakRef struct {
	dir        models.Direction
	swingIndex int
}

// AnalyzeStructure scans from the newest candle backwards. At each index it
// first looks for a CHoCH against the BOS recorded so far, then for a BOS;
// every BOS found replaces the previous one. The first CHoCH ends the scan.
func AnalyzeStructure(candles []models.Candle, swings []models.Swing) models.MarketStructure {
	var (
		bos, choch *breakRef
		bias       = models.BiasUnknown
	)

	for i := len(candles) - 1; i >= 0; i-- {
		if ch := detectCHoCH(candles, swings, i, bos); ch != nil {
			choch = ch
			bias = biasOf(ch.dir)
			break
		}
		if b := detectBOS(candles, swings, i); b != nil {
			bos = b
			bias = biasOf(b.dir)
		}
	}

	return models.MarketStructure{
		Bias:      bias,
		LastBOS:   toBreak(candles, bos),
		LastCHoCH: toBreak(candles, choch),
	}
}

func detectBOS(candles []models.Candle, swings []models.Swing, i int) *breakRef {
	if len(swings) < 2 || i < 2 {
		return nil
	}
	c := candles[i]
	if s, ok := nearestSwing(swings, models.SwingHigh, i, -1); ok && c.H > s.Price {
		return &breakRef{dir: models.Bullish, swingIndex: s.Index}
	}
	if s, ok := nearestSwing(swings, models.SwingLow, i, -1); ok && c.L < s.Price {
		return &breakRef{dir: models.Bearish, swingIndex: s.Index}
	}
	return nil
}

func detectCHoCH(candles []models.Candle, swings []models.Swing, i int, bos *breakRef) *breakRef {
	if bos == nil || len(swings) < 2 || i < 2 {
		return nil
	}
	c := candles[i]
	switch bos.dir {
	case models.Bearish:
		if s, ok := nearestSwing(swings, models.SwingHigh, i, bos.swingIndex); ok && c.H > s.Price {
			return &breakRef{dir: models.Bullish, swingIndex: s.Index}
		}
	case models.Bullish:
		if s, ok := nearestSwing(swings, models.SwingLow, i, bos.swingIndex); ok && c.L < s.Price {
			return &breakRef{dir: models.Bearish, swingIndex: s.Index}
		}
	}
	return nil
}

// nearestSwing returns the latest swing of type t with after < index < before.
func nearestSwing(swings []models.Swing, t models.SwingType, before, after int) (models.Swing, bool) {
	for k := len(swings) - 1; k >= 0; k-- {
		s := swings[k]
		if s.Type == t && s.Index < before && s.Index > after {
			return s, true
		}
	}
	return models.Swing{}, false
}

func toBreak(candles []models.Candle, b *breakRef) *models.StructureBreak {
	if b == nil {
		return nil
	}
	c := candles[b.swingIndex]
	price := c.L
	if b.dir == models.Bullish {
		price = c.H
	}
	return &models.StructureBreak{Index: b.swingIndex, Time: c.T, Price: price, Direction: b.dir}
}

func biasOf(d models.Direction) models.Bias {
	if d == models.Bullish {
		return models.BiasBullish
	}
	return models.BiasBearish
}
