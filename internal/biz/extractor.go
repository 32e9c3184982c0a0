package biz

import (
	"context"
	"encoding/json"
	"strings"

	"MarketPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// RepairFunc asks a model to rewrite malformed text into valid JSON for
// the analysis annex schema. The extractor issues at most one repair
// call per extraction.
type RepairFunc func(ctx context.Context, text string) (string, error)

// ExtractResult is the outcome of one extraction.
type ExtractResult struct {
	CleanedText string
	Annex       model.AnalysisAnnex
	Valid       bool
}

// ExtractorUseCase pulls the schema-constrained annex out of free-form
// model output and strips it from the prose. Extraction failures degrade
// to an empty annex; the analysis operation never fails solely because
// the structured annex was malformed.
type ExtractorUseCase struct {
	logger *log.Helper
}

// NewExtractorUseCase creates the extractor use case.
func NewExtractorUseCase(logger log.Logger) *ExtractorUseCase {
	return &ExtractorUseCase{
		logger: log.NewHelper(logger),
	}
}

// Extract attempts, in order: parse the entire text as the annex schema;
// parse the last brace-delimited trailing object; one repair call via
// repair (may be nil) followed by one revalidation. When a valid object
// is found it is stripped from the trailing text. When nothing valid is
// found the original text comes back with Valid=false and an empty
// annex.
func (uc *ExtractorUseCase) Extract(ctx context.Context, text string, repair RepairFunc) ExtractResult {
	// Whole text as JSON: the model answered with a bare object.
	if annex, ok := parseAnnex(text); ok {
		return ExtractResult{CleanedText: "", Annex: annex, Valid: true}
	}

	// Trailing brace-delimited object.
	if raw, start := trailingObject(text); raw != "" {
		if annex, ok := parseAnnex(raw); ok {
			cleaned := strings.TrimRight(strings.TrimSpace(text[:start]), "`\n ")
			return ExtractResult{CleanedText: cleaned, Annex: annex, Valid: true}
		}
	}

	// Exactly one repair attempt, never a second.
	if repair != nil {
		repaired, err := repair(ctx, text)
		if err != nil {
			uc.logger.Warnw("annex repair call failed", "error", err)
		} else {
			if annex, ok := parseAnnex(repaired); ok {
				return ExtractResult{CleanedText: strings.TrimSpace(stripTrailingObject(text)), Annex: annex, Valid: true}
			}
			if raw, _ := trailingObject(repaired); raw != "" {
				if annex, ok := parseAnnex(raw); ok {
					return ExtractResult{CleanedText: strings.TrimSpace(stripTrailingObject(text)), Annex: annex, Valid: true}
				}
			}
			uc.logger.Warnw("annex still invalid after repair")
		}
	}

	return ExtractResult{CleanedText: strings.TrimSpace(text), Valid: false}
}

// parseAnnex decodes and validates a candidate annex object. Numeric
// fields are clamped, unknown signal kinds and malformed entries are
// dropped, the signals array is capped. Missing discriminator fails the
// whole object.
func parseAnnex(raw string) (model.AnalysisAnnex, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '{' {
		return model.AnalysisAnnex{}, false
	}

	var annex model.AnalysisAnnex
	if err := json.Unmarshal([]byte(raw), &annex); err != nil {
		return model.AnalysisAnnex{}, false
	}

	switch annex.Sentiment {
	case model.SentimentBullish, model.SentimentBearish, model.SentimentNeutral:
	default:
		return model.AnalysisAnnex{}, false
	}

	if annex.Confidence < 0 {
		annex.Confidence = 0
	}
	if annex.Confidence > 1 {
		annex.Confidence = 1
	}

	valid := annex.Signals[:0]
	for _, sig := range annex.Signals {
		if !model.SignalKinds[sig.Kind] || sig.Label == "" {
			continue
		}
		valid = append(valid, sig)
		if len(valid) == model.MaxSignals {
			break
		}
	}
	annex.Signals = valid

	return annex, true
}

// trailingObject returns the last balanced brace-delimited substring
// that runs to the last closing brace of the text, plus its start
// offset. Returns ("", 0) when the text has no such object.
func trailingObject(text string) (string, int) {
	end := strings.LastIndexByte(text, '}')
	if end < 0 {
		return "", 0
	}

	// Forward scan with a stack of open braces so quote and escape state
	// is tracked left to right; the object closing at the last '}' is the
	// one whose matching '{' is on top of the stack at that point.
	var stack []int
	inString := false
	escaped := false
	for i := 0; i <= end; i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, i)
		case c == '}':
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if i == end {
				return text[start : end+1], start
			}
		}
	}
	return "", 0
}

// stripTrailingObject removes the trailing brace-delimited object, if
// any, from the text.
func stripTrailingObject(text string) string {
	if raw, start := trailingObject(text); raw != "" {
		return strings.TrimRight(text[:start], "`\n ")
	}
	return text
}
