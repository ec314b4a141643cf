package usecase

import (
	"strings"

	"prism-connector/domain/model"
)

// negativeKeywords is the fixed denylist for inbound comments. Any match
// forces human review; false positives are acceptable.
var negativeKeywords = []string{"詐騙", "假的", "退款", "投訴", "死", "爛", "垃圾", "騙", "黑心"}

// ClassifyRisk returns RiskHigh when the text contains any denylisted term,
// RiskLow otherwise. Case-sensitive substring match, deterministic and total.
func ClassifyRisk(text string) model.RiskLevel {
	for _, kw := range negativeKeywords {
		if strings.Contains(text, kw) {
			return model.RiskHigh
		}
	}
	return model.RiskLow
}
