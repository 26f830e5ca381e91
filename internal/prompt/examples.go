// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

// fewShotExamples holds one worked question and answer per category. Only
// categories with a distinctive answer shape carry an example.
var fewShotExamples = map[Category]string{
	CategoryPositioning: `Example Q: "How does magnesium glycinate compare to oxide for sleep?"
Example A: **Magnesium Glycinate vs Oxide for Sleep:**

| Feature | Glycinate | Oxide |
|---------|-----------|-------|
| Bioavailability | High | Low |
| Evidence strength | Strong (8 RCTs) | Limited (2 RCTs) |
| Effective dose | 200-400mg | 400-500mg |
| Tolerability | Excellent | GI side effects common |

Glycinate has stronger evidence for sleep outcomes, particularly PSQI improvement [1][2]. Oxide's low bioavailability limits clinical effect despite its higher elemental magnesium content.`,

	CategoryRegulatory: `Example Q: "What claims can we make for collagen and skin?"
Example A: **Recommended Claim Wording (Collagen + Skin Elasticity):**
- **Strong confidence:** "Collagen peptides support skin elasticity and hydration", supported by 12 RCTs [1][3]
- **Moderate confidence:** "May help reduce the appearance of fine lines", supported by 8 RCTs
- **Structure/function (21 CFR 101.93):** Qualifies with the current evidence base
- **EFSA Art. 13.5:** Application possible with additional bioavailability data`,

	CategoryGaps: `Example Q: "What are the evidence gaps for red clover?"
Example A: **Red Clover Evidence Gaps:**
1. **Long-term safety:** No RCTs beyond 24 months; the longest trial ran 12 months [2]
2. **Early perimenopause:** Most studies recruit postmenopausal women; only one pilot in perimenopause
3. **Dose-response:** Limited data on isoflavone doses outside 40-80mg
4. **Combination use:** No data on co-administration with HRT or probiotics

These gaps are investment opportunities, particularly an isoflavone plus probiotic combination study.`,
}

// examplesFor returns the examples for the detected categories in order.
func examplesFor(categories []Category) []string {
	var out []string
	for _, c := range categories {
		if ex, ok := fewShotExamples[c]; ok {
			out = append(out, ex)
		}
	}
	return out
}
