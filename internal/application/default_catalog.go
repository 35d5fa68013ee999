package application

import "github.com/ahrav/galley/internal/domain"

// AllowedFonts is the PostScript font allowlist for manuscripts: the Times
// New Roman and Arial families.
var AllowedFonts = []string{
	"TimesNewRomanPSMT",
	"TimesNewRomanPS-BoldMT",
	"TimesNewRomanPS-ItalicMT",
	"TimesNewRomanPS-BoldItalicMT",
	"ArialMT",
	"Arial-BoldMT",
	"Arial-ItalicMT",
	"Arial-BoldItalicMT",
}

// DefaultCriteria returns the manuscript checklist in report order:
// physical layout (L), typography (T), section content (S) and
// references (R).
func DefaultCriteria() []domain.Criterion {
	f := domain.Float
	return []domain.Criterion{
		// Physical layout.
		domain.Quantitative{
			Rule:   rule("L01W", "Page width must be Letter 8.5 in (21.59 cm)", domain.SeverityError, "geometry.page_metrics.page_w_cm"),
			Target: f(21.59), Tolerance: f(0.2), Units: "cm",
		},
		domain.Quantitative{
			Rule:   rule("L01H", "Page height must be Letter 11 in (27.94 cm)", domain.SeverityError, "geometry.page_metrics.page_h_cm"),
			Target: f(27.94), Tolerance: f(0.2), Units: "cm",
		},
		domain.Quantitative{
			Rule:   rule("L02T", "Top margin exactly 4.3 cm ±0.2 cm", domain.SeverityWarning, "geometry.page_metrics.top_margin_cm"),
			Target: f(4.3), Tolerance: f(0.2), Units: "cm",
		},
		domain.Quantitative{
			Rule:   rule("L02B", "Bottom margin exactly 4.3 cm ±0.2 cm", domain.SeverityWarning, "geometry.page_metrics.bottom_margin_cm"),
			Target: f(4.3), Tolerance: f(0.2), Units: "cm",
		},
		domain.Quantitative{
			Rule:   rule("L02L", "Left margin exactly 4.8 cm ±0.2 cm", domain.SeverityWarning, "geometry.page_metrics.left_margin_cm"),
			Target: f(4.8), Tolerance: f(0.2), Units: "cm",
		},
		domain.Quantitative{
			Rule:   rule("L02R", "Right margin exactly 4.8 cm ±0.2 cm", domain.SeverityWarning, "geometry.page_metrics.right_margin_cm"),
			Target: f(4.8), Tolerance: f(0.2), Units: "cm",
		},
		domain.Structural{
			Rule:              rule("L03", "Single column, double-spaced throughout", domain.SeverityError, "geometry.structure.single_column_double_spaced"),
			ExpectedStructure: "single_column_double_spaced",
		},
		domain.Quantitative{
			Rule:     rule("L04", "Manuscript length 20–35 pages (≤40 for review)", domain.SeverityWarning, "structure.page_count"),
			MinValue: f(20), MaxValue: f(35), Units: "pages",
		},
		domain.Structural{
			Rule:              rule("L05", "All manuscript pages numbered consecutively", domain.SeverityError, "structure.consecutive_page_numbers"),
			ExpectedStructure: "consecutive_page_numbers",
		},
		domain.Quantitative{
			Rule:   rule("L06", "Footnote baseline 2.6 cm from bottom", domain.SeverityWarning, "geometry.page_metrics.footnote_baseline_cm"),
			Target: f(2.6), Tolerance: f(0.2), Units: "cm",
		},

		// Typography.
		domain.Categorical{
			Rule:          rule("T01", "Default (most frequent) font must be Times New Roman", domain.SeverityError, "fonts.most_common_body_font"),
			AllowedValues: []string{"TimesNewRomanPSMT", "Times New Roman"},
		},
		domain.Quantitative{
			Rule:   rule("T02_title", "Title font size 14 pt ±1 pt", domain.SeverityWarning, "fonts.fontsize.title_pt"),
			Target: f(14), Tolerance: f(0), Units: "pt",
		},
		domain.Quantitative{
			Rule:   rule("T02_body", "Body text 10 pt ±1 pt", domain.SeverityWarning, "fonts.fontsize.body_pt"),
			Target: f(10), Tolerance: f(0), Units: "pt",
		},
		domain.Quantitative{
			Rule:   rule("T02_captions", "Captions / footnotes / affiliations 8 pt ±1 pt", domain.SeverityWarning, "fonts.fontsize.smalltext_pt"),
			Target: f(8), Tolerance: f(0), Units: "pt",
		},

		// Section content.
		domain.Existential{
			Rule:       rule("S00", "Dedicated title page present (page 1)", domain.SeverityError, "structure.has_title_page"),
			MustBeTrue: true,
		},
		domain.Qualitative{
			Rule:           rule("S01", "Title ≤15 words, grammatical, no unexplained abbreviations", domain.SeverityWarning, "structure.title_text"),
			PromptTemplate: "prompts/title_check",
			LLMModel:       domain.DefaultLLMModel,
		},
		domain.Quantitative{
			Rule:     rule("S02", "Abstract ≤250 words", domain.SeverityError, "structure.abstract_wordcount"),
			MaxValue: f(250), Units: "words",
		},
		domain.Qualitative{
			Rule:           rule("S03", "Conclusions present, distinct from abstract, cover key points", domain.SeverityWarning, "structure.conclusions_vs_abstract"),
			PromptTemplate: "prompts/conclusions_check",
			LLMModel:       domain.DefaultLLMModel,
		},
		domain.Existential{
			Rule:       rule("S04", "Highlights file present (3–5 bullets, ≤85 chars each)", domain.SeverityWarning, "structure.highlights_ok"),
			MustBeTrue: true,
		},
		domain.Existential{
			Rule:       rule("S05", "CRediT author-contribution statement present", domain.SeverityWarning, "structure.has_credit_statement"),
			MustBeTrue: true,
		},
		domain.Existential{
			Rule:       rule("S06", "Generative-AI use declaration present if AI mentioned", domain.SeverityWarning, "structure.ai_use_statement"),
			MustBeTrue: true,
		},
		domain.Quantitative{
			Rule:     rule("S07", "Keywords section with 1–7 English keywords", domain.SeverityError, "structure.keyword_count"),
			MinValue: f(1), MaxValue: f(7), Units: "keywords",
		},

		// References and citations.
		domain.Quantitative{
			Rule:     rule("R01", "Total references 35–55 (warn if review >55 but ≤120)", domain.SeverityWarning, "references.count"),
			MinValue: f(35), MaxValue: f(55), Units: "references",
		},
		domain.Quantitative{
			Rule:     rule("R02", "≥30 % references from last 5 years", domain.SeverityWarning, "references.share_recent_pct"),
			MinValue: f(30), Units: "percent",
		},
		domain.Quantitative{
			Rule:     rule("R03", "≤20 % arXiv / non-peer-reviewed", domain.SeverityWarning, "references.share_preprint_pct"),
			MaxValue: f(20), Units: "percent",
		},
		domain.Structural{
			Rule:              rule("R04", "Bulk citation ranges must include commentary", domain.SeverityWarning, "references.bulk_citation_commentary"),
			ExpectedStructure: "commentary_present",
		},
		domain.Quantitative{
			Rule:     rule("R05", "Cite ≥3 recent Pattern-Recognition papers", domain.SeverityWarning, "references.count_pattern_recognition"),
			MinValue: f(3), Units: "papers",
		},

		// Font family checks over the whole inventory.
		domain.Categorical{
			Rule:                rule("T03", "At least 95 % of text set in Times New Roman or Arial", domain.SeverityWarning, "fonts.font_distribution"),
			AllowedValues:       AllowedFonts,
			ProportionThreshold: f(0.95),
		},
		domain.Structural{
			Rule:              rule("T04", "Only Times New Roman and Arial fonts embedded", domain.SeverityInfo, "fonts.only_allowed_fonts"),
			ExpectedStructure: "only_allowed_fonts",
		},
	}
}

// DefaultCatalog returns the built-in manuscript checklist.
func DefaultCatalog() *Catalog { return MustCatalog(DefaultCriteria()...) }

func rule(id, description string, severity domain.Severity, extractor domain.ExtractorRef) domain.Rule {
	return domain.Rule{ID: id, Description: description, Severity: severity, Extractor: extractor}
}
